package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Nirajanoli4567/era-sub000/internal/auth"
	"github.com/Nirajanoli4567/era-sub000/internal/bargains"
	"github.com/Nirajanoli4567/era-sub000/internal/catalog"
	"github.com/Nirajanoli4567/era-sub000/internal/config"
	"github.com/Nirajanoli4567/era-sub000/internal/httpx"
	kafkax "github.com/Nirajanoli4567/era-sub000/internal/kafka"
	"github.com/Nirajanoli4567/era-sub000/internal/logging"
	"github.com/Nirajanoli4567/era-sub000/internal/notifications"
	"github.com/Nirajanoli4567/era-sub000/internal/orders"
	"github.com/Nirajanoli4567/era-sub000/internal/postgres"
	"github.com/Nirajanoli4567/era-sub000/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.ServiceName)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start()

	// Repos
	productRepo := &catalog.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}
	bargainRepo := &bargains.Repo{DB: db, Reconcile: orderRepo.ReconcileBargain}
	notifRepo := &notifications.Repo{DB: db}

	// Services
	bargainSvc := &bargains.Service{
		Store:    bargainRepo,
		Products: productRepo,
		Pub:      prod,
		Redis:    rdb,
		Log:      log,
		Name:     cfg.ServiceName,
	}
	orderSvc := &orders.Service{
		Store:    orderRepo,
		Products: productRepo,
		Bargains: bargainRepo,
		Pub:      prod,
		Redis:    rdb,
		Log:      log,
		Name:     cfg.ServiceName,
	}

	// Router & handlers
	guard := &auth.Guard{Secret: []byte(cfg.JWTSecret)}
	router := httpx.NewRouter()
	(&httpx.ProductsHandler{Repo: productRepo, Guard: guard, Log: log}).Register(router)
	(&httpx.BargainsHandler{Svc: bargainSvc, Guard: guard, Log: log}).Register(router)
	(&httpx.OrdersHandler{Svc: orderSvc, Redis: rdb, Guard: guard, Log: log}).Register(router)
	(&httpx.NotificationsHandler{Repo: notifRepo, Guard: guard, Log: log}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // close inbox -> flush & close writer
	prod.WaitClosed() // drain
}
