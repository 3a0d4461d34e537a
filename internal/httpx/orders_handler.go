package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Nirajanoli4567/era-sub000/internal/auth"
	"github.com/Nirajanoli4567/era-sub000/internal/orders"
	"github.com/Nirajanoli4567/era-sub000/internal/redisx"
)

type OrdersHandler struct {
	Svc   *orders.Service
	Redis *redis.Client
	Guard *auth.Guard
	Log   *zap.Logger
}

type CreateOrderReq struct {
	Items []orders.ItemInput `json:"items"`
	// ProposedCents, when set, asks for a whole-order discount and parks
	// the order in awaiting_bargain_approval.
	ProposedCents   int64  `json:"proposed_price_cents,omitempty"`
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Address         string `json:"address"`
	ShippingAddress string `json:"shipping_address"` // accepted alias for address
	PaymentMethod   string `json:"payment_method"`
}

type UpdateOrderStatusReq struct {
	Status string `json:"status"`
}

type UpdatePaymentStatusReq struct {
	PaymentStatus string `json:"payment_status"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Route("/api/orders", func(rt chi.Router) {
		rt.Use(h.Guard.Authenticate)
		rt.Post("/", h.create)
		rt.With(auth.RequireRole(auth.RoleAdmin)).Get("/all", h.listAll)
		rt.Get("/user", h.listOwn)
		rt.Get("/{orderID}", h.get)
		rt.Get("/{orderID}/status", h.getStatus)
		rt.With(auth.RequireRole(auth.RoleAdmin)).Patch("/{orderID}/status", h.updateStatus)
		rt.With(auth.RequireRole(auth.RoleAdmin)).Patch("/{orderID}/payment", h.updatePayment)
	})
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	address := req.Address
	if address == "" {
		address = req.ShippingAddress
	}
	if len(req.Items) == 0 || address == "" || req.FullName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	actor, _ := auth.FromContext(r.Context())
	o, err := h.Svc.Create(ctx, actor.ID, req.Items, orders.Shipping{
		FullName:      req.FullName,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       address,
		PaymentMethod: req.PaymentMethod,
	}, req.ProposedCents)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	os, err := h.Svc.ListAll(ctx)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, os)
}

func (h *OrdersHandler) listOwn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	actor, _ := auth.FromContext(r.Context())
	os, err := h.Svc.ListByUser(ctx, actor.ID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, os)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	actor, _ := auth.FromContext(r.Context())
	o, err := h.Svc.Get(ctx, actor, chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getStatus serves the lightweight status poll: Redis first, DB fallback
// (which also refreshes the cache). A cache hit is only served when the
// cached entry proves the caller may read the order; anything else falls
// through to the authorized read.
func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	actor, _ := auth.FromContext(r.Context())
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil {
			if st, ok := cachedStatusFor(actor, []byte(s)); ok {
				writeJSON(w, http.StatusOK, map[string]any{"status": st})
				return
			}
		}
	}

	o, err := h.Svc.Get(ctx, actor, orderID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if h.Redis != nil {
		if body, err := json.Marshal(orders.StatusCache{Status: o.Status, UserID: o.UserID}); err == nil {
			_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": o.Status})
}

// cachedStatusFor unpacks a cached status entry and applies the
// owner-or-admin rule to it. Entries without an owner (or that fail to
// decode) never satisfy a hit.
func cachedStatusFor(actor auth.Actor, raw []byte) (orders.Status, bool) {
	var sc orders.StatusCache
	if err := json.Unmarshal(raw, &sc); err != nil {
		return "", false
	}
	if sc.UserID == "" || sc.Status == "" {
		return "", false
	}
	if !actor.IsAdmin() && sc.UserID != actor.ID {
		return "", false
	}
	return sc.Status, true
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Svc.UpdateStatus(ctx, chi.URLParam(r, "orderID"), orders.Status(req.Status))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) updatePayment(w http.ResponseWriter, r *http.Request) {
	var req UpdatePaymentStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Svc.UpdatePaymentStatus(ctx, chi.URLParam(r, "orderID"), orders.PaymentStatus(req.PaymentStatus))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
