package bargains

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Nirajanoli4567/era-sub000/internal/auth"
	"github.com/Nirajanoli4567/era-sub000/internal/catalog"
	"github.com/Nirajanoli4567/era-sub000/internal/domain"
	"github.com/Nirajanoli4567/era-sub000/internal/events"
	kafkax "github.com/Nirajanoli4567/era-sub000/internal/kafka"
	"github.com/Nirajanoli4567/era-sub000/internal/metrics"
	"github.com/Nirajanoli4567/era-sub000/internal/redisx"
)

// Store is what the service needs from persistence (mockable in tests).
type Store interface {
	Insert(ctx context.Context, b *Bargain) error
	GetByID(ctx context.Context, id string) (*Bargain, error)
	ListAll(ctx context.Context) ([]Bargain, error)
	ListByUser(ctx context.Context, userID string) ([]Bargain, error)
	ListByVendor(ctx context.Context, vendorID string) ([]Bargain, error)
	Resolve(ctx context.Context, id string, to Status, note, responder string, counterCents int64) (*Bargain, ReconcileResult, error)
	DeletePending(ctx context.Context, id, userID string) error
}

type ProductCatalog interface {
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
}

type Publisher interface {
	Publish(topic string, key, value []byte)
}

type Service struct {
	Store    Store
	Products ProductCatalog
	Pub      Publisher     // optional
	Redis    *redis.Client // optional, status cache only
	Log      *zap.Logger
	Name     string // producer name stamped on events
}

// Create opens a product-level negotiation. The proposal must be a strict
// discount on the product's current price; the price is snapshotted so
// later catalog edits do not move the goalposts.
func (s *Service) Create(ctx context.Context, buyerID, productID string, proposedCents int64) (*Bargain, error) {
	p, err := s.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if proposedCents <= 0 {
		return nil, fmt.Errorf("proposed price must be positive: %w", domain.ErrValidation)
	}
	if proposedCents >= p.PriceCents {
		return nil, fmt.Errorf("proposed price must be below the product price: %w", domain.ErrValidation)
	}

	b := &Bargain{
		ID:            uuid.NewString(),
		UserID:        buyerID,
		ProductID:     productID,
		Scope:         ScopeProduct,
		OriginalCents: p.PriceCents,
		ProposedCents: proposedCents,
		Status:        StatusPending,
	}
	if err := s.Store.Insert(ctx, b); err != nil {
		return nil, err
	}

	s.cacheStatus(ctx, b)
	s.emit(events.TopicBargainCreated, events.EventBargainCreated, b.ID, events.BargainCreatedPayload{
		BargainID:     b.ID,
		UserID:        b.UserID,
		ProductID:     b.ProductID,
		Scope:         string(b.Scope),
		OriginalCents: b.OriginalCents,
		ProposedCents: b.ProposedCents,
	})
	return b, nil
}

// BuildOrderBargain validates and shapes a whole-order bargain from a cart
// snapshot. It does not persist: order creation inserts it in the same
// transaction as the order.
func BuildOrderBargain(buyerID string, items []Item, originalCents, proposedCents int64) (*Bargain, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("order bargain needs items: %w", domain.ErrValidation)
	}
	if proposedCents <= 0 {
		return nil, fmt.Errorf("proposed total must be positive: %w", domain.ErrValidation)
	}
	if proposedCents >= originalCents {
		return nil, fmt.Errorf("proposed total must be below the order total: %w", domain.ErrValidation)
	}
	return &Bargain{
		ID:            uuid.NewString(),
		UserID:        buyerID,
		Scope:         ScopeOrder,
		Items:         items,
		OriginalCents: originalCents,
		ProposedCents: proposedCents,
		Status:        StatusPending,
	}, nil
}

// Resolve is the single resolution path for both admin and vendor actors.
// Vendors are restricted to bargains on products they own; admins resolve
// anything. Dependent orders are reconciled regardless of who resolved,
// inside the same transaction as the status flip.
func (s *Service) Resolve(ctx context.Context, actor auth.Actor, id string, decision Decision, note string, counterCents int64) (*Bargain, ReconcileResult, error) {
	target, ok := decision.Target()
	if !ok {
		return nil, ReconcileResult{}, fmt.Errorf("unknown decision %q: %w", decision, domain.ErrValidation)
	}
	if !actor.IsAdmin() && !actor.IsVendor() {
		return nil, ReconcileResult{}, fmt.Errorf("seller role required: %w", domain.ErrUnauthorized)
	}
	if decision == DecisionCounter && !actor.IsVendor() {
		return nil, ReconcileResult{}, fmt.Errorf("counter-offers are a vendor action: %w", domain.ErrValidation)
	}

	b, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, ReconcileResult{}, err
	}

	if actor.IsVendor() {
		if b.ProductID == "" {
			return nil, ReconcileResult{}, fmt.Errorf("order-level bargains are resolved by admins: %w", domain.ErrUnauthorized)
		}
		p, err := s.Products.GetByID(ctx, b.ProductID)
		if err != nil {
			return nil, ReconcileResult{}, err
		}
		if p.VendorID != actor.ID {
			return nil, ReconcileResult{}, fmt.Errorf("bargain is on another vendor's product: %w", domain.ErrUnauthorized)
		}
	}

	if decision == DecisionCounter {
		if counterCents <= 0 || counterCents >= b.OriginalCents {
			return nil, ReconcileResult{}, fmt.Errorf("counter-offer must be between zero and the original price: %w", domain.ErrValidation)
		}
	} else {
		counterCents = 0
	}

	resolved, rec, err := s.Store.Resolve(ctx, id, target, note, actor.ID, counterCents)
	if err != nil {
		return nil, ReconcileResult{}, err
	}

	metrics.BargainsResolved.WithLabelValues(string(target)).Inc()
	s.cacheStatus(ctx, resolved)

	s.emit(events.TopicBargainResolved, events.EventBargainResolved, resolved.ID, events.BargainResolvedPayload{
		BargainID:     resolved.ID,
		UserID:        resolved.UserID,
		ProductID:     resolved.ProductID,
		Scope:         string(resolved.Scope),
		Status:        string(resolved.Status),
		ProposedCents: resolved.ProposedCents,
		CounterCents:  resolved.CounterCents,
		Note:          resolved.ResponseNote,
	})
	for _, o := range rec.Released {
		metrics.OrdersReconciled.WithLabelValues("released").Inc()
		s.emit(events.TopicOrderStatus, events.EventOrderStatusChanged, o.OrderID, events.OrderStatusChangedPayload{
			OrderID:     o.OrderID,
			OrderNumber: o.OrderNumber,
			UserID:      o.UserID,
			From:        "awaiting_bargain_approval",
			To:          "pending",
		})
	}
	for _, o := range rec.Removed {
		metrics.OrdersReconciled.WithLabelValues("removed").Inc()
		s.emit(events.TopicOrderRemoved, events.EventOrderRemoved, o.OrderID, events.OrderRemovedPayload{
			OrderID:     o.OrderID,
			OrderNumber: o.OrderNumber,
			UserID:      o.UserID,
			Reason:      "BARGAIN_REJECTED",
		})
	}
	return resolved, rec, nil
}

// Cancel withdraws the caller's own pending bargain.
func (s *Service) Cancel(ctx context.Context, actor auth.Actor, id string) error {
	return s.Store.DeletePending(ctx, id, actor.ID)
}

func (s *Service) ListAll(ctx context.Context) ([]Bargain, error) { return s.Store.ListAll(ctx) }

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Bargain, error) {
	return s.Store.ListByUser(ctx, userID)
}

func (s *Service) ListByVendor(ctx context.Context, vendorID string) ([]Bargain, error) {
	return s.Store.ListByVendor(ctx, vendorID)
}

func (s *Service) cacheStatus(ctx context.Context, b *Bargain) {
	if s.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyBargainStatus, b.ID)
	_ = s.Redis.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, b.Status), redisx.TTLStatusCache).Err()
}

func (s *Service) emit(topic, eventType, correlationID string, payload any) {
	if s.Pub == nil {
		return
	}
	env := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Name,
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	s.Pub.Publish(topic, events.PartitionKey(correlationID), kafkax.MustMarshal(env))
	if s.Log != nil {
		s.Log.Info("event published", zap.String("type", eventType), zap.String("correlation_id", correlationID))
	}
}
