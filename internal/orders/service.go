package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Nirajanoli4567/era-sub000/internal/auth"
	"github.com/Nirajanoli4567/era-sub000/internal/bargains"
	"github.com/Nirajanoli4567/era-sub000/internal/catalog"
	"github.com/Nirajanoli4567/era-sub000/internal/domain"
	"github.com/Nirajanoli4567/era-sub000/internal/events"
	kafkax "github.com/Nirajanoli4567/era-sub000/internal/kafka"
	"github.com/Nirajanoli4567/era-sub000/internal/metrics"
	"github.com/Nirajanoli4567/era-sub000/internal/redisx"
)

type ItemInput struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	BargainID string `json:"bargain_id,omitempty"`
}

type Store interface {
	Create(ctx context.Context, o *Order, ob *bargains.Bargain) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	UpdatePaymentStatus(ctx context.Context, id string, ps PaymentStatus) error
}

type ProductCatalog interface {
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
}

type BargainReader interface {
	GetByID(ctx context.Context, id string) (*bargains.Bargain, error)
}

type Publisher interface {
	Publish(topic string, key, value []byte)
}

type Service struct {
	Store    Store
	Products ProductCatalog
	Bargains BargainReader
	Pub      Publisher     // optional
	Redis    *redis.Client // optional, status cache only
	Log      *zap.Logger
	Name     string
}

// Create runs checkout. Line prices are resolved once and frozen: an
// accepted bargain owned by the buyer for that exact product wins,
// anything else falls back to the live catalog price. A proposed total
// turns into a whole-order bargain persisted with the order, which then
// starts out blocked in awaiting_bargain_approval.
func (s *Service) Create(ctx context.Context, buyerID string, items []ItemInput, ship Shipping, proposedTotalCents int64) (*Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("order needs at least one item: %w", domain.ErrValidation)
	}

	lines := make([]OrderItem, 0, len(items))
	snapshot := make([]bargains.Item, 0, len(items))
	var total int64
	for _, it := range items {
		if it.Qty <= 0 {
			return nil, fmt.Errorf("invalid qty for product %s: %w", it.ProductID, domain.ErrValidation)
		}
		p, err := s.Products.GetByID(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}

		price := p.PriceCents
		bargainID := ""
		if it.BargainID != "" {
			b, err := s.Bargains.GetByID(ctx, it.BargainID)
			if err != nil {
				return nil, err
			}
			// Only an accepted bargain owned by this buyer for this
			// product discounts the line; otherwise the live price holds.
			if b.Status == bargains.StatusAccepted && b.UserID == buyerID && b.ProductID == it.ProductID {
				price = b.ProposedCents
				bargainID = b.ID
			}
		}

		lines = append(lines, OrderItem{
			ProductID:  it.ProductID,
			Qty:        it.Qty,
			PriceCents: price,
			BargainID:  bargainID,
		})
		snapshot = append(snapshot, bargains.Item{ProductID: it.ProductID, Qty: it.Qty})
		total += price * int64(it.Qty)
	}

	o := &Order{
		ID:            uuid.NewString(),
		UserID:        buyerID,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		TotalCents:    total,
		Shipping:      ship,
		Items:         lines,
	}

	var ob *bargains.Bargain
	if proposedTotalCents != 0 {
		var err error
		ob, err = bargains.BuildOrderBargain(buyerID, snapshot, total, proposedTotalCents)
		if err != nil {
			return nil, err
		}
		o.ProposedTotalCents = proposedTotalCents
		o.Status = StatusAwaitingBargain
	}

	if err := s.Store.Create(ctx, o, ob); err != nil {
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	s.cacheStatus(ctx, o)
	s.emit(events.TopicOrderCreated, events.EventOrderCreated, o.ID, events.OrderCreatedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Status:      string(o.Status),
		TotalCents:  o.TotalCents,
	})
	return o, nil
}

// Get enforces the owner-or-admin read rule.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (*Order, error) {
	o, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && o.UserID != actor.ID {
		return nil, fmt.Errorf("order %s belongs to another user: %w", id, domain.ErrUnauthorized)
	}
	return o, nil
}

func (s *Service) ListAll(ctx context.Context) ([]Order, error) { return s.Store.ListAll(ctx) }

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.Store.ListByUser(ctx, userID)
}

// UpdateStatus moves an order along the fulfillment machine. Transitions
// are checked against the table in status.go; the write itself is
// conditional on the status the check saw.
func (s *Service) UpdateStatus(ctx context.Context, id string, next Status) (*Order, error) {
	if !ValidStatus(next) {
		return nil, fmt.Errorf("unknown status %q: %w", next, domain.ErrValidation)
	}
	o, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, next) {
		return nil, fmt.Errorf("cannot move order from %s to %s: %w", o.Status, next, domain.ErrInvalidState)
	}
	if err := s.Store.UpdateStatus(ctx, id, o.Status, next); err != nil {
		return nil, err
	}

	from := o.Status
	o.Status = next
	o.UpdatedAt = time.Now().UTC()
	s.cacheStatus(ctx, o)
	s.emit(events.TopicOrderStatus, events.EventOrderStatusChanged, o.ID, events.OrderStatusChangedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		From:        string(from),
		To:          string(next),
	})
	return o, nil
}

// UpdatePaymentStatus is an independent axis from fulfillment status.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id string, ps PaymentStatus) (*Order, error) {
	if !ValidPaymentStatus(ps) {
		return nil, fmt.Errorf("unknown payment status %q: %w", ps, domain.ErrValidation)
	}
	if err := s.Store.UpdatePaymentStatus(ctx, id, ps); err != nil {
		return nil, err
	}
	return s.Store.GetByID(ctx, id)
}

// StatusCache is the shape stored under KeyOrderStatus. The owner travels
// with the entry so the status poll can authorize a cache hit without a
// database read.
type StatusCache struct {
	Status Status `json:"status"`
	UserID string `json:"user_id"`
}

func (s *Service) cacheStatus(ctx context.Context, o *Order) {
	if s.Redis == nil {
		return
	}
	body, err := json.Marshal(StatusCache{Status: o.Status, UserID: o.UserID})
	if err != nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	_ = s.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
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
