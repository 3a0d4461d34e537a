package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Nirajanoli4567/era-sub000/internal/events"
	kafkax "github.com/Nirajanoli4567/era-sub000/internal/kafka"
	"github.com/Nirajanoli4567/era-sub000/internal/metrics"
	"github.com/Nirajanoli4567/era-sub000/internal/redisx"
)

// Sink is the persistence surface the consumer writes through.
type Sink interface {
	InsertForEvent(ctx context.Context, eventID string, n *Notification) (bool, error)
}

// Service turns bargain/order outcome events into notification rows.
// Delivery is at-least-once, so it dedups by event id in Redis and the
// insert itself is idempotent on event id.
type Service struct {
	Sink  Sink
	Redis *redis.Client // optional
	Log   *zap.Logger
	Name  string // dedup namespace
}

// HandleEvent is mounted as the consumer handler.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	n, err := Build(env)
	if err != nil {
		return err
	}
	if n == nil {
		return nil // event type we do not notify on
	}

	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, s.Name, env.EventID)
		if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
			return nil
		}
	}

	inserted, err := s.Sink.InsertForEvent(ctx, env.EventID, n)
	if err != nil {
		return err
	}
	// The dedup key is set only once the row exists; a failed insert stays
	// retriable on redelivery, the unique constraint absorbs duplicates.
	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, s.Name, env.EventID)
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}
	if inserted {
		metrics.NotificationsWritten.Inc()
		if s.Log != nil {
			s.Log.Info("notification written",
				zap.String("user_id", n.UserID),
				zap.String("type", n.Type),
				zap.String("event_id", env.EventID))
		}
	}
	return nil
}

// Build maps an event envelope to the notification it produces, or nil
// when the event carries nothing user-facing.
func Build(env events.Envelope) (*Notification, error) {
	switch env.EventType {
	case events.EventBargainResolved:
		p, err := kafkax.UnwrapPayload[events.BargainResolvedPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		var msg string
		switch p.Status {
		case "accepted":
			msg = fmt.Sprintf("Your offer of %s was accepted.", formatCents(p.ProposedCents))
		case "rejected":
			msg = fmt.Sprintf("Your offer of %s was rejected.", formatCents(p.ProposedCents))
		case "countered":
			msg = fmt.Sprintf("The seller countered your offer of %s with %s.",
				formatCents(p.ProposedCents), formatCents(p.CounterCents))
		default:
			return nil, fmt.Errorf("unexpected bargain status %q", p.Status)
		}
		if p.Note != "" {
			msg += " Note: " + p.Note
		}
		return &Notification{
			UserID:  p.UserID,
			Message: msg,
			Type:    TypeBargain,
			Link:    "/bargains/" + p.BargainID,
		}, nil

	case events.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[events.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		return &Notification{
			UserID:  p.UserID,
			Message: fmt.Sprintf("Order %s is now %s.", p.OrderNumber, p.To),
			Type:    TypeOrder,
			Link:    "/orders/" + p.OrderID,
		}, nil

	case events.EventOrderRemoved:
		p, err := kafkax.UnwrapPayload[events.OrderRemovedPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		return &Notification{
			UserID:  p.UserID,
			Message: fmt.Sprintf("Order %s was cancelled because the proposed price was rejected.", p.OrderNumber),
			Type:    TypeOrder,
		}, nil
	}
	return nil, nil
}

func formatCents(c int64) string {
	return fmt.Sprintf("$%d.%02d", c/100, c%100)
}
