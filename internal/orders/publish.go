package orders

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/catalog"
)

type nopCache struct{}

func (nopCache) Get(context.Context, string) (StatusView, bool) { return StatusView{}, false }
func (nopCache) Put(context.Context, StatusView, int)          {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, []byte, Envelope) error { return nil }

// emit builds an envelope and hands it to the publisher. Failures are logged
// and dropped; the state change has already been committed.
func (s *Service) emit(ctx context.Context, topic, eventType, key string, payload any) {
	env, err := NewEnvelope(eventType, s.producer, key, traceID(ctx), payload)
	if err != nil {
		s.log.Error("build event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	if err := s.events.Publish(ctx, topic, PartitionKey(key), env); err != nil {
		s.log.Warn("publish event dropped",
			zap.String("topic", topic),
			zap.String("event_id", env.EventID),
			zap.Error(err),
		)
	}
}

func (s *Service) emitCreated(ctx context.Context, o Order) {
	items := make([]ItemPrice, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemPrice{ProductID: it.ProductID, Qty: it.Quantity, Price: it.Price})
	}
	s.emit(ctx, TopicOrderCreated, EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID:       o.ID,
		CustomerEmail: o.CustomerInfo.Email,
		Items:         items,
		TotalAmount:   o.TotalAmount,
	})
}

// emitLowStock sends one StockLow per product the reservation left under the
// threshold.
func (s *Service) emitLowStock(ctx context.Context, reserved []catalog.ReservedLine) {
	if s.lowStock <= 0 {
		return
	}
	seen := make(map[string]bool, len(reserved))
	for _, r := range reserved {
		if seen[r.ProductID] || r.Remaining >= s.lowStock {
			continue
		}
		seen[r.ProductID] = true
		s.log.Info("stock low", zap.String("product_id", r.ProductID), zap.Int("available", r.Remaining))
		s.emit(ctx, TopicStockLow, EventStockLow, r.ProductID, StockLowPayload{
			ProductID: r.ProductID,
			Name:      r.Name,
			Available: r.Remaining,
			Threshold: s.lowStock,
		})
	}
}

func traceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
