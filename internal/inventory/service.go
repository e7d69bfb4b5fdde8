package inventory

import (
	"context"
	"errors"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
)

const (
	TopicStockReceived = "catalog.stock.received"
	EventStockReceived = "StockReceived"
)

type StockReceivedPayload struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type Restocker interface {
	Receive(ctx context.Context, id string, qty int) (catalog.Product, error)
}

// Deduper tracks which event ids were already applied.
type Deduper interface {
	First(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// Service applies supplier receipts from the restock topic to the catalog.
type Service struct {
	Catalog Restocker
	Dedup   Deduper // optional
	Log     *zap.Logger
	Tracer  trace.Tracer
}

func NewService(c Restocker, dedup Deduper, log *zap.Logger) *Service {
	return &Service{
		Catalog: c,
		Dedup:   dedup,
		Log:     log,
		Tracer:  otel.Tracer("github.com/ariefcatur/go-storefront/internal/inventory"),
	}
}

// HandleStockReceived is the consumer handler. Malformed and unappliable
// events are logged and acknowledged; only transient failures are returned.
func (s *Service) HandleStockReceived(ctx context.Context, m kafkago.Message) error {
	ctx = kafkax.ContextFromHeaders(ctx, m.Headers)
	ctx, span := s.Tracer.Start(ctx, "inventory.stock_received")
	defer span.End()

	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		s.Log.Warn("drop malformed restock message", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != EventStockReceived {
		return nil
	}
	span.SetAttributes(attribute.String("event.id", env.EventID))

	if s.Dedup != nil {
		first, err := s.Dedup.First(ctx, env.EventID)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if !first {
			s.Log.Debug("duplicate restock event", zap.String("event_id", env.EventID))
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[StockReceivedPayload](env.Payload)
	if err != nil {
		s.Log.Warn("drop restock event", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	product, err := s.Catalog.Receive(ctx, p.ProductID, p.Qty)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrValidation):
		s.Log.Warn("restock rejected",
			zap.String("event_id", env.EventID),
			zap.String("product_id", p.ProductID),
			zap.Int("qty", p.Qty),
			zap.Error(err),
		)
		return nil
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "restock failed")
		if s.Dedup != nil {
			if ferr := s.Dedup.Forget(ctx, env.EventID); ferr != nil {
				s.Log.Warn("dedup forget", zap.String("event_id", env.EventID), zap.Error(ferr))
			}
		}
		return err
	}

	s.Log.Info("stock received",
		zap.String("event_id", env.EventID),
		zap.String("product_id", product.ID),
		zap.Int("qty", p.Qty),
		zap.Int("stock", product.Stock),
	)
	return nil
}
