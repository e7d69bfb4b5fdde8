package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
)

// StockReserver is the catalog side of order placement and cancellation.
type StockReserver interface {
	Reserve(ctx context.Context, lines []catalog.LineRequest) ([]catalog.ReservedLine, error)
	Restore(ctx context.Context, lines []catalog.LineRequest) (skipped []string)
}

// StatusCache holds StatusView projections. Put must ignore versions older
// than the one already cached.
type StatusCache interface {
	Get(ctx context.Context, orderID string) (StatusView, bool)
	Put(ctx context.Context, view StatusView, version int)
}

// Publisher ships lifecycle events. It must not block the caller.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, env Envelope) error
}

type Option func(*Service)

func WithStatusCache(c StatusCache) Option { return func(s *Service) { s.cache = c } }
func WithPublisher(p Publisher) Option     { return func(s *Service) { s.events = p } }
func WithTracer(t trace.Tracer) Option     { return func(s *Service) { s.tracer = t } }
func WithProducerName(n string) Option     { return func(s *Service) { s.producer = n } }

// WithStrictTransitions restricts UpdateStatus to the forward-only graph.
func WithStrictTransitions(on bool) Option { return func(s *Service) { s.strict = on } }

// WithLowStockThreshold emits StockLow when a reservation leaves a product
// below n units. Zero disables it.
func WithLowStockThreshold(n int) Option { return func(s *Service) { s.lowStock = n } }

type Service struct {
	stock  StockReserver
	store  *Store
	cache  StatusCache
	events Publisher
	tracer trace.Tracer
	log    *zap.Logger

	producer string
	strict   bool
	lowStock int

	now   func() time.Time
	newID func() string
}

func NewService(stock StockReserver, store *Store, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		stock:    stock,
		store:    store,
		cache:    nopCache{},
		events:   nopPublisher{},
		tracer:   otel.Tracer("github.com/ariefcatur/go-storefront/internal/orders"),
		log:      log,
		producer: "storefront-api",
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateOrder reserves stock for every item and stores a pending order. When
// any line fails nothing is stored and no stock moves.
func (s *Service) CreateOrder(ctx context.Context, customer CustomerInfo, items []ItemRequest) (Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.create")
	defer span.End()
	span.SetAttributes(attribute.Int("order.item_count", len(items)))

	if err := validateOrder(customer, items); err != nil {
		return Order{}, spanFail(span, err)
	}

	lines := make([]catalog.LineRequest, 0, len(items))
	for _, it := range items {
		lines = append(lines, catalog.LineRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	reserved, err := s.stock.Reserve(ctx, lines)
	if err != nil {
		return Order{}, spanFail(span, err)
	}

	orderItems := make([]OrderItem, 0, len(reserved))
	for _, r := range reserved {
		orderItems = append(orderItems, NewOrderItem(r.ProductID, r.Quantity, r.UnitPrice))
	}
	now := s.now()
	order := Order{
		ID:           s.newID(),
		CustomerInfo: customer,
		Items:        orderItems,
		Status:       StatusPending,
		TotalAmount:  calculateTotal(orderItems),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Insert(ctx, order); err != nil {
		// uuid collision; give the stock back before reporting
		s.stock.Restore(ctx, lines)
		return Order{}, spanFail(span, err)
	}

	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("order.total", order.TotalAmount.String()),
	)
	span.SetStatus(codes.Ok, "order created")
	s.log.Info("order created",
		zap.String("order_id", order.ID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.TotalAmount.String()),
	)

	s.cache.Put(ctx, order.StatusView(), order.Version)
	s.emitCreated(ctx, order)
	s.emitLowStock(ctx, reserved)
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (Order, error) {
	return s.store.Find(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, f Filter) []Order {
	return s.store.List(ctx, f)
}

func (s *Service) OrdersByCustomer(ctx context.Context, email string) []Order {
	return s.store.FindByCustomerEmail(ctx, email)
}

// UpdateStatus moves an order to status. Cancelled orders are terminal, and a
// move to cancelled goes through CancelOrder so stock is released exactly once.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (Order, error) {
	to, err := ParseStatus(status)
	if err != nil {
		return Order{}, err
	}
	if to == StatusCancelled {
		return s.CancelOrder(ctx, id)
	}

	ctx, span := s.tracer.Start(ctx, "orders.update_status",
		trace.WithAttributes(attribute.String("order.id", id), attribute.String("order.status.to", string(to))))
	defer span.End()

	var from Status
	order, err := s.store.Update(ctx, id, func(o *Order) error {
		from = o.Status
		if o.Status == StatusCancelled {
			return &apperr.InvalidTransitionError{From: string(o.Status), To: string(to)}
		}
		if s.strict && o.Status != to && !CanTransition(o.Status, to) {
			return &apperr.InvalidTransitionError{From: string(o.Status), To: string(to)}
		}
		o.Status = to
		o.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return Order{}, spanFail(span, err)
	}

	s.log.Info("order status updated",
		zap.String("order_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	s.cache.Put(ctx, order.StatusView(), order.Version)
	s.emit(ctx, TopicOrderStatusChanged, EventOrderStatusChanged, order.ID, OrderStatusChangedPayload{
		OrderID: order.ID, From: from, To: to, TrackingNumber: order.TrackingNumber,
	})
	return order, nil
}

func (s *Service) AddTrackingNumber(ctx context.Context, id, trackingNumber string) (Order, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return Order{}, apperr.Invalid("trackingNumber", "must not be empty")
	}

	order, err := s.store.Update(ctx, id, func(o *Order) error {
		o.TrackingNumber = trackingNumber
		o.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.log.Info("tracking number assigned", zap.String("order_id", id), zap.String("tracking_number", trackingNumber))
	s.cache.Put(ctx, order.StatusView(), order.Version)
	return order, nil
}

// CancelOrder releases the order's stock and marks it cancelled. Shipped,
// delivered and already cancelled orders are rejected without touching stock.
func (s *Service) CancelOrder(ctx context.Context, id string) (Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.cancel", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	var (
		from    Status
		skipped []string
	)
	order, err := s.store.Update(ctx, id, func(o *Order) error {
		if !o.Status.Cancellable() {
			return &apperr.InvalidCancellationError{OrderID: o.ID, Status: string(o.Status)}
		}
		from = o.Status
		skipped = s.stock.Restore(ctx, itemLines(o.Items))
		o.Status = StatusCancelled
		o.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return Order{}, spanFail(span, err)
	}

	if len(skipped) > 0 {
		s.log.Warn("cancelled order references deleted products; stock not restored for them",
			zap.String("order_id", id), zap.Strings("product_ids", skipped))
	}
	s.log.Info("order cancelled", zap.String("order_id", id), zap.String("from", string(from)))
	span.SetStatus(codes.Ok, "order cancelled")

	s.cache.Put(ctx, order.StatusView(), order.Version)
	gone := make(map[string]bool, len(skipped))
	for _, id := range skipped {
		gone[id] = true
	}
	restored := make([]ItemQty, 0, len(order.Items))
	for _, it := range order.Items {
		if !gone[it.ProductID] {
			restored = append(restored, ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
		}
	}
	s.emit(ctx, TopicOrderCancelled, EventOrderCancelled, order.ID, OrderCancelledPayload{
		OrderID: order.ID, From: from, Restored: restored, Skipped: skipped,
	})
	return order, nil
}

// GetStatus serves the status projection, from cache when possible.
func (s *Service) GetStatus(ctx context.Context, id string) (StatusView, error) {
	if v, ok := s.cache.Get(ctx, id); ok {
		return v, nil
	}
	order, err := s.store.Find(ctx, id)
	if err != nil {
		return StatusView{}, err
	}
	s.cache.Put(ctx, order.StatusView(), order.Version)
	return order.StatusView(), nil
}

func itemLines(items []OrderItem) []catalog.LineRequest {
	lines := make([]catalog.LineRequest, 0, len(items))
	for _, it := range items {
		lines = append(lines, catalog.LineRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

func spanFail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, apperr.Kind(err).String())
	return err
}
