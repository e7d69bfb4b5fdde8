package kafka

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/ariefcatur/go-storefront/internal/orders"
)

const (
	HeaderEventType    = "x-event-type"
	HeaderEventVersion = "x-event-version"
)

// EventPublisher adapts Producer to the order service's publisher port.
type EventPublisher struct {
	p *Producer
}

func NewEventPublisher(p *Producer) *EventPublisher {
	return &EventPublisher{p: p}
}

func (e *EventPublisher) Publish(ctx context.Context, topic string, key []byte, env orders.Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}

	headers := []kafka.Header{
		{Key: HeaderEventType, Value: []byte(env.EventType)},
		{Key: HeaderEventVersion, Value: []byte(strconv.Itoa(env.EventVersion))},
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	return e.p.Publish(kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   b,
		Headers: headers,
		Time:    env.OccurredAt,
	})
}

// ContextFromHeaders restores the trace context a publisher injected.
func ContextFromHeaders(ctx context.Context, headers []kafka.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, h := range headers {
		carrier.Set(h.Key, string(h.Value))
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
