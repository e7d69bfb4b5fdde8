package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/orders"
)

func TestProducer_PublishNeverBlocks(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 1, zap.NewNop())

	require.NoError(t, p.Publish(kafka.Message{Topic: "t", Value: []byte("a")}))
	require.ErrorIs(t, p.Publish(kafka.Message{Topic: "t", Value: []byte("b")}), ErrBufferFull)

	p.Close()
	p.Close()
	require.ErrorIs(t, p.Publish(kafka.Message{Topic: "t", Value: []byte("c")}), ErrClosed)
}

func TestEventPublisher_Message(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 4, zap.NewNop())
	pub := NewEventPublisher(p)

	env, err := orders.NewEnvelope(orders.EventOrderCreated, "storefront-api", "order-1", "", orders.OrderCreatedPayload{OrderID: "order-1"})
	require.NoError(t, err)
	require.NoError(t, pub.Publish(context.Background(), orders.TopicOrderCreated, orders.PartitionKey("order-1"), env))

	m := <-p.inbox
	assert.Equal(t, orders.TopicOrderCreated, m.Topic)
	assert.Equal(t, []byte("order-1"), m.Key)

	headers := map[string]string{}
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, orders.EventOrderCreated, headers[HeaderEventType])
	assert.Equal(t, "1", headers[HeaderEventVersion])

	got, err := DecodeEnvelope(m.Value)
	require.NoError(t, err)
	assert.Equal(t, env.EventID, got.EventID)

	payload, err := UnwrapPayload[orders.OrderCreatedPayload](got.Payload)
	require.NoError(t, err)
	assert.Equal(t, "order-1", payload.OrderID)
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	_, err := DecodeEnvelope([]byte("{"))
	require.Error(t, err)

	_, err = UnwrapPayload[orders.StockLowPayload](json.RawMessage(`"nope"`))
	require.Error(t, err)
}
