package messaging

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// kafka-go validates client-side that a topic is not set on both the
// writer and the message; that validation error is returned before any
// broker connection is attempted, so it is detectable without a broker.
func TestKafkaPublishSetsTopicOnWriterOnly(t *testing.T) {
	t.Parallel()

	writer := &kafka.Writer{
		Addr:         kafka.TCP("127.0.0.1:1"),
		Topic:        "orders.lifecycle",
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
	t.Cleanup(func() { _ = writer.Close() })

	client := &kafkaClient{writer: writer, topic: "orders.lifecycle", logger: zap.NewNop()}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := client.Publish(ctx, []byte("order-KQX-204981"), []byte(`{"event":"new-order"}`))
	if err == nil {
		t.Fatal("want a connection error against an unreachable broker")
	}
	if strings.Contains(err.Error(), "must not be specified for both") {
		t.Fatalf("publish rejected client-side by topic validation: %v", err)
	}
}

func TestNoopClient(t *testing.T) {
	t.Parallel()

	client := noopClient{topic: "orders.lifecycle"}

	if err := client.Publish(context.Background(), []byte("k"), []byte("v")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := client.Topic(); got != "orders.lifecycle" {
		t.Errorf("Topic = %q", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.Consume(ctx, nil); err != context.Canceled {
		t.Errorf("Consume on cancelled context = %v, want context.Canceled", err)
	}
}
