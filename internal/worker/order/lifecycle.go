package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/middlemark/middlemark/internal/config"
	"github.com/middlemark/middlemark/internal/messaging"
	ordersvc "github.com/middlemark/middlemark/internal/service/order"
	"github.com/middlemark/middlemark/internal/worker"
)

var workerTracer = otel.Tracer("github.com/middlemark/middlemark/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewLifecycleHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewLifecycleHandler consumes order lifecycle events from the bus and
// records them as an audit trail.
func NewLifecycleHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.lifecycle", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.LifecycleEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode lifecycle event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		logger.Info("order lifecycle event",
			zap.String("event", event.Event),
			zap.String("code", event.Code),
			zap.String("status", event.Status),
			zap.Time("occurred_at", event.OccurredAt),
		)

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
