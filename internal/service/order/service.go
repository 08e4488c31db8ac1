package order

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/middlemark/middlemark/internal/cache"
	"github.com/middlemark/middlemark/internal/config"
	"github.com/middlemark/middlemark/internal/dto"
	"github.com/middlemark/middlemark/internal/entity"
	"github.com/middlemark/middlemark/internal/messaging"
	"github.com/middlemark/middlemark/internal/notify"
	"github.com/middlemark/middlemark/internal/observability"
	"github.com/middlemark/middlemark/internal/plan"
	repo "github.com/middlemark/middlemark/internal/repository/order"
	"github.com/middlemark/middlemark/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/middlemark/middlemark/service/order")

// Store is the persistence contract the lifecycle controller mutates
// orders through.
type Store interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByCode(ctx context.Context, code string) (*entity.Order, error)
	Update(ctx context.Context, order *entity.Order) error
	List(ctx context.Context) ([]entity.Order, error)
}

// Service owns the order lifecycle: it validates transitions, enforces
// token possession for buyer-triggered release, and orchestrates the plan
// calculator, store, cache, event bus, and notifier.
type Service struct {
	store     Store
	cache     cache.Store
	cacheTTL  time.Duration
	notifier  notify.Notifier
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
	now       func() time.Time
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Cache      cache.Store
	Notifier   notify.Notifier
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		store:     p.Repository,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		notifier:  p.Notifier,
		logger:    p.Logger,
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WarnNotificationFailed is surfaced to callers when a lifecycle
// notification could not be delivered. The state change itself stands.
const WarnNotificationFailed = "notification delivery failed"

// CreateOrder validates a submission, derives the payment plan, persists
// the order, and fires best-effort notifications. A notification failure
// does not roll back creation; it is returned as a warning.
func (s *Service) CreateOrder(ctx context.Context, sub dto.Submission) (*entity.Order, []string, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.CreateOrder", trace.WithAttributes(attribute.String("order.role", sub.Role)))
	defer span.End()

	if err := dto.ValidateSubmission(sub); err != nil {
		return nil, nil, err
	}

	derived := plan.Calculate(plan.Input{
		Role:         sub.Role,
		Plan:         sub.PaymentPlan,
		DepositType:  sub.DepositType,
		DepositValue: sub.DepositValue,
		TotalPrice:   sub.TotalPrice,
	})

	order := &entity.Order{
		ReleaseToken:  NewReleaseToken(),
		Role:          sub.Role,
		Source:        sub.Source,
		FirstName:     sub.FirstName,
		LastName:      sub.LastName,
		Email:         sub.Email,
		Phone:         sub.Phone,
		ItemDetails:   sub.ItemDetails,
		DeliveryNotes: sub.DeliveryNotes,
		TotalPrice:    sub.TotalPrice,
		PaymentPlan:   sub.PaymentPlan,
		DepositType:   sub.DepositType,
		DepositValue:  sub.DepositValue,
		Notes:         sub.Notes,
		DepositAmount: derived.Deposit,
		BalanceDue:    derived.Balance,
		PlanSummary:   derived.Summary,
		Status:        entity.StatusAwaitingPayment,
		EscrowBalance: decimal.Zero,
		CreatedAt:     s.now(),
	}

	if err := s.persistNew(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store error")
		return nil, nil, errorbank.Dependency("failed to create order", errorbank.WithCause(err))
	}
	span.SetAttributes(attribute.String("order.code", order.Code))

	observability.OrdersSubmitted.Inc()
	s.storeInCache(ctx, order)
	s.publishLifecycle(ctx, notify.EventNewOrder, order)

	return order, s.dispatch(ctx, notify.EventNewOrder, order), nil
}

// persistNew inserts the order under a freshly generated code, retrying on
// the rare code collision.
func (s *Service) persistNew(ctx context.Context, order *entity.Order) error {
	const maxAttempts = 5
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		order.Code, err = NewOrderCode()
		if err != nil {
			return err
		}
		err = s.store.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repo.ErrDuplicateCode) {
			return err
		}
	}
	return fmt.Errorf("exhausted order code attempts: %w", err)
}

// ConfirmPayment marks an order as paid. This is a trusted administrative
// operation; no token is required. Re-confirming an already-confirmed
// order is an idempotent no-op, confirming a released order is rejected.
func (s *Service) ConfirmPayment(ctx context.Context, code string, escrowAmount decimal.NullDecimal) (*entity.Order, []string, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ConfirmPayment", trace.WithAttributes(attribute.String("order.code", code)))
	defer span.End()

	order, err := s.load(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	switch order.Status {
	case entity.StatusPaymentConfirmed:
		return order, nil, nil
	case entity.StatusFundsReleased:
		return nil, nil, errorbank.InvalidState("funds already released")
	}

	paidAt := s.now()
	order.Status = entity.StatusPaymentConfirmed
	order.PaidAt = &paidAt
	if escrowAmount.Valid {
		order.EscrowBalance = escrowAmount.Decimal
	}

	if err := s.store.Update(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store error")
		return nil, nil, errorbank.Dependency("failed to confirm payment", errorbank.WithCause(err))
	}

	observability.PaymentsConfirmed.Inc()
	s.storeInCache(ctx, order)
	s.publishLifecycle(ctx, notify.EventPaymentConfirmed, order)

	return order, s.dispatch(ctx, notify.EventPaymentConfirmed, order), nil
}

// ReleaseFunds performs the buyer-triggered release. The presented token
// is checked before state so a bad token always fails with a forbidden
// error regardless of order status.
func (s *Service) ReleaseFunds(ctx context.Context, code, presentedToken string) (*entity.Order, []string, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ReleaseFunds", trace.WithAttributes(attribute.String("order.code", code)))
	defer span.End()

	order, err := s.load(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	if !tokenMatches(order.ReleaseToken, presentedToken) {
		return nil, nil, errorbank.Forbidden("release token missing or invalid")
	}

	if order.Status != entity.StatusPaymentConfirmed {
		if order.Status == entity.StatusFundsReleased {
			return nil, nil, errorbank.InvalidState("funds already released")
		}
		return nil, nil, errorbank.InvalidState("payment has not been confirmed")
	}

	releasedAt := s.now()
	order.Status = entity.StatusFundsReleased
	order.ReleasedAt = &releasedAt

	if err := s.store.Update(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store error")
		return nil, nil, errorbank.Dependency("failed to release funds", errorbank.WithCause(err))
	}

	observability.FundsReleased.Inc()
	s.storeInCache(ctx, order)
	s.publishLifecycle(ctx, notify.EventFundsReleased, order)

	return order, s.dispatch(ctx, notify.EventFundsReleased, order), nil
}

// GetOrder retrieves an order by code, consulting cache when available.
// Used by the invoice view; no token validation happens here.
func (s *Service) GetOrder(ctx context.Context, code string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.GetOrder", trace.WithAttributes(attribute.String("order.code", code)))
	defer span.End()

	if order, err := s.getFromCache(ctx, code); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		if s.logger != nil {
			s.logger.Warn("orders cache read failed", zap.String("code", code), zap.Error(err))
		}
	}

	order, err := s.load(ctx, code)
	if err != nil {
		span.SetStatus(codes.Error, "not found")
		return nil, err
	}

	s.storeInCache(ctx, order)
	return order, nil
}

func (s *Service) load(ctx context.Context, code string) (*entity.Order, error) {
	order, err := s.store.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		return nil, errorbank.Dependency("failed to load order", errorbank.WithCause(err))
	}
	return order, nil
}

// dispatch delivers the event best-effort and translates a failure into
// a caller-visible warning.
func (s *Service) dispatch(ctx context.Context, event notify.Event, order *entity.Order) []string {
	if err := s.notifier.Dispatch(ctx, event, order); err != nil {
		observability.NotificationFailures.Inc()
		return []string{WarnNotificationFailed}
	}
	return nil
}

func tokenMatches(stored, presented string) bool {
	if stored == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

func (s *Service) publishLifecycle(ctx context.Context, event notify.Event, order *entity.Order) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	evt := LifecycleEvent{
		Event:      string(event),
		Code:       order.Code,
		Status:     string(order.Status),
		OccurredAt: s.now(),
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal lifecycle event", zap.Error(err))
		}
		return
	}
	if err := s.publisher.Publish(ctx, []byte("order-"+order.Code), payload); err != nil {
		if s.logger != nil {
			s.logger.Error("publish lifecycle event", zap.String("event", string(event)), zap.Error(err))
		}
	}
}

func (s *Service) cacheKey(code string) string {
	return fmt.Sprintf("orders:%s", code)
}

func (s *Service) getFromCache(ctx context.Context, code string) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(code))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) {
	if s.cache == nil || order == nil {
		return
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(order.Code), bytes, s.cacheTTL); err != nil {
		if s.logger != nil {
			s.logger.Warn("orders cache write failed", zap.String("code", order.Code), zap.Error(err))
		}
	}
}

// LifecycleEvent is emitted on the bus for every order state change.
type LifecycleEvent struct {
	Event      string    `json:"event"`
	Code       string    `json:"code"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}
