// Package notify renders and delivers order lifecycle notifications to the
// service admin and the order's contact address.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/middlemark/middlemark/internal/config"
	"github.com/middlemark/middlemark/internal/entity"
	"github.com/middlemark/middlemark/internal/invoice"
)

// Event identifies an order lifecycle notification kind.
type Event string

const (
	EventNewOrder         Event = "new-order"
	EventPaymentConfirmed Event = "payment-confirmed"
	EventFundsReleased    Event = "funds-released"
)

// Notifier delivers lifecycle notifications for an order. Delivery is a
// blocking external call bounded by the configured send timeout; a failure
// never reverts already-persisted order state.
type Notifier interface {
	Dispatch(ctx context.Context, event Event, order *entity.Order) error
}

// Module wires the mail transport and dispatcher.
var Module = fx.Provide(NewMailer, NewDispatcher)

// Dispatcher is the Mailer-backed Notifier.
type Dispatcher struct {
	mailer      Mailer
	adminEmail  string
	baseURL     string
	sendTimeout time.Duration
	logger      *zap.Logger
}

// Params defines dependencies for constructing the Dispatcher.
type Params struct {
	fx.In

	Mailer Mailer
	Config config.Config
	Logger *zap.Logger
}

// NewDispatcher builds the Notifier from configuration.
func NewDispatcher(p Params) Notifier {
	return &Dispatcher{
		mailer:      p.Mailer,
		adminEmail:  p.Config.App.AdminEmail,
		baseURL:     p.Config.App.BaseURL,
		sendTimeout: p.Config.Mail.SendTimeout,
		logger:      p.Logger,
	}
}

// Dispatch renders the event's messages and sends them to the relevant
// recipients. All recipients are attempted; failures are joined.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}

	data := newTemplateData(order, invoice.URL(d.baseURL, order.Code, order.ReleaseToken))

	msgs, err := d.messagesFor(event, order, data)
	if err != nil {
		return err
	}

	var sendErr error
	for _, msg := range msgs {
		if msg.To == "" {
			continue
		}
		sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
		err := d.mailer.Send(sendCtx, msg)
		cancel()
		if err != nil {
			if d.logger != nil {
				d.logger.Error("notification delivery failed",
					zap.String("event", string(event)),
					zap.String("order", order.Code),
					zap.String("to", msg.To),
					zap.Error(err),
				)
			}
			sendErr = errors.Join(sendErr, fmt.Errorf("send %s to %s: %w", event, msg.To, err))
		}
	}
	return sendErr
}

func (d *Dispatcher) messagesFor(event Event, order *entity.Order, data templateData) ([]Message, error) {
	switch event {
	case EventNewOrder:
		adminBody, err := renderBody("new_order_admin", data)
		if err != nil {
			return nil, err
		}
		buyerBody, err := renderBody("invoice_buyer", data)
		if err != nil {
			return nil, err
		}
		return []Message{
			{To: d.adminEmail, Subject: fmt.Sprintf("New escrow order %s", order.Code), Body: adminBody},
			{To: order.Email, Subject: fmt.Sprintf("Your escrow invoice %s", order.Code), Body: buyerBody},
		}, nil
	case EventPaymentConfirmed:
		body, err := renderBody("payment_confirmed", data)
		if err != nil {
			return nil, err
		}
		subject := fmt.Sprintf("Payment confirmed for order %s", order.Code)
		return []Message{
			{To: d.adminEmail, Subject: subject, Body: body},
			{To: order.Email, Subject: subject, Body: body},
		}, nil
	case EventFundsReleased:
		body, err := renderBody("funds_released", data)
		if err != nil {
			return nil, err
		}
		subject := fmt.Sprintf("Funds released for order %s", order.Code)
		return []Message{
			{To: d.adminEmail, Subject: subject, Body: body},
			{To: order.Email, Subject: subject, Body: body},
		}, nil
	default:
		return nil, fmt.Errorf("unknown notification event: %s", event)
	}
}
