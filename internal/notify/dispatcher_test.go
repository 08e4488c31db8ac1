package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/middlemark/middlemark/internal/entity"
)

type recorderMailer struct {
	sent []Message
	fail bool
}

func (m *recorderMailer) Send(_ context.Context, msg Message) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func sampleOrder() *entity.Order {
	return &entity.Order{
		Code:          "KQX-204981",
		ReleaseToken:  "tok-1",
		Role:          entity.RoleBuyer,
		FirstName:     "Dana",
		LastName:      "Reyes",
		Email:         "dana@example.com",
		TotalPrice:    decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		DepositAmount: decimal.NewNullDecimal(decimal.NewFromInt(200)),
		Status:        entity.StatusAwaitingPayment,
	}
}

func newTestDispatcher(m Mailer) *Dispatcher {
	return &Dispatcher{
		mailer:      m,
		adminEmail:  "admin@example.com",
		baseURL:     "http://localhost:8080",
		sendTimeout: time.Second,
		logger:      zap.NewNop(),
	}
}

func TestDispatchNewOrder(t *testing.T) {
	t.Parallel()

	mailer := &recorderMailer{}
	d := newTestDispatcher(mailer)

	if err := d.Dispatch(context.Background(), EventNewOrder, sampleOrder()); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(mailer.sent))
	}

	admin, buyer := mailer.sent[0], mailer.sent[1]
	if admin.To != "admin@example.com" {
		t.Errorf("admin recipient = %q", admin.To)
	}
	if !strings.Contains(admin.Subject, "KQX-204981") {
		t.Errorf("admin subject missing order code: %q", admin.Subject)
	}
	if buyer.To != "dana@example.com" {
		t.Errorf("buyer recipient = %q", buyer.To)
	}
	if !strings.Contains(buyer.Body, "/invoices/KQX-204981?t=tok-1") {
		t.Errorf("buyer body missing invoice link:\n%s", buyer.Body)
	}
	if !strings.Contains(buyer.Body, "$1,000.00") {
		t.Errorf("buyer body missing formatted total:\n%s", buyer.Body)
	}
}

func TestDispatchLifecycleEvents(t *testing.T) {
	t.Parallel()

	for _, event := range []Event{EventPaymentConfirmed, EventFundsReleased} {
		event := event
		t.Run(string(event), func(t *testing.T) {
			t.Parallel()

			mailer := &recorderMailer{}
			d := newTestDispatcher(mailer)

			if err := d.Dispatch(context.Background(), event, sampleOrder()); err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			if len(mailer.sent) != 2 {
				t.Fatalf("sent %d messages, want 2", len(mailer.sent))
			}
			if mailer.sent[0].Body != mailer.sent[1].Body {
				t.Error("admin and buyer should receive the same body")
			}
			if mailer.sent[0].Subject != mailer.sent[1].Subject {
				t.Error("admin and buyer should receive the same subject")
			}
		})
	}
}

func TestDispatchSkipsEmptyRecipient(t *testing.T) {
	t.Parallel()

	mailer := &recorderMailer{}
	d := newTestDispatcher(mailer)

	order := sampleOrder()
	order.Email = ""
	if err := d.Dispatch(context.Background(), EventNewOrder, order); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d messages, want 1 (admin only)", len(mailer.sent))
	}
}

func TestDispatchSendFailure(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(&recorderMailer{fail: true})

	err := d.Dispatch(context.Background(), EventNewOrder, sampleOrder())
	if err == nil {
		t.Fatal("want error when mailer fails")
	}
	if !strings.Contains(err.Error(), "admin@example.com") || !strings.Contains(err.Error(), "dana@example.com") {
		t.Errorf("error should name both failed recipients: %v", err)
	}
}

func TestDispatchUnknownEvent(t *testing.T) {
	t.Parallel()

	mailer := &recorderMailer{}
	d := newTestDispatcher(mailer)

	if err := d.Dispatch(context.Background(), Event("bogus"), sampleOrder()); err == nil {
		t.Fatal("want error for unknown event")
	}
	if len(mailer.sent) != 0 {
		t.Errorf("sent %d messages, want 0", len(mailer.sent))
	}
}
