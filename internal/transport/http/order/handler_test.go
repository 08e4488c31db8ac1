package order

import (
	"context"
	"database/sql"
	"errors"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/middlemark/middlemark/internal/cache"
	"github.com/middlemark/middlemark/internal/config"
	"github.com/middlemark/middlemark/internal/database"
	"github.com/middlemark/middlemark/internal/entity"
	"github.com/middlemark/middlemark/internal/notify"
	repo "github.com/middlemark/middlemark/internal/repository/order"
	service "github.com/middlemark/middlemark/internal/service/order"
)

type fakeNotifier struct {
	events []notify.Event
	failOn map[notify.Event]bool
}

func (n *fakeNotifier) Dispatch(_ context.Context, event notify.Event, _ *entity.Order) error {
	n.events = append(n.events, event)
	if n.failOn[event] {
		return errors.New("smtp unavailable")
	}
	return nil
}

func testConfig() config.Config {
	return config.Config{
		App: config.App{
			BaseURL:    "http://localhost:8080",
			AdminEmail: "admin@example.com",
		},
		Cache: config.Cache{Driver: "noop", DefaultTTL: time.Minute},
	}
}

func newTestServer(t *testing.T) (*echo.Echo, *fakeNotifier) {
	t.Helper()

	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.NewCreateTable().Model((*entity.Order)(nil)).Exec(context.Background()); err != nil {
		t.Fatalf("create table: %v", err)
	}

	cfg := testConfig()
	store, err := cache.NewStore(nil, cfg, nil)
	if err != nil {
		t.Fatalf("cache store: %v", err)
	}

	notifier := &fakeNotifier{}
	svc := service.NewService(service.Params{
		Repository: repo.NewRepository(&database.Connections{Writer: db, Reader: db}),
		Cache:      store,
		Notifier:   notifier,
		Config:     cfg,
		Logger:     zap.NewNop(),
	})

	e := echo.New()
	Register(e, NewHandler(svc, cfg))
	return e, notifier
}

func submitForm(t *testing.T, e *echo.Echo, form url.Values) map[string]any {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body: %s", rec.Code, rec.Body.String())
	}
	return decodeJSON(t, rec)
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func validForm() url.Values {
	return url.Values{
		"role":         {"buyer"},
		"source":       {"marketplace"},
		"firstName":    {"Dana"},
		"lastName":     {"Reyes"},
		"email":        {"dana@example.com"},
		"phone":        {"+1 555 0101"},
		"itemDetails":  {"Vintage synthesizer"},
		"totalPrice":   {"1000"},
		"paymentPlan":  {"down"},
		"depositType":  {"percent"},
		"depositValue": {"20"},
	}
}

func TestSubmitCreatesOrder(t *testing.T) {
	e, notifier := newTestServer(t)

	body := submitForm(t, e, validForm())

	if body["ok"] != true {
		t.Fatalf("ok = %v", body["ok"])
	}
	orderID, _ := body["orderId"].(string)
	if orderID == "" {
		t.Fatal("orderId missing from response")
	}
	invoiceURL, _ := body["invoiceUrl"].(string)
	if !strings.Contains(invoiceURL, "/invoices/"+orderID+"?t=") {
		t.Errorf("invoiceUrl = %q", invoiceURL)
	}
	if len(notifier.events) != 1 || notifier.events[0] != notify.EventNewOrder {
		t.Errorf("notifier events = %v", notifier.events)
	}
}

func TestSubmitMissingField(t *testing.T) {
	e, _ := newTestServer(t)

	form := validForm()
	form.Del("email")

	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeJSON(t, rec)
	if body["ok"] != false {
		t.Errorf("ok = %v", body["ok"])
	}
	errObj, _ := body["error"].(map[string]any)
	if errObj["kind"] != "validation" {
		t.Errorf("error kind = %v", errObj["kind"])
	}
	if msg, _ := errObj["message"].(string); !strings.Contains(msg, "email") {
		t.Errorf("error message should name the field: %q", msg)
	}
}

func TestInvoiceView(t *testing.T) {
	e, _ := newTestServer(t)

	body := submitForm(t, e, validForm())
	orderID := body["orderId"].(string)
	invoiceURL := body["invoiceUrl"].(string)

	t.Run("known order", func(t *testing.T) {
		path := strings.TrimPrefix(invoiceURL, "http://localhost:8080")
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		page := rec.Body.String()
		if !strings.Contains(page, orderID) || !strings.Contains(page, "Awaiting payment") {
			t.Errorf("unexpected invoice page:\n%s", page)
		}
		if strings.Contains(page, "Release funds") {
			t.Error("release form should not appear before confirmation")
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/invoices/ZZZ-000000", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}

func TestConfirmAndRelease(t *testing.T) {
	e, notifier := newTestServer(t)

	body := submitForm(t, e, validForm())
	orderID := body["orderId"].(string)
	invoiceURL := body["invoiceUrl"].(string)
	token := invoiceURL[strings.Index(invoiceURL, "?t=")+3:]

	t.Run("release before confirm", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/payments/"+orderID+"/release?t="+token, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		errObj := decodeJSON(t, rec)["error"].(map[string]any)
		if errObj["kind"] != "invalid_state" {
			t.Errorf("error kind = %v", errObj["kind"])
		}
	})

	t.Run("confirm", func(t *testing.T) {
		payload := strings.NewReader(`{"amount": 200}`)
		req := httptest.NewRequest(http.MethodPost, "/payments/"+orderID+"/confirm", payload)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
		}
		order := decodeJSON(t, rec)["order"].(map[string]any)
		if order["status"] != string(entity.StatusPaymentConfirmed) {
			t.Errorf("status = %v", order["status"])
		}
	})

	t.Run("release with wrong token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/payments/"+orderID+"/release?t=wrong", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("release", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/payments/"+orderID+"/release?t="+token, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "Funds released") {
			t.Errorf("unexpected release page:\n%s", rec.Body.String())
		}
	})

	t.Run("double release", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/payments/"+orderID+"/release?t="+token, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	want := []notify.Event{notify.EventNewOrder, notify.EventPaymentConfirmed, notify.EventFundsReleased}
	if len(notifier.events) != len(want) {
		t.Fatalf("notifier events = %v, want %v", notifier.events, want)
	}
	for i, event := range want {
		if notifier.events[i] != event {
			t.Errorf("event[%d] = %v, want %v", i, notifier.events[i], event)
		}
	}
}

func TestReleaseWarnsWhenNotificationFails(t *testing.T) {
	e, notifier := newTestServer(t)

	body := submitForm(t, e, validForm())
	orderID := body["orderId"].(string)
	invoiceURL := body["invoiceUrl"].(string)
	token := invoiceURL[strings.Index(invoiceURL, "?t=")+3:]

	req := httptest.NewRequest(http.MethodPost, "/payments/"+orderID+"/confirm", strings.NewReader(`{"amount": 200}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, body: %s", rec.Code, rec.Body.String())
	}

	notifier.failOn = map[notify.Event]bool{notify.EventFundsReleased: true}

	req = httptest.NewRequest(http.MethodPost, "/payments/"+orderID+"/release?t="+token, nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("release status = %d, want 200 despite notification failure", rec.Code)
	}
	page := rec.Body.String()
	if !strings.Contains(page, "Funds released") {
		t.Errorf("release page missing:\n%s", page)
	}
	if !strings.Contains(page, "notification delivery failed") {
		t.Errorf("warning notice missing from release page:\n%s", page)
	}
}

func TestConfirmUnknownOrder(t *testing.T) {
	e, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/payments/ZZZ-000000/confirm", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	errObj := decodeJSON(t, rec)["error"].(map[string]any)
	if errObj["kind"] != "not_found" {
		t.Errorf("error kind = %v", errObj["kind"])
	}
}
