package order

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/middlemark/middlemark/internal/config"
	"github.com/middlemark/middlemark/internal/dto"
	"github.com/middlemark/middlemark/internal/invoice"
	"github.com/middlemark/middlemark/internal/presentation/http/response"
	service "github.com/middlemark/middlemark/internal/service/order"
	"github.com/middlemark/middlemark/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/middlemark/middlemark/transport/http/order")

// Handler exposes the order intake and lifecycle endpoints over HTTP.
type Handler struct {
	svc     *service.Service
	baseURL string
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service, cfg config.Config) *Handler {
	return &Handler{svc: svc, baseURL: cfg.App.BaseURL}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.POST("/submit", h.submit)
	e.GET("/invoices/:orderId", h.invoiceView)

	g := e.Group("/payments")
	g.POST("/:orderId/confirm", h.confirm)
	g.POST("/:orderId/release", h.release)
}

func (h *Handler) submit(c echo.Context) error {
	b := response.New(c)

	var payload dto.SubmitRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.Validation("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.submit")
	defer span.End()

	order, warnings, err := h.svc.CreateOrder(ctx, payload.Normalize())
	if err != nil {
		return b.WithError(err).Build()
	}
	span.SetAttributes(attribute.String("order.code", order.Code))

	return b.WithData(dto.SubmitResponse{
		OrderID:    order.Code,
		InvoiceURL: invoice.URL(h.baseURL, order.Code, order.ReleaseToken),
	}).WithWarnings(warnings).Build()
}

func (h *Handler) invoiceView(c echo.Context) error {
	code := c.Param("orderId")
	token := c.QueryParam("t")

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.invoiceView", trace.WithAttributes(attribute.String("order.code", code)))
	defer span.End()

	order, err := h.svc.GetOrder(ctx, code)
	if err != nil {
		if errorbank.From(err).Kind() == errorbank.KindNotFound {
			return c.HTML(http.StatusNotFound, "<!DOCTYPE html><title>Not found</title><h1>Invoice not found</h1>")
		}
		return response.New(c).WithError(err).Build()
	}

	var buf bytes.Buffer
	if err := invoice.RenderInvoice(&buf, invoice.NewViewModel(order, token)); err != nil {
		return response.New(c).WithError(errorbank.Internal("failed to render invoice", errorbank.WithCause(err))).Build()
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (h *Handler) confirm(c echo.Context) error {
	b := response.New(c)
	code := c.Param("orderId")

	var payload dto.ConfirmRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.Validation("invalid payload", errorbank.WithCause(err))).Build()
	}
	var amount decimal.NullDecimal
	if payload.Amount != nil {
		amount = decimal.NewNullDecimal(decimal.NewFromFloat(*payload.Amount))
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.confirm", trace.WithAttributes(attribute.String("order.code", code)))
	defer span.End()

	order, warnings, err := h.svc.ConfirmPayment(ctx, code, amount)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.ConfirmResponse{Order: dto.FromOrder(order)}).WithWarnings(warnings).Build()
}

func (h *Handler) release(c echo.Context) error {
	code := c.Param("orderId")
	token := c.QueryParam("t")
	if token == "" {
		token = c.FormValue("t")
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.release", trace.WithAttributes(attribute.String("order.code", code)))
	defer span.End()

	order, warnings, err := h.svc.ReleaseFunds(ctx, code, token)
	if err != nil {
		return response.New(c).WithError(err).Build()
	}

	vm := invoice.NewViewModel(order, "")
	vm.Warnings = warnings

	var buf bytes.Buffer
	if err := invoice.RenderReleased(&buf, vm); err != nil {
		return response.New(c).WithError(errorbank.Internal("failed to render confirmation", errorbank.WithCause(err))).Build()
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
