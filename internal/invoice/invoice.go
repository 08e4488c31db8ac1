// Package invoice renders the HTML invoice and release confirmation views.
// Invoice pages are treated as low-sensitivity: viewing needs no token, the
// presented token is only used to construct the release action link.
package invoice

import (
	"embed"
	"html/template"
	"io"
	"net/url"

	"github.com/middlemark/middlemark/internal/entity"
	"github.com/middlemark/middlemark/internal/plan"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// URL builds the shareable invoice link for an order.
func URL(baseURL, code, token string) string {
	u := baseURL + "/invoices/" + url.PathEscape(code)
	if token != "" {
		u += "?t=" + url.QueryEscape(token)
	}
	return u
}

// ReleaseURL builds the token-gated release action endpoint.
func ReleaseURL(code, token string) string {
	return "/payments/" + url.PathEscape(code) + "/release?t=" + url.QueryEscape(token)
}

// ViewModel carries everything the invoice templates display.
type ViewModel struct {
	Order       *entity.Order
	Name        string
	StatusLabel string
	Total       string
	Deposit     string
	Balance     string
	Escrow      string

	// ShowRelease is true once payment is confirmed and a token was
	// presented, in which case ReleaseURL carries the action target.
	ShowRelease bool
	ReleaseURL  string

	// Warnings are soft notices about side effects that failed, shown on
	// the release confirmation page.
	Warnings []string
}

// NewViewModel projects an order into the invoice view. The presented
// token is embedded into the release action only; it is not validated here.
func NewViewModel(order *entity.Order, presentedToken string) ViewModel {
	vm := ViewModel{
		Order:       order,
		Name:        order.FullName(),
		StatusLabel: statusLabel(order.Status),
		Escrow:      plan.FormatUSD(order.EscrowBalance),
	}
	if order.TotalPrice.Valid {
		vm.Total = plan.FormatUSD(order.TotalPrice.Decimal)
	}
	if order.DepositAmount.Valid {
		vm.Deposit = plan.FormatUSD(order.DepositAmount.Decimal)
	}
	if order.BalanceDue.Valid {
		vm.Balance = plan.FormatUSD(order.BalanceDue.Decimal)
	}
	if order.Status == entity.StatusPaymentConfirmed && presentedToken != "" {
		vm.ShowRelease = true
		vm.ReleaseURL = ReleaseURL(order.Code, presentedToken)
	}
	return vm
}

// RenderInvoice writes the invoice page.
func RenderInvoice(w io.Writer, vm ViewModel) error {
	return templates.ExecuteTemplate(w, "invoice.html", vm)
}

// RenderReleased writes the release confirmation page.
func RenderReleased(w io.Writer, vm ViewModel) error {
	return templates.ExecuteTemplate(w, "released.html", vm)
}

func statusLabel(s entity.Status) string {
	switch s {
	case entity.StatusAwaitingPayment:
		return "Awaiting payment"
	case entity.StatusPaymentConfirmed:
		return "Payment confirmed"
	case entity.StatusFundsReleased:
		return "Funds released"
	default:
		return string(s)
	}
}
