package notify

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/middlemark/middlemark/internal/entity"
	"github.com/middlemark/middlemark/internal/plan"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.tmpl"))

// templateData is the view model shared by all notification bodies.
type templateData struct {
	Order      *entity.Order
	Name       string
	Total      string
	Deposit    string
	Escrow     string
	InvoiceURL string
}

func newTemplateData(order *entity.Order, invoiceURL string) templateData {
	data := templateData{
		Order:      order,
		Name:       order.FullName(),
		Escrow:     plan.FormatUSD(order.EscrowBalance),
		InvoiceURL: invoiceURL,
	}
	if order.TotalPrice.Valid {
		data.Total = plan.FormatUSD(order.TotalPrice.Decimal)
	}
	if order.DepositAmount.Valid {
		data.Deposit = plan.FormatUSD(order.DepositAmount.Decimal)
	}
	return data
}

func renderBody(name string, data templateData) (string, error) {
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return sb.String(), nil
}
