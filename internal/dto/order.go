package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/middlemark/middlemark/internal/entity"
)

// SubmitRequest is the raw intake payload. It accepts both the current
// field vocabulary and the legacy aliases some embedding forms still send
// (platform, downType/downValue, amount, milestoneNotes).
type SubmitRequest struct {
	Role      string `json:"role" form:"role"`
	Source    string `json:"source" form:"source"`
	Platform  string `json:"platform" form:"platform"`
	FirstName string `json:"firstName" form:"firstName"`
	LastName  string `json:"lastName" form:"lastName"`
	Email     string `json:"email" form:"email"`
	Phone     string `json:"phone" form:"phone"`

	ItemDetails   string `json:"itemDetails" form:"itemDetails"`
	DeliveryNotes string `json:"deliveryNotes" form:"deliveryNotes"`

	PaymentPlan  string   `json:"paymentPlan" form:"paymentPlan"`
	DepositType  string   `json:"depositType" form:"depositType"`
	DownType     string   `json:"downType" form:"downType"`
	DepositValue *float64 `json:"depositValue" form:"depositValue"`
	DownValue    *float64 `json:"downValue" form:"downValue"`
	TotalPrice   *float64 `json:"totalPrice" form:"totalPrice"`
	Amount       *float64 `json:"amount" form:"amount"`

	BuyerNotes     string `json:"buyerNotes" form:"buyerNotes"`
	MilestoneNotes string `json:"milestoneNotes" form:"milestoneNotes"`
}

// Submission is the typed, trimmed intake schema after alias resolution
// and payment plan defaulting.
type Submission struct {
	Role      string `json:"role" validate:"required,oneof=buyer seller"`
	Source    string `json:"source" validate:"required"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`

	ItemDetails   string
	DeliveryNotes string
	PaymentPlan   string
	DepositType   string
	DepositValue  decimal.NullDecimal
	TotalPrice    decimal.NullDecimal
	Notes         string
}

// Normalize resolves aliases, trims text fields, and applies payment plan
// defaults (plan=full, deposit type=percent).
func (r SubmitRequest) Normalize() Submission {
	sub := Submission{
		Role:          strings.ToLower(strings.TrimSpace(r.Role)),
		Source:        coalesce(r.Source, r.Platform),
		FirstName:     strings.TrimSpace(r.FirstName),
		LastName:      strings.TrimSpace(r.LastName),
		Email:         strings.TrimSpace(r.Email),
		Phone:         strings.TrimSpace(r.Phone),
		ItemDetails:   strings.TrimSpace(r.ItemDetails),
		DeliveryNotes: strings.TrimSpace(r.DeliveryNotes),
		Notes:         coalesce(r.BuyerNotes, r.MilestoneNotes),
	}

	switch strings.ToLower(strings.TrimSpace(r.PaymentPlan)) {
	case entity.PlanDown, "milestone":
		sub.PaymentPlan = entity.PlanDown
	default:
		sub.PaymentPlan = entity.PlanFull
	}

	switch strings.ToLower(coalesce(r.DepositType, r.DownType)) {
	case entity.DepositAmount:
		sub.DepositType = entity.DepositAmount
	default:
		sub.DepositType = entity.DepositPercent
	}

	sub.DepositValue = optionalDecimal(r.DepositValue, r.DownValue)
	sub.TotalPrice = optionalDecimal(r.TotalPrice, r.Amount)

	return sub
}

func coalesce(primary, fallback string) string {
	if v := strings.TrimSpace(primary); v != "" {
		return v
	}
	return strings.TrimSpace(fallback)
}

func optionalDecimal(primary, fallback *float64) decimal.NullDecimal {
	v := primary
	if v == nil {
		v = fallback
	}
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*v))
}

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	OrderID       string     `json:"orderId"`
	Role          string     `json:"role"`
	Source        string     `json:"source"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	ItemDetails   string     `json:"itemDetails,omitempty"`
	DeliveryNotes string     `json:"deliveryNotes,omitempty"`
	PaymentPlan   string     `json:"paymentPlan"`
	DepositType   string     `json:"depositType"`
	DepositValue  *string    `json:"depositValue,omitempty"`
	TotalPrice    *string    `json:"totalPrice,omitempty"`
	DepositAmount *string    `json:"depositAmount,omitempty"`
	BalanceDue    *string    `json:"balanceDue,omitempty"`
	PlanSummary   string     `json:"planSummary,omitempty"`
	Status        string     `json:"status"`
	EscrowBalance string     `json:"escrowBalance"`
	CreatedAt     time.Time  `json:"createdAt"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	ReleasedAt    *time.Time `json:"releasedAt,omitempty"`
}

// FromOrder maps an order entity onto its transport representation.
// The release token is deliberately absent from the projection.
func FromOrder(o *entity.Order) OrderResponse {
	return OrderResponse{
		OrderID:       o.Code,
		Role:          o.Role,
		Source:        o.Source,
		FirstName:     o.FirstName,
		LastName:      o.LastName,
		Email:         o.Email,
		Phone:         o.Phone,
		ItemDetails:   o.ItemDetails,
		DeliveryNotes: o.DeliveryNotes,
		PaymentPlan:   o.PaymentPlan,
		DepositType:   o.DepositType,
		DepositValue:  nullDecimalString(o.DepositValue),
		TotalPrice:    nullDecimalString(o.TotalPrice),
		DepositAmount: nullDecimalString(o.DepositAmount),
		BalanceDue:    nullDecimalString(o.BalanceDue),
		PlanSummary:   o.PlanSummary,
		Status:        string(o.Status),
		EscrowBalance: o.EscrowBalance.StringFixed(2),
		CreatedAt:     o.CreatedAt,
		PaidAt:        o.PaidAt,
		ReleasedAt:    o.ReleasedAt,
	}
}

func nullDecimalString(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.StringFixed(2)
	return &s
}

// SubmitResponse is the payload returned after a successful submission.
type SubmitResponse struct {
	OrderID    string `json:"orderId"`
	InvoiceURL string `json:"invoiceUrl"`
}

// ConfirmRequest optionally supplies the escrow balance recorded when the
// out-of-band transfer is confirmed.
type ConfirmRequest struct {
	Amount *float64 `json:"amount" form:"amount"`
}

// ConfirmResponse wraps the mutated order.
type ConfirmResponse struct {
	Order OrderResponse `json:"order"`
}
