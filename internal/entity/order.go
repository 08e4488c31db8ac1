package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Status is the lifecycle state of an escrow order. Transitions move
// forward only: AwaitingPayment -> PaymentConfirmed -> FundsReleased.
type Status string

const (
	StatusAwaitingPayment  Status = "awaiting_payment"
	StatusPaymentConfirmed Status = "payment_confirmed"
	StatusFundsReleased    Status = "funds_released"
)

// rank orders statuses along the forward-only chain.
func (s Status) rank() int {
	switch s {
	case StatusAwaitingPayment:
		return 0
	case StatusPaymentConfirmed:
		return 1
	case StatusFundsReleased:
		return 2
	default:
		return -1
	}
}

// Valid reports whether the status belongs to the known vocabulary.
func (s Status) Valid() bool {
	return s.rank() >= 0
}

// CanTransitionTo reports whether moving from s to next is a legal forward step.
func (s Status) CanTransitionTo(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() == s.rank()+1
}

// AtLeast reports whether the status has progressed to other or beyond.
func (s Status) AtLeast(other Status) bool {
	return s.Valid() && other.Valid() && s.rank() >= other.rank()
}

// Party roles and payment plan vocabulary.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"

	PlanFull = "full"
	PlanDown = "down"

	DepositPercent = "percent"
	DepositAmount  = "amount"
)

// Order is a single escrow engagement record tracking one buyer/seller deal.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID           int64  `bun:",pk,autoincrement"`
	Code         string `bun:"code,unique"`
	ReleaseToken string `bun:"release_token"`

	Role      string `bun:"role"`
	Source    string `bun:"source"`
	FirstName string `bun:"first_name"`
	LastName  string `bun:"last_name"`
	Email     string `bun:"email"`
	Phone     string `bun:"phone"`

	ItemDetails   string              `bun:"item_details"`
	DeliveryNotes string              `bun:"delivery_notes"`
	TotalPrice    decimal.NullDecimal `bun:"total_price"`
	PaymentPlan   string              `bun:"payment_plan"`
	DepositType   string              `bun:"deposit_type"`
	DepositValue  decimal.NullDecimal `bun:"deposit_value"`
	Notes         string              `bun:"notes"`

	DepositAmount decimal.NullDecimal `bun:"deposit_amount"`
	BalanceDue    decimal.NullDecimal `bun:"balance_due"`
	PlanSummary   string              `bun:"plan_summary"`

	Status        Status          `bun:"status"`
	EscrowBalance decimal.Decimal `bun:"escrow_balance"`

	CreatedAt  time.Time  `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	PaidAt     *time.Time `bun:"paid_at"`
	ReleasedAt *time.Time `bun:"released_at"`
}

// FullName joins the party's first and last names for display.
func (o *Order) FullName() string {
	if o.FirstName == "" {
		return o.LastName
	}
	if o.LastName == "" {
		return o.FirstName
	}
	return o.FirstName + " " + o.LastName
}
