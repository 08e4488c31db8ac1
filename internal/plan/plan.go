// Package plan derives deposit and balance figures from payment plan
// parameters. Calculations are pure; monetary values stay plain decimals
// and formatting is applied only for display strings.
package plan

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/middlemark/middlemark/internal/entity"
)

// Input carries the normalized payment plan parameters of a submission.
type Input struct {
	Role         string
	Plan         string
	DepositType  string
	DepositValue decimal.NullDecimal
	TotalPrice   decimal.NullDecimal
}

// Result is the derived plan: a display summary plus nullable figures.
// Deposit is null when the plan is full, the role is seller, or the
// inputs are insufficient to compute an amount.
type Result struct {
	Summary string
	Deposit decimal.NullDecimal
	Balance decimal.NullDecimal
}

var hundred = decimal.NewFromInt(100)

// Calculate derives the deposit and balance for the given plan parameters.
func Calculate(in Input) Result {
	if in.Role == entity.RoleSeller {
		return Result{Summary: "Seller listing: funds are collected from the buyer; no upfront payment applies."}
	}

	total, hasTotal := normalizedTotal(in.TotalPrice)

	if in.Plan != entity.PlanDown {
		res := Result{Summary: "Full payment selected; the entire amount is due before funds are released."}
		if hasTotal {
			res.Summary = fmt.Sprintf("Full payment of %s due before funds are released.", FormatUSD(total))
			res.Balance = decimal.NewNullDecimal(total)
		}
		return res
	}

	value := decimal.Zero
	if in.DepositValue.Valid {
		value = in.DepositValue.Decimal
	}
	if value.IsNegative() {
		value = decimal.Zero
	}

	switch in.DepositType {
	case entity.DepositAmount:
		deposit := value.Round(2)
		if hasTotal {
			deposit = clamp(deposit, total)
			balance := total.Sub(deposit)
			return Result{
				Summary: fmt.Sprintf("Deposit of %s due now; %s balance due on delivery.", FormatUSD(deposit), FormatUSD(balance)),
				Deposit: decimal.NewNullDecimal(deposit),
				Balance: decimal.NewNullDecimal(balance),
			}
		}
		return Result{
			Summary: fmt.Sprintf("Deposit of %s due now; balance determined once the total price is set.", FormatUSD(deposit)),
			Deposit: decimal.NewNullDecimal(deposit),
		}
	default: // percent
		if !hasTotal {
			return Result{
				Summary: fmt.Sprintf("%s%% deposit selected; the total price is needed to compute the amount.", value.String()),
			}
		}
		deposit := clamp(total.Mul(value).Div(hundred).Round(2), total)
		balance := total.Sub(deposit)
		return Result{
			Summary: fmt.Sprintf("%s%% deposit of %s due now; %s balance due on delivery.", value.String(), FormatUSD(deposit), FormatUSD(balance)),
			Deposit: decimal.NewNullDecimal(deposit),
			Balance: decimal.NewNullDecimal(balance),
		}
	}
}

func normalizedTotal(total decimal.NullDecimal) (decimal.Decimal, bool) {
	if !total.Valid || total.Decimal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, false
	}
	return total.Decimal.Round(2), true
}

// clamp bounds a deposit to [0, total].
func clamp(deposit, total decimal.Decimal) decimal.Decimal {
	if deposit.IsNegative() {
		return decimal.Zero
	}
	if deposit.GreaterThan(total) {
		return total
	}
	return deposit
}

var usdPrinter = message.NewPrinter(language.English)

// FormatUSD renders a decimal as a USD display string with two decimal
// places and thousands separators.
func FormatUSD(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return usdPrinter.Sprintf("$%.2f", f)
}
