package plan

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/middlemark/middlemark/internal/entity"
)

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestCalculate(t *testing.T) {
	t.Parallel()

	t.Run("buyer down percent with known total", func(t *testing.T) {
		res := Calculate(Input{
			Role:         entity.RoleBuyer,
			Plan:         entity.PlanDown,
			DepositType:  entity.DepositPercent,
			DepositValue: nd("20"),
			TotalPrice:   nd("1000"),
		})
		if !res.Deposit.Valid {
			t.Fatalf("expected deposit, got null")
		}
		if got := res.Deposit.Decimal.StringFixed(2); got != "200.00" {
			t.Fatalf("expected deposit 200.00, got %s", got)
		}
		if got := res.Balance.Decimal.StringFixed(2); got != "800.00" {
			t.Fatalf("expected balance 800.00, got %s", got)
		}
		if !strings.Contains(res.Summary, "$200.00") {
			t.Fatalf("summary missing deposit figure: %q", res.Summary)
		}
	})

	t.Run("buyer down percent without total", func(t *testing.T) {
		res := Calculate(Input{
			Role:         entity.RoleBuyer,
			Plan:         entity.PlanDown,
			DepositType:  entity.DepositPercent,
			DepositValue: nd("20"),
		})
		if res.Deposit.Valid {
			t.Fatalf("expected null deposit, got %s", res.Deposit.Decimal)
		}
		if !strings.Contains(res.Summary, "total price") {
			t.Fatalf("summary should note missing total: %q", res.Summary)
		}
	})

	t.Run("buyer down percent over one hundred clamps to total", func(t *testing.T) {
		res := Calculate(Input{
			Role:         entity.RoleBuyer,
			Plan:         entity.PlanDown,
			DepositType:  entity.DepositPercent,
			DepositValue: nd("150"),
			TotalPrice:   nd("500"),
		})
		if got := res.Deposit.Decimal.StringFixed(2); got != "500.00" {
			t.Fatalf("expected deposit clamped to 500.00, got %s", got)
		}
		if got := res.Balance.Decimal.StringFixed(2); got != "0.00" {
			t.Fatalf("expected zero balance, got %s", got)
		}
	})

	t.Run("buyer down amount clamps to total", func(t *testing.T) {
		res := Calculate(Input{
			Role:         entity.RoleBuyer,
			Plan:         entity.PlanDown,
			DepositType:  entity.DepositAmount,
			DepositValue: nd("1500"),
			TotalPrice:   nd("1000"),
		})
		if got := res.Deposit.Decimal.StringFixed(2); got != "1000.00" {
			t.Fatalf("expected deposit clamped to 1000.00, got %s", got)
		}
	})

	t.Run("buyer down amount without total keeps value", func(t *testing.T) {
		res := Calculate(Input{
			Role:         entity.RoleBuyer,
			Plan:         entity.PlanDown,
			DepositType:  entity.DepositAmount,
			DepositValue: nd("250"),
		})
		if got := res.Deposit.Decimal.StringFixed(2); got != "250.00" {
			t.Fatalf("expected deposit 250.00, got %s", got)
		}
		if res.Balance.Valid {
			t.Fatalf("expected null balance without total")
		}
	})

	t.Run("negative deposit value treated as zero", func(t *testing.T) {
		res := Calculate(Input{
			Role:         entity.RoleBuyer,
			Plan:         entity.PlanDown,
			DepositType:  entity.DepositAmount,
			DepositValue: nd("-50"),
			TotalPrice:   nd("100"),
		})
		if got := res.Deposit.Decimal.StringFixed(2); got != "0.00" {
			t.Fatalf("expected zero deposit, got %s", got)
		}
	})

	t.Run("buyer full plan has null deposit", func(t *testing.T) {
		res := Calculate(Input{
			Role:       entity.RoleBuyer,
			Plan:       entity.PlanFull,
			TotalPrice: nd("1000"),
		})
		if res.Deposit.Valid {
			t.Fatalf("expected null deposit for full plan")
		}
		if got := res.Balance.Decimal.StringFixed(2); got != "1000.00" {
			t.Fatalf("expected full balance 1000.00, got %s", got)
		}
	})

	t.Run("seller has null deposit for any plan", func(t *testing.T) {
		for _, p := range []string{entity.PlanFull, entity.PlanDown} {
			res := Calculate(Input{
				Role:         entity.RoleSeller,
				Plan:         p,
				DepositType:  entity.DepositPercent,
				DepositValue: nd("20"),
				TotalPrice:   nd("1000"),
			})
			if res.Deposit.Valid {
				t.Fatalf("plan %s: expected null deposit for seller", p)
			}
			if res.Summary == "" {
				t.Fatalf("plan %s: expected seller summary", p)
			}
		}
	})
}

func TestFormatUSD(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"200", "$200.00"},
		{"1234.5", "$1,234.50"},
		{"1000000", "$1,000,000.00"},
	}
	for _, tc := range cases {
		if got := FormatUSD(decimal.RequireFromString(tc.in)); got != tc.want {
			t.Errorf("FormatUSD(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
