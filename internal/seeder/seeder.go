package seeder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/middlemark/middlemark/internal/database"
	"github.com/middlemark/middlemark/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Orders seeds sample escrow orders if they are missing.
func (s *Seeder) Orders(ctx context.Context) error {
	now := time.Now().UTC()
	samples := []entity.Order{
		{
			Code:          "DEM-100001",
			ReleaseToken:  "seed-token-100001",
			Role:          entity.RoleBuyer,
			Source:        "demo",
			FirstName:     "Grace",
			LastName:      "Hopper",
			Email:         "grace@example.com",
			Phone:         "+1 555 0101",
			ItemDetails:   "restored compiler manual",
			PaymentPlan:   entity.PlanDown,
			DepositType:   entity.DepositPercent,
			DepositValue:  decimal.NewNullDecimal(decimal.NewFromInt(25)),
			TotalPrice:    decimal.NewNullDecimal(decimal.NewFromInt(400)),
			DepositAmount: decimal.NewNullDecimal(decimal.NewFromInt(100)),
			BalanceDue:    decimal.NewNullDecimal(decimal.NewFromInt(300)),
			PlanSummary:   "25% deposit of $100.00 due now; $300.00 balance due on delivery.",
			Status:        entity.StatusAwaitingPayment,
			EscrowBalance: decimal.Zero,
			CreatedAt:     now,
		},
		{
			Code:          "DEM-100002",
			ReleaseToken:  "seed-token-100002",
			Role:          entity.RoleSeller,
			Source:        "demo",
			FirstName:     "Alan",
			LastName:      "Turing",
			Email:         "alan@example.com",
			Phone:         "+1 555 0102",
			ItemDetails:   "consulting engagement",
			PaymentPlan:   entity.PlanFull,
			DepositType:   entity.DepositPercent,
			PlanSummary:   "Seller listing: funds are collected from the buyer; no upfront payment applies.",
			Status:        entity.StatusAwaitingPayment,
			EscrowBalance: decimal.Zero,
			CreatedAt:     now,
		},
	}

	for _, sample := range samples {
		order := sample
		_, err := s.db.NewInsert().Model(&order).
			On("CONFLICT (code) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded orders", zap.Int("count", len(samples)))
	}
	return nil
}
