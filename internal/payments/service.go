package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"invobridge/funding-portal-backend/internal/funding/engine"
)

// Service records payout instructions for every money movement the engine
// computes. Execution itself happens at the payment provider; confirmations
// arrive later and flip instructions to confirmed.
type Service struct {
	repo            Repository
	platformAccount uuid.UUID
	logger          *zap.Logger
}

func NewService(repo Repository, platformAccount uuid.UUID, logger *zap.Logger) *Service {
	return &Service{repo: repo, platformAccount: platformAccount, logger: logger}
}

// RecordDisbursement writes the fee and net-advance instructions for a freshly
// disbursed pool.
func (s *Service) RecordDisbursement(ctx context.Context, pool *engine.Pool, d *engine.Disbursement) ([]*PayoutInstruction, error) {
	instructions := []*PayoutInstruction{
		{
			ID:          uuid.New(),
			PoolID:      pool.ID,
			Kind:        KindDisbursement,
			RecipientID: pool.ExporterID,
			Amount:      d.NetAmount,
			Currency:    pool.Currency,
			Status:      StatusPending,
		},
	}
	if d.FeeAmount > 0 {
		instructions = append(instructions, &PayoutInstruction{
			ID:          uuid.New(),
			PoolID:      pool.ID,
			Kind:        KindPlatformFee,
			RecipientID: s.platformAccount,
			Amount:      d.FeeAmount,
			Currency:    pool.Currency,
			Status:      StatusPending,
		})
	}

	if err := s.repo.CreateBatch(ctx, instructions); err != nil {
		return nil, err
	}

	s.logger.Info("disbursement instructions recorded",
		zap.String("pool_id", pool.ID.String()),
		zap.Int64("net_amount", d.NetAmount),
		zap.Int64("fee_amount", d.FeeAmount))

	return instructions, nil
}

// RecordSettlement writes one instruction per settlement leg: the fee, each
// investor payout, and the exporter remainder when there is one. Zero-amount
// legs are recorded too so the audit trail always reconciles to the repaid
// total.
func (s *Service) RecordSettlement(ctx context.Context, pool *engine.Pool, settlement *engine.Settlement) ([]*PayoutInstruction, error) {
	instructions := make([]*PayoutInstruction, 0, len(settlement.Payouts)+2)

	if settlement.FeeAmount > 0 {
		instructions = append(instructions, &PayoutInstruction{
			ID:          uuid.New(),
			PoolID:      pool.ID,
			Kind:        KindPlatformFee,
			RecipientID: s.platformAccount,
			Amount:      settlement.FeeAmount,
			Currency:    pool.Currency,
			Status:      StatusPending,
		})
	}

	for _, payout := range settlement.Payouts {
		metadata, err := json.Marshal(map[string]interface{}{
			"investment_id": payout.InvestmentID,
			"tranche":       payout.Tranche,
			"principal":     payout.Principal,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payout metadata: %w", err)
		}
		instructions = append(instructions, &PayoutInstruction{
			ID:          uuid.New(),
			PoolID:      pool.ID,
			Kind:        KindInvestorPayout,
			RecipientID: payout.InvestorID,
			Amount:      payout.Amount,
			Currency:    pool.Currency,
			Status:      StatusPending,
			Metadata:    datatypes.JSON(metadata),
		})
	}

	if settlement.ExporterRemainder > 0 {
		instructions = append(instructions, &PayoutInstruction{
			ID:          uuid.New(),
			PoolID:      pool.ID,
			Kind:        KindExporterRemainder,
			RecipientID: pool.ExporterID,
			Amount:      settlement.ExporterRemainder,
			Currency:    pool.Currency,
			Status:      StatusPending,
		})
	}

	if err := s.repo.CreateBatch(ctx, instructions); err != nil {
		return nil, err
	}

	s.logger.Info("settlement instructions recorded",
		zap.String("pool_id", pool.ID.String()),
		zap.Int("count", len(instructions)),
		zap.Int64("total_amount", settlement.TotalAmount))

	return instructions, nil
}

// RecordRefunds writes one refund instruction per unsettled investment when a
// pool closes before disbursement.
func (s *Service) RecordRefunds(ctx context.Context, pool *engine.Pool, investments []*engine.Investment) ([]*PayoutInstruction, error) {
	instructions := make([]*PayoutInstruction, 0, len(investments))
	for _, inv := range investments {
		if inv.Settled {
			continue
		}
		metadata, err := json.Marshal(map[string]interface{}{
			"investment_id": inv.ID,
			"tranche":       inv.Tranche,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal refund metadata: %w", err)
		}
		instructions = append(instructions, &PayoutInstruction{
			ID:          uuid.New(),
			PoolID:      pool.ID,
			Kind:        KindRefund,
			RecipientID: inv.InvestorID,
			Amount:      inv.Amount,
			Currency:    pool.Currency,
			Status:      StatusPending,
			Metadata:    datatypes.JSON(metadata),
		})
	}

	if err := s.repo.CreateBatch(ctx, instructions); err != nil {
		return nil, err
	}

	s.logger.Info("refund instructions recorded",
		zap.String("pool_id", pool.ID.String()),
		zap.Int("count", len(instructions)))

	return instructions, nil
}

// ConfirmInstruction records the provider's confirmation reference.
func (s *Service) ConfirmInstruction(ctx context.Context, id uuid.UUID, reference string) error {
	if reference == "" {
		return fmt.Errorf("confirmation reference is required")
	}
	return s.repo.Confirm(ctx, id, reference)
}

// ListByPool returns every instruction ever recorded for a pool.
func (s *Service) ListByPool(ctx context.Context, poolID uuid.UUID) ([]*PayoutInstruction, error) {
	return s.repo.ListByPool(ctx, poolID)
}
