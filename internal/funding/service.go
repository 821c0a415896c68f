package funding

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"invobridge/funding-portal-backend/internal/currency"
	"invobridge/funding-portal-backend/internal/funding/engine"
	"invobridge/funding-portal-backend/internal/invoice"
	"invobridge/funding-portal-backend/internal/notifications"
	"invobridge/funding-portal-backend/internal/payments"
)

// InvoiceDirectory is the slice of the invoice service the funding flow needs.
type InvoiceDirectory interface {
	GetInvoice(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error)
	SetStatus(ctx context.Context, id uuid.UUID, status invoice.Status) error
}

// PaymentRecorder records payout instructions for executed engine operations.
type PaymentRecorder interface {
	RecordDisbursement(ctx context.Context, pool *engine.Pool, d *engine.Disbursement) ([]*payments.PayoutInstruction, error)
	RecordSettlement(ctx context.Context, pool *engine.Pool, s *engine.Settlement) ([]*payments.PayoutInstruction, error)
	RecordRefunds(ctx context.Context, pool *engine.Pool, investments []*engine.Investment) ([]*payments.PayoutInstruction, error)
}

// RateLocker verifies exchange-rate lock tokens attached to investments.
type RateLocker interface {
	Verify(token string) (*currency.RateLock, error)
}

// Service orchestrates the engine with persistence, the invoice lifecycle,
// payment recording, and notifications. The engine computes inside its own
// critical sections; everything with I/O happens out here, after the engine
// has committed.
type Service struct {
	engine   *engine.Engine
	repo     Repository
	invoices InvoiceDirectory
	payments PaymentRecorder
	rates    RateLocker
	notifier notifications.Notifier
	logger   *zap.Logger
}

func NewService(
	eng *engine.Engine,
	repo Repository,
	invoices InvoiceDirectory,
	paymentRecorder PaymentRecorder,
	rates RateLocker,
	notifier notifications.Notifier,
	logger *zap.Logger,
) *Service {
	if notifier == nil {
		notifier = notifications.NopNotifier{}
	}
	return &Service{
		engine:   eng,
		repo:     repo,
		invoices: invoices,
		payments: paymentRecorder,
		rates:    rates,
		notifier: notifier,
		logger:   logger,
	}
}

// Restore loads every persisted pool and its ledger into the engine arena.
// Called once at startup before the server accepts traffic.
func (s *Service) Restore(ctx context.Context) error {
	pools, err := s.repo.LoadPools(ctx)
	if err != nil {
		return err
	}

	for _, pool := range pools {
		investments, err := s.repo.LoadInvestments(ctx, pool.ID)
		if err != nil {
			return err
		}
		if err := s.engine.Restore(pool, investments); err != nil {
			return fmt.Errorf("failed to restore pool %s: %w", pool.ID, err)
		}
	}

	s.logger.Info("funding pools restored", zap.Int("count", len(pools)))
	return nil
}

// CreatePool opens a funding pool against a tokenized invoice. Tranche
// targets and rates are derived from the invoice.
func (s *Service) CreatePool(ctx context.Context, req *CreatePoolRequest) (*PoolResponse, error) {
	inv, err := s.invoices.GetInvoice(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if !inv.IsFundable(time.Now()) {
		return nil, fmt.Errorf("invoice %s is not fundable (status %s)", inv.ID, inv.Status)
	}

	pool, err := s.engine.CreatePool(engine.CreatePoolParams{
		InvoiceID:        inv.ID,
		ExporterID:       inv.ExporterID,
		TargetAmount:     inv.FundingTarget,
		PriorityRatioBps: inv.PriorityRatioBps,
		CatalystRatioBps: inv.CatalystRatioBps,
		PriorityRateBps:  inv.PriorityRateBps,
		CatalystRateBps:  inv.CatalystRateBps,
		DueDate:          inv.DueDate,
		Deadline:         req.Deadline,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.SavePool(ctx, pool); err != nil {
		return nil, err
	}
	if err := s.invoices.SetStatus(ctx, inv.ID, invoice.StatusFunding); err != nil {
		s.logger.Error("failed to advance invoice to funding",
			zap.String("invoice_id", inv.ID.String()), zap.Error(err))
	}

	s.notifier.PoolEvent(ctx, notifications.Event{
		Type:      notifications.EventPoolOpened,
		PoolID:    pool.ID,
		InvoiceID: pool.InvoiceID,
		Data: map[string]interface{}{
			"target_amount":   pool.TargetAmount,
			"priority_target": pool.PriorityTarget,
			"catalyst_target": pool.CatalystTarget,
		},
	})

	return NewPoolResponse(pool), nil
}

// Invest records an investor commitment. A catalyst commitment additionally
// requires the subordination-risk acknowledgement.
func (s *Service) Invest(ctx context.Context, investorID, poolID uuid.UUID, req *InvestRequest) (*engine.Investment, *PoolResponse, error) {
	if !req.AgreedToTerms {
		return nil, nil, fmt.Errorf("terms and conditions must be accepted")
	}
	if req.Tranche == engine.TrancheCatalyst && !req.AcceptedRisk {
		return nil, nil, fmt.Errorf("catalyst investments require the subordination risk acknowledgement")
	}
	if req.RateLockToken != "" && s.rates != nil {
		if _, err := s.rates.Verify(req.RateLockToken); err != nil {
			return nil, nil, fmt.Errorf("invalid rate lock: %w", err)
		}
	}

	inv, pool, err := s.engine.RecordInvestment(engine.InvestParams{
		PoolID:        poolID,
		InvestorID:    investorID,
		Amount:        req.Amount,
		Tranche:       req.Tranche,
		RateLockToken: req.RateLockToken,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.SaveInvestment(ctx, pool, inv); err != nil {
		return nil, nil, err
	}

	s.notifier.PoolEvent(ctx, notifications.Event{
		Type:      notifications.EventInvestmentRecorded,
		PoolID:    pool.ID,
		InvoiceID: pool.InvoiceID,
		Data: map[string]interface{}{
			"amount":        inv.Amount,
			"tranche":       inv.Tranche,
			"funded_amount": pool.FundedAmount,
		},
	})

	if pool.Status == engine.PoolStatusFilled {
		if err := s.invoices.SetStatus(ctx, pool.InvoiceID, invoice.StatusFunded); err != nil {
			s.logger.Error("failed to advance invoice to funded",
				zap.String("invoice_id", pool.InvoiceID.String()), zap.Error(err))
		}
		s.notifier.PoolEvent(ctx, notifications.Event{
			Type:      notifications.EventPoolFilled,
			PoolID:    pool.ID,
			InvoiceID: pool.InvoiceID,
			Data:      map[string]interface{}{"funded_amount": pool.FundedAmount},
		})
	}

	return inv, NewPoolResponse(pool), nil
}

// Disburse advances a filled pool and records the fee and net-advance payout
// instructions.
func (s *Service) Disburse(ctx context.Context, poolID uuid.UUID) (*engine.Disbursement, *PoolResponse, error) {
	disb, pool, err := s.engine.RecordDisbursement(poolID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.SavePool(ctx, pool); err != nil {
		return nil, nil, err
	}
	if _, err := s.payments.RecordDisbursement(ctx, pool, disb); err != nil {
		return nil, nil, err
	}
	if err := s.invoices.SetStatus(ctx, pool.InvoiceID, invoice.StatusDisbursed); err != nil {
		s.logger.Error("failed to advance invoice to disbursed",
			zap.String("invoice_id", pool.InvoiceID.String()), zap.Error(err))
	}

	s.notifier.PoolEvent(ctx, notifications.Event{
		Type:      notifications.EventPoolDisbursed,
		PoolID:    pool.ID,
		InvoiceID: pool.InvoiceID,
		Data: map[string]interface{}{
			"net_amount": disb.NetAmount,
			"fee_amount": disb.FeeAmount,
		},
	})

	return disb, NewPoolResponse(pool), nil
}

// Repay runs the settlement waterfall (or the operator override) over a
// repayment, persists the closed pool, and records every payout leg.
func (s *Service) Repay(ctx context.Context, poolID uuid.UUID, req *RepaymentRequest) (*engine.Settlement, *PoolResponse, error) {
	settlement, pool, err := s.engine.RecordRepayment(poolID, req.Amount, req.PerInvestorReturns)
	if err != nil {
		return nil, nil, err
	}

	investments, err := s.engine.GetInvestments(poolID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.repo.SaveSettlement(ctx, pool, investments); err != nil {
		return nil, nil, err
	}
	if _, err := s.payments.RecordSettlement(ctx, pool, settlement); err != nil {
		return nil, nil, err
	}
	if err := s.invoices.SetStatus(ctx, pool.InvoiceID, invoice.StatusRepaid); err != nil {
		s.logger.Error("failed to advance invoice to repaid",
			zap.String("invoice_id", pool.InvoiceID.String()), zap.Error(err))
	}

	s.notifier.PoolEvent(ctx, notifications.Event{
		Type:      notifications.EventPoolSettled,
		PoolID:    pool.ID,
		InvoiceID: pool.InvoiceID,
		Data: map[string]interface{}{
			"total_amount":       settlement.TotalAmount,
			"fee_amount":         settlement.FeeAmount,
			"exporter_remainder": settlement.ExporterRemainder,
		},
	})

	return settlement, NewPoolResponse(pool), nil
}

// MarkDefaulted freezes an unpaid pool after the grace period.
func (s *Service) MarkDefaulted(ctx context.Context, poolID uuid.UUID, now time.Time) (*PoolResponse, error) {
	pool, err := s.engine.MarkDefaulted(poolID, now)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SavePool(ctx, pool); err != nil {
		return nil, err
	}
	if err := s.invoices.SetStatus(ctx, pool.InvoiceID, invoice.StatusDefaulted); err != nil {
		s.logger.Error("failed to advance invoice to defaulted",
			zap.String("invoice_id", pool.InvoiceID.String()), zap.Error(err))
	}

	s.notifier.PoolEvent(ctx, notifications.Event{
		Type:      notifications.EventPoolDefaulted,
		PoolID:    pool.ID,
		InvoiceID: pool.InvoiceID,
	})

	return NewPoolResponse(pool), nil
}

// ClosePool withdraws a pool before disbursement and records refund
// instructions for every recorded commitment.
func (s *Service) ClosePool(ctx context.Context, poolID uuid.UUID) (*PoolResponse, error) {
	investments, err := s.engine.GetInvestments(poolID)
	if err != nil {
		return nil, err
	}

	pool, err := s.engine.CloseEarly(poolID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SavePool(ctx, pool); err != nil {
		return nil, err
	}
	if len(investments) > 0 {
		if _, err := s.payments.RecordRefunds(ctx, pool, investments); err != nil {
			return nil, err
		}
	}
	if err := s.invoices.SetStatus(ctx, pool.InvoiceID, invoice.StatusCancelled); err != nil {
		s.logger.Error("failed to cancel invoice",
			zap.String("invoice_id", pool.InvoiceID.String()), zap.Error(err))
	}

	s.notifier.PoolEvent(ctx, notifications.Event{
		Type:      notifications.EventPoolClosed,
		PoolID:    pool.ID,
		InvoiceID: pool.InvoiceID,
		Data:      map[string]interface{}{"refunded_investments": len(investments)},
	})

	return NewPoolResponse(pool), nil
}

// GetPool returns one pool with derived capacity numbers.
func (s *Service) GetPool(ctx context.Context, poolID uuid.UUID) (*PoolResponse, error) {
	pool, err := s.engine.GetPool(poolID)
	if err != nil {
		return nil, err
	}
	return NewPoolResponse(pool), nil
}

// ListPools returns every pool, optionally filtered by status.
func (s *Service) ListPools(ctx context.Context, status *engine.PoolStatus) []*PoolResponse {
	pools := s.engine.Pools()
	out := make([]*PoolResponse, 0, len(pools))
	for _, pool := range pools {
		if status != nil && pool.Status != *status {
			continue
		}
		out = append(out, NewPoolResponse(pool))
	}
	return out
}

// GetInvestments returns a pool's ledger.
func (s *Service) GetInvestments(ctx context.Context, poolID uuid.UUID) ([]*engine.Investment, error) {
	return s.engine.GetInvestments(poolID)
}

// RemainingCapacity reports a tranche's headroom.
func (s *Service) RemainingCapacity(ctx context.Context, poolID uuid.UUID, tranche engine.Tranche) (int64, error) {
	return s.engine.RemainingCapacity(poolID, tranche)
}

// Breakdown itemizes what a repayment must cover for a pool: principal and
// interest per investment plus the platform fee, with a suggested repayment
// grossed up so the fee never eats into expected returns.
func (s *Service) Breakdown(ctx context.Context, poolID uuid.UUID) (*RepaymentBreakdown, error) {
	pool, err := s.engine.GetPool(poolID)
	if err != nil {
		return nil, err
	}
	investments, err := s.engine.GetInvestments(poolID)
	if err != nil {
		return nil, err
	}

	breakdown := &RepaymentBreakdown{
		PoolID:   pool.ID,
		Status:   pool.Status,
		Currency: pool.Currency,
		FeeBps:   pool.FeeBps,
		Entries:  make([]BreakdownEntry, 0, len(investments)),
	}

	for _, inv := range investments {
		entry := BreakdownEntry{
			InvestmentID:   inv.ID,
			InvestorID:     inv.InvestorID,
			Tranche:        inv.Tranche,
			Principal:      inv.Amount,
			Interest:       inv.ExpectedReturn - inv.Amount,
			ExpectedReturn: inv.ExpectedReturn,
			ActualReturn:   inv.ActualReturn,
		}
		breakdown.TotalPrincipal += entry.Principal
		breakdown.TotalInterest += entry.Interest
		breakdown.TotalExpected += entry.ExpectedReturn
		breakdown.Entries = append(breakdown.Entries, entry)
	}

	breakdown.SuggestedRepayment = grossUpForFee(breakdown.TotalExpected, pool.FeeBps)
	return breakdown, nil
}

// ScanDefaults walks every disbursed pool and defaults the ones past their
// grace period. Returns the pools defaulted in this pass.
func (s *Service) ScanDefaults(ctx context.Context, now time.Time, grace time.Duration) []*PoolResponse {
	var defaulted []*PoolResponse
	for _, pool := range s.engine.Pools() {
		if !engine.EligibleForDefault(pool, now, grace) {
			continue
		}
		resp, err := s.MarkDefaulted(ctx, pool.ID, now)
		if err != nil {
			s.logger.Error("failed to default pool",
				zap.String("pool_id", pool.ID.String()), zap.Error(err))
			continue
		}
		defaulted = append(defaulted, resp)
	}
	return defaulted
}

// ExpireStalePools closes open pools whose funding deadline has passed.
func (s *Service) ExpireStalePools(ctx context.Context, now time.Time) []*PoolResponse {
	var closed []*PoolResponse
	for _, pool := range s.engine.Pools() {
		if pool.Status != engine.PoolStatusOpen || pool.Deadline == nil || !now.After(*pool.Deadline) {
			continue
		}
		resp, err := s.ClosePool(ctx, pool.ID)
		if err != nil {
			s.logger.Error("failed to expire pool",
				zap.String("pool_id", pool.ID.String()), zap.Error(err))
			continue
		}
		closed = append(closed, resp)
	}
	return closed
}

// SetEnabled toggles the engine's mutating operations.
func (s *Service) SetEnabled(enabled bool) {
	s.engine.SetEnabled(enabled)
	s.logger.Warn("engine enabled flag changed", zap.Bool("enabled", enabled))
}

// Enabled reports whether the engine accepts mutating operations.
func (s *Service) Enabled() bool {
	return s.engine.Enabled()
}

// grossUpForFee returns the smallest T such that T minus the platform fee on T
// still covers amount.
func grossUpForFee(amount, feeBps int64) int64 {
	if amount <= 0 {
		return 0
	}
	if feeBps <= 0 {
		return amount
	}
	if feeBps > engine.DefaultMaxFeeBps {
		feeBps = engine.DefaultMaxFeeBps
	}
	numerator := new(big.Int).Mul(big.NewInt(amount), big.NewInt(10000))
	denominator := big.NewInt(10000 - feeBps)
	gross, rem := new(big.Int).QuoRem(numerator, denominator, new(big.Int))
	if rem.Sign() != 0 {
		gross.Add(gross, big.NewInt(1))
	}
	return gross.Int64()
}
