package funding

import (
	"time"

	"github.com/google/uuid"

	"invobridge/funding-portal-backend/internal/funding/engine"
)

// CreatePoolRequest opens a pool for a tokenized invoice. Targets, tranche
// ratios, and rates come from the invoice itself; the optional deadline bounds
// how long the pool may stay open.
type CreatePoolRequest struct {
	InvoiceID uuid.UUID  `json:"invoice_id" binding:"required"`
	Deadline  *time.Time `json:"deadline,omitempty"`
}

// InvestRequest is one investor commitment. Catalyst commitments must also
// acknowledge the subordination risk.
type InvestRequest struct {
	Amount        int64          `json:"amount" binding:"required,gt=0"`
	Tranche       engine.Tranche `json:"tranche" binding:"required"`
	RateLockToken string         `json:"rate_lock_token,omitempty"`
	AgreedToTerms bool           `json:"agreed_to_terms"`
	AcceptedRisk  bool           `json:"accepted_risk"`
}

// RepaymentRequest settles a disbursed pool. PerInvestorReturns, when present,
// overrides the waterfall with operator-specified amounts in ledger order.
type RepaymentRequest struct {
	Amount             int64   `json:"amount" binding:"required,gt=0"`
	PerInvestorReturns []int64 `json:"per_investor_returns,omitempty"`
}

// ConfirmPayoutRequest records the payment provider's confirmation reference.
type ConfirmPayoutRequest struct {
	Reference string `json:"reference" binding:"required"`
}

// PoolResponse is a pool snapshot enriched with the derived numbers clients
// always want next to it.
type PoolResponse struct {
	*engine.Pool
	RemainingPriority int64 `json:"remaining_priority"`
	RemainingCatalyst int64 `json:"remaining_catalyst"`
	FundedBps         int64 `json:"funded_bps"`
}

// NewPoolResponse derives the response numbers from a pool snapshot. A pool
// that is no longer open reports zero remaining capacity.
func NewPoolResponse(pool *engine.Pool) *PoolResponse {
	resp := &PoolResponse{Pool: pool}
	if pool.Status == engine.PoolStatusOpen {
		resp.RemainingPriority = pool.PriorityTarget - pool.PriorityFunded
		resp.RemainingCatalyst = pool.CatalystTarget - pool.CatalystFunded
	}
	if pool.TargetAmount > 0 {
		resp.FundedBps = pool.FundedAmount * 10000 / pool.TargetAmount
	}
	return resp
}

// BreakdownEntry is one investment's line in a repayment breakdown.
type BreakdownEntry struct {
	InvestmentID   uuid.UUID      `json:"investment_id"`
	InvestorID     uuid.UUID      `json:"investor_id"`
	Tranche        engine.Tranche `json:"tranche"`
	Principal      int64          `json:"principal"`
	Interest       int64          `json:"interest"`
	ExpectedReturn int64          `json:"expected_return"`
	ActualReturn   *int64         `json:"actual_return,omitempty"`
}

// RepaymentBreakdown itemizes what a repayment must cover: every investment's
// principal and interest plus the platform fee. SuggestedRepayment is grossed
// up so that after the fee comes off the top, every expected return is still
// covered in full.
type RepaymentBreakdown struct {
	PoolID             uuid.UUID        `json:"pool_id"`
	Status             engine.PoolStatus `json:"status"`
	Currency           string           `json:"currency"`
	TotalPrincipal     int64            `json:"total_principal"`
	TotalInterest      int64            `json:"total_interest"`
	TotalExpected      int64            `json:"total_expected"`
	FeeBps             int64            `json:"fee_bps"`
	SuggestedRepayment int64            `json:"suggested_repayment"`
	Entries            []BreakdownEntry `json:"entries"`
}
