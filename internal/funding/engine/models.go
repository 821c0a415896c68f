package engine

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PoolStatus represents the lifecycle status of a funding pool
type PoolStatus string

const (
	PoolStatusOpen      PoolStatus = "open"
	PoolStatusFilled    PoolStatus = "filled"
	PoolStatusDisbursed PoolStatus = "disbursed"
	PoolStatusClosed    PoolStatus = "closed"
	PoolStatusDefaulted PoolStatus = "defaulted"
)

// Tranche identifies the risk slice an investment belongs to. Priority is
// senior and paid first; catalyst is subordinated and absorbs losses first.
type Tranche string

const (
	TranchePriority Tranche = "priority"
	TrancheCatalyst Tranche = "catalyst"
)

// Valid reports whether t is a known tranche.
func (t Tranche) Valid() bool {
	return t == TranchePriority || t == TrancheCatalyst
}

// Pool is one funding pool per fundable invoice. All amounts are integer
// minor units of the settlement currency; rates are basis points.
type Pool struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	InvoiceID  uuid.UUID `json:"invoice_id" gorm:"type:uuid;not null;uniqueIndex"`
	ExporterID uuid.UUID `json:"exporter_id" gorm:"type:uuid;not null;index"`

	TargetAmount int64 `json:"target_amount" gorm:"not null"`
	FundedAmount int64 `json:"funded_amount" gorm:"not null;default:0"`

	PriorityTarget int64 `json:"priority_target" gorm:"not null"`
	PriorityFunded int64 `json:"priority_funded" gorm:"not null;default:0"`
	CatalystTarget int64 `json:"catalyst_target" gorm:"not null"`
	CatalystFunded int64 `json:"catalyst_funded" gorm:"not null;default:0"`

	PriorityRateBps int64 `json:"priority_rate_bps" gorm:"not null"`
	CatalystRateBps int64 `json:"catalyst_rate_bps" gorm:"not null"`
	FeeBps          int64 `json:"fee_bps" gorm:"not null"`

	InvestorCount int `json:"investor_count" gorm:"not null;default:0"`

	Status   PoolStatus `json:"status" gorm:"not null;default:'open';index"`
	Currency string     `json:"currency" gorm:"not null;default:'IDR'"`

	DueDate  time.Time  `json:"due_date" gorm:"not null;index"`
	Deadline *time.Time `json:"deadline,omitempty"`

	OpenedAt    time.Time  `json:"opened_at" gorm:"not null"`
	FilledAt    *time.Time `json:"filled_at,omitempty"`
	DisbursedAt *time.Time `json:"disbursed_at,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	DefaultedAt *time.Time `json:"defaulted_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (p *Pool) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Terminal reports whether the pool can no longer change state.
func (p *Pool) Terminal() bool {
	return p.Status == PoolStatusClosed || p.Status == PoolStatusDefaulted
}

// RateFor returns the interest rate for the given tranche in basis points.
func (p *Pool) RateFor(tranche Tranche) int64 {
	if tranche == TrancheCatalyst {
		return p.CatalystRateBps
	}
	return p.PriorityRateBps
}

// Clone returns a shallow copy safe to hand to callers outside the engine.
func (p *Pool) Clone() *Pool {
	cp := *p
	return &cp
}

// Investment is one accepted commitment in a pool. Amounts are integer minor
// units. ExpectedReturn is fixed at commit time and caps the payout;
// ActualReturn is set exactly once at settlement.
type Investment struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	PoolID     uuid.UUID `json:"pool_id" gorm:"type:uuid;not null;index"`
	InvestorID uuid.UUID `json:"investor_id" gorm:"type:uuid;not null;index"`

	Tranche        Tranche `json:"tranche" gorm:"not null"`
	Amount         int64   `json:"amount" gorm:"not null"`
	ExpectedReturn int64   `json:"expected_return" gorm:"not null"`
	ActualReturn   *int64  `json:"actual_return,omitempty"`
	Settled        bool    `json:"settled" gorm:"not null;default:false"`

	// RateLockToken is an opaque audit reference to the exchange-rate lock
	// used to express Amount in the settlement currency, if any.
	RateLockToken string `json:"rate_lock_token,omitempty"`

	InvestedAt time.Time  `json:"invested_at" gorm:"not null"`
	SettledAt  *time.Time `json:"settled_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (i *Investment) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Clone returns a shallow copy safe to hand to callers outside the engine.
func (i *Investment) Clone() *Investment {
	cp := *i
	if i.ActualReturn != nil {
		v := *i.ActualReturn
		cp.ActualReturn = &v
	}
	return &cp
}

// Disbursement is the pair of payout amounts reported to the payment
// collaborator when a filled pool is disbursed.
type Disbursement struct {
	PoolID    uuid.UUID `json:"pool_id"`
	FeeAmount int64     `json:"fee_amount"`
	NetAmount int64     `json:"net_amount"`
}

// InvestmentPayout is the settled amount for one investment.
type InvestmentPayout struct {
	InvestmentID uuid.UUID `json:"investment_id"`
	InvestorID   uuid.UUID `json:"investor_id"`
	Tranche      Tranche   `json:"tranche"`
	Principal    int64     `json:"principal"`
	Amount       int64     `json:"amount"`
}

// Settlement is the full outcome of a repayment: per-investment payouts, the
// platform fee, and whatever is left for the exporter. The amounts always
// reconcile exactly against the repaid total.
type Settlement struct {
	PoolID            uuid.UUID          `json:"pool_id"`
	TotalAmount       int64              `json:"total_amount"`
	FeeAmount         int64              `json:"fee_amount"`
	ExporterRemainder int64              `json:"exporter_remainder"`
	Payouts           []InvestmentPayout `json:"payouts"`
}
