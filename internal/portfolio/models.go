package portfolio

import (
	"time"

	"github.com/google/uuid"
)

// Position is one investment as seen from the investor's side, joined with
// its pool.
type Position struct {
	InvestmentID   uuid.UUID  `db:"investment_id" json:"investment_id"`
	PoolID         uuid.UUID  `db:"pool_id" json:"pool_id"`
	InvoiceID      uuid.UUID  `db:"invoice_id" json:"invoice_id"`
	Tranche        string     `db:"tranche" json:"tranche"`
	Amount         int64      `db:"amount" json:"amount"`
	ExpectedReturn int64      `db:"expected_return" json:"expected_return"`
	ActualReturn   *int64     `db:"actual_return" json:"actual_return,omitempty"`
	Settled        bool       `db:"settled" json:"settled"`
	PoolStatus     string     `db:"pool_status" json:"pool_status"`
	Currency       string     `db:"currency" json:"currency"`
	DueDate        time.Time  `db:"due_date" json:"due_date"`
	InvestedAt     time.Time  `db:"invested_at" json:"invested_at"`
	SettledAt      *time.Time `db:"settled_at" json:"settled_at,omitempty"`
}

// InvestorPortfolio aggregates an investor's activity across every pool.
type InvestorPortfolio struct {
	InvestorID       uuid.UUID  `json:"investor_id"`
	TotalInvested    int64      `json:"total_invested"`
	ActiveInvested   int64      `json:"active_invested"`
	TotalExpected    int64      `json:"total_expected"`
	TotalReturned    int64      `json:"total_returned"`
	PriorityInvested int64      `json:"priority_invested"`
	CatalystInvested int64      `json:"catalyst_invested"`
	ActiveCount      int        `json:"active_count"`
	SettledCount     int        `json:"settled_count"`
	Positions        []Position `json:"positions"`
}

// PlatformStats is the operator's one-glance view of the whole platform.
type PlatformStats struct {
	TotalPools     int64            `json:"total_pools"`
	PoolsByStatus  map[string]int64 `json:"pools_by_status"`
	TotalFunded    int64            `json:"total_funded"`
	TotalSettled   int64            `json:"total_settled"`
	TotalDefaulted int64            `json:"total_defaulted"`
	InvestorCount  int64            `json:"investor_count"`
}

// ExporterPool is one pool row on the exporter dashboard.
type ExporterPool struct {
	PoolID       uuid.UUID  `db:"pool_id" json:"pool_id"`
	InvoiceID    uuid.UUID  `db:"invoice_id" json:"invoice_id"`
	Status       string     `db:"status" json:"status"`
	TargetAmount int64      `db:"target_amount" json:"target_amount"`
	FundedAmount int64      `db:"funded_amount" json:"funded_amount"`
	Currency     string     `db:"currency" json:"currency"`
	DueDate      time.Time  `db:"due_date" json:"due_date"`
	DisbursedAt  *time.Time `db:"disbursed_at" json:"disbursed_at,omitempty"`
	ClosedAt     *time.Time `db:"closed_at" json:"closed_at,omitempty"`
}

// ExporterDashboard summarizes an exporter's pools and outstanding debt.
type ExporterDashboard struct {
	ExporterID       uuid.UUID      `json:"exporter_id"`
	TotalRaised      int64          `json:"total_raised"`
	OutstandingPools int            `json:"outstanding_pools"`
	RepaidPools      int            `json:"repaid_pools"`
	Pools            []ExporterPool `json:"pools"`
}
