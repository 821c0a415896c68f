package portfolio

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository is the read-only aggregate view over the funding tables. It
// queries the rows the funding repository persists; it never writes.
type Repository interface {
	GetInvestorPortfolio(ctx context.Context, investorID uuid.UUID) (*InvestorPortfolio, error)
	GetPlatformStats(ctx context.Context) (*PlatformStats, error)
	GetExporterDashboard(ctx context.Context, exporterID uuid.UUID) (*ExporterDashboard, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetInvestorPortfolio(ctx context.Context, investorID uuid.UUID) (*InvestorPortfolio, error) {
	portfolio := &InvestorPortfolio{InvestorID: investorID, Positions: []Position{}}

	query := `
		SELECT i.id AS investment_id, i.pool_id, p.invoice_id, i.tranche,
			   i.amount, i.expected_return, i.actual_return, i.settled,
			   p.status AS pool_status, p.currency, p.due_date,
			   i.invested_at, i.settled_at
		FROM investments i
		JOIN pools p ON p.id = i.pool_id
		WHERE i.investor_id = $1
		ORDER BY i.invested_at DESC
	`
	if err := r.db.SelectContext(ctx, &portfolio.Positions, query, investorID); err != nil {
		return nil, fmt.Errorf("failed to load investor positions: %w", err)
	}

	for _, pos := range portfolio.Positions {
		portfolio.TotalInvested += pos.Amount
		portfolio.TotalExpected += pos.ExpectedReturn
		switch pos.Tranche {
		case "priority":
			portfolio.PriorityInvested += pos.Amount
		case "catalyst":
			portfolio.CatalystInvested += pos.Amount
		}
		if pos.Settled {
			portfolio.SettledCount++
			if pos.ActualReturn != nil {
				portfolio.TotalReturned += *pos.ActualReturn
			}
		} else {
			portfolio.ActiveCount++
			portfolio.ActiveInvested += pos.Amount
		}
	}

	return portfolio, nil
}

func (r *postgresRepository) GetPlatformStats(ctx context.Context) (*PlatformStats, error) {
	stats := &PlatformStats{PoolsByStatus: make(map[string]int64)}

	rows, err := r.db.QueryxContext(ctx, `SELECT status, COUNT(*) FROM pools GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count pools: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan pool counts: %w", err)
		}
		stats.PoolsByStatus[status] = count
		stats.TotalPools += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pool counts: %w", err)
	}

	err = r.db.GetContext(ctx, &stats.TotalFunded,
		`SELECT COALESCE(SUM(funded_amount), 0) FROM pools`)
	if err != nil {
		return nil, fmt.Errorf("failed to sum funded amounts: %w", err)
	}

	err = r.db.GetContext(ctx, &stats.TotalSettled,
		`SELECT COALESCE(SUM(actual_return), 0) FROM investments WHERE settled = true`)
	if err != nil {
		return nil, fmt.Errorf("failed to sum settled returns: %w", err)
	}

	err = r.db.GetContext(ctx, &stats.TotalDefaulted,
		`SELECT COALESCE(SUM(funded_amount), 0) FROM pools WHERE status = 'defaulted'`)
	if err != nil {
		return nil, fmt.Errorf("failed to sum defaulted amounts: %w", err)
	}

	err = r.db.GetContext(ctx, &stats.InvestorCount,
		`SELECT COUNT(DISTINCT investor_id) FROM investments`)
	if err != nil {
		return nil, fmt.Errorf("failed to count investors: %w", err)
	}

	return stats, nil
}

func (r *postgresRepository) GetExporterDashboard(ctx context.Context, exporterID uuid.UUID) (*ExporterDashboard, error) {
	dashboard := &ExporterDashboard{ExporterID: exporterID, Pools: []ExporterPool{}}

	query := `
		SELECT id AS pool_id, invoice_id, status, target_amount, funded_amount,
			   currency, due_date, disbursed_at, closed_at
		FROM pools
		WHERE exporter_id = $1
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &dashboard.Pools, query, exporterID); err != nil {
		return nil, fmt.Errorf("failed to load exporter pools: %w", err)
	}

	for _, pool := range dashboard.Pools {
		switch pool.Status {
		case "disbursed":
			dashboard.OutstandingPools++
			dashboard.TotalRaised += pool.FundedAmount
		case "closed":
			dashboard.RepaidPools++
			dashboard.TotalRaised += pool.FundedAmount
		}
	}

	return dashboard, nil
}
