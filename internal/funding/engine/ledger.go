package engine

import "github.com/google/uuid"

// ledger is the append-only list of investments for one pool. It is the only
// writer of Investment records and the source of truth for who is owed what.
// All access happens under the owning pool's lock.
type ledger struct {
	investments []*Investment
	investors   map[uuid.UUID]struct{}
}

func newLedger() *ledger {
	return &ledger{investors: make(map[uuid.UUID]struct{})}
}

// append records an accepted investment. Records are never removed.
func (l *ledger) append(inv *Investment) {
	l.investments = append(l.investments, inv)
	l.investors[inv.InvestorID] = struct{}{}
}

func (l *ledger) investorCount() int {
	return len(l.investors)
}

// byTranche returns the ledger entries for one tranche, in investment order.
func (l *ledger) byTranche(tranche Tranche) []*Investment {
	var out []*Investment
	for _, inv := range l.investments {
		if inv.Tranche == tranche {
			out = append(out, inv)
		}
	}
	return out
}

// totals sums principal per tranche. Used by the reconciliation check.
func (l *ledger) totals() (priority, catalyst int64) {
	for _, inv := range l.investments {
		if inv.Tranche == TrancheCatalyst {
			catalyst += inv.Amount
		} else {
			priority += inv.Amount
		}
	}
	return priority, catalyst
}

// reconciles verifies the ledger matches the pool's funded fields exactly.
func (l *ledger) reconciles(p *Pool) bool {
	priority, catalyst := l.totals()
	return priority == p.PriorityFunded &&
		catalyst == p.CatalystFunded &&
		priority+catalyst == p.FundedAmount
}

// snapshot returns cloned records in append order.
func (l *ledger) snapshot() []*Investment {
	out := make([]*Investment, 0, len(l.investments))
	for _, inv := range l.investments {
		out = append(out, inv.Clone())
	}
	return out
}
