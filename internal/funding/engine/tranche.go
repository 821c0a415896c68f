package engine

// SplitTargets divides a pool target into tranche sub-targets. The ratios are
// basis points and must sum to exactly 10000; the catalyst tranche takes the
// rounding residue so the sub-targets always sum back to the target.
func SplitTargets(target, priorityRatioBps, catalystRatioBps int64) (priorityTarget, catalystTarget int64, err error) {
	if target <= 0 {
		return 0, 0, validationError("target amount must be positive, got %d", target)
	}
	if priorityRatioBps < 0 || catalystRatioBps < 0 {
		return 0, 0, validationError("tranche ratios must be non-negative")
	}
	if priorityRatioBps+catalystRatioBps != 10000 {
		return 0, 0, validationError("tranche ratios must sum to 10000 bps, got %d", priorityRatioBps+catalystRatioBps)
	}

	priorityTarget = proRataShare(target, priorityRatioBps, 10000)
	catalystTarget = target - priorityTarget
	return priorityTarget, catalystTarget, nil
}

// trancheCapacity returns the remaining headroom of a tranche for an Open
// pool. Callers must hold the pool lock.
func trancheCapacity(p *Pool, tranche Tranche) int64 {
	if tranche == TrancheCatalyst {
		return p.CatalystTarget - p.CatalystFunded
	}
	return p.PriorityTarget - p.PriorityFunded
}

// applyFunding credits an accepted investment to its tranche and the pool
// total. Callers must hold the pool lock and have verified capacity.
func applyFunding(p *Pool, tranche Tranche, amount int64) {
	if tranche == TrancheCatalyst {
		p.CatalystFunded += amount
	} else {
		p.PriorityFunded += amount
	}
	p.FundedAmount += amount
}
