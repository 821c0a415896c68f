package engine

// settle allocates a repayment across tranches and investments. Priority is
// made whole before catalyst sees anything; inside a tranche a shortfall is
// shared pro-rata by principal. Expected return is a hard ceiling per
// investment, and every sub-unit lost to floor division flows to the exporter
// remainder, so the result always reconciles exactly:
//
//	sum(payouts) + fee + exporterRemainder == totalAmount
func settle(pool *Pool, investments []*Investment, totalAmount int64, overrides []int64) (*Settlement, error) {
	if totalAmount <= 0 {
		return nil, validationError("repayment amount must be positive, got %d", totalAmount)
	}

	fee := PlatformFee(totalAmount, pool.FeeBps)
	distributable := totalAmount - fee

	s := &Settlement{
		PoolID:      pool.ID,
		TotalAmount: totalAmount,
		FeeAmount:   fee,
		Payouts:     make([]InvestmentPayout, 0, len(investments)),
	}

	if overrides != nil {
		if len(overrides) != len(investments) {
			return nil, validationError("expected %d per-investor returns, got %d", len(investments), len(overrides))
		}
		var allocated int64
		for i, inv := range investments {
			if overrides[i] < 0 {
				return nil, validationError("per-investor return must be non-negative, got %d", overrides[i])
			}
			allocated += overrides[i]
			s.Payouts = append(s.Payouts, payoutFor(inv, overrides[i]))
		}
		if allocated+fee > totalAmount {
			return nil, newError(ErrOverAllocation.Code,
				"allocated %d plus fee %d exceeds repayment %d", allocated, fee, totalAmount)
		}
		s.ExporterRemainder = totalAmount - fee - allocated
		return s, nil
	}

	for _, tranche := range []Tranche{TranchePriority, TrancheCatalyst} {
		var slice []*Investment
		for _, inv := range investments {
			if inv.Tranche == tranche {
				slice = append(slice, inv)
			}
		}
		paid := settleTranche(slice, distributable, s)
		distributable -= paid
	}

	s.ExporterRemainder = distributable
	return s, nil
}

// settleTranche pays one tranche out of the available amount and returns the
// total it consumed. Payouts are appended to s in investment order.
func settleTranche(investments []*Investment, available int64, s *Settlement) int64 {
	if len(investments) == 0 {
		return 0
	}

	var totalExpected, totalPrincipal int64
	for _, inv := range investments {
		totalExpected += inv.ExpectedReturn
		totalPrincipal += inv.Amount
	}

	var paid int64
	if available >= totalExpected {
		// Full coverage: everyone gets their expected return.
		for _, inv := range investments {
			s.Payouts = append(s.Payouts, payoutFor(inv, inv.ExpectedReturn))
			paid += inv.ExpectedReturn
		}
		return paid
	}

	// Shortfall: share what is available pro-rata by principal, still never
	// above any single investment's expected return.
	for _, inv := range investments {
		amount := proRataShare(available, inv.Amount, totalPrincipal)
		if amount > inv.ExpectedReturn {
			amount = inv.ExpectedReturn
		}
		s.Payouts = append(s.Payouts, payoutFor(inv, amount))
		paid += amount
	}
	return paid
}

func payoutFor(inv *Investment, amount int64) InvestmentPayout {
	return InvestmentPayout{
		InvestmentID: inv.ID,
		InvestorID:   inv.InvestorID,
		Tranche:      inv.Tranche,
		Principal:    inv.Amount,
		Amount:       amount,
	}
}
