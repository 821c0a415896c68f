package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInvestment(tranche Tranche, amount, expected int64) *Investment {
	return &Investment{
		ID:             uuid.New(),
		InvestorID:     uuid.New(),
		Tranche:        tranche,
		Amount:         amount,
		ExpectedReturn: expected,
	}
}

func payoutTotal(s *Settlement) int64 {
	var total int64
	for _, p := range s.Payouts {
		total += p.Amount
	}
	return total
}

func TestSettleFullRepayment(t *testing.T) {
	pool := &Pool{ID: uuid.New(), FeeBps: 0}
	investments := []*Investment{
		testInvestment(TranchePriority, 10000, 10139),
	}

	s, err := settle(pool, investments, 10850, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(0), s.FeeAmount)
	assert.Equal(t, int64(10139), s.Payouts[0].Amount)
	assert.Equal(t, int64(711), s.ExporterRemainder)
	assert.Equal(t, s.TotalAmount, payoutTotal(s)+s.FeeAmount+s.ExporterRemainder)
}

func TestSettlePriorityShortfallProRata(t *testing.T) {
	// Two equal priority investments expecting 4400 each; only 8000 arrives.
	// Each absorbs the shortfall proportionally to principal: 4000 apiece.
	pool := &Pool{ID: uuid.New(), FeeBps: 0}
	investments := []*Investment{
		testInvestment(TranchePriority, 4000, 4400),
		testInvestment(TranchePriority, 4000, 4400),
		testInvestment(TrancheCatalyst, 2000, 2300),
	}

	s, err := settle(pool, investments, 8000, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(4000), s.Payouts[0].Amount)
	assert.Equal(t, int64(4000), s.Payouts[1].Amount)
	assert.Equal(t, TrancheCatalyst, s.Payouts[2].Tranche)
	assert.Equal(t, int64(0), s.Payouts[2].Amount)
	assert.Equal(t, int64(0), s.ExporterRemainder)
	assert.Equal(t, s.TotalAmount, payoutTotal(s)+s.FeeAmount+s.ExporterRemainder)
}

func TestSettleCatalystPaidAfterPriority(t *testing.T) {
	pool := &Pool{ID: uuid.New(), FeeBps: 0}
	investments := []*Investment{
		testInvestment(TranchePriority, 8000, 8800),
		testInvestment(TrancheCatalyst, 2000, 2300),
	}

	// Enough for priority in full, catalyst shorted to what is left.
	s, err := settle(pool, investments, 10000, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(8800), s.Payouts[0].Amount)
	assert.Equal(t, int64(1200), s.Payouts[1].Amount)
	assert.Equal(t, int64(0), s.ExporterRemainder)
}

func TestSettleExcessGoesToExporter(t *testing.T) {
	pool := &Pool{ID: uuid.New(), FeeBps: 0}
	investments := []*Investment{
		testInvestment(TranchePriority, 8000, 8800),
		testInvestment(TrancheCatalyst, 2000, 2300),
	}

	// Expected return caps the payout; everything above it is the exporter's.
	s, err := settle(pool, investments, 15000, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(8800), s.Payouts[0].Amount)
	assert.Equal(t, int64(2300), s.Payouts[1].Amount)
	assert.Equal(t, int64(3900), s.ExporterRemainder)
}

func TestSettleFeeComesOffTheTop(t *testing.T) {
	pool := &Pool{ID: uuid.New(), FeeBps: 250}
	investments := []*Investment{
		testInvestment(TranchePriority, 4000, 4400),
		testInvestment(TranchePriority, 4000, 4400),
	}

	s, err := settle(pool, investments, 8000, nil)
	require.NoError(t, err)

	// fee = 8000*250/10000 = 200, leaving 7800 shared pro-rata: 3900 each.
	assert.Equal(t, int64(200), s.FeeAmount)
	assert.Equal(t, int64(3900), s.Payouts[0].Amount)
	assert.Equal(t, int64(3900), s.Payouts[1].Amount)
	assert.Equal(t, int64(0), s.ExporterRemainder)
}

func TestSettleProRataResidueRetained(t *testing.T) {
	// 999 across principals 3000/7000: floor shares are 299 and 699, and the
	// sub-unit lost to flooring ends up with the exporter, never dropped.
	pool := &Pool{ID: uuid.New(), FeeBps: 0}
	investments := []*Investment{
		testInvestment(TranchePriority, 3000, 3300),
		testInvestment(TranchePriority, 7000, 7700),
	}

	s, err := settle(pool, investments, 999, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(299), s.Payouts[0].Amount)
	assert.Equal(t, int64(699), s.Payouts[1].Amount)
	assert.Equal(t, int64(1), s.ExporterRemainder)
	assert.Equal(t, s.TotalAmount, payoutTotal(s)+s.FeeAmount+s.ExporterRemainder)
}

func TestSettleOperatorOverride(t *testing.T) {
	pool := &Pool{ID: uuid.New(), FeeBps: 0}
	investments := []*Investment{
		testInvestment(TranchePriority, 4000, 4400),
		testInvestment(TrancheCatalyst, 2000, 2300),
	}

	s, err := settle(pool, investments, 6000, []int64{3500, 2000})
	require.NoError(t, err)

	assert.Equal(t, int64(3500), s.Payouts[0].Amount)
	assert.Equal(t, int64(2000), s.Payouts[1].Amount)
	assert.Equal(t, int64(500), s.ExporterRemainder)
}

func TestSettleOverrideValidation(t *testing.T) {
	pool := &Pool{ID: uuid.New(), FeeBps: 0}
	investments := []*Investment{
		testInvestment(TranchePriority, 4000, 4400),
		testInvestment(TrancheCatalyst, 2000, 2300),
	}

	_, err := settle(pool, investments, 6000, []int64{3500})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = settle(pool, investments, 6000, []int64{3500, -1})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = settle(pool, investments, 6000, []int64{3500, 2600})
	assert.ErrorIs(t, err, ErrOverAllocation)
}

func TestSettleRejectsNonPositiveAmount(t *testing.T) {
	pool := &Pool{ID: uuid.New(), FeeBps: 0}

	_, err := settle(pool, nil, 0, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = settle(pool, nil, -500, nil)
	assert.ErrorIs(t, err, ErrValidation)
}
