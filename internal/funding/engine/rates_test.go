package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpectedReturn(t *testing.T) {
	// 10000 at 8.5% over 60 days: 10000 + 10000*850*60/(365*10000) = 10139
	assert.Equal(t, int64(10139), ExpectedReturn(10000, 850, 60))

	// Zero-duration commitments still accrue one day of interest.
	assert.Equal(t, ExpectedReturn(10000, 850, 1), ExpectedReturn(10000, 850, 0))
	assert.Equal(t, ExpectedReturn(10000, 850, 1), ExpectedReturn(10000, 850, -3))

	// Zero rate returns principal untouched.
	assert.Equal(t, int64(50000), ExpectedReturn(50000, 0, 90))

	assert.Equal(t, int64(0), ExpectedReturn(0, 850, 60))
	assert.Equal(t, int64(0), ExpectedReturn(-100, 850, 60))
}

func TestExpectedReturnLargePrincipal(t *testing.T) {
	// 10^15 minor units at 10% for a year would overflow a naive int64
	// product; the big.Int path must survive it.
	principal := int64(1_000_000_000_000_000)
	got := ExpectedReturn(principal, 1000, 365)
	assert.Equal(t, principal+principal/10, got)
}

func TestPlatformFee(t *testing.T) {
	assert.Equal(t, int64(250), PlatformFee(10000, 250))
	assert.Equal(t, int64(0), PlatformFee(10000, 0))
	assert.Equal(t, int64(0), PlatformFee(0, 250))

	// Fee is capped at 10%.
	assert.Equal(t, int64(1000), PlatformFee(10000, 5000))

	// Floor division: 999 * 250 / 10000 = 24.975 -> 24
	assert.Equal(t, int64(24), PlatformFee(999, 250))
}

func TestDaysToMaturity(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, int64(60), DaysToMaturity(now, now.AddDate(0, 0, 60)))
	assert.Equal(t, int64(1), DaysToMaturity(now, now))
	assert.Equal(t, int64(1), DaysToMaturity(now, now.AddDate(0, 0, -5)))
}

func TestProRataShare(t *testing.T) {
	assert.Equal(t, int64(4000), proRataShare(8000, 4000, 8000))
	assert.Equal(t, int64(2666), proRataShare(8000, 1000, 3000))
	assert.Equal(t, int64(0), proRataShare(8000, 0, 3000))
	assert.Equal(t, int64(0), proRataShare(8000, 1000, 0))
}
