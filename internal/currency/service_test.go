package currency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLockService(bufferBps int64) *Service {
	source := NewStaticRateSource(map[string]int64{"USD/IDR": 1550000})
	return NewService(source, bufferBps, DefaultLockTTL, zap.NewNop())
}

func TestLockAppliesBuffer(t *testing.T) {
	s := newLockService(50)

	lock, err := s.Lock("usd", "idr")
	require.NoError(t, err)

	assert.Equal(t, "USD", lock.Base)
	assert.Equal(t, "IDR", lock.Quote)
	assert.Equal(t, int64(1550000), lock.Rate)
	// 1550000 * 1.005 = 1557750, exact.
	assert.Equal(t, int64(1557750), lock.EffectiveRate)
	assert.NotEmpty(t, lock.Token)
	assert.Equal(t, DefaultLockTTL, lock.ExpiresAt.Sub(lock.CreatedAt))
}

func TestApplyBufferRoundsUp(t *testing.T) {
	// 1001 * 1.0025 = 1003.5025, a partial minor unit rounds against the caller.
	assert.Equal(t, int64(1004), applyBuffer(1001, 25))
	assert.Equal(t, int64(1001), applyBuffer(1001, 0))
}

func TestVerifyRejectsExpiredLock(t *testing.T) {
	s := newLockService(0)

	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	lock, err := s.Lock("USD", "IDR")
	require.NoError(t, err)

	_, err = s.Verify(lock.Token)
	assert.NoError(t, err)

	s.now = func() time.Time { return base.Add(31 * time.Minute) }
	_, err = s.Verify(lock.Token)
	assert.Error(t, err)
}

func TestVerifyUnknownToken(t *testing.T) {
	s := newLockService(0)
	_, err := s.Verify("nope")
	assert.Error(t, err)
}

func TestSweepRemovesExpiredLocks(t *testing.T) {
	s := newLockService(0)

	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	_, err := s.Lock("USD", "IDR")
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(10 * time.Minute) }
	live, err := s.Lock("USD", "IDR")
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(35 * time.Minute) }
	assert.Equal(t, 1, s.Sweep())

	// The younger lock survives the sweep.
	_, err = s.Verify(live.Token)
	assert.NoError(t, err)
}

func TestQuoteUnknownPair(t *testing.T) {
	s := newLockService(0)
	_, _, err := s.Quote("EUR", "JPY")
	assert.Error(t, err)
}
