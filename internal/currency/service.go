package currency

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultLockTTL is how long a quoted rate stays honored.
const DefaultLockTTL = 30 * time.Minute

// RateLock is a quoted exchange rate an investor can settle against while the
// lock is live. Rate and EffectiveRate are minor units of the quote currency
// per whole unit of the base currency; the buffer widens the quote to absorb
// drift between quoting and settlement.
type RateLock struct {
	Token         string    `json:"token"`
	Base          string    `json:"base"`
	Quote         string    `json:"quote"`
	Rate          int64     `json:"rate"`
	BufferBps     int64     `json:"buffer_bps"`
	EffectiveRate int64     `json:"effective_rate"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Expired reports whether the lock is no longer honored at the given instant.
func (l *RateLock) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// RateSource quotes a spot rate in minor units of quote per unit of base.
type RateSource interface {
	Rate(base, quote string) (int64, error)
}

// StaticRateSource serves rates from a fixed table, keyed "BASE/QUOTE".
type StaticRateSource struct {
	rates map[string]int64
}

func NewStaticRateSource(rates map[string]int64) *StaticRateSource {
	normalized := make(map[string]int64, len(rates))
	for pair, rate := range rates {
		normalized[strings.ToUpper(pair)] = rate
	}
	return &StaticRateSource{rates: normalized}
}

func (s *StaticRateSource) Rate(base, quote string) (int64, error) {
	pair := strings.ToUpper(base) + "/" + strings.ToUpper(quote)
	rate, ok := s.rates[pair]
	if !ok {
		return 0, fmt.Errorf("no rate for pair %s", pair)
	}
	return rate, nil
}

// Service quotes and verifies rate locks. Locks live in memory only; a lock
// that does not survive a restart was never honored, which is safe.
type Service struct {
	mu     sync.RWMutex
	locks  map[string]*RateLock
	source RateSource

	bufferBps int64
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(source RateSource, bufferBps int64, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Service{
		locks:     make(map[string]*RateLock),
		source:    source,
		bufferBps: bufferBps,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// Quote returns the current spot rate with the buffer applied, without
// creating a lock.
func (s *Service) Quote(base, quote string) (int64, int64, error) {
	rate, err := s.source.Rate(base, quote)
	if err != nil {
		return 0, 0, err
	}
	return rate, applyBuffer(rate, s.bufferBps), nil
}

// Lock quotes a rate and pins it under an opaque token until the TTL expires.
func (s *Service) Lock(base, quote string) (*RateLock, error) {
	rate, err := s.source.Rate(base, quote)
	if err != nil {
		return nil, err
	}

	now := s.now()
	lock := &RateLock{
		Token:         uuid.New().String(),
		Base:          strings.ToUpper(base),
		Quote:         strings.ToUpper(quote),
		Rate:          rate,
		BufferBps:     s.bufferBps,
		EffectiveRate: applyBuffer(rate, s.bufferBps),
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
	}

	s.mu.Lock()
	s.locks[lock.Token] = lock
	s.mu.Unlock()

	s.logger.Info("rate locked",
		zap.String("token", lock.Token),
		zap.String("pair", lock.Base+"/"+lock.Quote),
		zap.Int64("effective_rate", lock.EffectiveRate),
		zap.Time("expires_at", lock.ExpiresAt))

	return lock, nil
}

// Verify returns the lock for a token if it exists and has not expired.
func (s *Service) Verify(token string) (*RateLock, error) {
	s.mu.RLock()
	lock, ok := s.locks[token]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown rate lock token")
	}
	if lock.Expired(s.now()) {
		return nil, fmt.Errorf("rate lock expired at %s", lock.ExpiresAt.Format(time.RFC3339))
	}
	return lock, nil
}

// Sweep drops expired locks. The worker calls this periodically so the map
// does not grow without bound.
func (s *Service) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, lock := range s.locks {
		if lock.Expired(now) {
			delete(s.locks, token)
			removed++
		}
	}
	return removed
}

// applyBuffer widens a rate by bufferBps, rounding up so the platform never
// under-quotes.
func applyBuffer(rate, bufferBps int64) int64 {
	buffered := rate * (10000 + bufferBps)
	effective := buffered / 10000
	if buffered%10000 != 0 {
		effective++
	}
	return effective
}
