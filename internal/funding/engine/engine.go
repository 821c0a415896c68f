package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Config tunes engine policy. Zero values fall back to defaults where noted.
type Config struct {
	// FeeBps is the platform fee applied at disbursement and settlement,
	// capped at DefaultMaxFeeBps.
	FeeBps int64

	// GracePeriod is how long after the due date a disbursed pool must stay
	// unpaid before it may be marked defaulted. Defaults to 30 days.
	GracePeriod time.Duration

	// MinInvestmentBps / MaxInvestmentBps bound a single investment as a share
	// of the pool target. Zero disables the bound. The minimum is waived for
	// the last chunk when less than the minimum remains unfunded.
	MinInvestmentBps int64
	MaxInvestmentBps int64

	// Currency is the settlement currency code stamped on new pools.
	Currency string
}

// DefaultGracePeriod is applied when Config.GracePeriod is zero.
const DefaultGracePeriod = 30 * 24 * time.Hour

// CreatePoolParams carries everything needed to open a pool for a verified,
// fundable invoice. Tranche ratios are basis points and must sum to 10000.
type CreatePoolParams struct {
	InvoiceID        uuid.UUID
	ExporterID       uuid.UUID
	TargetAmount     int64
	PriorityRatioBps int64
	CatalystRatioBps int64
	PriorityRateBps  int64
	CatalystRateBps  int64
	DueDate          time.Time
	Deadline         *time.Time
}

// InvestParams identifies one commitment to record.
type InvestParams struct {
	PoolID        uuid.UUID
	InvestorID    uuid.UUID
	Amount        int64
	Tranche       Tranche
	RateLockToken string
}

// Engine owns every funding pool and is the only component allowed to mutate
// pool or ledger state. Pools live in an in-memory arena keyed by pool id
// (equal to the invoice id); each pool has its own lock, so distinct pools
// proceed in parallel while operations on one pool serialize. The engine does
// no I/O: callers persist the records it returns.
type Engine struct {
	mu      sync.RWMutex
	pools   map[uuid.UUID]*poolEntry
	enabled atomic.Bool

	cfg Config
	now func() time.Time

	transitions map[PoolStatus][]PoolStatus
}

type poolEntry struct {
	mu     sync.Mutex
	pool   *Pool
	ledger *ledger
}

// New creates an enabled engine with the given policy.
func New(cfg Config) *Engine {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	if cfg.Currency == "" {
		cfg.Currency = "IDR"
	}
	e := &Engine{
		pools: make(map[uuid.UUID]*poolEntry),
		cfg:   cfg,
		now:   time.Now,
		transitions: map[PoolStatus][]PoolStatus{
			PoolStatusOpen:      {PoolStatusFilled, PoolStatusClosed},
			PoolStatusFilled:    {PoolStatusDisbursed, PoolStatusClosed},
			PoolStatusDisbursed: {PoolStatusClosed, PoolStatusDefaulted},
			PoolStatusClosed:    {},
			PoolStatusDefaulted: {},
		},
	}
	e.enabled.Store(true)
	return e
}

// SetEnabled toggles the process-wide engine flag. A disabled engine rejects
// every mutating operation; reads still work.
func (e *Engine) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
}

// Enabled reports whether mutating operations are accepted.
func (e *Engine) Enabled() bool {
	return e.enabled.Load()
}

func (e *Engine) checkEnabled() error {
	if !e.enabled.Load() {
		return ErrEngineDisabled
	}
	return nil
}

// setStatus applies a transition after checking it against the allowed table.
// Callers hold the pool lock and have already reported the precise
// wrong-state error, so a violation here means an engine bug.
func (e *Engine) setStatus(p *Pool, to PoolStatus, at time.Time) error {
	allowed := false
	for _, next := range e.transitions[p.Status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return newError(ErrInvalidState.Code, "cannot transition pool %s from %s to %s", p.ID, p.Status, to)
	}
	p.Status = to
	p.UpdatedAt = at
	switch to {
	case PoolStatusFilled:
		p.FilledAt = &at
	case PoolStatusDisbursed:
		p.DisbursedAt = &at
	case PoolStatusClosed:
		p.ClosedAt = &at
	case PoolStatusDefaulted:
		p.DefaultedAt = &at
	}
	return nil
}

func (e *Engine) entry(poolID uuid.UUID) (*poolEntry, error) {
	e.mu.RLock()
	entry, ok := e.pools[poolID]
	e.mu.RUnlock()
	if !ok {
		return nil, newError(ErrNotFound.Code, "pool %s not found", poolID)
	}
	return entry, nil
}

// CreatePool opens a pool for a fundable invoice. The pool id equals the
// invoice id; a second pool for the same invoice fails with AlreadyExists.
func (e *Engine) CreatePool(params CreatePoolParams) (*Pool, error) {
	if err := e.checkEnabled(); err != nil {
		return nil, err
	}
	if params.InvoiceID == uuid.Nil {
		return nil, validationError("invoice id is required")
	}
	if params.DueDate.IsZero() {
		return nil, validationError("due date is required")
	}
	if params.PriorityRateBps < 0 || params.CatalystRateBps < 0 {
		return nil, validationError("interest rates must be non-negative")
	}

	priorityTarget, catalystTarget, err := SplitTargets(params.TargetAmount, params.PriorityRatioBps, params.CatalystRatioBps)
	if err != nil {
		return nil, err
	}

	now := e.now()
	pool := &Pool{
		ID:              params.InvoiceID,
		InvoiceID:       params.InvoiceID,
		ExporterID:      params.ExporterID,
		TargetAmount:    params.TargetAmount,
		PriorityTarget:  priorityTarget,
		CatalystTarget:  catalystTarget,
		PriorityRateBps: params.PriorityRateBps,
		CatalystRateBps: params.CatalystRateBps,
		FeeBps:          e.cfg.FeeBps,
		Status:          PoolStatusOpen,
		Currency:        e.cfg.Currency,
		DueDate:         params.DueDate,
		Deadline:        params.Deadline,
		OpenedAt:        now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.pools[pool.ID]; exists {
		return nil, newError(ErrAlreadyExists.Code, "pool already exists for invoice %s", params.InvoiceID)
	}
	e.pools[pool.ID] = &poolEntry{pool: pool, ledger: newLedger()}
	return pool.Clone(), nil
}

// RecordInvestment appends a commitment to the pool ledger. The capacity
// check, the append, and the funded-amount update form one critical section
// under the pool lock, so two concurrent investments can never jointly
// overfill a tranche. Filling the target transitions the pool to Filled.
func (e *Engine) RecordInvestment(params InvestParams) (*Investment, *Pool, error) {
	if err := e.checkEnabled(); err != nil {
		return nil, nil, err
	}
	if params.InvestorID == uuid.Nil {
		return nil, nil, validationError("investor id is required")
	}
	if !params.Tranche.Valid() {
		return nil, nil, validationError("unknown tranche %q", params.Tranche)
	}
	if params.Amount <= 0 {
		return nil, nil, validationError("investment amount must be positive, got %d", params.Amount)
	}

	entry, err := e.entry(params.PoolID)
	if err != nil {
		return nil, nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	pool := entry.pool

	if pool.Status != PoolStatusOpen {
		return nil, nil, newError(ErrPoolNotOpen.Code, "pool %s is %s, not open", pool.ID, pool.Status)
	}
	if err := e.checkInvestmentBounds(pool, params.Amount); err != nil {
		return nil, nil, err
	}
	if available := trancheCapacity(pool, params.Tranche); params.Amount > available {
		return nil, nil, newError(ErrCapacityExceeded.Code,
			"only %d available in %s tranche, requested %d", available, params.Tranche, params.Amount)
	}

	now := e.now()
	days := DaysToMaturity(now, pool.DueDate)
	inv := &Investment{
		ID:             uuid.New(),
		PoolID:         pool.ID,
		InvestorID:     params.InvestorID,
		Tranche:        params.Tranche,
		Amount:         params.Amount,
		ExpectedReturn: ExpectedReturn(params.Amount, pool.RateFor(params.Tranche), days),
		RateLockToken:  params.RateLockToken,
		InvestedAt:     now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	entry.ledger.append(inv)
	applyFunding(pool, params.Tranche, params.Amount)
	pool.InvestorCount = entry.ledger.investorCount()
	pool.UpdatedAt = now

	if pool.FundedAmount == pool.TargetAmount {
		if err := e.setStatus(pool, PoolStatusFilled, now); err != nil {
			return nil, nil, err
		}
	}

	return inv.Clone(), pool.Clone(), nil
}

// checkInvestmentBounds applies the configured per-investment share limits.
// The minimum is waived once less than the minimum remains, so a pool can
// always be topped up to its exact target.
func (e *Engine) checkInvestmentBounds(pool *Pool, amount int64) error {
	remaining := pool.TargetAmount - pool.FundedAmount
	if e.cfg.MinInvestmentBps > 0 {
		minAmount := proRataShare(pool.TargetAmount, e.cfg.MinInvestmentBps, 10000)
		if remaining >= minAmount && amount < minAmount {
			return validationError("minimum investment is %d (%d bps of target)", minAmount, e.cfg.MinInvestmentBps)
		}
	}
	if e.cfg.MaxInvestmentBps > 0 {
		maxAmount := proRataShare(pool.TargetAmount, e.cfg.MaxInvestmentBps, 10000)
		if amount > maxAmount {
			return validationError("maximum investment is %d (%d bps of target)", maxAmount, e.cfg.MaxInvestmentBps)
		}
	}
	return nil
}

// RecordDisbursement moves a filled pool to Disbursed and reports the fee and
// net payout amounts for the payment collaborator.
func (e *Engine) RecordDisbursement(poolID uuid.UUID) (*Disbursement, *Pool, error) {
	if err := e.checkEnabled(); err != nil {
		return nil, nil, err
	}
	entry, err := e.entry(poolID)
	if err != nil {
		return nil, nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	pool := entry.pool

	if pool.Status != PoolStatusFilled {
		return nil, nil, newError(ErrPoolNotFilled.Code, "pool %s is %s, not filled", pool.ID, pool.Status)
	}

	fee := PlatformFee(pool.FundedAmount, pool.FeeBps)
	if err := e.setStatus(pool, PoolStatusDisbursed, e.now()); err != nil {
		return nil, nil, err
	}

	return &Disbursement{
		PoolID:    pool.ID,
		FeeAmount: fee,
		NetAmount: pool.FundedAmount - fee,
	}, pool.Clone(), nil
}

// RecordRepayment settles a disbursed pool. The waterfall (or the operator
// override) is computed first; only a fully valid allocation mutates state,
// marking every investment settled and closing the pool.
func (e *Engine) RecordRepayment(poolID uuid.UUID, totalAmount int64, perInvestorReturns []int64) (*Settlement, *Pool, error) {
	if err := e.checkEnabled(); err != nil {
		return nil, nil, err
	}
	entry, err := e.entry(poolID)
	if err != nil {
		return nil, nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	pool := entry.pool

	if pool.Status != PoolStatusDisbursed {
		return nil, nil, newError(ErrPoolNotDisbursed.Code, "pool %s is %s, not disbursed", pool.ID, pool.Status)
	}

	settlement, err := settle(pool, entry.ledger.investments, totalAmount, perInvestorReturns)
	if err != nil {
		return nil, nil, err
	}

	// Payouts come back in waterfall order (priority before catalyst), so
	// match them to ledger entries by id.
	payoutByID := make(map[uuid.UUID]int64, len(settlement.Payouts))
	for _, p := range settlement.Payouts {
		payoutByID[p.InvestmentID] = p.Amount
	}

	now := e.now()
	for _, inv := range entry.ledger.investments {
		amount := payoutByID[inv.ID]
		inv.ActualReturn = &amount
		inv.Settled = true
		inv.SettledAt = &now
		inv.UpdatedAt = now
	}
	if err := e.setStatus(pool, PoolStatusClosed, now); err != nil {
		return nil, nil, err
	}

	return settlement, pool.Clone(), nil
}

// EligibleForDefault reports whether a pool is disbursed, past due, and past
// the grace period at the given instant.
func EligibleForDefault(pool *Pool, now time.Time, grace time.Duration) bool {
	return pool.Status == PoolStatusDisbursed && now.After(pool.DueDate.Add(grace))
}

// MarkDefaulted freezes an unpaid pool once the grace period has expired.
// Recovery, if any, re-enters as a later explicit settlement action.
func (e *Engine) MarkDefaulted(poolID uuid.UUID, now time.Time) (*Pool, error) {
	if err := e.checkEnabled(); err != nil {
		return nil, err
	}
	entry, err := e.entry(poolID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	pool := entry.pool

	if pool.Status != PoolStatusDisbursed {
		return nil, newError(ErrPoolNotDisbursed.Code, "pool %s is %s, not disbursed", pool.ID, pool.Status)
	}
	if !EligibleForDefault(pool, now, e.cfg.GracePeriod) {
		return nil, newError(ErrGracePeriodActive.Code,
			"pool %s grace period runs until %s", pool.ID, pool.DueDate.Add(e.cfg.GracePeriod).Format(time.RFC3339))
	}

	if err := e.setStatus(pool, PoolStatusDefaulted, now); err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// CloseEarly withdraws a pool before disbursement. Refunding recorded
// investments is the payment collaborator's responsibility.
func (e *Engine) CloseEarly(poolID uuid.UUID) (*Pool, error) {
	if err := e.checkEnabled(); err != nil {
		return nil, err
	}
	entry, err := e.entry(poolID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	pool := entry.pool

	if pool.Status != PoolStatusOpen && pool.Status != PoolStatusFilled {
		return nil, newError(ErrInvalidState.Code, "pool %s is %s, can only close early from open or filled", pool.ID, pool.Status)
	}
	if err := e.setStatus(pool, PoolStatusClosed, e.now()); err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// GetPool returns a snapshot of one pool.
func (e *Engine) GetPool(poolID uuid.UUID) (*Pool, error) {
	entry, err := e.entry(poolID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.pool.Clone(), nil
}

// GetInvestments returns a snapshot of a pool's ledger in investment order.
func (e *Engine) GetInvestments(poolID uuid.UUID) ([]*Investment, error) {
	entry, err := e.entry(poolID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.ledger.snapshot(), nil
}

// RemainingCapacity reports a tranche's headroom. Any pool that is no longer
// Open exposes zero capacity regardless of arithmetic, so stale reads can
// never admit an investment after the pool has moved on.
func (e *Engine) RemainingCapacity(poolID uuid.UUID, tranche Tranche) (int64, error) {
	if !tranche.Valid() {
		return 0, validationError("unknown tranche %q", tranche)
	}
	entry, err := e.entry(poolID)
	if err != nil {
		return 0, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.pool.Status != PoolStatusOpen {
		return 0, nil
	}
	return trancheCapacity(entry.pool, tranche), nil
}

// Pools returns a snapshot of every pool in the arena.
func (e *Engine) Pools() []*Pool {
	e.mu.RLock()
	entries := make([]*poolEntry, 0, len(e.pools))
	for _, entry := range e.pools {
		entries = append(entries, entry)
	}
	e.mu.RUnlock()

	out := make([]*Pool, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		out = append(out, entry.pool.Clone())
		entry.mu.Unlock()
	}
	return out
}

// Restore loads a persisted pool and its ledger into the arena at startup.
// The records must reconcile; a mismatch means the store is corrupt and the
// pool is refused rather than admitted with a broken invariant.
func (e *Engine) Restore(pool *Pool, investments []*Investment) error {
	if pool == nil || pool.ID == uuid.Nil {
		return validationError("pool is required")
	}

	l := newLedger()
	for _, inv := range investments {
		l.append(inv.Clone())
	}
	restored := pool.Clone()
	if !l.reconciles(restored) {
		return newError(ErrOverAllocation.Code,
			"pool %s ledger does not reconcile with funded amounts", pool.ID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.pools[restored.ID]; exists {
		return newError(ErrAlreadyExists.Code, "pool %s already restored", restored.ID)
	}
	e.pools[restored.ID] = &poolEntry{pool: restored, ledger: l}
	return nil
}
