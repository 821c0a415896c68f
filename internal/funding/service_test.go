package funding

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"invobridge/funding-portal-backend/internal/currency"
	"invobridge/funding-portal-backend/internal/funding/engine"
	"invobridge/funding-portal-backend/internal/invoice"
	"invobridge/funding-portal-backend/internal/payments"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) SavePool(ctx context.Context, pool *engine.Pool) error {
	args := m.Called(ctx, pool)
	return args.Error(0)
}

func (m *MockRepository) SaveInvestment(ctx context.Context, pool *engine.Pool, inv *engine.Investment) error {
	args := m.Called(ctx, pool, inv)
	return args.Error(0)
}

func (m *MockRepository) SaveSettlement(ctx context.Context, pool *engine.Pool, investments []*engine.Investment) error {
	args := m.Called(ctx, pool, investments)
	return args.Error(0)
}

func (m *MockRepository) LoadPools(ctx context.Context) ([]*engine.Pool, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*engine.Pool), args.Error(1)
}

func (m *MockRepository) LoadInvestments(ctx context.Context, poolID uuid.UUID) ([]*engine.Investment, error) {
	args := m.Called(ctx, poolID)
	return args.Get(0).([]*engine.Investment), args.Error(1)
}

// MockInvoiceDirectory is a mock implementation of the InvoiceDirectory interface
type MockInvoiceDirectory struct {
	mock.Mock
}

func (m *MockInvoiceDirectory) GetInvoice(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceDirectory) SetStatus(ctx context.Context, id uuid.UUID, status invoice.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MockPaymentRecorder is a mock implementation of the PaymentRecorder interface
type MockPaymentRecorder struct {
	mock.Mock
}

func (m *MockPaymentRecorder) RecordDisbursement(ctx context.Context, pool *engine.Pool, d *engine.Disbursement) ([]*payments.PayoutInstruction, error) {
	args := m.Called(ctx, pool, d)
	return args.Get(0).([]*payments.PayoutInstruction), args.Error(1)
}

func (m *MockPaymentRecorder) RecordSettlement(ctx context.Context, pool *engine.Pool, s *engine.Settlement) ([]*payments.PayoutInstruction, error) {
	args := m.Called(ctx, pool, s)
	return args.Get(0).([]*payments.PayoutInstruction), args.Error(1)
}

func (m *MockPaymentRecorder) RecordRefunds(ctx context.Context, pool *engine.Pool, investments []*engine.Investment) ([]*payments.PayoutInstruction, error) {
	args := m.Called(ctx, pool, investments)
	return args.Get(0).([]*payments.PayoutInstruction), args.Error(1)
}

// MockRateLocker is a mock implementation of the RateLocker interface
type MockRateLocker struct {
	mock.Mock
}

func (m *MockRateLocker) Verify(token string) (*currency.RateLock, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*currency.RateLock), args.Error(1)
}

type serviceFixture struct {
	service  *Service
	engine   *engine.Engine
	repo     *MockRepository
	invoices *MockInvoiceDirectory
	payments *MockPaymentRecorder
	rates    *MockRateLocker
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		engine:   engine.New(engine.Config{FeeBps: 250}),
		repo:     new(MockRepository),
		invoices: new(MockInvoiceDirectory),
		payments: new(MockPaymentRecorder),
		rates:    new(MockRateLocker),
	}
	f.service = NewService(f.engine, f.repo, f.invoices, f.payments, f.rates, nil, zap.NewNop())
	return f
}

func fundableInvoice() *invoice.Invoice {
	return &invoice.Invoice{
		ID:               uuid.New(),
		ExporterID:       uuid.New(),
		FundingTarget:    10000,
		Currency:         "IDR",
		PriorityRatioBps: 8000,
		CatalystRatioBps: 2000,
		PriorityRateBps:  1000,
		CatalystRateBps:  1500,
		Status:           invoice.StatusTokenized,
		DueDate:          time.Now().AddDate(0, 0, 60),
	}
}

func (f *serviceFixture) createPool(t *testing.T, inv *invoice.Invoice) *PoolResponse {
	t.Helper()
	f.invoices.On("GetInvoice", mock.Anything, inv.ID).Return(inv, nil).Once()
	f.invoices.On("SetStatus", mock.Anything, inv.ID, invoice.StatusFunding).Return(nil).Once()
	f.repo.On("SavePool", mock.Anything, mock.AnythingOfType("*engine.Pool")).Return(nil).Once()

	pool, err := f.service.CreatePool(context.Background(), &CreatePoolRequest{InvoiceID: inv.ID})
	require.NoError(t, err)
	return pool
}

func TestCreatePoolFromInvoice(t *testing.T) {
	f := newServiceFixture(t)
	inv := fundableInvoice()

	pool := f.createPool(t, inv)

	assert.Equal(t, inv.ID, pool.ID)
	assert.Equal(t, inv.ExporterID, pool.ExporterID)
	assert.Equal(t, int64(8000), pool.PriorityTarget)
	assert.Equal(t, int64(2000), pool.CatalystTarget)
	assert.Equal(t, int64(8000), pool.RemainingPriority)
	assert.Equal(t, engine.PoolStatusOpen, pool.Status)

	f.repo.AssertExpectations(t)
	f.invoices.AssertExpectations(t)
}

func TestCreatePoolRejectsUnfundableInvoice(t *testing.T) {
	f := newServiceFixture(t)
	inv := fundableInvoice()
	inv.Status = invoice.StatusVerified

	f.invoices.On("GetInvoice", mock.Anything, inv.ID).Return(inv, nil)

	_, err := f.service.CreatePool(context.Background(), &CreatePoolRequest{InvoiceID: inv.ID})
	assert.ErrorContains(t, err, "not fundable")
}

func TestInvestRequiresConsents(t *testing.T) {
	f := newServiceFixture(t)
	pool := f.createPool(t, fundableInvoice())

	_, _, err := f.service.Invest(context.Background(), uuid.New(), pool.ID, &InvestRequest{
		Amount:  1000,
		Tranche: engine.TranchePriority,
	})
	assert.ErrorContains(t, err, "terms")

	_, _, err = f.service.Invest(context.Background(), uuid.New(), pool.ID, &InvestRequest{
		Amount:        1000,
		Tranche:       engine.TrancheCatalyst,
		AgreedToTerms: true,
	})
	assert.ErrorContains(t, err, "risk")
}

func TestInvestVerifiesRateLock(t *testing.T) {
	f := newServiceFixture(t)
	pool := f.createPool(t, fundableInvoice())

	f.rates.On("Verify", "stale-token").Return(nil, assert.AnError)

	_, _, err := f.service.Invest(context.Background(), uuid.New(), pool.ID, &InvestRequest{
		Amount:        1000,
		Tranche:       engine.TranchePriority,
		AgreedToTerms: true,
		RateLockToken: "stale-token",
	})
	assert.ErrorContains(t, err, "invalid rate lock")
	f.rates.AssertExpectations(t)
}

func TestFullLifecycle(t *testing.T) {
	f := newServiceFixture(t)
	inv := fundableInvoice()
	pool := f.createPool(t, inv)

	f.repo.On("SaveInvestment", mock.Anything, mock.AnythingOfType("*engine.Pool"), mock.AnythingOfType("*engine.Investment")).Return(nil).Twice()
	f.invoices.On("SetStatus", mock.Anything, inv.ID, invoice.StatusFunded).Return(nil).Once()

	_, _, err := f.service.Invest(context.Background(), uuid.New(), pool.ID, &InvestRequest{
		Amount:        8000,
		Tranche:       engine.TranchePriority,
		AgreedToTerms: true,
	})
	require.NoError(t, err)

	_, resp, err := f.service.Invest(context.Background(), uuid.New(), pool.ID, &InvestRequest{
		Amount:        2000,
		Tranche:       engine.TrancheCatalyst,
		AgreedToTerms: true,
		AcceptedRisk:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, engine.PoolStatusFilled, resp.Status)
	assert.Equal(t, int64(10000), resp.FundedBps)

	// Disburse
	f.repo.On("SavePool", mock.Anything, mock.AnythingOfType("*engine.Pool")).Return(nil).Once()
	f.payments.On("RecordDisbursement", mock.Anything, mock.AnythingOfType("*engine.Pool"), mock.AnythingOfType("*engine.Disbursement")).
		Return([]*payments.PayoutInstruction{}, nil).Once()
	f.invoices.On("SetStatus", mock.Anything, inv.ID, invoice.StatusDisbursed).Return(nil).Once()

	disb, resp, err := f.service.Disburse(context.Background(), pool.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(250), disb.FeeAmount)
	assert.Equal(t, int64(9750), disb.NetAmount)
	assert.Equal(t, engine.PoolStatusDisbursed, resp.Status)

	// Repay
	f.repo.On("SaveSettlement", mock.Anything, mock.AnythingOfType("*engine.Pool"), mock.AnythingOfType("[]*engine.Investment")).Return(nil).Once()
	f.payments.On("RecordSettlement", mock.Anything, mock.AnythingOfType("*engine.Pool"), mock.AnythingOfType("*engine.Settlement")).
		Return([]*payments.PayoutInstruction{}, nil).Once()
	f.invoices.On("SetStatus", mock.Anything, inv.ID, invoice.StatusRepaid).Return(nil).Once()

	settlement, resp, err := f.service.Repay(context.Background(), pool.ID, &RepaymentRequest{Amount: 11000})
	require.NoError(t, err)
	assert.Equal(t, engine.PoolStatusClosed, resp.Status)
	assert.Equal(t, int64(275), settlement.FeeAmount)

	var paid int64
	for _, p := range settlement.Payouts {
		paid += p.Amount
	}
	assert.Equal(t, settlement.TotalAmount, settlement.FeeAmount+paid+settlement.ExporterRemainder)

	f.repo.AssertExpectations(t)
	f.payments.AssertExpectations(t)
	f.invoices.AssertExpectations(t)
}

func TestClosePoolRecordsRefunds(t *testing.T) {
	f := newServiceFixture(t)
	inv := fundableInvoice()
	pool := f.createPool(t, inv)

	f.repo.On("SaveInvestment", mock.Anything, mock.AnythingOfType("*engine.Pool"), mock.AnythingOfType("*engine.Investment")).Return(nil).Once()
	_, _, err := f.service.Invest(context.Background(), uuid.New(), pool.ID, &InvestRequest{
		Amount:        3000,
		Tranche:       engine.TranchePriority,
		AgreedToTerms: true,
	})
	require.NoError(t, err)

	f.repo.On("SavePool", mock.Anything, mock.AnythingOfType("*engine.Pool")).Return(nil).Once()
	f.payments.On("RecordRefunds", mock.Anything, mock.AnythingOfType("*engine.Pool"), mock.AnythingOfType("[]*engine.Investment")).
		Return([]*payments.PayoutInstruction{}, nil).Once()
	f.invoices.On("SetStatus", mock.Anything, inv.ID, invoice.StatusCancelled).Return(nil).Once()

	resp, err := f.service.ClosePool(context.Background(), pool.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.PoolStatusClosed, resp.Status)
	assert.Zero(t, resp.RemainingPriority)

	f.payments.AssertExpectations(t)
}

func TestBreakdownSuggestsGrossedUpRepayment(t *testing.T) {
	f := newServiceFixture(t)
	pool := f.createPool(t, fundableInvoice())

	f.repo.On("SaveInvestment", mock.Anything, mock.AnythingOfType("*engine.Pool"), mock.AnythingOfType("*engine.Investment")).Return(nil).Once()
	inv, _, err := f.service.Invest(context.Background(), uuid.New(), pool.ID, &InvestRequest{
		Amount:        8000,
		Tranche:       engine.TranchePriority,
		AgreedToTerms: true,
	})
	require.NoError(t, err)

	breakdown, err := f.service.Breakdown(context.Background(), pool.ID)
	require.NoError(t, err)

	require.Len(t, breakdown.Entries, 1)
	assert.Equal(t, int64(8000), breakdown.TotalPrincipal)
	assert.Equal(t, inv.ExpectedReturn-inv.Amount, breakdown.TotalInterest)
	assert.Equal(t, inv.ExpectedReturn, breakdown.TotalExpected)

	// Suggested repayment minus its own fee still covers every expected return.
	suggested := breakdown.SuggestedRepayment
	fee := engine.PlatformFee(suggested, breakdown.FeeBps)
	assert.GreaterOrEqual(t, suggested-fee, breakdown.TotalExpected)
}

func TestRestoreLoadsPersistedPools(t *testing.T) {
	f := newServiceFixture(t)

	poolID := uuid.New()
	pool := &engine.Pool{
		ID:             poolID,
		InvoiceID:      poolID,
		ExporterID:     uuid.New(),
		TargetAmount:   10000,
		PriorityTarget: 8000,
		CatalystTarget: 2000,
		PriorityFunded: 5000,
		FundedAmount:   5000,
		Status:         engine.PoolStatusOpen,
		DueDate:        time.Now().AddDate(0, 0, 30),
	}
	investments := []*engine.Investment{
		{ID: uuid.New(), PoolID: poolID, InvestorID: uuid.New(), Tranche: engine.TranchePriority, Amount: 5000},
	}

	f.repo.On("LoadPools", mock.Anything).Return([]*engine.Pool{pool}, nil)
	f.repo.On("LoadInvestments", mock.Anything, poolID).Return(investments, nil)

	require.NoError(t, f.service.Restore(context.Background()))

	got, err := f.service.GetPool(context.Background(), poolID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), got.FundedAmount)
	assert.Equal(t, int64(3000), got.RemainingPriority)
}

func TestScanDefaults(t *testing.T) {
	f := newServiceFixture(t)
	inv := fundableInvoice()
	pool := f.createPool(t, inv)

	f.repo.On("SaveInvestment", mock.Anything, mock.AnythingOfType("*engine.Pool"), mock.AnythingOfType("*engine.Investment")).Return(nil).Twice()
	f.invoices.On("SetStatus", mock.Anything, inv.ID, invoice.StatusFunded).Return(nil).Once()
	_, _, err := f.service.Invest(context.Background(), uuid.New(), pool.ID, &InvestRequest{
		Amount: 8000, Tranche: engine.TranchePriority, AgreedToTerms: true,
	})
	require.NoError(t, err)
	_, _, err = f.service.Invest(context.Background(), uuid.New(), pool.ID, &InvestRequest{
		Amount: 2000, Tranche: engine.TrancheCatalyst, AgreedToTerms: true, AcceptedRisk: true,
	})
	require.NoError(t, err)

	f.repo.On("SavePool", mock.Anything, mock.AnythingOfType("*engine.Pool")).Return(nil)
	f.payments.On("RecordDisbursement", mock.Anything, mock.AnythingOfType("*engine.Pool"), mock.AnythingOfType("*engine.Disbursement")).
		Return([]*payments.PayoutInstruction{}, nil).Once()
	f.invoices.On("SetStatus", mock.Anything, inv.ID, invoice.StatusDisbursed).Return(nil).Once()
	_, _, err = f.service.Disburse(context.Background(), pool.ID)
	require.NoError(t, err)

	grace := 30 * 24 * time.Hour

	// Inside the grace window nothing defaults.
	assert.Empty(t, f.service.ScanDefaults(context.Background(), inv.DueDate.AddDate(0, 0, 29), grace))

	f.invoices.On("SetStatus", mock.Anything, inv.ID, invoice.StatusDefaulted).Return(nil).Once()
	defaulted := f.service.ScanDefaults(context.Background(), inv.DueDate.AddDate(0, 0, 31), grace)
	require.Len(t, defaulted, 1)
	assert.Equal(t, engine.PoolStatusDefaulted, defaulted[0].Status)
}

func TestGrossUpForFee(t *testing.T) {
	assert.Equal(t, int64(10000), grossUpForFee(9750, 250))
	assert.Equal(t, int64(5000), grossUpForFee(5000, 0))
	assert.Zero(t, grossUpForFee(0, 250))

	// Non-divisible amounts round up, never down.
	gross := grossUpForFee(9999, 250)
	fee := engine.PlatformFee(gross, 250)
	assert.GreaterOrEqual(t, gross-fee, int64(9999))
	assert.Less(t, gross-fee-int64(9999), int64(2))
}
