package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, inv *Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Invoice), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filters *InvoiceFilters) ([]*Invoice, int64, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) Update(ctx context.Context, inv *Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func validRequest() *CreateInvoiceRequest {
	issued := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	return &CreateInvoiceRequest{
		ExporterID:       uuid.New(),
		InvoiceNumber:    "INV-2026-0042",
		BuyerName:        "Jakarta Textiles Ltd",
		BuyerCountry:     "ID",
		FaceValue:        12000,
		FundingTarget:    10000,
		PriorityRatioBps: 8000,
		CatalystRatioBps: 2000,
		PriorityRateBps:  1000,
		CatalystRateBps:  1500,
		IssuedAt:         issued,
		DueDate:          issued.AddDate(0, 2, 0),
	}
}

func TestCreateInvoice(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	inv, err := NewService(repo, zap.NewNop()).CreateInvoice(context.Background(), validRequest())
	assert.NoError(t, err)
	assert.Equal(t, StatusPendingVerification, inv.Status)
	assert.Equal(t, "IDR", inv.Currency)
	assert.NotEqual(t, uuid.Nil, inv.ID)
	repo.AssertExpectations(t)
}

func TestCreateInvoiceValidation(t *testing.T) {
	service := NewService(new(MockRepository), zap.NewNop())

	req := validRequest()
	req.FundingTarget = req.FaceValue + 1
	_, err := service.CreateInvoice(context.Background(), req)
	assert.ErrorContains(t, err, "exceeds face value")

	req = validRequest()
	req.DueDate = req.IssuedAt
	_, err = service.CreateInvoice(context.Background(), req)
	assert.ErrorContains(t, err, "due date")

	req = validRequest()
	req.PriorityRatioBps = 7000
	_, err = service.CreateInvoice(context.Background(), req)
	assert.ErrorContains(t, err, "sum to 10000")
}

func TestVerifyStampsTimestamp(t *testing.T) {
	repo := new(MockRepository)
	id := uuid.New()
	repo.On("GetByID", mock.Anything, id).Return(&Invoice{ID: id, Status: StatusPendingVerification}, nil)
	repo.On("UpdateStatus", mock.Anything, id, StatusVerified).Return(nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	inv, err := NewService(repo, zap.NewNop()).Verify(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, StatusVerified, inv.Status)
	assert.NotNil(t, inv.VerifiedAt)
}

func TestSetStatusRejectsIllegalTransition(t *testing.T) {
	repo := new(MockRepository)
	id := uuid.New()
	repo.On("GetByID", mock.Anything, id).Return(&Invoice{ID: id, Status: StatusPendingVerification}, nil)

	err := NewService(repo, zap.NewNop()).SetStatus(context.Background(), id, StatusDisbursed)
	assert.ErrorContains(t, err, "cannot transition")
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetStatusRejectsLeavingTerminalState(t *testing.T) {
	repo := new(MockRepository)
	id := uuid.New()
	repo.On("GetByID", mock.Anything, id).Return(&Invoice{ID: id, Status: StatusRepaid}, nil)

	err := NewService(repo, zap.NewNop()).SetStatus(context.Background(), id, StatusFunding)
	assert.ErrorContains(t, err, "cannot transition")
}

func TestIsFundable(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	inv := &Invoice{Status: StatusTokenized, DueDate: now.AddDate(0, 1, 0)}
	assert.True(t, inv.IsFundable(now))

	inv.Status = StatusVerified
	assert.False(t, inv.IsFundable(now))

	inv.Status = StatusTokenized
	inv.DueDate = now.AddDate(0, -1, 0)
	assert.False(t, inv.IsFundable(now))
}
