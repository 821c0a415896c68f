package statements

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"invobridge/funding-portal-backend/internal/funding"
	"invobridge/funding-portal-backend/internal/funding/engine"
)

type MockBreakdownSource struct {
	mock.Mock
}

func (m *MockBreakdownSource) Breakdown(ctx context.Context, poolID uuid.UUID) (*funding.RepaymentBreakdown, error) {
	args := m.Called(ctx, poolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*funding.RepaymentBreakdown), args.Error(1)
}

func sampleBreakdown() *funding.RepaymentBreakdown {
	settled := int64(8131)
	return &funding.RepaymentBreakdown{
		PoolID:             uuid.New(),
		Status:             engine.PoolStatusDisbursed,
		Currency:           "IDR",
		TotalPrincipal:     10000,
		TotalInterest:      180,
		TotalExpected:      10180,
		FeeBps:             250,
		SuggestedRepayment: 10442,
		Entries: []funding.BreakdownEntry{
			{
				InvestmentID:   uuid.New(),
				InvestorID:     uuid.New(),
				Tranche:        engine.TranchePriority,
				Principal:      8000,
				Interest:       131,
				ExpectedReturn: 8131,
				ActualReturn:   &settled,
			},
			{
				InvestmentID:   uuid.New(),
				InvestorID:     uuid.New(),
				Tranche:        engine.TrancheCatalyst,
				Principal:      2000,
				Interest:       49,
				ExpectedReturn: 2049,
			},
		},
	}
}

func newTestService(source *MockBreakdownSource) *Service {
	return NewService(source, zap.NewNop())
}

func TestRenderCSV(t *testing.T) {
	b := sampleBreakdown()
	source := new(MockBreakdownSource)
	source.On("Breakdown", mock.Anything, b.PoolID).Return(b, nil)

	statement, err := newTestService(source).Render(context.Background(), b.PoolID, FormatCSV)
	assert.NoError(t, err)
	assert.Equal(t, "text/csv", statement.ContentType)
	assert.Contains(t, statement.Filename, b.PoolID.String())

	records, err := csv.NewReader(bytes.NewReader(statement.Content)).ReadAll()
	assert.NoError(t, err)
	assert.Len(t, records, 4) // header + 2 entries + totals

	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "priority", records[1][2])
	assert.Equal(t, "8131", records[1][6])
	assert.Equal(t, "", records[2][6]) // unsettled entry has no actual return

	totals := records[3]
	assert.Equal(t, "TOTAL", totals[0])
	assert.Equal(t, "10000", totals[3])
	assert.Equal(t, "10180", totals[5])
}

func TestRenderPDF(t *testing.T) {
	b := sampleBreakdown()
	source := new(MockBreakdownSource)
	source.On("Breakdown", mock.Anything, b.PoolID).Return(b, nil)

	statement, err := newTestService(source).Render(context.Background(), b.PoolID, FormatPDF)
	assert.NoError(t, err)
	assert.Equal(t, "application/pdf", statement.ContentType)
	assert.True(t, bytes.HasPrefix(statement.Content, []byte("%PDF")))
}

func TestRenderXLSX(t *testing.T) {
	b := sampleBreakdown()
	source := new(MockBreakdownSource)
	source.On("Breakdown", mock.Anything, b.PoolID).Return(b, nil)

	statement, err := newTestService(source).Render(context.Background(), b.PoolID, FormatXLSX)
	assert.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(statement.Content))
	assert.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(statementSheet)
	assert.NoError(t, err)
	// 8 summary rows, blank spacer, header, 2 entries
	assert.GreaterOrEqual(t, len(rows), 12)

	pool, err := f.GetCellValue(statementSheet, "B1")
	assert.NoError(t, err)
	assert.Equal(t, b.PoolID.String(), pool)

	suggested, err := f.GetCellValue(statementSheet, "B8")
	assert.NoError(t, err)
	assert.Equal(t, "104.42", suggested)
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	source := new(MockBreakdownSource)
	poolID := uuid.New()
	source.On("Breakdown", mock.Anything, poolID).Return(sampleBreakdown(), nil)

	_, err := newTestService(source).Render(context.Background(), poolID, Format("docx"))
	assert.Error(t, err)
}

func TestRenderPropagatesNotFound(t *testing.T) {
	source := new(MockBreakdownSource)
	poolID := uuid.New()
	source.On("Breakdown", mock.Anything, poolID).Return(nil, engine.ErrNotFound)

	_, err := newTestService(source).Render(context.Background(), poolID, FormatCSV)
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "100.00", formatAmount(10000))
	assert.Equal(t, "0.05", formatAmount(5))
	assert.Equal(t, "-12.34", formatAmount(-1234))
}
