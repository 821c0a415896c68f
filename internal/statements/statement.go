package statements

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"invobridge/funding-portal-backend/internal/funding"
)

// Format selects a statement file format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// BreakdownSource provides the repayment breakdown a statement renders.
type BreakdownSource interface {
	Breakdown(ctx context.Context, poolID uuid.UUID) (*funding.RepaymentBreakdown, error)
}

// Statement is a rendered export ready to stream to the client.
type Statement struct {
	Content     []byte
	ContentType string
	Filename    string
}

// Service renders repayment statements in the supported formats.
type Service struct {
	source BreakdownSource
	logger *zap.Logger
}

func NewService(source BreakdownSource, logger *zap.Logger) *Service {
	return &Service{source: source, logger: logger}
}

// Render produces a statement for the pool in the requested format.
func (s *Service) Render(ctx context.Context, poolID uuid.UUID, format Format) (*Statement, error) {
	breakdown, err := s.source.Breakdown(ctx, poolID)
	if err != nil {
		return nil, err
	}

	var content []byte
	var contentType string
	switch format {
	case FormatPDF:
		content, err = renderPDF(breakdown)
		contentType = "application/pdf"
	case FormatCSV:
		content, err = renderCSV(breakdown)
		contentType = "text/csv"
	case FormatXLSX:
		content, err = renderXLSX(breakdown)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return nil, fmt.Errorf("unsupported statement format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %s statement: %w", format, err)
	}

	s.logger.Info("statement rendered",
		zap.String("pool_id", poolID.String()),
		zap.String("format", string(format)),
		zap.Int("bytes", len(content)))

	return &Statement{
		Content:     content,
		ContentType: contentType,
		Filename:    fmt.Sprintf("repayment-statement-%s.%s", poolID, format),
	}, nil
}

// formatAmount renders integer minor units as a decimal string with two
// fractional digits.
func formatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}
