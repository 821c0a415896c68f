package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"invobridge/funding-portal-backend/pkg/workflows"
)

// lifecycle is the invoice state machine. Funding-side transitions
// (funding onwards) are driven by pool events, not by operators.
var lifecycle = workflows.NewStateMachine(map[Status][]Status{
	StatusPendingVerification: {StatusVerified, StatusCancelled},
	StatusVerified:            {StatusTokenized, StatusCancelled},
	StatusTokenized:           {StatusFunding, StatusCancelled},
	StatusFunding:             {StatusFunded, StatusCancelled},
	StatusFunded:              {StatusDisbursed, StatusCancelled},
	StatusDisbursed:           {StatusRepaid, StatusDefaulted},
	StatusRepaid:              {},
	StatusDefaulted:           {},
	StatusCancelled:           {},
})

type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateInvoice registers a new invoice awaiting verification.
func (s *Service) CreateInvoice(ctx context.Context, req *CreateInvoiceRequest) (*Invoice, error) {
	if req.FundingTarget > req.FaceValue {
		return nil, fmt.Errorf("funding target %d exceeds face value %d", req.FundingTarget, req.FaceValue)
	}
	if !req.DueDate.After(req.IssuedAt) {
		return nil, fmt.Errorf("due date must be after issue date")
	}
	if req.PriorityRatioBps+req.CatalystRatioBps != 10000 {
		return nil, fmt.Errorf("tranche ratios must sum to 10000 bps, got %d", req.PriorityRatioBps+req.CatalystRatioBps)
	}

	currency := req.Currency
	if currency == "" {
		currency = "IDR"
	}

	inv := &Invoice{
		ID:               uuid.New(),
		ExporterID:       req.ExporterID,
		InvoiceNumber:    req.InvoiceNumber,
		BuyerName:        req.BuyerName,
		BuyerCountry:     req.BuyerCountry,
		FaceValue:        req.FaceValue,
		FundingTarget:    req.FundingTarget,
		Currency:         currency,
		PriorityRatioBps: req.PriorityRatioBps,
		CatalystRatioBps: req.CatalystRatioBps,
		PriorityRateBps:  req.PriorityRateBps,
		CatalystRateBps:  req.CatalystRateBps,
		Status:           StatusPendingVerification,
		IssuedAt:         req.IssuedAt,
		DueDate:          req.DueDate,
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("exporter_id", inv.ExporterID.String()),
		zap.Int64("funding_target", inv.FundingTarget))

	return inv, nil
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListInvoices(ctx context.Context, filters *InvoiceFilters) ([]*Invoice, int64, error) {
	return s.repo.List(ctx, filters)
}

// Verify marks a pending invoice verified.
func (s *Service) Verify(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.transition(ctx, id, StatusVerified)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	inv.VerifiedAt = &now
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Tokenize marks a verified invoice tokenized and therefore fundable.
func (s *Service) Tokenize(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.transition(ctx, id, StatusTokenized)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	inv.TokenizedAt = &now
	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// SetStatus advances an invoice along its lifecycle. Pool events call this to
// keep the invoice in step with its funding pool.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	_, err := s.transition(ctx, id, status)
	return err
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to Status) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !lifecycle.CanTransition(inv.Status, to) {
		return nil, fmt.Errorf("cannot transition invoice %s from %s to %s", id, inv.Status, to)
	}

	inv.Status = to
	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return nil, err
	}

	s.logger.Info("invoice status changed",
		zap.String("invoice_id", id.String()),
		zap.String("status", string(to)))

	return inv, nil
}
