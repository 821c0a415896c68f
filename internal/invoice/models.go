package invoice

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status represents the lifecycle status of a trade invoice
type Status string

const (
	StatusPendingVerification Status = "pending_verification"
	StatusVerified            Status = "verified"
	StatusTokenized           Status = "tokenized"
	StatusFunding             Status = "funding"
	StatusFunded              Status = "funded"
	StatusDisbursed           Status = "disbursed"
	StatusRepaid              Status = "repaid"
	StatusDefaulted           Status = "defaulted"
	StatusCancelled           Status = "cancelled"
)

// Invoice is a verified export invoice offered for co-funding. FaceValue and
// FundingTarget are integer minor units of Currency; ratios and rates are
// basis points.
type Invoice struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	ExporterID uuid.UUID `json:"exporter_id" gorm:"type:uuid;not null;index"`

	InvoiceNumber string `json:"invoice_number" gorm:"not null;uniqueIndex"`
	BuyerName     string `json:"buyer_name" gorm:"not null"`
	BuyerCountry  string `json:"buyer_country"`

	FaceValue     int64  `json:"face_value" gorm:"not null"`
	FundingTarget int64  `json:"funding_target" gorm:"not null"`
	Currency      string `json:"currency" gorm:"not null;default:'IDR'"`

	PriorityRatioBps int64 `json:"priority_ratio_bps" gorm:"not null"`
	CatalystRatioBps int64 `json:"catalyst_ratio_bps" gorm:"not null"`
	PriorityRateBps  int64 `json:"priority_rate_bps" gorm:"not null"`
	CatalystRateBps  int64 `json:"catalyst_rate_bps" gorm:"not null"`

	Status Status `json:"status" gorm:"not null;default:'pending_verification';index"`

	IssuedAt time.Time `json:"issued_at" gorm:"not null"`
	DueDate  time.Time `json:"due_date" gorm:"not null;index"`

	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	TokenizedAt *time.Time `json:"tokenized_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// IsFundable reports whether a pool may be opened against this invoice: it
// must be tokenized and its due date still ahead of now.
func (i *Invoice) IsFundable(now time.Time) bool {
	return i.Status == StatusTokenized && i.DueDate.After(now)
}

// CreateInvoiceRequest is the payload for registering a new invoice.
type CreateInvoiceRequest struct {
	ExporterID       uuid.UUID `json:"exporter_id" binding:"required"`
	InvoiceNumber    string    `json:"invoice_number" binding:"required"`
	BuyerName        string    `json:"buyer_name" binding:"required"`
	BuyerCountry     string    `json:"buyer_country"`
	FaceValue        int64     `json:"face_value" binding:"required,gt=0"`
	FundingTarget    int64     `json:"funding_target" binding:"required,gt=0"`
	Currency         string    `json:"currency"`
	PriorityRatioBps int64     `json:"priority_ratio_bps"`
	CatalystRatioBps int64     `json:"catalyst_ratio_bps"`
	PriorityRateBps  int64     `json:"priority_rate_bps"`
	CatalystRateBps  int64     `json:"catalyst_rate_bps"`
	IssuedAt         time.Time `json:"issued_at" binding:"required"`
	DueDate          time.Time `json:"due_date" binding:"required"`
}

// InvoiceFilters narrows invoice listings.
type InvoiceFilters struct {
	ExporterID *uuid.UUID
	Status     *Status
	Page       int
	PageSize   int
}
