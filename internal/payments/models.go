package payments

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InstructionKind classifies what a payout instruction pays for.
type InstructionKind string

const (
	KindDisbursement      InstructionKind = "disbursement"
	KindPlatformFee       InstructionKind = "platform_fee"
	KindInvestorPayout    InstructionKind = "investor_payout"
	KindExporterRemainder InstructionKind = "exporter_remainder"
	KindRefund            InstructionKind = "refund"
)

// InstructionStatus tracks an instruction through external execution.
type InstructionStatus string

const (
	StatusPending   InstructionStatus = "pending"
	StatusConfirmed InstructionStatus = "confirmed"
	StatusFailed    InstructionStatus = "failed"
)

// PayoutInstruction is the audit record of one money movement the platform
// asked its payment provider to execute. The engine never moves money; these
// rows are the bridge between settlement math and the provider.
type PayoutInstruction struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	PoolID uuid.UUID `json:"pool_id" gorm:"type:uuid;not null;index"`

	Kind        InstructionKind `json:"kind" gorm:"not null"`
	RecipientID uuid.UUID       `json:"recipient_id" gorm:"type:uuid;not null;index"`
	Amount      int64           `json:"amount" gorm:"not null"`
	Currency    string          `json:"currency" gorm:"not null"`

	Status    InstructionStatus `json:"status" gorm:"not null;default:'pending';index"`
	Reference string            `json:"reference,omitempty"`
	Metadata  datatypes.JSON    `json:"metadata,omitempty"`

	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

func (p *PayoutInstruction) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
