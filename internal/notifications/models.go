package notifications

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies what happened to a pool.
type EventType string

const (
	EventPoolOpened         EventType = "pool.opened"
	EventInvestmentRecorded EventType = "pool.investment_recorded"
	EventPoolFilled         EventType = "pool.filled"
	EventPoolDisbursed      EventType = "pool.disbursed"
	EventPoolSettled        EventType = "pool.settled"
	EventPoolDefaulted      EventType = "pool.defaulted"
	EventPoolClosed         EventType = "pool.closed"
)

// Event is one pool lifecycle notification. Data carries event-specific
// amounts and ids for the client; delivery channels beyond the websocket feed
// are out of scope.
type Event struct {
	Type      EventType              `json:"type"`
	PoolID    uuid.UUID              `json:"pool_id"`
	InvoiceID uuid.UUID              `json:"invoice_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
