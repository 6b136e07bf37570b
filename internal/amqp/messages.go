package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

// LedgerEventMessage announces a persisted state change of the tracker.
type LedgerEventMessage struct {
	ID           string            `json:"id"`
	Kind         string            `json:"kind"`
	Balance      decimal.Decimal   `json:"balance"`
	Incomes      decimal.Decimal   `json:"incomes"`
	Outcomes     decimal.Decimal   `json:"outcomes"`
	Transaction  *core.Transaction `json:"transaction,omitempty"`
	Materialized int               `json:"materialized,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}

// NewLedgerEventMessage builds a message with a fresh ID from a tracker event.
func NewLedgerEventMessage(ev services.Event) *LedgerEventMessage {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &LedgerEventMessage{
		ID:           uuid.NewString(),
		Kind:         string(ev.Kind),
		Balance:      ev.Totals.Balance,
		Incomes:      ev.Totals.Income,
		Outcomes:     ev.Totals.Outcome,
		Transaction:  ev.Transaction,
		Materialized: ev.Materialized,
		Timestamp:    ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON parses a message body.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
