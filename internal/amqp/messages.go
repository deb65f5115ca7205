package amqp

import (
	"encoding/json"
	"time"

	"budget/internal/ledger"
)

// BoxBalance is one box in a LedgerEvent.
type BoxBalance struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// LedgerEvent announces that an operation changed the ledger. It carries the
// full resulting balance sheet so consumers never need to read the store.
type LedgerEvent struct {
	Operation string       `json:"operation"`
	Boxes     []BoxBalance `json:"boxes"`
	Total     int64        `json:"total"`
	Deposited int64        `json:"deposited"`
	Spent     int64        `json:"spent"`
	Error     string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewLedgerEvent snapshots p after operation. opErr is the error the
// operation reported while still changing the ledger, such as a rollover
// shortfall.
func NewLedgerEvent(operation string, p *ledger.Partition, opErr error) *LedgerEvent {
	boxes := p.Boxes()
	ev := &LedgerEvent{
		Operation: operation,
		Boxes:     make([]BoxBalance, len(boxes)),
		Total:     p.Total(),
		Deposited: p.Totals().Deposited,
		Spent:     p.Totals().Spent,
		Timestamp: time.Now(),
	}
	for i, b := range boxes {
		ev.Boxes[i] = BoxBalance{Name: b.Name, Amount: b.Amount}
	}
	if opErr != nil {
		ev.Error = opErr.Error()
	}
	return ev
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes a message produced by ToJSON.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
