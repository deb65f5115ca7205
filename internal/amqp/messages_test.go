package amqp

import (
	"errors"
	"testing"
	"time"

	"budget/internal/ledger"
)

func TestNewLedgerEvent(t *testing.T) {
	p := ledger.New()
	if _, err := p.Deposit(100, false); err != nil {
		t.Fatal(err)
	}
	if err := p.NewBox("food"); err != nil {
		t.Fatal(err)
	}
	if err := p.AddToBalance("food", 40); err != nil {
		t.Fatal(err)
	}

	ev := NewLedgerEvent("add-to-balance", p, errors.New("partial"))

	if ev.Operation != "add-to-balance" {
		t.Errorf("Operation = %v", ev.Operation)
	}
	want := []BoxBalance{{"free", 60}, {"credit-spent", 0}, {"food", 40}}
	if len(ev.Boxes) != len(want) {
		t.Fatalf("Boxes = %v, want %v", ev.Boxes, want)
	}
	for i := range want {
		if ev.Boxes[i] != want[i] {
			t.Errorf("Boxes[%d] = %v, want %v", i, ev.Boxes[i], want[i])
		}
	}
	if ev.Total != 100 || ev.Deposited != 100 || ev.Spent != 0 {
		t.Errorf("totals = %d/%d/%d", ev.Total, ev.Deposited, ev.Spent)
	}
	if ev.Error != "partial" {
		t.Errorf("Error = %q", ev.Error)
	}
	if time.Since(ev.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestLedgerEvent_JSON(t *testing.T) {
	timestamp := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &LedgerEvent{
		Operation: "deposit",
		Boxes:     []BoxBalance{{Name: "free", Amount: 5}},
		Total:     5,
		Deposited: 5,
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := LedgerEventFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("LedgerEventFromJSON() error = %v", err)
	}
	if parsed.Operation != msg.Operation || parsed.Total != msg.Total || len(parsed.Boxes) != 1 {
		t.Errorf("parsed = %+v, want %+v", parsed, msg)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestLedgerEvent_InvalidJSON(t *testing.T) {
	if _, err := LedgerEventFromJSON([]byte(`{"total": "lots"}`)); err == nil {
		t.Error("LedgerEventFromJSON() should fail with invalid JSON")
	}
}
