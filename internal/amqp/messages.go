package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// Action is the kind of ledger change an event describes.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

func (a Action) Valid() bool {
	return a == ActionCreated || a == ActionUpdated || a == ActionDeleted
}

// LedgerEvent carries a snapshot of a transaction after a write. For
// deletions the snapshot is the record as it was before removal.
type LedgerEvent struct {
	MessageID   string           `json:"message_id"`
	Action      Action           `json:"action"`
	Transaction core.Transaction `json:"transaction"`
	Timestamp   time.Time        `json:"timestamp"`
}

func NewLedgerEvent(action Action, t core.Transaction) *LedgerEvent {
	return &LedgerEvent{
		MessageID:   uuid.NewString(),
		Action:      action,
		Transaction: t,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and checks an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(e.MessageID); err != nil {
		return nil, fmt.Errorf("message_id: %w", err)
	}
	if !e.Action.Valid() {
		return nil, fmt.Errorf("unknown action %q", e.Action)
	}
	if e.Transaction.ID <= 0 {
		return nil, errors.New("transaction id is required")
	}
	return &e, nil
}
