package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	KindTransactionRecorded = "transaction.recorded"
	KindTransactionDeleted  = "transaction.deleted"
)

// LedgerEvent is a lightweight notification that a ledger row changed.
// Consumers fetch the full row from the database by ID; the event itself
// carries only routing data.
type LedgerEvent struct {
	EventID       string    `json:"event_id"`
	Kind          string    `json:"kind"`
	TransactionID int64     `json:"transaction_id"`
	UserID        int64     `json:"user_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEvent(kind string, transactionID, userID int64) *LedgerEvent {
	return &LedgerEvent{
		EventID:       uuid.NewString(),
		Kind:          kind,
		TransactionID: transactionID,
		UserID:        userID,
		Timestamp:     time.Now(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
