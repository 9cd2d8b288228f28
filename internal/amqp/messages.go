package amqp

import (
	"encoding/json"
	"time"
)

// Operations carried by a calendar sync message.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// CalendarSyncMessage asks the worker to mirror one expense onto the
// external calendar. It carries only identifiers; the worker fetches
// the current row from the database, so stale messages cannot write
// stale data.
type CalendarSyncMessage struct {
	Op            string    `json:"op"`
	UserID        int64     `json:"user_id"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	EventID       string    `json:"event_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewUpsertMessage(userID, transactionID int64) *CalendarSyncMessage {
	return &CalendarSyncMessage{
		Op:            OpUpsert,
		UserID:        userID,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

func NewDeleteMessage(userID int64, eventID string) *CalendarSyncMessage {
	return &CalendarSyncMessage{
		Op:        OpDelete,
		UserID:    userID,
		EventID:   eventID,
		Timestamp: time.Now(),
	}
}

func (m *CalendarSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func CalendarSyncMessageFromJSON(data []byte) (*CalendarSyncMessage, error) {
	var msg CalendarSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
