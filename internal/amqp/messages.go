package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record kinds carried by RecordChangedMessage.
const (
	KindSubscription = "subscription"
	KindOneTimeItem  = "one_time_item"

	// KindBatch marks a change touching many records, such as an import.
	KindBatch = "batch"
)

// Change operations carried by RecordChangedMessage.
const (
	OpCreated  = "created"
	OpUpdated  = "updated"
	OpDeleted  = "deleted"
	OpImported = "imported"
)

// RecordChangedMessage announces that a stored record changed. It carries no
// record data: consumers reload whatever they derived from the store.
type RecordChangedMessage struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordChangedMessage(kind, id, op string) *RecordChangedMessage {
	return &RecordChangedMessage{
		Kind:      kind,
		ID:        id,
		Op:        op,
		Timestamp: time.Now().UTC(),
	}
}

func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangedMessageFromJSON decodes a message and rejects ones without a kind or op.
func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" || msg.Op == "" {
		return nil, fmt.Errorf("record changed message missing kind or op")
	}
	return &msg, nil
}
