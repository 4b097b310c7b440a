package amqp

import (
	"encoding/json"
	"time"
)

// LedgerSavedMessage announces that an owner's remote ledger advanced to a new
// version. It carries no ledger data; consumers pull the document themselves.
type LedgerSavedMessage struct {
	Owner     string    `json:"owner"`
	Version   int64     `json:"version"`
	Revision  uint64    `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerSavedMessage creates a message stamped with the current time.
func NewLedgerSavedMessage(owner string, version int64, revision uint64) *LedgerSavedMessage {
	return &LedgerSavedMessage{
		Owner:     owner,
		Version:   version,
		Revision:  revision,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerSavedMessageFromJSON decodes a message.
func LedgerSavedMessageFromJSON(data []byte) (*LedgerSavedMessage, error) {
	var msg LedgerSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
