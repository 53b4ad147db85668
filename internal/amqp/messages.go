package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Change types announced by the expense store.
const (
	ExpenseCreated = "expense.created"
	ExpenseDeleted = "expense.deleted"
)

// ChangeMessage tells the sync worker that an expense changed. It carries
// only the id; the worker reads the current row from the database.
type ChangeMessage struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(changeType, id string) *ChangeMessage {
	return &ChangeMessage{
		Type:      changeType,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ChangeMessage) Validate() error {
	switch m.Type {
	case ExpenseCreated, ExpenseDeleted:
	default:
		return fmt.Errorf("unknown change type %q", m.Type)
	}
	if strings.TrimSpace(m.ID) == "" {
		return errors.New("change message without id")
	}
	return nil
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and validates a message body.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
