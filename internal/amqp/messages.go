package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sync message vocabulary. Messages are deliberately lightweight: the worker
// fetches the current row from SQLite by ID, so a stale message never
// replicates stale data.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"

	EntityTransaction = "transaction"
	EntityGoal        = "goal"
)

// SyncMessage asks the worker to replicate one record to the cloud store.
type SyncMessage struct {
	Op        string    `json:"op"`
	Entity    string    `json:"entity"`
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSyncMessage creates a sync message stamped with the current time.
func NewSyncMessage(op, entity, id, username string, version int64) *SyncMessage {
	return &SyncMessage{
		Op:        op,
		Entity:    entity,
		ID:        id,
		Username:  username,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// Validate checks the op/entity vocabulary and the record ID.
func (m *SyncMessage) Validate() error {
	if m.Op != OpUpsert && m.Op != OpDelete {
		return fmt.Errorf("unknown op %q", m.Op)
	}
	if m.Entity != EntityTransaction && m.Entity != EntityGoal {
		return fmt.Errorf("unknown entity %q", m.Entity)
	}
	if m.ID == "" {
		return fmt.Errorf("missing record id")
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *SyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncMessageFromJSON creates a message from JSON bytes
func SyncMessageFromJSON(data []byte) (*SyncMessage, error) {
	var msg SyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
