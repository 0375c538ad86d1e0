package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message types carried on the export queue. Messages are intentionally
// lightweight: the worker fetches the full transaction from the database, so
// a stale message never overwrites newer data.
const (
	TypeTransactionSync   = "transaction.sync"
	TypeTransactionDelete = "transaction.delete"
)

// TransactionSyncMessage asks the export worker to mirror one transaction.
type TransactionSyncMessage struct {
	Type      string    `json:"type"`
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// TransactionDeleteMessage asks the export worker to drop a mirrored row.
type TransactionDeleteMessage struct {
	Type      string    `json:"type"`
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionSyncMessage builds a sync message for a stored transaction.
func NewTransactionSyncMessage(ownerID, id, version int64) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		Type:      TypeTransactionSync,
		ID:        id,
		OwnerID:   ownerID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// NewTransactionDeleteMessage builds a delete message.
func NewTransactionDeleteMessage(ownerID, id int64) *TransactionDeleteMessage {
	return &TransactionDeleteMessage{
		Type:      TypeTransactionDelete,
		ID:        id,
		OwnerID:   ownerID,
		Timestamp: time.Now(),
	}
}

// MessageType peeks at the type field without decoding the full message.
func MessageType(body []byte) (string, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("decode message envelope: %w", err)
	}
	return envelope.Type, nil
}
