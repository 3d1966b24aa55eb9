package kafka

import (
	"context"

	"github.com/parleychat/parley/internal/domain"
)

// ChatEvent is an integration event published for downstream consumers
// (history indexing, analytics). It mirrors state that has already been
// committed; the live broadcast path never depends on it.
type ChatEvent struct {
	Type      string          `json:"type"` // "message_created" | "presence_changed"
	ChannelID string          `json:"channel_id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	Status    string          `json:"status,omitempty"`
	Message   *domain.Message `json:"message,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Event types
const (
	EventMessageCreated  = "message_created"
	EventPresenceChanged = "presence_changed"
)

// EventProducer defines the interface for producing chat events.
type EventProducer interface {
	ProduceMessageCreated(ctx context.Context, msg *domain.Message) error
	ProducePresenceChanged(ctx context.Context, userID, status string) error
	Close() error
}
