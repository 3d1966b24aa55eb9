package repository

import (
	"context"
	"errors"
	"time"

	"github.com/parleychat/parley/internal/domain"
)

var (
	ErrChannelNotFound  = errors.New("channel not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrPresenceNotFound = errors.New("presence not found")
)

// ChatRepository is the durable store for channels and messages.
type ChatRepository interface {
	// FindChannel returns the channel or ErrChannelNotFound.
	FindChannel(ctx context.Context, id string) (*domain.Channel, error)

	// CreateMessage persists a message, assigning id and timestamp.
	CreateMessage(ctx context.Context, channelID, senderID, senderName, text string) (*domain.Message, error)

	// TouchChannel updates the channel's last-activity marker.
	TouchChannel(ctx context.Context, id string) error

	// ListMessages returns up to limit messages of a channel in ascending
	// creation order. A non-empty beforeID restricts the page to messages
	// created before that message.
	ListMessages(ctx context.Context, channelID string, limit int, beforeID string) ([]*domain.Message, error)
}

// BlockRepository answers blocking lookups.
type BlockRepository interface {
	// IsBlocked reports whether ownerID has blocked targetID.
	IsBlocked(ctx context.Context, ownerID, targetID string) (bool, error)
}

// PresenceRepository is the durable store for online/offline status.
type PresenceRepository interface {
	// UpsertStatus creates or updates the status record. Idempotent.
	UpsertStatus(ctx context.Context, userID, status string, lastSeenAt time.Time) error

	// GetStatus returns the status record or ErrPresenceNotFound.
	GetStatus(ctx context.Context, userID string) (*domain.Presence, error)
}
