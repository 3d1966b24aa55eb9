package domain

import (
	"time"

	"github.com/google/uuid"
)

// Presence statuses.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Channel represents a chat conversation (one-on-one or group).
type Channel struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	IsGroup      bool      `json:"is_group"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Message represents a persisted chat message. Messages are immutable once
// created; later seen receipts reference them by id only.
type Message struct {
	ID         string    `json:"id"`
	ChannelID  string    `json:"channel_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// Presence is the durable online/offline view of a user.
type Presence struct {
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// ValidID reports whether s is a well-formed storage identifier (UUID).
// Malformed ids must never reach the subscriber maps or the repositories.
func ValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
