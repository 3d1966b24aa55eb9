package service

import (
	"context"
	"errors"

	"github.com/parleychat/parley/internal/domain"
	"github.com/parleychat/parley/internal/hub"
)

var (
	// ErrEmptyText means the message text was empty after trimming.
	ErrEmptyText = errors.New("message text is empty")
	// ErrInvalidID means an identifier failed format validation.
	ErrInvalidID = errors.New("invalid identifier")
	// ErrBlocked means a channel participant has blocked the sender.
	ErrBlocked = errors.New("sender is blocked by a participant")
	// ErrNotOnline means the connection has not declared itself online yet.
	ErrNotOnline = errors.New("connection is not online")
)

// ChatService handles the real-time chat operations.
type ChatService interface {
	// HandleGoOnline marks the connection's user online.
	HandleGoOnline(ctx context.Context, c *hub.Client) error

	// HandleJoinChannel subscribes the connection to a channel.
	HandleJoinChannel(ctx context.Context, c *hub.Client, channelID string) error

	// HandleLeaveChannel unsubscribes the connection from a channel.
	HandleLeaveChannel(ctx context.Context, c *hub.Client, channelID string) error

	// HandleSendMessage validates, persists and fans out a chat message.
	HandleSendMessage(ctx context.Context, c *hub.Client, channelID, text string) error

	// HandleMessageSeen relays a seen receipt to channel subscribers.
	HandleMessageSeen(ctx context.Context, c *hub.Client, channelID, messageID string) error

	// HandleTyping relays a typing indicator to everyone but the typist.
	HandleTyping(ctx context.Context, c *hub.Client, channelID string, isTyping bool) error

	// HandleDisconnect tears down membership and presence for a closed
	// connection. Idempotent.
	HandleDisconnect(ctx context.Context, c *hub.Client) error

	// SendMessage is the transport-independent send path, shared by the
	// websocket and REST surfaces.
	SendMessage(ctx context.Context, senderID, senderName, channelID, text string) (*domain.Message, error)

	// ChannelHistory returns a page of a channel's messages.
	ChannelHistory(ctx context.Context, channelID string, limit int, beforeID string) ([]*domain.Message, error)

	// GetPresence returns the durable presence record for a user.
	GetPresence(ctx context.Context, userID string) (*domain.Presence, error)
}
