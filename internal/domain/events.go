package domain

// WebSocket message types from client.
const (
	MsgTypeGoOnline     = "go_online"
	MsgTypeJoinChannel  = "join_channel"
	MsgTypeLeaveChannel = "leave_channel"
	MsgTypeSendMessage  = "send_message"
	MsgTypeMessageSeen  = "message_seen"
	MsgTypeTyping       = "typing"
	MsgTypePing         = "ping"
)

// WebSocket message types to client.
const (
	MsgTypePresenceChanged = "presence_changed"
	MsgTypeMessageReceived = "message_received"
	MsgTypeSeenReceipt     = "message_seen"
	MsgTypeUserTyping      = "user_typing"
	MsgTypeError           = "error"
	MsgTypePong            = "pong"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

// JoinChannelMessage is sent by client to subscribe to a channel.
type JoinChannelMessage struct {
	Type      string `json:"type"`
	ChannelID string `json:"channel_id"`
}

// LeaveChannelMessage is sent by client to unsubscribe from a channel.
type LeaveChannelMessage struct {
	Type      string `json:"type"`
	ChannelID string `json:"channel_id"`
}

// SendMessageMessage is sent by client to post a chat message.
type SendMessageMessage struct {
	Type      string `json:"type"`
	ChannelID string `json:"channel_id"`
	Text      string `json:"text"`
}

// MessageSeenMessage acknowledges that a message was viewed.
type MessageSeenMessage struct {
	Type      string `json:"type"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// TypingMessage signals that the user started or stopped typing.
type TypingMessage struct {
	Type      string `json:"type"`
	ChannelID string `json:"channel_id"`
	IsTyping  bool   `json:"is_typing"`
}

// Server -> Client messages

// PresenceChangedEvent is broadcast to all connections when a user's
// online status changes.
type PresenceChangedEvent struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// MessageReceivedEvent carries a persisted message to channel subscribers.
type MessageReceivedEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message"`
}

// SeenReceiptEvent relays a seen acknowledgement to channel subscribers.
// It is never persisted; if nobody is subscribed the signal is lost.
type SeenReceiptEvent struct {
	Type      string `json:"type"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// UserTypingEvent relays a typing indicator to everyone but the typist.
type UserTypingEvent struct {
	Type      string `json:"type"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	IsTyping  bool   `json:"is_typing"`
}

// ErrorEvent is sent to the originating connection when a handler fails.
type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// NewErrorEvent creates a new error event.
func NewErrorEvent(code, message string) *ErrorEvent {
	return &ErrorEvent{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
