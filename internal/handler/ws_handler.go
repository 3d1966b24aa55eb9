package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/parleychat/parley/internal/auth"
	"github.com/parleychat/parley/internal/config"
	"github.com/parleychat/parley/internal/domain"
	"github.com/parleychat/parley/internal/hub"
	"github.com/parleychat/parley/internal/service"
	pkglog "github.com/parleychat/parley/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// WSHandler handles WebSocket connections.
type WSHandler struct {
	hub      *hub.Hub
	service  service.ChatService
	verifier auth.Verifier
	wsConfig config.WebSocketConfig
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(h *hub.Hub, svc service.ChatService, verifier auth.Verifier, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:      h,
		service:  svc,
		verifier: verifier,
		wsConfig: wsCfg,
	}
}

// HandleWebSocket authenticates the upgrade request, then hands the
// connection to the hub. A connection without a resolved identity is
// rejected before the upgrade: no handler ever runs for it.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	l := pkglog.L()

	claims, err := h.verifier.Verify(auth.TokenFromRequest(r))
	if err != nil {
		l.Warn().Err(err).Str(pkglog.FieldClientIP, r.RemoteAddr).Msg("websocket auth rejected")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	clientID := uuid.New().String()
	session := domain.NewSession(clientID, claims.UserID, claims.Username)
	client := hub.NewClient(clientID, h.hub, conn, session, h.wsConfig)

	client.SetDisconnectHandler(func(c *hub.Client) {
		ctx := context.Background()
		if err := h.service.HandleDisconnect(ctx, c); err != nil {
			l.Error().Err(err).Str(pkglog.FieldConnectionID, c.ID).Msg("disconnect handler error")
		}
	})

	h.hub.Register(client)
	l.Info().Str(pkglog.FieldConnectionID, clientID).Str(pkglog.FieldUserID, claims.UserID).Msg("websocket connected")

	go client.WritePump()
	go client.ReadPump(h.handleMessage)
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	l := pkglog.L()

	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendMessage(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Invalid message format"))
		return
	}

	ctx := context.Background()

	switch base.Type {
	case domain.MsgTypeGoOnline:
		if err := h.service.HandleGoOnline(ctx, client); err != nil {
			l.Error().Err(err).Str(pkglog.FieldConnectionID, client.ID).Msg("go online failed")
		}

	case domain.MsgTypeJoinChannel:
		var msg domain.JoinChannelMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Invalid join_channel message"))
			return
		}
		if err := h.service.HandleJoinChannel(ctx, client, msg.ChannelID); err != nil {
			l.Error().Err(err).Str(pkglog.FieldConnectionID, client.ID).Msg("join channel failed")
		}

	case domain.MsgTypeLeaveChannel:
		var msg domain.LeaveChannelMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Invalid leave_channel message"))
			return
		}
		if err := h.service.HandleLeaveChannel(ctx, client, msg.ChannelID); err != nil {
			l.Error().Err(err).Str(pkglog.FieldConnectionID, client.ID).Msg("leave channel failed")
		}

	case domain.MsgTypeSendMessage:
		var msg domain.SendMessageMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Invalid send_message message"))
			return
		}
		if err := h.service.HandleSendMessage(ctx, client, msg.ChannelID, msg.Text); err != nil {
			l.Error().Err(err).Str(pkglog.FieldConnectionID, client.ID).Msg("send message failed")
		}

	case domain.MsgTypeMessageSeen:
		var msg domain.MessageSeenMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Invalid message_seen message"))
			return
		}
		if err := h.service.HandleMessageSeen(ctx, client, msg.ChannelID, msg.MessageID); err != nil {
			l.Error().Err(err).Str(pkglog.FieldConnectionID, client.ID).Msg("message seen failed")
		}

	case domain.MsgTypeTyping:
		var msg domain.TypingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Invalid typing message"))
			return
		}
		if err := h.service.HandleTyping(ctx, client, msg.ChannelID, msg.IsTyping); err != nil {
			l.Error().Err(err).Str(pkglog.FieldConnectionID, client.ID).Msg("typing failed")
		}

	case domain.MsgTypePing:
		client.SendMessage(map[string]string{"type": domain.MsgTypePong})

	default:
		client.SendMessage(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Unknown message type"))
	}
}
