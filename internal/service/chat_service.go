package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/parleychat/parley/internal/cache"
	"github.com/parleychat/parley/internal/domain"
	"github.com/parleychat/parley/internal/hub"
	"github.com/parleychat/parley/internal/kafka"
	"github.com/parleychat/parley/internal/presence"
	"github.com/parleychat/parley/internal/repository"
	"github.com/parleychat/parley/pkg/log"
)

type chatService struct {
	hub      *hub.Hub
	presence *presence.Tracker
	chatRepo repository.ChatRepository
	blocks   repository.BlockRepository
	statuses repository.PresenceRepository

	channelCache cache.ChannelCache // optional, may be nil
	cacheTTL     time.Duration
	producer     kafka.EventProducer // optional, may be nil

	sf singleflight.Group
}

// NewChatService creates the chat service. channelCache and producer may be
// nil; the service then runs without caching or integration events.
func NewChatService(
	h *hub.Hub,
	tracker *presence.Tracker,
	chatRepo repository.ChatRepository,
	blocks repository.BlockRepository,
	statuses repository.PresenceRepository,
	channelCache cache.ChannelCache,
	cacheTTL time.Duration,
	producer kafka.EventProducer,
) ChatService {
	return &chatService{
		hub:          h,
		presence:     tracker,
		chatRepo:     chatRepo,
		blocks:       blocks,
		statuses:     statuses,
		channelCache: channelCache,
		cacheTTL:     cacheTTL,
		producer:     producer,
	}
}

func (s *chatService) HandleGoOnline(ctx context.Context, c *hub.Client) error {
	// Activate is idempotent; a repeated go_online refreshes last-seen and
	// re-broadcasts status online, never offline.
	c.Session.Activate()
	s.presence.MarkOnline(ctx, c.Session.UserID, c.ID)
	return nil
}

// HandleJoinChannel is deliberately lenient: any authenticated connection
// may subscribe to any existing channel, and failures are silent. The REST
// API enforces its own access checks; the transport layer only routes.
func (s *chatService) HandleJoinChannel(ctx context.Context, c *hub.Client, channelID string) error {
	l := log.Ctx(ctx)

	if !c.Session.IsActive() {
		return c.SendMessage(domain.NewErrorEvent(domain.ErrCodeUnauthorized, "Not online"))
	}

	if !domain.ValidID(channelID) {
		l.Warn().Str(log.FieldChannelID, channelID).Msg("join rejected: malformed channel id")
		return nil
	}

	if _, err := s.findChannel(ctx, channelID); err != nil {
		if !errors.Is(err, repository.ErrChannelNotFound) {
			l.Error().Err(err).Str(log.FieldChannelID, channelID).Msg("channel lookup failed on join")
		}
		return nil
	}

	s.hub.Subscribe(c, channelID)
	return nil
}

func (s *chatService) HandleLeaveChannel(ctx context.Context, c *hub.Client, channelID string) error {
	s.hub.Unsubscribe(c, channelID)
	return nil
}

func (s *chatService) HandleSendMessage(ctx context.Context, c *hub.Client, channelID, text string) error {
	if !c.Session.IsActive() {
		return c.SendMessage(domain.NewErrorEvent(domain.ErrCodeUnauthorized, "Not online"))
	}

	_, err := s.SendMessage(ctx, c.Session.UserID, c.Session.Username, channelID, text)
	if err != nil {
		return c.SendMessage(errorEventFor(err))
	}
	return nil
}

// SendMessage runs the dispatch gates in order: validate, resolve channel,
// block check, persist, touch, broadcast. A message is broadcast if and
// only if it was durably persisted first.
func (s *chatService) SendMessage(ctx context.Context, senderID, senderName, channelID, text string) (*domain.Message, error) {
	l := log.Ctx(ctx)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if !domain.ValidID(channelID) {
		return nil, ErrInvalidID
	}

	channel, err := s.findChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, repository.ErrChannelNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("channel lookup failed: %w", err)
	}

	for _, participantID := range channel.Participants {
		if participantID == senderID {
			continue
		}
		blocked, err := s.blocks.IsBlocked(ctx, participantID, senderID)
		if err != nil {
			return nil, fmt.Errorf("block lookup failed: %w", err)
		}
		if blocked {
			return nil, ErrBlocked
		}
	}

	msg, err := s.chatRepo.CreateMessage(ctx, channelID, senderID, senderName, text)
	if err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	// Message is durable from here on; activity-marker and event failures
	// must not lose the broadcast.
	if err := s.chatRepo.TouchChannel(ctx, channelID); err != nil {
		l.Warn().Err(err).Str(log.FieldChannelID, channelID).Msg("failed to touch channel")
	} else if s.channelCache != nil {
		// The cached copy now carries a stale activity marker.
		if err := s.channelCache.Delete(ctx, channelID); err != nil {
			l.Warn().Err(err).Str(log.FieldChannelID, channelID).Msg("failed to invalidate channel cache")
		}
	}

	event := &domain.MessageReceivedEvent{
		Type:    domain.MsgTypeMessageReceived,
		Message: msg,
	}
	// Sender included: its other connections stay in sync.
	if err := s.hub.BroadcastToChannel(channelID, event, ""); err != nil {
		l.Error().Err(err).Str(log.FieldChannelID, channelID).Msg("failed to broadcast message")
	}

	if s.producer != nil {
		if err := s.producer.ProduceMessageCreated(ctx, msg); err != nil {
			l.Warn().Err(err).Str(log.FieldMessageID, msg.ID).Msg("failed to produce message event")
		}
	}

	return msg, nil
}

// HandleMessageSeen relays the receipt to the whole channel, sender
// included; the original sender is the consumer that acts on it. Nothing
// is persisted: with no subscribers the signal is simply lost.
func (s *chatService) HandleMessageSeen(ctx context.Context, c *hub.Client, channelID, messageID string) error {
	if !domain.ValidID(channelID) || !domain.ValidID(messageID) {
		l := log.Ctx(ctx)
		l.Warn().Str(log.FieldChannelID, channelID).Str(log.FieldMessageID, messageID).Msg("seen receipt rejected: malformed id")
		return nil
	}

	event := &domain.SeenReceiptEvent{
		Type:      domain.MsgTypeSeenReceipt,
		ChannelID: channelID,
		MessageID: messageID,
	}
	return s.hub.BroadcastToChannel(channelID, event, "")
}

func (s *chatService) HandleTyping(ctx context.Context, c *hub.Client, channelID string, isTyping bool) error {
	if !domain.ValidID(channelID) {
		return nil
	}

	event := &domain.UserTypingEvent{
		Type:      domain.MsgTypeUserTyping,
		ChannelID: channelID,
		UserID:    c.Session.UserID,
		IsTyping:  isTyping,
	}
	// The typist never receives an echo of its own indicator.
	return s.hub.BroadcastToChannel(channelID, event, c.ID)
}

// HandleDisconnect runs teardown exactly once per connection: membership
// first, then presence.
func (s *chatService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	if !c.Session.Close() {
		return nil
	}

	s.hub.UnsubscribeAll(c)
	s.presence.MarkOffline(ctx, c.Session.UserID, c.ID)
	return nil
}

func (s *chatService) ChannelHistory(ctx context.Context, channelID string, limit int, beforeID string) ([]*domain.Message, error) {
	if !domain.ValidID(channelID) {
		return nil, ErrInvalidID
	}
	if beforeID != "" && !domain.ValidID(beforeID) {
		return nil, ErrInvalidID
	}

	if _, err := s.findChannel(ctx, channelID); err != nil {
		return nil, err
	}

	return s.chatRepo.ListMessages(ctx, channelID, limit, beforeID)
}

func (s *chatService) GetPresence(ctx context.Context, userID string) (*domain.Presence, error) {
	if !domain.ValidID(userID) {
		return nil, ErrInvalidID
	}
	return s.statuses.GetStatus(ctx, userID)
}

// findChannel resolves a channel through the cache, collapsing concurrent
// lookups for the same id into one repository query.
func (s *chatService) findChannel(ctx context.Context, channelID string) (*domain.Channel, error) {
	if s.channelCache == nil {
		return s.chatRepo.FindChannel(ctx, channelID)
	}

	channel, err := s.channelCache.Get(ctx, channelID)
	if err == nil {
		return channel, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldChannelID, channelID).Msg("channel cache get error")
	}

	result, err, _ := s.sf.Do(channelID, func() (interface{}, error) {
		channel, err := s.chatRepo.FindChannel(ctx, channelID)
		if err != nil {
			return nil, err
		}

		go func() {
			cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := s.channelCache.Set(cacheCtx, channel, s.cacheTTL); err != nil {
				l := log.L()
				l.Warn().Err(err).Str(log.FieldChannelID, channel.ID).Msg("channel cache set error")
			}
		}()

		return channel, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Channel), nil
}

// errorEventFor maps a dispatch failure to the targeted error event sent
// to the originating connection only.
func errorEventFor(err error) *domain.ErrorEvent {
	switch {
	case errors.Is(err, ErrEmptyText), errors.Is(err, ErrInvalidID):
		return domain.NewErrorEvent(domain.ErrCodeBadRequest, "Invalid message data")
	case errors.Is(err, repository.ErrChannelNotFound):
		return domain.NewErrorEvent(domain.ErrCodeNotFound, "Channel not found")
	case errors.Is(err, ErrBlocked):
		return domain.NewErrorEvent(domain.ErrCodeForbidden, "You are blocked")
	default:
		return domain.NewErrorEvent(domain.ErrCodeInternalError, "Failed to send message")
	}
}
