package presence

import (
	"context"
	"sync"
	"time"

	"github.com/parleychat/parley/internal/domain"
	"github.com/parleychat/parley/internal/hub"
	"github.com/parleychat/parley/internal/kafka"
	"github.com/parleychat/parley/internal/repository"
	"github.com/parleychat/parley/pkg/log"
)

// Tracker maintains the in-memory index of which users currently hold a
// live connection, and writes online/offline transitions through to the
// presence repository. The index is current-session-authoritative only;
// durable truth lives in the repository.
//
// Single-device semantics: at most one connection per user. A second login
// overwrites the mapping, orphaning the prior entry; the orphan is corrected
// at disconnect time by the connection-id ownership check in MarkOffline.
type Tracker struct {
	hub      *hub.Hub
	repo     repository.PresenceRepository
	producer kafka.EventProducer // optional, may be nil

	active map[string]string // userID -> connectionID
	mu     sync.RWMutex
}

// NewTracker creates a presence tracker.
func NewTracker(h *hub.Hub, repo repository.PresenceRepository, producer kafka.EventProducer) *Tracker {
	return &Tracker{
		hub:      h,
		repo:     repo,
		producer: producer,
		active:   make(map[string]string),
	}
}

// MarkOnline records the user as online on the given connection and
// notifies every live connection. Idempotent: a repeated call refreshes
// last_seen_at and re-broadcasts status online, never offline.
//
// Persistence is best-effort: a repository failure is logged and neither
// blocks the in-memory update nor the broadcast.
func (t *Tracker) MarkOnline(ctx context.Context, userID, connectionID string) {
	t.mu.Lock()
	prev, replaced := t.active[userID]
	t.active[userID] = connectionID
	t.mu.Unlock()

	// Single-device semantics: the connection that just lost the login is
	// told so, before its eventual disconnect is ignored as an orphan.
	if replaced && prev != connectionID {
		event := domain.NewErrorEvent(domain.ErrCodeUnauthorized, "Signed in from another connection")
		if err := t.hub.SendToClient(prev, event); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldConnectionID, prev).Msg("failed to notify replaced connection")
		}
	}

	if err := t.repo.UpsertStatus(ctx, userID, domain.StatusOnline, time.Now()); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("failed to persist online status")
	}

	t.broadcast(ctx, userID, domain.StatusOnline)
}

// MarkOffline removes the mapping and records the user as offline, but
// only if connectionID still owns the mapping. A disconnect of a
// connection that was already replaced by a newer login is a no-op.
func (t *Tracker) MarkOffline(ctx context.Context, userID, connectionID string) {
	t.mu.Lock()
	current, ok := t.active[userID]
	if !ok || current != connectionID {
		t.mu.Unlock()
		return
	}
	delete(t.active, userID)
	t.mu.Unlock()

	if err := t.repo.UpsertStatus(ctx, userID, domain.StatusOffline, time.Now()); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("failed to persist offline status")
	}

	t.broadcast(ctx, userID, domain.StatusOffline)
}

// IsOnline reflects only the in-memory index. Durable queries go through
// the repository directly.
func (t *Tracker) IsOnline(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.active[userID]
	return ok
}

func (t *Tracker) broadcast(ctx context.Context, userID, status string) {
	event := &domain.PresenceChangedEvent{
		Type:   domain.MsgTypePresenceChanged,
		UserID: userID,
		Status: status,
	}
	if err := t.hub.BroadcastAll(event, ""); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("failed to broadcast presence change")
	}

	if t.producer != nil {
		if err := t.producer.ProducePresenceChanged(ctx, userID, status); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("failed to produce presence event")
		}
	}
}
