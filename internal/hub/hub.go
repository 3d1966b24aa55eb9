package hub

import (
	"encoding/json"
	"sync"

	"github.com/parleychat/parley/internal/domain"
	"github.com/parleychat/parley/pkg/log"
)

// Hub tracks all live connections and which channels each is subscribed
// to. Channel subscriber sets are pure transport-routing state: they are
// rebuilt as clients (re)join and are distinct from the durable membership
// records owned by the chat repository.
type Hub struct {
	clients  map[string]*Client            // clientID -> client
	channels map[string]map[string]*Client // channelID -> clientID -> client
	mu       sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		channels: make(map[string]map[string]*Client),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
	l := log.L()
	l.Debug().Str(log.FieldConnectionID, client.ID).Msg("client registered")
}

// Unregister removes a client from the hub and from every channel it was
// subscribed to. Safe to call more than once.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		for channelID, subscribers := range h.channels {
			delete(subscribers, client.ID)
			if len(subscribers) == 0 {
				delete(h.channels, channelID)
			}
		}
		delete(h.clients, client.ID)
		client.closeSend()
	}
	h.mu.Unlock()
	l := log.L()
	l.Debug().Str(log.FieldConnectionID, client.ID).Msg("client unregistered")
}

// Subscribe adds a client to a channel's subscriber set. A malformed
// channel id is rejected silently so it never becomes a map key.
func (h *Hub) Subscribe(client *Client, channelID string) {
	if !domain.ValidID(channelID) {
		l := log.L()
		l.Warn().Str(log.FieldChannelID, channelID).Msg("rejecting malformed channel id")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		// Connection already torn down; don't resurrect a stale entry.
		return
	}
	if _, ok := h.channels[channelID]; !ok {
		h.channels[channelID] = make(map[string]*Client)
	}
	h.channels[channelID][client.ID] = client
	l := log.L()
	l.Info().Str(log.FieldConnectionID, client.ID).Str(log.FieldChannelID, channelID).Msg("client joined channel")
}

// Unsubscribe removes a client from a channel's subscriber set. No-op if
// the client was not subscribed.
func (h *Hub) Unsubscribe(client *Client, channelID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subscribers, ok := h.channels[channelID]; ok {
		delete(subscribers, client.ID)
		if len(subscribers) == 0 {
			delete(h.channels, channelID)
		}
	}
}

// UnsubscribeAll removes a client from every channel it was subscribed to.
// Called exactly once, at disconnect.
func (h *Hub) UnsubscribeAll(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for channelID, subscribers := range h.channels {
		delete(subscribers, client.ID)
		if len(subscribers) == 0 {
			delete(h.channels, channelID)
		}
	}
}

// BroadcastToChannel delivers message to every subscriber of a channel,
// except the optionally excluded connection id. Delivery never blocks:
// a client with a full send buffer is dropped and unregistered.
func (h *Hub) BroadcastToChannel(channelID string, message interface{}, exclude string) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if subscribers, ok := h.channels[channelID]; ok {
		for clientID, client := range subscribers {
			if clientID == exclude {
				continue
			}
			if !client.trySend(data) {
				go h.removeClient(client)
			}
		}
	}
	return nil
}

// BroadcastAll delivers message to every registered connection. Used for
// global presence notifications.
func (h *Hub) BroadcastAll(message interface{}, exclude string) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for clientID, client := range h.clients {
		if clientID == exclude {
			continue
		}
		if !client.trySend(data) {
			go h.removeClient(client)
		}
	}
	return nil
}

// SendToClient delivers a message to one connection, if still registered.
func (h *Hub) SendToClient(clientID string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.mu.RLock()
	client, ok := h.clients[clientID]
	full := ok && !client.trySend(data)
	h.mu.RUnlock()

	if full {
		h.removeClient(client)
	}
	return nil
}

// IsSubscribed reports whether a connection is in a channel's subscriber set.
func (h *Hub) IsSubscribed(channelID, clientID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subscribers, ok := h.channels[channelID]
	if !ok {
		return false
	}
	_, ok = subscribers[clientID]
	return ok
}

// SubscriberCount returns the size of a channel's subscriber set.
func (h *Hub) SubscriberCount(channelID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.channels[channelID])
}

func (h *Hub) removeClient(client *Client) {
	h.Unregister(client)
}
