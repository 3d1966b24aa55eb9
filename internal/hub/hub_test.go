package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleychat/parley/internal/config"
	"github.com/parleychat/parley/internal/domain"
)

func newTestClient(h *Hub, userID string) *Client {
	id := uuid.New().String()
	session := domain.NewSession(id, userID, "user-"+userID)
	session.Activate()
	return NewClient(id, h, nil, session, config.WebSocketConfig{})
}

func recvJSON(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &decoded))
		return decoded
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return nil
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected message: %s", data)
	default:
	}
}

func TestRegisterUnregister(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "u1")

	h.Register(c)
	channelID := uuid.New().String()
	h.Subscribe(c, channelID)
	assert.True(t, h.IsSubscribed(channelID, c.ID))

	h.Unregister(c)
	assert.False(t, h.IsSubscribed(channelID, c.ID))
	assert.Equal(t, 0, h.SubscriberCount(channelID))

	// Second unregister must not panic on the closed send channel.
	h.Unregister(c)
}

func TestSendAfterUnregisterIsDropped(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "u1")
	h.Register(c)
	h.Unregister(c)

	// The reader goroutine can still try to answer on a connection the
	// hub has already torn down; the frame is dropped, never a panic.
	assert.NoError(t, c.SendMessage(map[string]string{"type": "pong"}))
	assert.NoError(t, h.SendToClient(c.ID, map[string]string{"type": "pong"}))
	assert.NoError(t, h.BroadcastAll(map[string]string{"type": "presence_changed"}, ""))
}

func TestSubscribeRejectsMalformedID(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "u1")
	h.Register(c)

	for _, id := range []string{"", "lobby", "{\"$gt\":\"\"}"} {
		h.Subscribe(c, id)
		assert.False(t, h.IsSubscribed(id, c.ID))
		assert.Equal(t, 0, h.SubscriberCount(id))
	}
}

func TestSubscribeAfterUnregisterIsNoop(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "u1")
	h.Register(c)
	h.Unregister(c)

	channelID := uuid.New().String()
	h.Subscribe(c, channelID)
	assert.False(t, h.IsSubscribed(channelID, c.ID), "stale client must not be resurrected")
}

func TestSubscribeIsIdempotent(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "u1")
	h.Register(c)

	channelID := uuid.New().String()
	h.Subscribe(c, channelID)
	h.Subscribe(c, channelID)
	assert.Equal(t, 1, h.SubscriberCount(channelID))

	// One broadcast, one delivery.
	require.NoError(t, h.BroadcastToChannel(channelID, map[string]string{"type": "x"}, ""))
	recvJSON(t, c)
	assertNoMessage(t, c)
}

func TestBroadcastToChannel(t *testing.T) {
	h := NewHub()
	sender := newTestClient(h, "u1")
	member := newTestClient(h, "u2")
	outsider := newTestClient(h, "u3")
	for _, c := range []*Client{sender, member, outsider} {
		h.Register(c)
	}

	channelID := uuid.New().String()
	h.Subscribe(sender, channelID)
	h.Subscribe(member, channelID)

	require.NoError(t, h.BroadcastToChannel(channelID, map[string]string{"type": "message_received"}, ""))

	assert.Equal(t, "message_received", recvJSON(t, sender)["type"])
	assert.Equal(t, "message_received", recvJSON(t, member)["type"])
	assertNoMessage(t, outsider)
}

func TestBroadcastToChannelExcludesSender(t *testing.T) {
	h := NewHub()
	typist := newTestClient(h, "u1")
	member := newTestClient(h, "u2")
	h.Register(typist)
	h.Register(member)

	channelID := uuid.New().String()
	h.Subscribe(typist, channelID)
	h.Subscribe(member, channelID)

	require.NoError(t, h.BroadcastToChannel(channelID, map[string]string{"type": "user_typing"}, typist.ID))

	assert.Equal(t, "user_typing", recvJSON(t, member)["type"])
	assertNoMessage(t, typist)
}

func TestBroadcastAll(t *testing.T) {
	h := NewHub()
	a := newTestClient(h, "u1")
	b := newTestClient(h, "u2")
	h.Register(a)
	h.Register(b)

	require.NoError(t, h.BroadcastAll(map[string]string{"type": "presence_changed"}, ""))

	assert.Equal(t, "presence_changed", recvJSON(t, a)["type"])
	assert.Equal(t, "presence_changed", recvJSON(t, b)["type"])
}

func TestUnsubscribeAll(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "u1")
	h.Register(c)

	first := uuid.New().String()
	second := uuid.New().String()
	h.Subscribe(c, first)
	h.Subscribe(c, second)

	h.UnsubscribeAll(c)

	assert.False(t, h.IsSubscribed(first, c.ID))
	assert.False(t, h.IsSubscribed(second, c.ID))
	assert.Equal(t, 0, h.SubscriberCount(first))
	assert.Equal(t, 0, h.SubscriberCount(second))
}

func TestSendToClientUnknownIsNoop(t *testing.T) {
	h := NewHub()
	assert.NoError(t, h.SendToClient(uuid.New().String(), map[string]string{"type": "pong"}))
}

func TestSendToClient(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "u1")
	h.Register(c)

	require.NoError(t, h.SendToClient(c.ID, map[string]string{"type": "pong"}))
	assert.Equal(t, "pong", recvJSON(t, c)["type"])
}
