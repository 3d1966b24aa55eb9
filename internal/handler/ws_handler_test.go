package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleychat/parley/internal/auth"
	"github.com/parleychat/parley/internal/config"
	"github.com/parleychat/parley/internal/domain"
	"github.com/parleychat/parley/internal/hub"
)

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 65536,
	}
}

func newWSServer(t *testing.T, svc *fakeChatService) (*httptest.Server, *hub.Hub) {
	t.Helper()
	h := hub.NewHub()
	verifier := auth.NewHMACVerifier(testSecret)
	wsHandler := NewWSHandler(h, svc, verifier, testWSConfig())
	srv := httptest.NewServer(http.HandlerFunc(wsHandler.HandleWebSocket))
	t.Cleanup(srv.Close)
	return srv, h
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHandleWebSocketRejectsMissingToken(t *testing.T) {
	srv, _ := newWSServer(t, &fakeChatService{})

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleWebSocketRejectsInvalidToken(t *testing.T) {
	srv, _ := newWSServer(t, &fakeChatService{})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleWebSocketPingPong(t *testing.T) {
	srv, _ := newWSServer(t, &fakeChatService{})
	conn := dial(t, srv, signTestToken(t, uuid.New().String(), "alice"))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": domain.MsgTypePing}))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var reply map[string]string
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, domain.MsgTypePong, reply["type"])
}

func TestHandleWebSocketUnknownType(t *testing.T) {
	srv, _ := newWSServer(t, &fakeChatService{})
	conn := dial(t, srv, signTestToken(t, uuid.New().String(), "alice"))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "shout"}))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var reply domain.ErrorEvent
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, domain.MsgTypeError, reply.Type)
	assert.Equal(t, domain.ErrCodeBadRequest, reply.Code)
}

func TestHandlerPanicClosesOnlyThatConnection(t *testing.T) {
	srv, _ := newWSServer(t, &fakeChatService{panicOnGoOnline: true})
	bad := dial(t, srv, signTestToken(t, uuid.New().String(), "alice"))
	good := dial(t, srv, signTestToken(t, uuid.New().String(), "bob"))

	// The panicking handler takes down its own connection.
	require.NoError(t, bad.WriteJSON(map[string]string{"type": domain.MsgTypeGoOnline}))
	bad.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := bad.ReadMessage()
	require.Error(t, err)

	// Everyone else stays served.
	require.NoError(t, good.WriteJSON(map[string]string{"type": domain.MsgTypePing}))
	good.SetReadDeadline(time.Now().Add(time.Second))
	var reply map[string]string
	require.NoError(t, good.ReadJSON(&reply))
	assert.Equal(t, domain.MsgTypePong, reply["type"])
}

func TestHandleWebSocketMalformedFrame(t *testing.T) {
	srv, _ := newWSServer(t, &fakeChatService{})
	conn := dial(t, srv, signTestToken(t, uuid.New().String(), "alice"))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var reply domain.ErrorEvent
	require.NoError(t, json.Unmarshal(data, &reply))
	assert.Equal(t, domain.ErrCodeBadRequest, reply.Code)
}
