package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleychat/parley/internal/auth"
	"github.com/parleychat/parley/internal/domain"
	"github.com/parleychat/parley/internal/hub"
	"github.com/parleychat/parley/internal/repository"
	"github.com/parleychat/parley/internal/service"
)

const testSecret = "test-secret"

type fakeChatService struct {
	sendErr     error
	presence    *domain.Presence
	presenceErr error
	messages    []*domain.Message
	historyErr  error

	panicOnGoOnline bool

	lastSenderID string
	lastText     string
}

func (s *fakeChatService) HandleGoOnline(ctx context.Context, c *hub.Client) error {
	if s.panicOnGoOnline {
		panic("service failure")
	}
	return nil
}
func (s *fakeChatService) HandleDisconnect(ctx context.Context, c *hub.Client) error { return nil }
func (s *fakeChatService) HandleJoinChannel(ctx context.Context, c *hub.Client, channelID string) error {
	return nil
}
func (s *fakeChatService) HandleLeaveChannel(ctx context.Context, c *hub.Client, channelID string) error {
	return nil
}
func (s *fakeChatService) HandleSendMessage(ctx context.Context, c *hub.Client, channelID, text string) error {
	return nil
}
func (s *fakeChatService) HandleMessageSeen(ctx context.Context, c *hub.Client, channelID, messageID string) error {
	return nil
}
func (s *fakeChatService) HandleTyping(ctx context.Context, c *hub.Client, channelID string, isTyping bool) error {
	return nil
}

func (s *fakeChatService) SendMessage(ctx context.Context, senderID, senderName, channelID, text string) (*domain.Message, error) {
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	s.lastSenderID = senderID
	s.lastText = text
	return &domain.Message{
		ID:         uuid.New().String(),
		ChannelID:  channelID,
		SenderID:   senderID,
		SenderName: senderName,
		Text:       text,
		CreatedAt:  time.Now(),
	}, nil
}

func (s *fakeChatService) ChannelHistory(ctx context.Context, channelID string, limit int, beforeID string) ([]*domain.Message, error) {
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	return s.messages, nil
}

func (s *fakeChatService) GetPresence(ctx context.Context, userID string) (*domain.Presence, error) {
	if s.presenceErr != nil {
		return nil, s.presenceErr
	}
	return s.presence, nil
}

func signTestToken(t *testing.T, userID, username string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID:   userID,
		Username: username,
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newTestRouter(svc service.ChatService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	verifier := auth.NewHMACVerifier(testSecret)
	NewHTTPHandler(svc, RequireAuth(verifier)).RegisterRoutes(router)
	return router
}

func doRequest(router *gin.Engine, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(&fakeChatService{})

	for _, path := range []string{
		"/api/v1/channels/" + uuid.New().String() + "/messages",
		"/api/v1/presence/" + uuid.New().String(),
	} {
		w := doRequest(router, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := doRequest(router, http.MethodPost, "/api/v1/messages", "", []byte(`{}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetMessages(t *testing.T) {
	svc := &fakeChatService{messages: []*domain.Message{
		{ID: uuid.New().String(), Text: "hello"},
	}}
	router := newTestRouter(svc)
	token := signTestToken(t, uuid.New().String(), "alice")

	w := doRequest(router, http.MethodGet, "/api/v1/channels/"+uuid.New().String()+"/messages", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Messages []*domain.Message `json:"messages"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Messages, 1)
	assert.Equal(t, "hello", body.Data.Messages[0].Text)
}

func TestGetMessagesRejectsBadLimit(t *testing.T) {
	router := newTestRouter(&fakeChatService{})
	token := signTestToken(t, uuid.New().String(), "alice")

	for _, limit := range []string{"0", "-1", "abc"} {
		w := doRequest(router, http.MethodGet, "/api/v1/channels/"+uuid.New().String()+"/messages?limit="+limit, token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
	}
}

func TestGetMessagesUnknownChannel(t *testing.T) {
	router := newTestRouter(&fakeChatService{historyErr: repository.ErrChannelNotFound})
	token := signTestToken(t, uuid.New().String(), "alice")

	w := doRequest(router, http.MethodGet, "/api/v1/channels/"+uuid.New().String()+"/messages", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostMessage(t *testing.T) {
	svc := &fakeChatService{}
	router := newTestRouter(svc)
	userID := uuid.New().String()
	token := signTestToken(t, userID, "alice")

	payload, _ := json.Marshal(map[string]string{
		"channel_id": uuid.New().String(),
		"text":       "hello",
	})
	w := doRequest(router, http.MethodPost, "/api/v1/messages", token, payload)
	assert.Equal(t, http.StatusCreated, w.Code)

	// The sender identity comes from the token, never from the body.
	assert.Equal(t, userID, svc.lastSenderID)
	assert.Equal(t, "hello", svc.lastText)
}

func TestPostMessageValidation(t *testing.T) {
	router := newTestRouter(&fakeChatService{})
	token := signTestToken(t, uuid.New().String(), "alice")

	w := doRequest(router, http.MethodPost, "/api/v1/messages", token, []byte(`{"text":"hi"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostMessageBlocked(t *testing.T) {
	router := newTestRouter(&fakeChatService{sendErr: service.ErrBlocked})
	token := signTestToken(t, uuid.New().String(), "alice")

	payload, _ := json.Marshal(map[string]string{
		"channel_id": uuid.New().String(),
		"text":       "hello",
	})
	w := doRequest(router, http.MethodPost, "/api/v1/messages", token, payload)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetPresenceDefaultsToOffline(t *testing.T) {
	router := newTestRouter(&fakeChatService{presenceErr: repository.ErrPresenceNotFound})
	token := signTestToken(t, uuid.New().String(), "alice")

	userID := uuid.New().String()
	w := doRequest(router, http.MethodGet, "/api/v1/presence/"+userID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Presence *domain.Presence `json:"presence"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, userID, body.Data.Presence.UserID)
	assert.Equal(t, domain.StatusOffline, body.Data.Presence.Status)
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(&fakeChatService{})

	w := doRequest(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
