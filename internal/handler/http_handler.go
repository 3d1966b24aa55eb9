package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/parleychat/parley/internal/domain"
	"github.com/parleychat/parley/internal/repository"
	"github.com/parleychat/parley/internal/service"
	"github.com/parleychat/parley/pkg/response"
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

// HTTPHandler exposes the REST surface: message history, a REST send path
// that reuses the dispatcher, and durable presence queries.
type HTTPHandler struct {
	service service.ChatService
	authn   gin.HandlerFunc
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(svc service.ChatService, authn gin.HandlerFunc) *HTTPHandler {
	return &HTTPHandler{
		service: svc,
		authn:   authn,
	}
}

// RegisterRoutes registers the REST routes.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.authn)
	{
		api.GET("/channels/:channel_id/messages", h.GetMessages)
		api.POST("/messages", h.SendMessage)
		api.GET("/presence/:user_id", h.GetPresence)
	}

	r.GET("/health", h.HealthCheck)
}

func (h *HTTPHandler) GetMessages(c *gin.Context) {
	channelID := c.Param("channel_id")
	beforeID := c.Query("before")

	limit := defaultLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit < 1 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = parsedLimit
		if limit > maxLimit {
			limit = maxLimit
		}
	}

	messages, err := h.service.ChannelHistory(c.Request.Context(), channelID, limit, beforeID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidID):
			response.BadRequest(c, "invalid identifier")
		case errors.Is(err, repository.ErrChannelNotFound):
			response.NotFound(c, "channel not found")
		case errors.Is(err, repository.ErrMessageNotFound):
			response.NotFound(c, "before message not found")
		default:
			response.InternalError(c, "failed to get messages")
		}
		return
	}

	response.Success(c, gin.H{"messages": messages})
}

type sendMessageRequest struct {
	ChannelID string `json:"channel_id" binding:"required"`
	Text      string `json:"text" binding:"required"`
}

func (h *HTTPHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "channel_id and text are required")
		return
	}

	userID := c.GetString(UserIDKey)
	username := c.GetString(UsernameKey)

	msg, err := h.service.SendMessage(c.Request.Context(), userID, username, req.ChannelID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyText), errors.Is(err, service.ErrInvalidID):
			response.BadRequest(c, "invalid message data")
		case errors.Is(err, repository.ErrChannelNotFound):
			response.NotFound(c, "channel not found")
		case errors.Is(err, service.ErrBlocked):
			response.Forbidden(c, "you are blocked by a participant")
		default:
			response.InternalError(c, "failed to send message")
		}
		return
	}

	response.Created(c, gin.H{"message": msg})
}

func (h *HTTPHandler) GetPresence(c *gin.Context) {
	userID := c.Param("user_id")

	presence, err := h.service.GetPresence(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidID):
			response.BadRequest(c, "invalid user id")
		case errors.Is(err, repository.ErrPresenceNotFound):
			// Users never seen online read as offline.
			response.Success(c, gin.H{"presence": &domain.Presence{
				UserID: userID,
				Status: domain.StatusOffline,
			}})
		default:
			response.InternalError(c, "failed to get presence")
		}
		return
	}

	response.Success(c, gin.H{"presence": presence})
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
