package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/parleychat/parley/internal/domain"
)

// GormChatRepository implements ChatRepository using GORM.
type GormChatRepository struct {
	db *gorm.DB
}

// NewGormChatRepository creates a new GORM-backed chat repository.
func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	return &GormChatRepository{db: db}
}

// FindChannel retrieves a channel by ID.
func (r *GormChatRepository) FindChannel(ctx context.Context, id string) (*domain.Channel, error) {
	var model domain.ChannelModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// CreateMessage persists a message. The repository assigns the id and the
// creation timestamp.
func (r *GormChatRepository) CreateMessage(ctx context.Context, channelID, senderID, senderName, text string) (*domain.Message, error) {
	model := domain.MessageModel{
		ID:         uuid.New().String(),
		ChannelID:  channelID,
		SenderID:   senderID,
		SenderName: senderName,
		Text:       text,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// TouchChannel bumps the channel's updated_at marker.
func (r *GormChatRepository) TouchChannel(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&domain.ChannelModel{}).
		Where("id = ?", id).
		Update("updated_at", time.Now()).Error
}

// ListMessages returns a page of messages in ascending creation order.
func (r *GormChatRepository) ListMessages(ctx context.Context, channelID string, limit int, beforeID string) ([]*domain.Message, error) {
	q := r.db.WithContext(ctx).
		Model(&domain.MessageModel{}).
		Where("channel_id = ?", channelID)

	if beforeID != "" {
		var anchor domain.MessageModel
		result := r.db.WithContext(ctx).First(&anchor, "id = ?", beforeID)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil, ErrMessageNotFound
			}
			return nil, result.Error
		}
		q = q.Where("created_at < ?", anchor.CreatedAt)
	}

	var models []domain.MessageModel
	if err := q.Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}

	// Newest page fetched descending; hand back ascending for display.
	messages := make([]*domain.Message, len(models))
	for i := range models {
		messages[len(models)-1-i] = models[i].ToDomain()
	}
	return messages, nil
}
