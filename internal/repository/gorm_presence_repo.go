package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/parleychat/parley/internal/domain"
)

// GormPresenceRepository implements PresenceRepository using GORM.
type GormPresenceRepository struct {
	db *gorm.DB
}

// NewGormPresenceRepository creates a new GORM-backed presence repository.
func NewGormPresenceRepository(db *gorm.DB) *GormPresenceRepository {
	return &GormPresenceRepository{db: db}
}

// UpsertStatus creates the record if absent, otherwise overwrites status and
// last_seen_at. Safe to call repeatedly with the same status.
func (r *GormPresenceRepository) UpsertStatus(ctx context.Context, userID, status string, lastSeenAt time.Time) error {
	model := domain.PresenceModel{
		UserID:     userID,
		Status:     status,
		LastSeenAt: lastSeenAt,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "last_seen_at"}),
		}).
		Create(&model).Error
}

// GetStatus retrieves the durable status record for a user.
func (r *GormPresenceRepository) GetStatus(ctx context.Context, userID string) (*domain.Presence, error) {
	var model domain.PresenceModel
	result := r.db.WithContext(ctx).First(&model, "user_id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPresenceNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}
