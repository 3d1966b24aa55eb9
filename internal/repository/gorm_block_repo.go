package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/parleychat/parley/internal/domain"
)

// GormBlockRepository implements BlockRepository using GORM.
type GormBlockRepository struct {
	db *gorm.DB
}

// NewGormBlockRepository creates a new GORM-backed block repository.
func NewGormBlockRepository(db *gorm.DB) *GormBlockRepository {
	return &GormBlockRepository{db: db}
}

// IsBlocked reports whether ownerID has blocked targetID.
func (r *GormBlockRepository) IsBlocked(ctx context.Context, ownerID, targetID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.BlockModel{}).
		Where("owner_id = ? AND target_id = ?", ownerID, targetID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
