package domain

import (
	"time"

	"github.com/parleychat/parley/pkg/database"
)

// ChannelModel is the GORM model for the channels table.
type ChannelModel struct {
	ID           string               `gorm:"type:varchar(36);primaryKey"`
	Name         string               `gorm:"type:varchar(100)"`
	IsGroup      bool                 `gorm:"not null;default:false"`
	Participants database.StringArray `gorm:"type:text"`
	CreatedAt    time.Time            `gorm:"autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"autoUpdateTime"`
}

func (ChannelModel) TableName() string {
	return "channels"
}

// ToDomain converts ChannelModel to domain Channel.
func (m *ChannelModel) ToDomain() *Channel {
	return &Channel{
		ID:           m.ID,
		Name:         m.Name,
		IsGroup:      m.IsGroup,
		Participants: []string(m.Participants),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// MessageModel is the GORM model for the messages table.
type MessageModel struct {
	ID         string    `gorm:"type:varchar(36);primaryKey"`
	ChannelID  string    `gorm:"type:varchar(36);index;not null"`
	SenderID   string    `gorm:"type:varchar(36);index;not null"`
	SenderName string    `gorm:"type:varchar(100)"`
	Text       string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
}

func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:         m.ID,
		ChannelID:  m.ChannelID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Text:       m.Text,
		CreatedAt:  m.CreatedAt,
	}
}

// BlockModel is the GORM model for the blocked_users table.
// A row means owner has blocked target.
type BlockModel struct {
	OwnerID   string    `gorm:"type:varchar(36);primaryKey"`
	TargetID  string    `gorm:"type:varchar(36);primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (BlockModel) TableName() string {
	return "blocked_users"
}

// PresenceModel is the GORM model for the user_statuses table.
type PresenceModel struct {
	UserID     string    `gorm:"type:varchar(36);primaryKey"`
	Status     string    `gorm:"type:varchar(16);not null"`
	LastSeenAt time.Time `gorm:"not null"`
}

func (PresenceModel) TableName() string {
	return "user_statuses"
}

// ToDomain converts PresenceModel to domain Presence.
func (m *PresenceModel) ToDomain() *Presence {
	return &Presence{
		UserID:     m.UserID,
		Status:     m.Status,
		LastSeenAt: m.LastSeenAt,
	}
}
