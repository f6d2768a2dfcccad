package types

import (
	"time"

	"github.com/google/uuid"
)

// One badge per (user, type), enforced by the unique index; duplicate
// grants must leave the original earned_at untouched.
type Achievement struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"not null;uniqueIndex:idx_achievement_user_type" json:"user_id"`
	User            *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	AchievementType string    `gorm:"not null;column:achievement_type;uniqueIndex:idx_achievement_user_type" json:"achievement_type"`
	AchievementName string    `gorm:"not null;column:achievement_name" json:"achievement_name"`
	Description     string    `gorm:"column:description" json:"description"`
	EarnedAt        time.Time `gorm:"not null;column:earned_at" json:"earned_at"`
}

func (Achievement) TableName() string {
	return "achievement"
}
