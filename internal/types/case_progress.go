package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ProgressStarted   = "started"
	ProgressCompleted = "completed"
	ProgressAbandoned = "abandoned"
)

type CaseProgress struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"index;not null;uniqueIndex:idx_progress_user_case" json:"user_id"`
	User            *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	CaseID          uuid.UUID      `gorm:"index;not null;uniqueIndex:idx_progress_user_case" json:"case_id"`
	Case            *LegalCase     `gorm:"foreignKey:CaseID;references:ID" json:"case,omitempty"`
	Status          string         `gorm:"not null;column:status" json:"status"`
	Score           int            `gorm:"not null;default:0;column:score" json:"score"`
	TimeSpent       int            `gorm:"not null;default:0;column:time_spent" json:"time_spent"`
	ConversationLog datatypes.JSON `gorm:"column:conversation_log" json:"conversation_log"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	CompletedAt     *time.Time     `gorm:"column:completed_at" json:"completed_at"`
}

func (CaseProgress) TableName() string {
	return "case_progress"
}
