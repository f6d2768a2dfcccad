package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type LegalCase struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string         `gorm:"not null;column:title" json:"title"`
	Description     string         `gorm:"not null;column:description" json:"description"`
	Evidence        datatypes.JSON `gorm:"column:evidence" json:"evidence"`
	DifficultyLevel int            `gorm:"not null;default:1;column:difficulty_level" json:"difficulty_level"`
	Category        string         `gorm:"not null;default:algemeen;column:category" json:"category"`
	CreatedBy       *uuid.UUID     `gorm:"type:uuid;column:created_by" json:"created_by"`
	IsActive        bool           `gorm:"not null;default:true;column:is_active" json:"is_active"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (LegalCase) TableName() string {
	return "legal_case"
}
