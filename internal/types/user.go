package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email         string         `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password      string         `gorm:"not null;column:password" json:"-"`
	FirstName     string         `gorm:"not null;column:first_name" json:"first_name"`
	LastName      string         `gorm:"not null;column:last_name" json:"last_name"`
	Role          string         `gorm:"not null;default:student;column:role" json:"role"`
	StudentNumber string         `gorm:"uniqueIndex;column:student_number" json:"student_number"`
	OpenAIAPIKey  string         `gorm:"column:openai_api_key" json:"-"`
	IsActive      bool           `gorm:"not null;default:true;column:is_active" json:"is_active"`
	LastLogin     *time.Time     `gorm:"column:last_login" json:"last_login"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "user"
}

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)
