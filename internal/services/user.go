package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jlcedu/rechtszaal-backend/internal/logger"
	"github.com/jlcedu/rechtszaal-backend/internal/repos"
	"github.com/jlcedu/rechtszaal-backend/internal/requestdata"
	"github.com/jlcedu/rechtszaal-backend/internal/types"
)

type UserService interface {
	GetMe(ctx context.Context) (*types.User, error)
	UpdateOpenAIKey(ctx context.Context, apiKey string) error
	HasOpenAIKey(ctx context.Context) (bool, error)
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{
		db:       db,
		log:      log.With("service", "UserService"),
		userRepo: userRepo,
	}
}

func (us *userService) GetMe(ctx context.Context) (*types.User, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("no user in request context")
	}
	users, err := us.userRepo.GetByIDs(ctx, nil, []uuid.UUID{rd.UserID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user not found")
	}
	return users[0], nil
}

// UpdateOpenAIKey stores the student's own provider key. An empty key
// clears it.
func (us *userService) UpdateOpenAIKey(ctx context.Context, apiKey string) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return fmt.Errorf("no user in request context")
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey != "" && !strings.HasPrefix(apiKey, "sk-") {
		return fmt.Errorf("invalid API key format")
	}
	return us.userRepo.UpdateAPIKey(ctx, nil, rd.UserID, apiKey)
}

func (us *userService) HasOpenAIKey(ctx context.Context) (bool, error) {
	user, err := us.GetMe(ctx)
	if err != nil {
		return false, err
	}
	return user.OpenAIAPIKey != "", nil
}
