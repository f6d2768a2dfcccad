package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jlcedu/rechtszaal-backend/internal/courtroom"
	"github.com/jlcedu/rechtszaal-backend/internal/logger"
	"github.com/jlcedu/rechtszaal-backend/internal/repos"
	"github.com/jlcedu/rechtszaal-backend/internal/requestdata"
	"github.com/jlcedu/rechtszaal-backend/internal/types"
)

// AchievementView joins a stored badge with its catalog entry.
type AchievementView struct {
	Type        string `json:"achievement_type"`
	Name        string `json:"achievement_name"`
	Description string `json:"description"`
	EarnedAt    string `json:"earned_at"`
}

type ProgressService interface {
	ListProgress(ctx context.Context) ([]*types.CaseProgress, error)
	Stats(ctx context.Context) (*repos.ProgressStats, error)
	ListAchievements(ctx context.Context) ([]AchievementView, error)
}

type progressService struct {
	db              *gorm.DB
	log             *logger.Logger
	progressRepo    repos.CaseProgressRepo
	achievementRepo repos.AchievementRepo
}

func NewProgressService(
	db *gorm.DB,
	log *logger.Logger,
	progressRepo repos.CaseProgressRepo,
	achievementRepo repos.AchievementRepo,
) ProgressService {
	return &progressService{
		db:              db,
		log:             log.With("service", "ProgressService"),
		progressRepo:    progressRepo,
		achievementRepo: achievementRepo,
	}
}

func (ps *progressService) ListProgress(ctx context.Context) ([]*types.CaseProgress, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	return ps.progressRepo.ListByUser(ctx, nil, userID)
}

func (ps *progressService) Stats(ctx context.Context) (*repos.ProgressStats, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	return ps.progressRepo.StatsByUser(ctx, nil, userID)
}

func (ps *progressService) ListAchievements(ctx context.Context) ([]AchievementView, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	earned, err := ps.achievementRepo.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch achievements: %w", err)
	}
	views := make([]AchievementView, 0, len(earned))
	for _, a := range earned {
		view := AchievementView{
			Type:        a.AchievementType,
			Name:        a.AchievementName,
			Description: a.Description,
			EarnedAt:    a.EarnedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		// Prefer the current catalog text when the badge type still exists.
		if info, ok := courtroom.AchievementByType(a.AchievementType); ok {
			view.Name = info.Name
			view.Description = info.Description
		}
		views = append(views, view)
	}
	return views, nil
}

func currentUserID(ctx context.Context) (uuid.UUID, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("no user in request context")
	}
	return rd.UserID, nil
}
