package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jlcedu/rechtszaal-backend/internal/logger"
	"github.com/jlcedu/rechtszaal-backend/internal/types"
)

type ProgressStats struct {
	TotalCases     int64    `json:"total_cases"`
	CompletedCases int64    `json:"completed_cases"`
	AverageScore   *float64 `json:"average_score"`
	TotalTime      int64    `json:"total_time"`
}

type CaseProgressRepo interface {
	Create(ctx context.Context, tx *gorm.DB, progress *types.CaseProgress) (*types.CaseProgress, error)
	GetByUserAndCase(ctx context.Context, tx *gorm.DB, userID, caseID uuid.UUID) (*types.CaseProgress, error)
	Restart(ctx context.Context, tx *gorm.DB, progressID uuid.UUID) error
	SaveLog(ctx context.Context, tx *gorm.DB, progressID uuid.UUID, conversationLog datatypes.JSON, timeSpent int) error
	Complete(ctx context.Context, tx *gorm.DB, progressID uuid.UUID, score, timeSpent int, conversationLog datatypes.JSON) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.CaseProgress, error)
	CountCompletedByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	StatsByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*ProgressStats, error)
}

type caseProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCaseProgressRepo(db *gorm.DB, baseLog *logger.Logger) CaseProgressRepo {
	return &caseProgressRepo{db: db, log: baseLog.With("repo", "CaseProgressRepo")}
}

func (cpr *caseProgressRepo) Create(ctx context.Context, tx *gorm.DB, progress *types.CaseProgress) (*types.CaseProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = cpr.db
	}
	if err := transaction.WithContext(ctx).Create(progress).Error; err != nil {
		return nil, err
	}
	return progress, nil
}

func (cpr *caseProgressRepo) GetByUserAndCase(ctx context.Context, tx *gorm.DB, userID, caseID uuid.UUID) (*types.CaseProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = cpr.db
	}

	var result types.CaseProgress
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND case_id = ?", userID, caseID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Restart resets a completed row so the student can replay the case.
func (cpr *caseProgressRepo) Restart(ctx context.Context, tx *gorm.DB, progressID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = cpr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.CaseProgress{}).
		Where("id = ?", progressID).
		Updates(map[string]interface{}{
			"status":           types.ProgressStarted,
			"score":            0,
			"time_spent":       0,
			"conversation_log": datatypes.JSON([]byte("[]")),
			"completed_at":     nil,
		}).Error
}

func (cpr *caseProgressRepo) SaveLog(ctx context.Context, tx *gorm.DB, progressID uuid.UUID, conversationLog datatypes.JSON, timeSpent int) error {
	transaction := tx
	if transaction == nil {
		transaction = cpr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.CaseProgress{}).
		Where("id = ? AND status = ?", progressID, types.ProgressStarted).
		Updates(map[string]interface{}{
			"conversation_log": conversationLog,
			"time_spent":       timeSpent,
		}).Error
}

func (cpr *caseProgressRepo) Complete(ctx context.Context, tx *gorm.DB, progressID uuid.UUID, score, timeSpent int, conversationLog datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = cpr.db
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.CaseProgress{}).
		Where("id = ?", progressID).
		Updates(map[string]interface{}{
			"status":           types.ProgressCompleted,
			"score":            score,
			"time_spent":       timeSpent,
			"conversation_log": conversationLog,
			"completed_at":     &now,
		}).Error
}

func (cpr *caseProgressRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.CaseProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = cpr.db
	}

	var results []*types.CaseProgress
	if err := transaction.WithContext(ctx).
		Preload("Case").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cpr *caseProgressRepo) CountCompletedByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = cpr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.CaseProgress{}).
		Where("user_id = ? AND status = ?", userID, types.ProgressCompleted).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (cpr *caseProgressRepo) StatsByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*ProgressStats, error) {
	transaction := tx
	if transaction == nil {
		transaction = cpr.db
	}

	var stats ProgressStats
	row := transaction.WithContext(ctx).
		Model(&types.CaseProgress{}).
		Select(`COUNT(*) as total_cases,
			COUNT(CASE WHEN status = ? THEN 1 END) as completed_cases,
			AVG(CASE WHEN status = ? THEN score END) as average_score,
			COALESCE(SUM(time_spent), 0) as total_time`,
			types.ProgressCompleted, types.ProgressCompleted).
		Where("user_id = ?", userID).
		Row()
	if err := row.Scan(&stats.TotalCases, &stats.CompletedCases, &stats.AverageScore, &stats.TotalTime); err != nil {
		return nil, err
	}
	return &stats, nil
}
