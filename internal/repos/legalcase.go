package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jlcedu/rechtszaal-backend/internal/logger"
	"github.com/jlcedu/rechtszaal-backend/internal/types"
)

type LegalCaseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, cases []*types.LegalCase) ([]*types.LegalCase, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, caseIDs []uuid.UUID) ([]*types.LegalCase, error)
	ListActive(ctx context.Context, tx *gorm.DB) ([]*types.LegalCase, error)
	Update(ctx context.Context, tx *gorm.DB, legalCase *types.LegalCase) error
	Deactivate(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) error
	CountActive(ctx context.Context, tx *gorm.DB) (int64, error)
}

type legalCaseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLegalCaseRepo(db *gorm.DB, baseLog *logger.Logger) LegalCaseRepo {
	return &legalCaseRepo{db: db, log: baseLog.With("repo", "LegalCaseRepo")}
}

func (lcr *legalCaseRepo) Create(ctx context.Context, tx *gorm.DB, cases []*types.LegalCase) ([]*types.LegalCase, error) {
	transaction := tx
	if transaction == nil {
		transaction = lcr.db
	}
	if len(cases) == 0 {
		return []*types.LegalCase{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&cases).Error; err != nil {
		return nil, err
	}
	return cases, nil
}

func (lcr *legalCaseRepo) GetByIDs(ctx context.Context, tx *gorm.DB, caseIDs []uuid.UUID) ([]*types.LegalCase, error) {
	transaction := tx
	if transaction == nil {
		transaction = lcr.db
	}

	var results []*types.LegalCase
	if len(caseIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ? AND is_active = ?", caseIDs, true).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (lcr *legalCaseRepo) ListActive(ctx context.Context, tx *gorm.DB) ([]*types.LegalCase, error) {
	transaction := tx
	if transaction == nil {
		transaction = lcr.db
	}

	var results []*types.LegalCase
	if err := transaction.WithContext(ctx).
		Where("is_active = ?", true).
		Order("difficulty_level, title").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (lcr *legalCaseRepo) Update(ctx context.Context, tx *gorm.DB, legalCase *types.LegalCase) error {
	transaction := tx
	if transaction == nil {
		transaction = lcr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.LegalCase{}).
		Where("id = ?", legalCase.ID).
		Updates(map[string]interface{}{
			"title":            legalCase.Title,
			"description":      legalCase.Description,
			"evidence":         legalCase.Evidence,
			"difficulty_level": legalCase.DifficultyLevel,
			"category":         legalCase.Category,
		}).Error
}

func (lcr *legalCaseRepo) Deactivate(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = lcr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.LegalCase{}).
		Where("id = ?", caseID).
		Update("is_active", false).Error
}

func (lcr *legalCaseRepo) CountActive(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = lcr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.LegalCase{}).
		Where("is_active = ?", true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
