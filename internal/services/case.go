package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jlcedu/rechtszaal-backend/internal/courtroom"
	"github.com/jlcedu/rechtszaal-backend/internal/logger"
	"github.com/jlcedu/rechtszaal-backend/internal/repos"
	"github.com/jlcedu/rechtszaal-backend/internal/requestdata"
	"github.com/jlcedu/rechtszaal-backend/internal/types"
)

// CaseInput is the teacher-facing payload for creating or updating a
// case.
type CaseInput struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Evidence        []string `json:"evidence"`
	DifficultyLevel int      `json:"difficulty_level"`
	Category        string   `json:"category"`
}

type CaseService interface {
	ListCases(ctx context.Context) ([]*types.LegalCase, error)
	GetCase(ctx context.Context, caseID uuid.UUID) (*types.LegalCase, error)
	CreateCase(ctx context.Context, input CaseInput) (*types.LegalCase, error)
	UpdateCase(ctx context.Context, caseID uuid.UUID, input CaseInput) error
	DeactivateCase(ctx context.Context, caseID uuid.UUID) error
}

type caseService struct {
	db       *gorm.DB
	log      *logger.Logger
	caseRepo repos.LegalCaseRepo
}

func NewCaseService(db *gorm.DB, log *logger.Logger, caseRepo repos.LegalCaseRepo) CaseService {
	return &caseService{
		db:       db,
		log:      log.With("service", "CaseService"),
		caseRepo: caseRepo,
	}
}

func (cs *caseService) ListCases(ctx context.Context) ([]*types.LegalCase, error) {
	return cs.caseRepo.ListActive(ctx, nil)
}

func (cs *caseService) GetCase(ctx context.Context, caseID uuid.UUID) (*types.LegalCase, error) {
	cases, err := cs.caseRepo.GetByIDs(ctx, nil, []uuid.UUID{caseID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch case: %w", err)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("case not found")
	}
	return cases[0], nil
}

func (cs *caseService) CreateCase(ctx context.Context, input CaseInput) (*types.LegalCase, error) {
	legalCase, err := cs.buildCase(ctx, input)
	if err != nil {
		return nil, err
	}
	legalCase.ID = uuid.New()
	legalCase.IsActive = true
	if rd := requestdata.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
		creator := rd.UserID
		legalCase.CreatedBy = &creator
	}

	if _, cErr := cs.caseRepo.Create(ctx, nil, []*types.LegalCase{legalCase}); cErr != nil {
		return nil, fmt.Errorf("failed to create case: %w", cErr)
	}
	return legalCase, nil
}

func (cs *caseService) UpdateCase(ctx context.Context, caseID uuid.UUID, input CaseInput) error {
	existing, err := cs.GetCase(ctx, caseID)
	if err != nil {
		return err
	}
	updated, err := cs.buildCase(ctx, input)
	if err != nil {
		return err
	}
	updated.ID = existing.ID
	return cs.caseRepo.Update(ctx, nil, updated)
}

func (cs *caseService) DeactivateCase(ctx context.Context, caseID uuid.UUID) error {
	return cs.caseRepo.Deactivate(ctx, nil, caseID)
}

func (cs *caseService) buildCase(ctx context.Context, input CaseInput) (*types.LegalCase, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Title == "" || input.Description == "" {
		return nil, fmt.Errorf("title and description are required")
	}
	if len(input.Evidence) == 0 {
		return nil, fmt.Errorf("at least one piece of evidence is required")
	}
	for i, ev := range input.Evidence {
		input.Evidence[i] = strings.TrimSpace(ev)
		if input.Evidence[i] == "" {
			return nil, fmt.Errorf("evidence items may not be empty")
		}
	}
	if input.DifficultyLevel < 1 || input.DifficultyLevel > 5 {
		return nil, fmt.Errorf("difficulty level must be between 1 and 5")
	}
	if input.Category == "" {
		input.Category = "algemeen"
	}

	evidence, err := json.Marshal(input.Evidence)
	if err != nil {
		return nil, fmt.Errorf("failed to encode evidence: %w", err)
	}
	return &types.LegalCase{
		Title:           input.Title,
		Description:     input.Description,
		Evidence:        datatypes.JSON(evidence),
		DifficultyLevel: input.DifficultyLevel,
		Category:        input.Category,
	}, nil
}

// CourtroomCase converts a stored case into the engine's immutable view.
func CourtroomCase(lc *types.LegalCase) (*courtroom.Case, error) {
	var evidence []string
	if len(lc.Evidence) > 0 {
		if err := json.Unmarshal(lc.Evidence, &evidence); err != nil {
			return nil, fmt.Errorf("failed to decode evidence for case %s: %w", lc.ID, err)
		}
	}
	return &courtroom.Case{
		ID:              lc.ID,
		Title:           lc.Title,
		Description:     lc.Description,
		Evidence:        evidence,
		DifficultyLevel: lc.DifficultyLevel,
		Category:        lc.Category,
	}, nil
}
