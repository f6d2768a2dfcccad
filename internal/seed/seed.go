package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	"github.com/jlcedu/rechtszaal-backend/internal/logger"
	"github.com/jlcedu/rechtszaal-backend/internal/repos"
	"github.com/jlcedu/rechtszaal-backend/internal/types"
)

type caseSpec struct {
	Title           string   `yaml:"title"`
	Description     string   `yaml:"description"`
	Evidence        []string `yaml:"evidence"`
	DifficultyLevel int      `yaml:"difficulty_level"`
	Category        string   `yaml:"category"`
}

type seedFile struct {
	Cases []caseSpec `yaml:"cases"`
}

// Cases loads the bundled case file into an empty database. A database
// that already has active cases is left alone so teacher edits survive
// restarts.
func Cases(ctx context.Context, log *logger.Logger, caseRepo repos.LegalCaseRepo, path string) error {
	seedLog := log.With("component", "Seed")

	count, err := caseRepo.CountActive(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to count cases: %w", err)
	}
	if count > 0 {
		seedLog.Debug("cases already present, skipping seed", "count", count)
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	if len(file.Cases) == 0 {
		seedLog.Warn("seed file contains no cases", "path", path)
		return nil
	}

	cases := make([]*types.LegalCase, 0, len(file.Cases))
	for _, spec := range file.Cases {
		if spec.Title == "" || spec.Description == "" || len(spec.Evidence) == 0 {
			return fmt.Errorf("seed case %q is incomplete", spec.Title)
		}
		evidence, mErr := json.Marshal(spec.Evidence)
		if mErr != nil {
			return fmt.Errorf("failed to encode evidence for %q: %w", spec.Title, mErr)
		}
		level := spec.DifficultyLevel
		if level < 1 || level > 5 {
			level = 1
		}
		category := spec.Category
		if category == "" {
			category = "algemeen"
		}
		cases = append(cases, &types.LegalCase{
			ID:              uuid.New(),
			Title:           spec.Title,
			Description:     spec.Description,
			Evidence:        datatypes.JSON(evidence),
			DifficultyLevel: level,
			Category:        category,
			IsActive:        true,
		})
	}

	if _, err := caseRepo.Create(ctx, nil, cases); err != nil {
		return fmt.Errorf("failed to insert seed cases: %w", err)
	}
	seedLog.Info("seeded cases", "count", len(cases))
	return nil
}
