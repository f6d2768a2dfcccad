package courtroom

import (
	"context"

	"github.com/google/uuid"

	"github.com/jlcedu/rechtszaal-backend/internal/logger"
)

// Achievement types.
const (
	AchievementFirstCompletion = "first_completion"
	AchievementHighScore       = "high_score"
	AchievementSpeedDemon      = "speed_demon"
	AchievementMilestone5      = "milestone_5"
	AchievementMilestone10     = "milestone_10"
)

// AchievementInfo carries the display name and description shown to the
// student for a badge type.
type AchievementInfo struct {
	Type        string
	Name        string
	Description string
}

var achievementCatalog = map[string]AchievementInfo{
	AchievementFirstCompletion: {
		Type:        AchievementFirstCompletion,
		Name:        "Eerste Zaak! 🎉",
		Description: "Je hebt je eerste rechtszaak voltooid!",
	},
	AchievementHighScore: {
		Type:        AchievementHighScore,
		Name:        "Perfecte Prestatie! ⭐",
		Description: "Je hebt een score van 90+ behaald!",
	},
	AchievementSpeedDemon: {
		Type:        AchievementSpeedDemon,
		Name:        "Snelle Jurist! ⚡",
		Description: "Zaak voltooid in minder dan 5 minuten!",
	},
	AchievementMilestone5: {
		Type:        AchievementMilestone5,
		Name:        "Ervaren Jurist! 🏆",
		Description: "Je hebt 5 rechtszaken voltooid!",
	},
	AchievementMilestone10: {
		Type:        AchievementMilestone10,
		Name:        "Juridisch Expert! 🎓",
		Description: "Je hebt 10 rechtszaken voltooid!",
	},
}

// AchievementByType looks up the catalog entry for a badge type.
func AchievementByType(achievementType string) (AchievementInfo, bool) {
	info, ok := achievementCatalog[achievementType]
	return info, ok
}

// AchievementEvaluator grants one-time badges after a completed session.
// Every rule is attempted independently; the store's (user, type)
// uniqueness makes duplicate grants a silent no-op.
type AchievementEvaluator struct {
	store Store
	log   *logger.Logger
}

func NewAchievementEvaluator(store Store, log *logger.Logger) *AchievementEvaluator {
	return &AchievementEvaluator{store: store, log: log.With("component", "AchievementEvaluator")}
}

// Evaluate runs once per completed session, after the authoritative
// final write, and returns the badge types it attempted to grant.
func (e *AchievementEvaluator) Evaluate(ctx context.Context, userID uuid.UUID, score, elapsedSeconds int) []string {
	completed, err := e.store.CountCompletedSessions(ctx, userID)
	if err != nil {
		e.log.Warn("could not count completed sessions, skipping milestone badges", "user_id", userID.String(), "error", err)
		completed = -1
	}

	var granted []string
	grant := func(achievementType string) {
		if err := e.store.RecordAchievement(ctx, userID, achievementType); err != nil {
			e.log.Warn("achievement grant failed", "user_id", userID.String(), "type", achievementType, "error", err)
			return
		}
		granted = append(granted, achievementType)
	}

	if completed == 1 {
		grant(AchievementFirstCompletion)
	}
	if score >= 90 {
		grant(AchievementHighScore)
	}
	if elapsedSeconds < 300 {
		grant(AchievementSpeedDemon)
	}
	if completed == 5 {
		grant(AchievementMilestone5)
	}
	if completed == 10 {
		grant(AchievementMilestone10)
	}
	return granted
}
