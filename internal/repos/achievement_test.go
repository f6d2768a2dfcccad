package repos

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jlcedu/rechtszaal-backend/internal/logger"
	"github.com/jlcedu/rechtszaal-backend/internal/types"
)

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A named shared in-memory database so every pooled connection sees
	// the same tables.
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&types.User{}, &types.Achievement{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func testUser(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	user := &types.User{
		ID:        uuid.New(),
		Email:     uuid.New().String() + "@school.nl",
		Password:  "hash",
		FirstName: "Sanne",
		LastName:  "de Boer",
		Role:      types.RoleStudent,
		IsActive:  true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user.ID
}

func TestAchievementRepo_DuplicateGrantIsNoOp(t *testing.T) {
	db := testDB(t)
	repo := NewAchievementRepo(db, testLogger())
	ctx := context.Background()
	userID := testUser(t, db)

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	err := repo.CreateIgnoreDuplicate(ctx, nil, &types.Achievement{
		ID:              uuid.New(),
		UserID:          userID,
		AchievementType: "first_completion",
		AchievementName: "Eerste Zaak! 🎉",
		Description:     "Je hebt je eerste rechtszaak voltooid!",
		EarnedAt:        first,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	// Replaying the same badge type must not error, add a row, or touch
	// the original earned_at.
	err = repo.CreateIgnoreDuplicate(ctx, nil, &types.Achievement{
		ID:              uuid.New(),
		UserID:          userID,
		AchievementType: "first_completion",
		AchievementName: "Eerste Zaak! 🎉",
		Description:     "Je hebt je eerste rechtszaak voltooid!",
		EarnedAt:        first.Add(48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected err on duplicate: %v", err)
	}

	stored, err := repo.ListByUser(ctx, nil, userID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 badge, got %d", len(stored))
	}
	if !stored[0].EarnedAt.Equal(first) {
		t.Fatalf("earned_at overwritten: got %v, want %v", stored[0].EarnedAt, first)
	}
}

func TestAchievementRepo_DistinctTypesBothStored(t *testing.T) {
	db := testDB(t)
	repo := NewAchievementRepo(db, testLogger())
	ctx := context.Background()
	userID := testUser(t, db)

	for _, badgeType := range []string{"first_completion", "speed_demon"} {
		err := repo.CreateIgnoreDuplicate(ctx, nil, &types.Achievement{
			ID:              uuid.New(),
			UserID:          userID,
			AchievementType: badgeType,
			AchievementName: badgeType,
			EarnedAt:        time.Now(),
		})
		if err != nil {
			t.Fatalf("unexpected err for %s: %v", badgeType, err)
		}
	}

	stored, err := repo.ListByUser(ctx, nil, userID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 badges, got %d", len(stored))
	}
}
