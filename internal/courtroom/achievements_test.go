package courtroom

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestAchievementEvaluator_FirstCompletion(t *testing.T) {
	store := &fakeStore{completed: 1}
	ev := NewAchievementEvaluator(store, testLogger())

	granted := ev.Evaluate(context.Background(), uuid.New(), 70, 900)
	if len(granted) != 1 || granted[0] != AchievementFirstCompletion {
		t.Fatalf("unexpected grants: %v", granted)
	}
}

func TestAchievementEvaluator_HighScoreAndSpeed(t *testing.T) {
	store := &fakeStore{completed: 3}
	ev := NewAchievementEvaluator(store, testLogger())

	granted := ev.Evaluate(context.Background(), uuid.New(), 95, 200)
	want := []string{AchievementHighScore, AchievementSpeedDemon}
	if len(granted) != len(want) {
		t.Fatalf("unexpected grants: %v", granted)
	}
	for i, g := range want {
		if granted[i] != g {
			t.Fatalf("unexpected grants: %v", granted)
		}
	}
}

func TestAchievementEvaluator_Milestones(t *testing.T) {
	tests := []struct {
		completed int
		want      string
	}{
		{5, AchievementMilestone5},
		{10, AchievementMilestone10},
	}
	for _, tc := range tests {
		store := &fakeStore{completed: tc.completed}
		ev := NewAchievementEvaluator(store, testLogger())
		granted := ev.Evaluate(context.Background(), uuid.New(), 70, 900)
		if len(granted) != 1 || granted[0] != tc.want {
			t.Fatalf("completed=%d: unexpected grants %v", tc.completed, granted)
		}
	}
}

func TestAchievementEvaluator_BoundariesExcluded(t *testing.T) {
	store := &fakeStore{completed: 4}
	ev := NewAchievementEvaluator(store, testLogger())

	// Score 89 and exactly five minutes earn nothing.
	if granted := ev.Evaluate(context.Background(), uuid.New(), 89, 300); len(granted) != 0 {
		t.Fatalf("unexpected grants: %v", granted)
	}
}

func TestAchievementEvaluator_GrantFailureDoesNotBlockOthers(t *testing.T) {
	store := &fakeStore{
		completed: 1,
		recordErr: map[string]error{AchievementFirstCompletion: errors.New("db down")},
	}
	ev := NewAchievementEvaluator(store, testLogger())

	granted := ev.Evaluate(context.Background(), uuid.New(), 95, 900)
	if len(granted) != 1 || granted[0] != AchievementHighScore {
		t.Fatalf("unexpected grants: %v", granted)
	}
}

func TestAchievementEvaluator_CountErrorSkipsMilestones(t *testing.T) {
	store := &fakeStore{completedErr: errors.New("db down")}
	ev := NewAchievementEvaluator(store, testLogger())

	granted := ev.Evaluate(context.Background(), uuid.New(), 95, 200)
	want := []string{AchievementHighScore, AchievementSpeedDemon}
	if len(granted) != len(want) {
		t.Fatalf("unexpected grants: %v", granted)
	}
}

func TestAchievementByType(t *testing.T) {
	info, ok := AchievementByType(AchievementMilestone5)
	if !ok || info.Name == "" || info.Description == "" {
		t.Fatalf("expected catalog entry, got %#v", info)
	}
	if _, ok := AchievementByType("unknown"); ok {
		t.Fatalf("unknown type should not resolve")
	}
}
