package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jlcedu/rechtszaal-backend/internal/courtroom"
	"github.com/jlcedu/rechtszaal-backend/internal/logger"
	"github.com/jlcedu/rechtszaal-backend/internal/repos"
	"github.com/jlcedu/rechtszaal-backend/internal/types"
)

// SimulationService owns the live sessions and is the courtroom
// engine's persistence boundary. A session's ID equals its progress row
// ID, so the engine's writes land on the right row without a mapping
// table.
type SimulationService interface {
	StartCase(ctx context.Context, caseID uuid.UUID) (courtroom.Snapshot, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (courtroom.Snapshot, error)
	SubmitTurn(ctx context.Context, sessionID uuid.UUID, message string) error
	EndSession(ctx context.Context, sessionID uuid.UUID) (int, error)
}

type simulationService struct {
	db              *gorm.DB
	log             *logger.Logger
	manager         *courtroom.Manager
	userRepo        repos.UserRepo
	caseRepo        repos.LegalCaseRepo
	progressRepo    repos.CaseProgressRepo
	achievementRepo repos.AchievementRepo
	model           string
	scheduler       *courtroom.Scheduler
}

func NewSimulationService(
	db *gorm.DB,
	log *logger.Logger,
	manager *courtroom.Manager,
	userRepo repos.UserRepo,
	caseRepo repos.LegalCaseRepo,
	progressRepo repos.CaseProgressRepo,
	achievementRepo repos.AchievementRepo,
	gateway courtroom.Gateway,
	notifier courtroom.Notifier,
	params courtroom.Params,
	model string,
) SimulationService {
	if model == "" {
		model = defaultCompletionModel
	}
	ss := &simulationService{
		db:              db,
		log:             log.With("service", "SimulationService"),
		manager:         manager,
		userRepo:        userRepo,
		caseRepo:        caseRepo,
		progressRepo:    progressRepo,
		achievementRepo: achievementRepo,
		model:           model,
	}
	// The service is the engine's store, so the scheduler is built here.
	ss.scheduler = courtroom.NewScheduler(params, gateway, ss, notifier, log)
	return ss
}

func (ss *simulationService) StartCase(ctx context.Context, caseID uuid.UUID) (courtroom.Snapshot, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return courtroom.Snapshot{}, err
	}
	users, err := ss.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return courtroom.Snapshot{}, fmt.Errorf("failed to fetch user: %w", err)
	}
	if len(users) == 0 {
		return courtroom.Snapshot{}, fmt.Errorf("user not found")
	}
	user := users[0]

	cases, err := ss.caseRepo.GetByIDs(ctx, nil, []uuid.UUID{caseID})
	if err != nil {
		return courtroom.Snapshot{}, fmt.Errorf("failed to fetch case: %w", err)
	}
	if len(cases) == 0 {
		return courtroom.Snapshot{}, fmt.Errorf("case not found")
	}
	engineCase, err := CourtroomCase(cases[0])
	if err != nil {
		return courtroom.Snapshot{}, err
	}

	// Reuse the (user, case) progress row across replays: a restart
	// resets it instead of inserting a second row.
	progress, err := ss.progressRepo.GetByUserAndCase(ctx, nil, userID, caseID)
	if err != nil {
		return courtroom.Snapshot{}, fmt.Errorf("failed to fetch progress: %w", err)
	}
	if progress == nil {
		progress = &types.CaseProgress{
			ID:              uuid.New(),
			UserID:          userID,
			CaseID:          caseID,
			Status:          types.ProgressStarted,
			ConversationLog: datatypes.JSON([]byte("[]")),
		}
		if _, cErr := ss.progressRepo.Create(ctx, nil, progress); cErr != nil {
			return courtroom.Snapshot{}, fmt.Errorf("failed to create progress: %w", cErr)
		}
	} else {
		if rErr := ss.progressRepo.Restart(ctx, nil, progress.ID); rErr != nil {
			return courtroom.Snapshot{}, fmt.Errorf("failed to restart progress: %w", rErr)
		}
	}

	sess := courtroom.NewSession(progress.ID, userID, engineCase, ss.model, user.OpenAIAPIKey)
	if replaced := ss.manager.Put(sess); replaced != nil {
		replaced.Abort()
	}
	if sErr := ss.scheduler.Start(sess); sErr != nil {
		return courtroom.Snapshot{}, sErr
	}
	ss.log.Info("simulation started", "session_id", sess.ID.String(), "user_id", userID.String())
	return sess.Snapshot(), nil
}

func (ss *simulationService) GetSession(ctx context.Context, sessionID uuid.UUID) (courtroom.Snapshot, error) {
	sess, err := ss.ownedSession(ctx, sessionID)
	if err != nil {
		return courtroom.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

func (ss *simulationService) SubmitTurn(ctx context.Context, sessionID uuid.UUID, message string) error {
	sess, err := ss.ownedSession(ctx, sessionID)
	if err != nil {
		return err
	}
	return ss.scheduler.Submit(sess, message)
}

func (ss *simulationService) EndSession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	sess, err := ss.ownedSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return ss.scheduler.EndNow(sess)
}

func (ss *simulationService) ownedSession(ctx context.Context, sessionID uuid.UUID) (*courtroom.Session, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	sess, ok := ss.manager.GetOwned(sessionID, userID)
	if !ok {
		return nil, fmt.Errorf("session not found")
	}
	return sess, nil
}

// courtroom.Store implementation.

func (ss *simulationService) SaveTranscript(ctx context.Context, sessionID uuid.UUID, transcript []courtroom.Turn) error {
	raw, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	timeSpent := 0
	if sess, ok := ss.manager.Get(sessionID); ok {
		timeSpent = sess.ElapsedSeconds()
	}
	return ss.progressRepo.SaveLog(ctx, nil, sessionID, datatypes.JSON(raw), timeSpent)
}

func (ss *simulationService) FinalizeSession(ctx context.Context, sessionID uuid.UUID, transcript []courtroom.Turn, score, elapsedSeconds int) error {
	raw, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	return ss.progressRepo.Complete(ctx, nil, sessionID, score, elapsedSeconds, datatypes.JSON(raw))
}

func (ss *simulationService) RecordAchievement(ctx context.Context, userID uuid.UUID, achievementType string) error {
	info, ok := courtroom.AchievementByType(achievementType)
	if !ok {
		return fmt.Errorf("unknown achievement type %q", achievementType)
	}
	return ss.achievementRepo.CreateIgnoreDuplicate(ctx, nil, &types.Achievement{
		ID:              uuid.New(),
		UserID:          userID,
		AchievementType: info.Type,
		AchievementName: info.Name,
		Description:     info.Description,
		EarnedAt:        time.Now(),
	})
}

func (ss *simulationService) CountCompletedSessions(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := ss.progressRepo.CountCompletedByUser(ctx, nil, userID)
	return int(count), err
}
