package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jlcedu/rechtszaal-backend/internal/clients/redis"
	"github.com/jlcedu/rechtszaal-backend/internal/courtroom"
	"github.com/jlcedu/rechtszaal-backend/internal/db"
	"github.com/jlcedu/rechtszaal-backend/internal/handlers"
	"github.com/jlcedu/rechtszaal-backend/internal/logger"
	"github.com/jlcedu/rechtszaal-backend/internal/middleware"
	"github.com/jlcedu/rechtszaal-backend/internal/observability"
	"github.com/jlcedu/rechtszaal-backend/internal/repos"
	"github.com/jlcedu/rechtszaal-backend/internal/seed"
	"github.com/jlcedu/rechtszaal-backend/internal/server"
	"github.com/jlcedu/rechtszaal-backend/internal/services"
	"github.com/jlcedu/rechtszaal-backend/internal/sse"
	"github.com/jlcedu/rechtszaal-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "rechtszaal-backend",
		Environment: logMode,
	})
	defer func() {
		if otelShutdown == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	completionModel := utils.GetEnv("OPENAI_MODEL", "gpt-4o-mini", log)
	seedPath := utils.GetEnv("SEED_CASES_PATH", "configs/cases.yaml", log)
	corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")

	// Database
	databaseService, err := db.NewDatabaseService(log)
	if err != nil {
		log.Error("Database init failed", "error", err)
		os.Exit(1)
	}
	if err = databaseService.AutoMigrateAll(); err != nil {
		log.Error("Auto migration failed", "error", err)
		os.Exit(1)
	}
	theDB := databaseService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(theDB, log)
	userTokenRepo := repos.NewUserTokenRepo(theDB, log)
	legalCaseRepo := repos.NewLegalCaseRepo(theDB, log)
	caseProgressRepo := repos.NewCaseProgressRepo(theDB, log)
	achievementRepo := repos.NewAchievementRepo(theDB, log)

	// Seed
	if err := seed.Cases(ctx, log, legalCaseRepo, seedPath); err != nil {
		log.Warn("Case seeding failed", "error", err)
	}

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewSSEHub(log)
	sseBus, err := redis.NewSSEBus(log)
	if err != nil {
		log.Warn("Redis SSE bus disabled", "error", err)
		sseBus = nil
	}

	// Services
	log.Info("Setting up Services from main...")
	authService := services.NewAuthService(theDB, log, userRepo, userTokenRepo, jwtSecretKey,
		time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	userService := services.NewUserService(theDB, log, userRepo)
	caseService := services.NewCaseService(theDB, log, legalCaseRepo)
	progressService := services.NewProgressService(theDB, log, caseProgressRepo, achievementRepo)

	completionClient := services.NewCompletionClient(log)
	sessionNotifier := services.NewSessionNotifier(log, sseHub, sseBus)
	sessionManager := courtroom.NewManager()
	simulationParams := courtroom.DefaultParams()
	simulationParams.JudgeProbability = utils.GetEnvAsFloat("JUDGE_PROBABILITY", simulationParams.JudgeProbability, log)
	simulationService := services.NewSimulationService(
		theDB,
		log,
		sessionManager,
		userRepo,
		legalCaseRepo,
		caseProgressRepo,
		achievementRepo,
		completionClient,
		sessionNotifier,
		simulationParams,
		completionModel,
	)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	caseHandler := handlers.NewCaseHandler(caseService)
	simulationHandler := handlers.NewSimulationHandler(simulationService)
	progressHandler := handlers.NewProgressHandler(progressService)
	sseHandler := handlers.NewSSEHandler(log, sseHub)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	var origins []string
	if corsOrigins != "" {
		origins = strings.Split(corsOrigins, ",")
	}
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:       authHandler,
		AuthMiddleware:    authMiddleware,
		UserHandler:       userHandler,
		CaseHandler:       caseHandler,
		SimulationHandler: simulationHandler,
		ProgressHandler:   progressHandler,
		SSEHandler:        sseHandler,
		AllowedOrigins:    origins,
	})

	port := utils.GetEnv("PORT", "8080", log)
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	if sseBus != nil {
		group.Go(func() error {
			return sseBus.StartForwarder(groupCtx, sseHub.Broadcast)
		})
	}
	group.Go(func() error {
		log.Info("Server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if sseBus != nil {
			_ = sseBus.Close()
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
