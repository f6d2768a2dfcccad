package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jlcedu/rechtszaal-backend/internal/handlers"
	"github.com/jlcedu/rechtszaal-backend/internal/middleware"
	"github.com/jlcedu/rechtszaal-backend/internal/types"
)

type RouterConfig struct {
	AuthHandler       *handlers.AuthHandler
	AuthMiddleware    *middleware.AuthMiddleware
	UserHandler       *handlers.UserHandler
	CaseHandler       *handlers.CaseHandler
	SimulationHandler *handlers.SimulationHandler
	ProgressHandler   *handlers.ProgressHandler
	SSEHandler        *handlers.SSEHandler

	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("rechtszaal-backend"))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:80", "http://localhost:3000", "http://localhost:5174"}
	}
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/register", cfg.AuthHandler.Register)
		api.POST("/login", cfg.AuthHandler.Login)
	}

	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)
	// User
	protected.GET("/user", cfg.UserHandler.GetMe)
	protected.PUT("/user/openai-key", cfg.UserHandler.UpdateOpenAIKey)
	// Cases
	protected.GET("/cases", cfg.CaseHandler.List)
	protected.GET("/cases/:id", cfg.CaseHandler.Get)
	// Simulation
	protected.POST("/cases/:id/start", cfg.SimulationHandler.Start)
	protected.GET("/simulation/:id", cfg.SimulationHandler.Get)
	protected.POST("/simulation/:id/message", cfg.SimulationHandler.Submit)
	protected.POST("/simulation/:id/end", cfg.SimulationHandler.End)
	// Progress
	protected.GET("/progress", cfg.ProgressHandler.List)
	protected.GET("/progress/stats", cfg.ProgressHandler.Stats)
	protected.GET("/achievements", cfg.ProgressHandler.Achievements)
	// SSE
	protected.GET("/sse/stream", cfg.SSEHandler.Stream)
	protected.POST("/sse/subscribe", cfg.SSEHandler.Subscribe)
	protected.POST("/sse/unsubscribe", cfg.SSEHandler.Unsubscribe)

	// Case management for teachers
	manage := protected.Group("/")
	manage.Use(cfg.AuthMiddleware.RequireRole(types.RoleTeacher, types.RoleAdmin))
	manage.POST("/cases", cfg.CaseHandler.Create)
	manage.PUT("/cases/:id", cfg.CaseHandler.Update)
	manage.DELETE("/cases/:id", cfg.CaseHandler.Deactivate)

	return router
}
