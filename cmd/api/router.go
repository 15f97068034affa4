package main

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/config"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/logging"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/middleware"
)

// Limits holds the request throttles applied by the router. Nil stores
// disable the corresponding check.
type Limits struct {
	Limiter  *middleware.RateLimiter
	Quota    middleware.DailyQuota
	Throttle middleware.WindowLimiter
	Config   config.RateLimitConfig
}

func setupRouter(api *API, limits Limits, logger *logging.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger))
	if limits.Limiter != nil {
		router.Use(middleware.RateLimit(limits.Limiter))
	}

	// Health check
	router.GET("/health", api.healthCheck)

	// Accounts
	login := []gin.HandlerFunc{}
	if limits.Throttle != nil {
		login = append(login, middleware.Throttle(limits.Throttle, "login", limits.Config.LoginAttemptsPerMinute, time.Minute, logger))
	}
	router.POST("/register", api.register)
	router.POST("/login", append(login, api.login)...)

	router.POST("/assistant", api.askAssistant)

	// Transcripts
	router.GET("/list_transcripts", api.listTranscripts)
	router.GET("/transcripts", api.transcriptSources)
	router.POST("/transcribe", api.transcribe)

	// Summaries
	summaries := router.Group("/summary", middleware.OptionalAuth())
	if limits.Quota != nil {
		summaries.Use(middleware.AnonymousQuota(limits.Quota, "summary", limits.Config.AnonymousDailySummaries, logger))
	}
	{
		summaries.POST("/english", api.summaryEnglish)
		summaries.POST("/all", api.summaryAll)
	}

	// Authenticated routes
	authed := router.Group("/", middleware.JWTAuth())
	{
		authed.POST("/profile", api.getProfile)
		authed.POST("/profile/update", api.updateProfile)
		authed.POST("/search", api.addSearch)
		authed.POST("/download", api.addDownload)
		authed.POST("/feedback", api.sendFeedback)
		authed.POST("/export", api.exportSummary)
		authed.GET("/exports", api.listExports)
		authed.DELETE("/exports", api.deleteExport)
	}

	return router
}
