package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/assistant"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/cache"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/captions"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/config"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/database"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/export"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/logging"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/media"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/metrics"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/middleware"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/queue"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/storage"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/summarizer"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/summary"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/tracing"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/transcription"
)

func main() {
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "config.yaml"
	}
	configPath := flag.String("config", defaultPath, "path to the YAML config file")
	initConfig := flag.Bool("init-config", false, "write a config file with default values and exit")
	flag.Parse()

	if *initConfig {
		if err := config.WriteDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote default config to %s\n", *configPath)
		return
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	config.Watch(func(updated *config.Config, e fsnotify.Event) {
		logger.SetLevel(updated.Logging.Level)
		logger.WithField("file", e.Name).Info("Configuration reloaded")
	})

	tracer, err := tracing.Init(cfg.Tracing)
	if err != nil {
		logger.WithError(err).Warn("Tracing disabled")
	} else {
		defer tracer.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics server
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.WithError(err).Error("Metrics server stopped")
			}
		}()
	}

	// Initialize JWT secret from config
	middleware.SetJWTSecret(cfg.Auth.JWTSecret)

	// Accounts
	accounts, closeAccounts, err := openAccountStore(cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to open account store: %v", err)
	}
	defer closeAccounts()

	if err := accounts.Migrate(ctx); err != nil {
		logger.Fatalf("Failed to migrate account store: %v", err)
	}

	// Initialize cache
	redisCache, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisCache.Close()

	// Initialize storage
	stor, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize queue
	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	// Transcription pipeline
	exec := media.NewExecutor()
	ytdlp := media.NewYtDlp(exec, cfg.Media.YtDlpPath)
	ffmpeg := media.NewFFmpeg(exec, cfg.Media.FFmpegPath, cfg.Media.FFprobePath)
	whisper := media.NewWhisper(exec, cfg.Media.WhisperPath, cfg.Media.WhisperModel, cfg.Media.WhisperThreads, "auto")
	speech := transcription.NewSpeechFallback(ytdlp, ffmpeg, whisper, cfg.Transcription.TempDir, cfg.Transcription.SampleRate, logger)

	var gen assistant.Generator
	if cfg.Assistant.APIKey != "" {
		gemini, err := assistant.NewGemini(ctx, cfg.Assistant.APIKey)
		if err != nil {
			logger.WithError(err).Warn("Assistant disabled")
		} else {
			gen = gemini
		}
	}

	var coref transcription.Coreferencer
	if cfg.Transcription.EnableCoreference && gen != nil {
		coref = assistant.NewCoreference(gen, cfg.Assistant.CoreferenceModel)
	}

	var segmenter transcription.Segmenter
	if punkt, err := transcription.NewPunktSegmenter(); err != nil {
		logger.WithError(err).Warn("Sentence segmentation disabled")
	} else {
		segmenter = punkt
	}

	normalizer := transcription.NewNormalizer(segmenter, coref, logger)
	transcriber := transcription.NewTranscriber(captions.NewYouTube(cfg.Captions), normalizer, speech, logger)

	summaries := summary.NewService(ytdlp, transcriber, summarizer.NewClient(cfg.Summarizer), summary.Options{
		MaxDurationSeconds: cfg.Transcription.MaxDurationSeconds,
		DefaultLanguages:   cfg.Transcription.DefaultLanguages,
		DefaultSentences:   cfg.Summarizer.DefaultSentences,
	}, logger)

	api := &API{
		accounts:    accounts,
		transcripts: transcriber,
		summaries:   summaries,
		assistant:   assistant.New(gen, cfg.Assistant.Model, redisCache, cfg.Assistant.CacheTTL, logger),
		feedback:    q,
		exporter:    export.NewExporter(stor, logger),
		health: map[string]HealthCheck{
			"database": accounts.Health,
			"redis":    redisCache.Ping,
			"storage":  stor.Health,
			"queue":    q.Health,
		},
		languages: cfg.Transcription.DefaultLanguages,
		tokenTTL:  cfg.Auth.TokenTTL,
		logger:    logger,
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go limiter.Cleanup(ctx)

	// Setup router
	router := setupRouter(api, Limits{
		Limiter:  limiter,
		Quota:    redisCache,
		Throttle: redisCache,
		Config:   cfg.RateLimit,
	}, logger)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithErr("Server forced to shutdown", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.ErrorWithErr("Metrics server forced to shutdown", err)
		}
	}

	logger.Info("Server stopped")
}

// openAccountStore opens the configured account backend and returns a
// function that releases it
func openAccountStore(cfg config.DatabaseConfig, logger *logging.Logger) (database.AccountStore, func(), error) {
	switch cfg.Driver {
	case "sqlite":
		repo, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil
	case "", "postgres":
		db, err := database.New(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return database.NewRepository(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

