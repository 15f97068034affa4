package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/config"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/logging"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/mailer"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/metrics"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/queue"
	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

const depthInterval = 30 * time.Second

func main() {
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "config.yaml"
	}
	configPath := flag.String("config", defaultPath, "path to the YAML config file")
	replayDLQ := flag.Bool("replay-dlq", false, "move dead-lettered feedback back onto the feedback queue")
	flag.Parse()

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

	// Initialize queue
	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down worker gracefully...")
		cancel()
	}()

	if *replayDLQ {
		if err := replay(ctx, q, logger); err != nil {
			logger.Fatalf("Failed to replay dead-lettered feedback: %v", err)
		}
		<-ctx.Done()
		logger.Info("Replay stopped")
		return
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.WorkerPort, q.Health)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.WithError(err).Error("Metrics server stopped")
			}
		}()
	}

	m := mailer.New(cfg.Mail, logger)

	// Feedback handler
	handler := func(ctx context.Context, fb *models.Feedback) error {
		log := logger.WithFields(map[string]interface{}{"feedback_id": fb.ID, "user_id": fb.UserID})
		if err := m.SendFeedback(ctx, fb); err != nil {
			metrics.RecordError("worker", "smtp")
			log.WithError(err).Warn("Failed to mail feedback")
			return err
		}
		log.Info("Feedback mailed")
		return nil
	}

	// Start consuming feedback
	logger.Info("Worker started, waiting for feedback...")
	if err := q.ConsumeFeedback(ctx, handler); err != nil {
		logger.Fatalf("Failed to consume feedback: %v", err)
	}

	go reportDepth(ctx, q, logger)

	// Wait for shutdown
	<-ctx.Done()

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.ErrorWithErr("Metrics server forced to shutdown", err)
		}
	}
	logger.Info("Worker stopped")
}

// replay republishes every dead-lettered message onto the feedback queue
func replay(ctx context.Context, q *queue.Queue, logger *logging.Logger) error {
	return q.ConsumeDLQ(ctx, func(fb *models.Feedback, reason string) error {
		logger.WithFields(map[string]interface{}{
			"feedback_id": fb.ID,
			"reason":      reason,
		}).Info("Replaying dead-lettered feedback")
		return q.RetryFromDLQ(ctx, fb)
	})
}

func reportDepth(ctx context.Context, q *queue.Queue, logger *logging.Logger) {
	ticker := time.NewTicker(depthInterval)
	defer ticker.Stop()

	for {
		if depth, err := q.GetQueueDepth(); err != nil {
			logger.WithError(err).Warn("Failed to inspect feedback queue")
		} else {
			metrics.SetQueueDepth(queue.FeedbackQueueName, depth)
		}
		if depth, err := q.GetDLQDepth(); err != nil {
			logger.WithError(err).Warn("Failed to inspect dead letter queue")
		} else {
			metrics.SetQueueDepth(queue.DeadLetterQueueName, depth)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
