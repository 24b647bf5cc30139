// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"underwriting-workers/internal/common/camunda"
	"underwriting-workers/internal/common/config"
	"underwriting-workers/internal/common/database"
	"underwriting-workers/internal/common/logger"
	"underwriting-workers/internal/common/observability"
	"underwriting-workers/internal/engine/criteria"
	"underwriting-workers/pkg/registry"

	// Underwriting Workers (4)
	eq "underwriting-workers/internal/workers/underwriting/evaluate-qualification"
	gn "underwriting-workers/internal/workers/underwriting/generate-narrative"
	rd "underwriting-workers/internal/workers/underwriting/record-decision"
	son "underwriting-workers/internal/workers/underwriting/send-offer-notification"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console")
		fallback.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Validate Task Registry ---
	var reg *registry.TaskRegistry
	if cfg.Underwriting.TaskRegistryPath != "" {
		var err error
		reg, err = registry.Load(cfg.Underwriting.TaskRegistryPath)
		if err != nil {
			zapLog.Fatal("task registry load failed", zap.Error(err))
		}
		if err := reg.Validate(); err != nil {
			zapLog.Fatal("task registry validation failed", zap.Error(err))
		}
		zapLog.Info("Task registry validated", zap.Int("tasks", len(reg.Tasks)))
	}

	// --- Init Zeebe Client with retry ---
	var camundaClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camundaClient, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zeebeClient := camundaClient.GetClient()
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		// Test the connection
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- START: Register ALL 4 Workers ---
	fleet := camunda.NewFleet(zeebeClient, zapLog)

	// Evaluate Qualification
	evalHandler := eq.NewHandler(
		&eq.Config{
			CriteriaPath:     cfg.Underwriting.CriteriaPath,
			CriteriaCacheTTL: config.GetDuration(cfg.Underwriting.CriteriaCacheTTL),
			Timeout:          config.GetDuration(config.GetWorkerConfig(cfg, eq.TaskType).Timeout),
		},
		redis, reg, log,
	)

	// An unloadable criteria document would fail every job identically, so
	// refuse to start instead.
	if err := evalHandler.WarmCriteria(ctx); err != nil {
		if errors.Is(err, criteria.ErrInvalidCriteria) {
			zapLog.Fatal("criteria document invalid", zap.Error(err))
		}
		zapLog.Warn("criteria warm-up failed, workers will retry per job", zap.Error(err))
	}

	if config.IsWorkerEnabled(cfg, eq.TaskType) {
		startWorker(fleet, eq.TaskType, config.GetWorkerConfig(cfg, eq.TaskType), evalHandler.Handle, zapLog)
	}

	// Record Decision
	if config.IsWorkerEnabled(cfg, rd.TaskType) {
		handler := rd.NewHandler(
			&rd.Config{
				DecisionIndex: cfg.Database.Elasticsearch.DecisionIndex,
				Timeout:       config.GetDuration(config.GetWorkerConfig(cfg, rd.TaskType).Timeout),
			},
			pg.GetDB(), esClient, log,
		)
		startWorker(fleet, rd.TaskType, config.GetWorkerConfig(cfg, rd.TaskType), handler.Handle, zapLog)
	}

	// Send Offer Notification
	if config.IsWorkerEnabled(cfg, son.TaskType) {
		handler, err := son.NewHandler(
			&son.Config{
				EmailEnabled:     cfg.Notifications.Email.Enabled,
				SMSEnabled:       cfg.Notifications.SMS.Enabled,
				FromEmail:        cfg.Notifications.Email.FromEmail,
				AWSRegion:        cfg.Notifications.AWS.Region,
				SMSTierThreshold: cfg.Notifications.SMS.TierThreshold,
				Timeout:          config.GetDuration(config.GetWorkerConfig(cfg, son.TaskType).Timeout),
			},
			log,
		)
		if err != nil {
			zapLog.Fatal("failed to create send-offer-notification handler", zap.Error(err))
		}
		startWorker(fleet, son.TaskType, config.GetWorkerConfig(cfg, son.TaskType), handler.Handle, zapLog)
	}

	// Generate Narrative
	if config.IsWorkerEnabled(cfg, gn.TaskType) {
		handler := gn.NewHandler(
			&gn.Config{
				GenAIBaseURL: cfg.APIs.GenAI.BaseURL,
				APIKey:       cfg.APIs.GenAI.APIKey,
				Timeout:      config.GetDuration(cfg.APIs.GenAI.Timeout),
				MaxRetries:   2,
				MaxTokens:    400,
				Temperature:  0.3,
			},
			log,
		)
		startWorker(fleet, gn.TaskType, config.GetWorkerConfig(cfg, gn.TaskType), handler.Handle, zapLog)
	}

	zapLog.Info("All underwriting workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	fleet.Close()

	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(fleet *camunda.Fleet, taskType string, wcfg config.WorkerConfig, handlerFunc camunda.HandlerFunc, log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	fleet.Register(taskType, wcfg.MaxJobsActive, wcfg.Timeout, handlerFunc)
}
