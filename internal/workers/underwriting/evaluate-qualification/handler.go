// internal/workers/underwriting/evaluate-qualification/handler.go
package evaluatequalification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"underwriting-workers/internal/common/database"
	"underwriting-workers/internal/common/logger"
	"underwriting-workers/internal/common/metrics"
	"underwriting-workers/internal/engine"
	"underwriting-workers/internal/engine/criteria"
	"underwriting-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "evaluate-qualification"

	criteriaCacheKey = "underwriting:criteria"
)

var (
	ErrEvaluationFailed = errors.New("EVALUATION_FAILED")
)

type Handler struct {
	config   *Config
	cache    *database.RedisClient
	registry *registry.TaskRegistry
	logger   logger.Logger
}

// NewHandler builds the evaluation handler. The cache and the registry are
// optional; when the cache is nil (or unreachable) the criteria document is
// read from its source on every job, and when the registry is nil job
// variables skip schema validation and go straight to parsing.
func NewHandler(config *Config, cache *database.RedisClient, reg *registry.TaskRegistry, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		cache:    cache,
		registry: reg,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	if err := h.validateVariables(job.Variables); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "APPLICATION_VALIDATION_FAILED").Inc()
		h.failJob(client, job, "APPLICATION_VALIDATION_FAILED", err.Error())
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "PARSE_ERROR").Inc()
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		errorCode := "EVALUATION_FAILED"
		var vErr *engine.ValidationError
		if errors.As(err, &vErr) {
			errorCode = "APPLICATION_VALIDATION_FAILED"
		} else if errors.Is(err, criteria.ErrInvalidCriteria) {
			errorCode = "CRITERIA_INVALID"
		}
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	metrics.EvaluationOutcomes.WithLabelValues(output.QualificationStatus, output.Grade).Inc()
	metrics.EvaluationScores.Observe(output.TotalScore)

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

// validateVariables checks the incoming job payload against the input schema
// declared in the task registry, when one was provided at startup.
func (h *Handler) validateVariables(variables string) error {
	if h.registry == nil {
		return nil
	}
	return h.registry.ValidateVariables(TaskType, []byte(variables))
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	crit, err := h.loadCriteria(ctx)
	if err != nil {
		return nil, err
	}

	result, err := engine.Evaluate(input.Application, crit)
	if err != nil {
		return nil, err
	}

	h.logger.Info("qualification evaluated", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"status":        string(result.Decision.Status),
		"score":         result.Scoring.TotalScore,
		"grade":         result.Scoring.Grade,
		"tier":          result.Decision.ApprovalTier,
	})

	return &Output{
		ApplicationID:       input.ApplicationID,
		QualificationStatus: string(result.Decision.Status),
		ApprovalTier:        result.Decision.ApprovalTier,
		TotalScore:          result.Scoring.TotalScore,
		Grade:               result.Scoring.Grade,
		QualificationResult: result,
	}, nil
}

// loadCriteria serves the shared criteria tables, preferring the Redis cache.
// Cache failures degrade to a direct source load; a criteria document that
// fails validation is fatal for the job regardless of where it came from.
func (h *Handler) loadCriteria(ctx context.Context) (*criteria.Criteria, error) {
	if h.cache != nil {
		data, err := h.cache.Get(ctx, criteriaCacheKey)
		if err == nil {
			crit, parseErr := criteria.FromJSON([]byte(data))
			if parseErr == nil {
				return crit, nil
			}
			h.logger.Warn("cached criteria unusable, reloading from source", map[string]interface{}{
				"error": parseErr,
			})
		}
	}

	crit, err := h.loadCriteriaFromSource()
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		doc, marshalErr := json.Marshal(crit)
		if marshalErr == nil {
			if cacheErr := h.cache.Set(ctx, criteriaCacheKey, doc, h.config.CriteriaCacheTTL); cacheErr != nil {
				h.logger.Warn("failed to cache criteria", map[string]interface{}{
					"error": cacheErr,
				})
			}
		}
	}

	return crit, nil
}

func (h *Handler) loadCriteriaFromSource() (*criteria.Criteria, error) {
	if h.config.CriteriaPath == "" {
		return criteria.Default(), nil
	}
	return criteria.Load(h.config.CriteriaPath)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// Offered for a one-off warmup at fleet start so the first job does not pay
// the file-read cost.
func (h *Handler) WarmCriteria(ctx context.Context) error {
	_, err := h.loadCriteria(ctx)
	return err
}
