// internal/workers/underwriting/record-decision/handler.go
package recorddecision

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"underwriting-workers/internal/common/logger"
	"underwriting-workers/internal/common/metrics"
	"underwriting-workers/internal/engine"
	"underwriting-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "record-decision"
)

var (
	ErrDatabaseInsertFailed = errors.New("DATABASE_INSERT_FAILED")
	ErrDuplicateApplication = errors.New("DUPLICATE_APPLICATION")
)

// DecisionIndexer mirrors database.ElasticsearchClient for mocking.
type DecisionIndexer interface {
	IndexDocument(ctx context.Context, index, docID string, body []byte) error
}

type Handler struct {
	config  *Config
	db      *sql.DB
	indexer DecisionIndexer
	logger  logger.Logger
}

func NewHandler(config *Config, db *sql.DB, indexer DecisionIndexer, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		db:      db,
		indexer: indexer,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
		errorCode := "UNKNOWN_ERROR"
		if errors.Is(err, ErrDatabaseInsertFailed) {
			errorCode = "DATABASE_INSERT_FAILED"
		} else if errors.Is(err, ErrDuplicateApplication) {
			errorCode = "DUPLICATE_APPLICATION"
		}
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()
		h.failJob(client, job, errorCode, err.Error())
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.QualificationResult == nil {
		return nil, fmt.Errorf("%w: missing qualification result for application %s",
			ErrDatabaseInsertFailed, input.ApplicationID)
	}
	result := input.QualificationResult

	// One decision per application per engine version.
	var exists bool
	err := h.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM underwriting_decisions
			WHERE application_id = $1 AND engine_version = $2
		)`, input.ApplicationID, result.EngineVersion).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("%w: duplicate check failed: %v", ErrDatabaseInsertFailed, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: decision already recorded for application %s",
			ErrDuplicateApplication, input.ApplicationID)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal qualification result: %v", ErrDatabaseInsertFailed, err)
	}

	audit := models.DecisionAudit{
		ID:              uuid.New().String(),
		ApplicationID:   input.ApplicationID,
		Status:          string(result.Decision.Status),
		TotalScore:      result.Scoring.TotalScore,
		Grade:           result.Scoring.Grade,
		ApprovalTier:    result.Decision.ApprovalTier,
		ConfidenceLevel: result.Decision.ConfidenceLevel,
		EngineVersion:   result.EngineVersion,
		ResultPayload:   string(resultJSON),
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
	}
	if result.Offer != nil {
		audit.AdvanceAmount = result.Offer.AdvanceAmount
		audit.FactorRate = result.Offer.FactorRate
		audit.TermMonths = result.Offer.TermMonths
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO underwriting_decisions (
			id, application_id, status, total_score, grade, approval_tier,
			confidence_level, advance_amount, factor_rate, term_months,
			engine_version, result_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		audit.ID,
		audit.ApplicationID,
		audit.Status,
		audit.TotalScore,
		audit.Grade,
		audit.ApprovalTier,
		audit.ConfidenceLevel,
		audit.AdvanceAmount,
		audit.FactorRate,
		audit.TermMonths,
		audit.EngineVersion,
		audit.ResultPayload,
		audit.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: insert failed: %v", ErrDatabaseInsertFailed, err)
	}

	// Search index is best effort; Postgres stays the source of truth.
	if h.indexer != nil {
		doc, err := json.Marshal(h.buildIndexDocument(&audit, result))
		if err == nil {
			err = h.indexer.IndexDocument(ctx, h.config.DecisionIndex, audit.ID, doc)
		}
		if err != nil {
			h.logger.Warn("decision index write failed", map[string]interface{}{
				"error":      err,
				"decisionId": audit.ID,
			})
		}
	}

	h.logger.Info("decision recorded", map[string]interface{}{
		"decisionId":    audit.ID,
		"applicationId": audit.ApplicationID,
		"status":        audit.Status,
		"score":         audit.TotalScore,
	})

	return &Output{
		DecisionID: audit.ID,
		RecordedAt: audit.CreatedAt,
	}, nil
}

func (h *Handler) buildIndexDocument(audit *models.DecisionAudit, result *engine.EvaluationResult) map[string]interface{} {
	doc := map[string]interface{}{
		"decisionId":      audit.ID,
		"applicationId":   audit.ApplicationID,
		"status":          audit.Status,
		"totalScore":      audit.TotalScore,
		"grade":           audit.Grade,
		"approvalTier":    audit.ApprovalTier,
		"confidenceLevel": audit.ConfidenceLevel,
		"industry":        result.Profile.Industry,
		"engineVersion":   audit.EngineVersion,
		"recordedAt":      audit.CreatedAt,
	}
	if result.Offer != nil {
		doc["advanceAmount"] = result.Offer.AdvanceAmount
		doc["factorRate"] = result.Offer.FactorRate
		doc["termMonths"] = result.Offer.TermMonths
		doc["effectiveApr"] = result.Offer.EffectiveAPR
	}
	return doc
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
