// internal/workers/underwriting/generate-narrative/handler.go
package generatenarrative

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	commonhttp "underwriting-workers/internal/common/http"
	"underwriting-workers/internal/common/logger"
	"underwriting-workers/internal/common/metrics"
	"underwriting-workers/internal/engine"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "generate-narrative"
)

var (
	ErrNarrativeFailed  = errors.New("NARRATIVE_FAILED")
	ErrNarrativeTimeout = errors.New("NARRATIVE_TIMEOUT")
)

type Handler struct {
	config *Config
	client *commonhttp.Client
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		// Backstop timeout only; the per-job context bounds each call.
		client: commonhttp.NewClient(0),
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "NARRATIVE_FAILED").Inc()
		h.failJob(client, job, "NARRATIVE_FAILED", err.Error())
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

// execute never fails on GenAI problems. The narrative is decorative, so any
// upstream error degrades to the deterministic template text.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.QualificationResult == nil {
		return nil, fmt.Errorf("%w: missing qualification result for application %s",
			ErrNarrativeFailed, input.ApplicationID)
	}
	result := input.QualificationResult

	generatedAt := time.Now().UTC().Format(time.RFC3339)

	narrative, err := h.generateNarrative(ctx, input, result)
	if err != nil {
		h.logger.Warn("narrative generation degraded to template", map[string]interface{}{
			"error":         err,
			"applicationId": input.ApplicationID,
		})
		return &Output{
			ApplicationID:   input.ApplicationID,
			Narrative:       buildTemplateNarrative(input, result),
			NarrativeSource: SourceTemplate,
			GeneratedAt:     generatedAt,
		}, nil
	}

	return &Output{
		ApplicationID:   input.ApplicationID,
		Narrative:       narrative,
		NarrativeSource: SourceGenerated,
		GeneratedAt:     generatedAt,
	}, nil
}

func (h *Handler) generateNarrative(ctx context.Context, input *Input, result *engine.EvaluationResult) (string, error) {
	if h.config.GenAIBaseURL == "" {
		return "", fmt.Errorf("%w: no GenAI endpoint configured", ErrNarrativeFailed)
	}

	requestBody := map[string]interface{}{
		"prompt":      h.buildPrompt(input, result),
		"max_tokens":  h.config.MaxTokens,
		"temperature": h.config.Temperature,
	}
	body, _ := json.Marshal(requestBody)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrNarrativeTimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", h.config.GenAIBaseURL+"/api/ai/generate", bytes.NewBuffer(body))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNarrativeFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if h.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+h.config.APIKey)
		}

		resp, lastErr = h.client.Do(req)
		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}

		if ctx.Err() != nil {
			return "", ErrNarrativeTimeout
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrNarrativeTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrNarrativeFailed, lastErr)
	}
	if resp == nil {
		return "", fmt.Errorf("%w: no successful response after retries", ErrNarrativeFailed)
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrNarrativeFailed, err)
	}
	if strings.TrimSpace(apiResponse.Text) == "" {
		return "", fmt.Errorf("%w: empty narrative returned", ErrNarrativeFailed)
	}

	return strings.TrimSpace(apiResponse.Text), nil
}

func (h *Handler) buildPrompt(input *Input, result *engine.EvaluationResult) string {
	var parts []string

	parts = append(parts, "You are an underwriting analyst. Write a short plain-language summary of this merchant cash advance decision for the applicant. Use ONLY the facts below; do not invent numbers.")
	if input.BusinessName != "" {
		parts = append(parts, fmt.Sprintf("\nBusiness: %s", input.BusinessName))
	}
	parts = append(parts, fmt.Sprintf("Decision: %s", result.Decision.Status))
	parts = append(parts, fmt.Sprintf("Qualification score: %.1f/100 (Grade %s)", result.Scoring.TotalScore, result.Scoring.Grade))
	if result.Decision.ApprovalTier != "" {
		parts = append(parts, fmt.Sprintf("Approval tier: %s", result.Decision.ApprovalTier))
	}
	for _, reason := range result.Decision.Reasons {
		parts = append(parts, fmt.Sprintf("- %s", reason))
	}
	if result.Offer != nil {
		offerJSON, _ := json.MarshalIndent(result.Offer, "", "  ")
		parts = append(parts, "\nOffer terms:")
		parts = append(parts, string(offerJSON))
	}

	return strings.Join(parts, "\n")
}

// buildTemplateNarrative is the deterministic fallback used whenever the
// GenAI service is unavailable.
func buildTemplateNarrative(input *Input, result *engine.EvaluationResult) string {
	subject := "The application"
	if input.BusinessName != "" {
		subject = input.BusinessName
	}

	var b strings.Builder
	if result.Decision.Status == engine.StatusApproved {
		fmt.Fprintf(&b, "%s was approved with a qualification score of %.1f/100 (Grade %s) at the %s tier.",
			subject, result.Scoring.TotalScore, result.Scoring.Grade, result.Decision.ApprovalTier)
		if result.Offer != nil {
			fmt.Fprintf(&b, " The approved advance is $%.2f at a %.3f factor rate over %d months, for a total repayment of $%.2f.",
				result.Offer.AdvanceAmount, result.Offer.FactorRate, result.Offer.TermMonths, result.Offer.TotalRepayment)
		}
	} else {
		fmt.Fprintf(&b, "%s was declined with a qualification score of %.1f/100 (Grade %s).",
			subject, result.Scoring.TotalScore, result.Scoring.Grade)
		if len(result.Decision.Reasons) > 0 {
			fmt.Fprintf(&b, " Primary reason: %s.", strings.TrimSuffix(result.Decision.Reasons[0], "."))
		}
	}
	return b.String()
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
