// internal/workers/underwriting/send-offer-notification/handler.go
package sendoffernotification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"underwriting-workers/internal/common/logger"
	"underwriting-workers/internal/common/metrics"
	"underwriting-workers/internal/engine"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "send-offer-notification"
)

var (
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config    *Config
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
}

func NewHandler(config *Config, log logger.Logger) (*Handler, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(config.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Handler{
		config:    config,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
		sesClient: ses.NewFromConfig(awsCfg),
		snsClient: sns.NewFromConfig(awsCfg),
	}, nil
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
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "NOTIFICATION_SEND_FAILED").Inc()
		h.failJob(client, job, "NOTIFICATION_SEND_FAILED", err.Error())
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.QualificationResult == nil {
		return nil, fmt.Errorf("%w: missing qualification result for application %s",
			ErrNotificationSendFailed, input.ApplicationID)
	}
	result := input.QualificationResult

	notificationType := TypeApplicationDeclined
	if result.Decision.Status == engine.StatusApproved {
		notificationType = TypeOfferExtended
	}

	subject, body := h.renderMessage(notificationType, input, result)

	sentAt := time.Now().UTC().Format(time.RFC3339)
	notificationID := uuid.New().String()

	// Track what was sent
	emailSent := false
	smsSent := false

	// Send email if enabled and email exists
	if h.config.EmailEnabled && input.ApplicantEmail != "" {
		if err := h.sendEmail(ctx, input.ApplicantEmail, subject, body); err != nil {
			h.logger.Error("email send failed", map[string]interface{}{
				"error":         err,
				"applicationId": input.ApplicationID,
			})
			return &Output{NotificationID: notificationID, Status: StatusFailed, SentAt: sentAt}, nil
		}
		emailSent = true
	}

	// Send SMS only for top-tier approvals: enabled AND phone exists AND tier matches
	if h.config.SMSEnabled && input.ApplicantPhone != "" &&
		result.Decision.ApprovalTier == h.config.SMSTierThreshold {
		if err := h.sendSMS(ctx, input.ApplicantPhone, h.renderSMS(input, result)); err != nil {
			h.logger.Error("SMS send failed", map[string]interface{}{
				"error":         err,
				"applicationId": input.ApplicationID,
			})
			return &Output{NotificationID: notificationID, Status: StatusFailed, EmailSent: emailSent, SentAt: sentAt}, nil
		}
		smsSent = true
	}

	// Determine status based on what was sent
	status := StatusDisabled
	if emailSent || smsSent {
		status = StatusSent
	}

	h.logger.Info("notification processed", map[string]interface{}{
		"applicationId":    input.ApplicationID,
		"notificationType": notificationType,
		"status":           status,
		"emailSent":        emailSent,
		"smsSent":          smsSent,
	})

	return &Output{
		NotificationID: notificationID,
		Status:         status,
		EmailSent:      emailSent,
		SMSSent:        smsSent,
		SentAt:         sentAt,
	}, nil
}

func (h *Handler) renderMessage(notificationType string, input *Input, result *engine.EvaluationResult) (string, string) {
	name := input.ApplicantName
	if name == "" {
		name = input.BusinessName
	}
	if name == "" {
		name = "Applicant"
	}

	if notificationType == TypeOfferExtended && result.Offer != nil {
		subject := "Your Funding Offer Is Ready"
		var b strings.Builder
		fmt.Fprintf(&b, "Hello %s,\n\n", name)
		fmt.Fprintf(&b, "Great news! Your application %s has been approved at the %s tier.\n\n",
			input.ApplicationID, result.Decision.ApprovalTier)
		fmt.Fprintf(&b, "Advance amount: $%.2f\n", result.Offer.AdvanceAmount)
		fmt.Fprintf(&b, "Factor rate: %.3f\n", result.Offer.FactorRate)
		fmt.Fprintf(&b, "Total repayment: $%.2f\n", result.Offer.TotalRepayment)
		fmt.Fprintf(&b, "Term: %d months\n", result.Offer.TermMonths)
		fmt.Fprintf(&b, "Estimated payment: $%.2f\n", result.Offer.PeriodicPayment)
		fmt.Fprintf(&b, "Effective APR: %.2f%%\n\n", result.Offer.EffectiveAPR)
		b.WriteString("This offer is subject to final verification of your business documents.\n")
		return subject, b.String()
	}

	subject := "Update on Your Funding Application"
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	fmt.Fprintf(&b, "We have completed the review of application %s and are unable to extend an offer at this time.\n\n",
		input.ApplicationID)
	for _, reason := range result.Decision.Reasons {
		fmt.Fprintf(&b, "- %s\n", reason)
	}
	if len(result.Decision.Recommendations) > 0 {
		b.WriteString("\nWays to strengthen a future application:\n")
		for _, rec := range result.Decision.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
	}
	return subject, b.String()
}

func (h *Handler) renderSMS(input *Input, result *engine.EvaluationResult) string {
	if result.Offer == nil {
		return fmt.Sprintf("Your funding application %s has been reviewed. Check your email for details.",
			input.ApplicationID)
	}
	return fmt.Sprintf("Approved! Application %s qualifies for a $%.0f advance over %d months. Full offer in your email.",
		input.ApplicationID, result.Offer.AdvanceAmount, result.Offer.TermMonths)
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
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
