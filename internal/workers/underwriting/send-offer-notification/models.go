// internal/workers/underwriting/send-offer-notification/models.go
package sendoffernotification

import "underwriting-workers/internal/engine"

type Input struct {
	ApplicationID       string                   `json:"applicationId"`
	BusinessName        string                   `json:"businessName,omitempty"`
	ApplicantName       string                   `json:"applicantName,omitempty"`
	ApplicantEmail      string                   `json:"applicantEmail"`
	ApplicantPhone      string                   `json:"applicantPhone,omitempty"`
	QualificationResult *engine.EvaluationResult `json:"qualificationResult"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // "sent", "failed", "disabled"
	EmailSent      bool   `json:"emailSent"`
	SMSSent        bool   `json:"smsSent"`
	SentAt         string `json:"sentAt"` // ISO 8601
}

// Notification types
const (
	TypeOfferExtended       = "offer_extended"
	TypeApplicationDeclined = "application_declined"
)

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)
