package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeApplicationSubmitted = "application.submitted"
)

type ApplicationSubmittedEvent struct {
	BaseEvent
	ApplicationID     string    `json:"application_id"`
	ApplicationNumber string    `json:"application_number"`
	UserID            string    `json:"user_id"`
	Amount            int64     `json:"amount"`
	SubmittedAt       time.Time `json:"submitted_at"`
}

func NewApplicationSubmittedEvent(applicationID, applicationNumber, userID string, amount int64, submittedAt time.Time) *ApplicationSubmittedEvent {
	return &ApplicationSubmittedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeApplicationSubmitted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"application_id":     applicationID,
				"application_number": applicationNumber,
				"user_id":            userID,
				"amount":             amount,
				"submitted_at":       submittedAt,
			},
		},
		ApplicationID:     applicationID,
		ApplicationNumber: applicationNumber,
		UserID:            userID,
		Amount:            amount,
		SubmittedAt:       submittedAt,
	}
}
