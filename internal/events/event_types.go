package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserSignedUp           EventType = "user.signed_up"
	EventOnboardingCompleted    EventType = "user.onboarding_completed"
	EventUserApproved           EventType = "user.approved"
	EventUserRejected           EventType = "user.rejected"
	EventPasswordResetRequested EventType = "auth.password_reset_requested"
	EventTokenRevoked           EventType = "auth.token_revoked"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id,omitempty"`
	ActorID   *string     `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with an id and the current time.
func NewEvent(eventType EventType, userID string, actorID *string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// UserSignedUpPayload payload.
type UserSignedUpPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// OnboardingCompletedPayload payload.
type OnboardingCompletedPayload struct {
	Email       string `json:"email"`
	Credentials int    `json:"credentials"`
}

// UserApprovedPayload payload.
type UserApprovedPayload struct {
	WorkEmail string `json:"work_email"`
	Position  string `json:"position"`
}

// UserRejectedPayload payload.
type UserRejectedPayload struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// PasswordResetRequestedPayload carries the link handed to the mailer.
type PasswordResetRequestedPayload struct {
	Email     string    `json:"email"`
	ResetURL  string    `json:"reset_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenRevokedPayload never carries the full token.
type TokenRevokedPayload struct {
	TokenPrefix string `json:"token_prefix"`
	Reason      string `json:"reason"`
}
