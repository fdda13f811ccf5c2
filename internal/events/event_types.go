package events

import (
	"time"

	"github.com/spec-kit/storefront-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered EventType = "account_registered"
	EventAccountLoggedIn   EventType = "account_logged_in"
	EventTokenRefreshed    EventType = "token_refreshed"
	EventSessionRevoked    EventType = "session_revoked"
)

// Event represents an auth lifecycle event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	AccountID  string      `json:"account_id"`
	Email      string      `json:"email,omitempty"`
	Role       domain.Role `json:"role,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}
