package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-service/internal/events"
)

// AuditService records auth lifecycle events in the structured log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventAccountRegistered, a.handleEvent)
	a.dispatcher.Subscribe(events.EventAccountLoggedIn, a.handleEvent)
	a.dispatcher.Subscribe(events.EventTokenRefreshed, a.handleEvent)
	a.dispatcher.Subscribe(events.EventSessionRevoked, a.handleEvent)
}

func (a *AuditService) handleEvent(ctx context.Context, event events.Event) error {
	a.logger.Info("auth event",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("account_id", event.AccountID),
		zap.Time("occurred_at", event.OccurredAt))
	return nil
}
