package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/access-portal/internal/config"
	"github.com/spec-kit/access-portal/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestSubmitted, n.handleRequestSubmitted)
	n.dispatcher.Subscribe(events.EventRequestApproved, n.handleRequestApproved)
	n.dispatcher.Subscribe(events.EventAllocationChanged, n.handleAllocationChanged)
}

func (n *NotificationService) handleRequestSubmitted(ctx context.Context, event events.Event) error {
	n.logger.Info("RequestSubmitted", zap.String("request_id", event.RequestID), zap.String("identifier", event.Identifier), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleRequestApproved(ctx context.Context, event events.Event) error {
	n.logger.Info("RequestApproved", zap.String("request_id", event.RequestID), zap.String("identifier", event.Identifier), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAllocationChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("AllocationChanged", zap.String("request_id", event.RequestID), zap.String("identifier", event.Identifier), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// sendEmailNotificationStub logs where a real deployment would send mail.
func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	n.logger.Debug("email notification stub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("identifier", event.Identifier),
		zap.String("event", string(event.Type)),
	)
}

// sendWebhookNotificationStub logs where a real deployment would POST.
func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if n.cfg.WebhookURL == "" {
		return
	}
	n.logger.Debug("webhook notification stub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("event", string(event.Type)),
	)
}
