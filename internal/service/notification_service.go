package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/config"
	"github.com/spec-kit/field-service/internal/events"
)

// NotificationService pushes customer-facing messages after lifecycle events.
// Dispatch is fire-and-forget: failures are logged, never surfaced to the
// caller of the transition that triggered them.
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

// RegisterHandlers subscribes to lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketFeedbackSubmitted, n.handleFeedbackSubmitted)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("TicketCreated", zap.String("ticket_number", event.TicketNumber), zap.Any("payload", payload))
	n.sendSMSStub(ctx, event, payload.CustomerPhone)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("TicketStatusChanged", zap.String("ticket_number", event.TicketNumber), zap.Any("payload", payload))
	n.sendSMSStub(ctx, event, payload.CustomerPhone)
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("TicketAssigned", zap.String("ticket_number", event.TicketNumber), zap.Any("payload", payload))
	n.sendWhatsAppStub(ctx, event, payload.CustomerPhone)
	return nil
}

func (n *NotificationService) handleFeedbackSubmitted(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketFeedbackSubmitted", zap.String("ticket_number", event.TicketNumber), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) sendSMSStub(ctx context.Context, event events.Event, recipient string) {
	if strings.TrimSpace(n.cfg.SMSSenderID) == "" || strings.TrimSpace(recipient) == "" {
		return
	}
	n.logger.Debug("sendSMSStub",
		zap.String("sender_id", n.cfg.SMSSenderID),
		zap.String("recipient", recipient),
		zap.String("ticket_number", event.TicketNumber),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWhatsAppStub(ctx context.Context, event events.Event, recipient string) {
	if strings.TrimSpace(n.cfg.WhatsAppNumber) == "" || strings.TrimSpace(recipient) == "" {
		return
	}
	n.logger.Debug("sendWhatsAppStub",
		zap.String("from", n.cfg.WhatsAppNumber),
		zap.String("recipient", recipient),
		zap.String("ticket_number", event.TicketNumber),
		zap.String("event_type", string(event.Type)))
}
