package service

import (
	"context"
	"fmt"

	"github.com/garyjia/approval-letters/internal/application/dispatcher"
	"github.com/garyjia/approval-letters/internal/application/port"
	"github.com/garyjia/approval-letters/internal/domain/event"
)

// NotificationService forwards committed lifecycle events to an external notifier
type NotificationService interface {
	// HandleEvent loads the request behind evt and notifies about it
	HandleEvent(ctx context.Context, evt *event.Event) error

	// Register subscribes the service to the events it reports on
	Register(d dispatcher.Dispatcher)
}

type notificationServiceImpl struct {
	store    port.RequestStore
	notifier port.Notifier
	logger   Logger
}

// NewNotificationService creates a NotificationService
func NewNotificationService(store port.RequestStore, notifier port.Notifier, logger Logger) NotificationService {
	return &notificationServiceImpl{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.Subscribe("notifier", s.HandleEvent,
		event.TypeRequestSubmitted,
		event.TypeRequestApproved,
		event.TypeRequestFullyApproved,
		event.TypeRequestRejected,
	)
}

func (s *notificationServiceImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	req, err := s.store.GetByID(ctx, evt.RequestID)
	if err != nil {
		return fmt.Errorf("get request %s: %w", evt.RequestID, err)
	}

	if err := s.notifier.Notify(ctx, evt, req); err != nil {
		s.logger.Error("Notification failed",
			"error", err,
			"event_type", evt.Type,
			"request_id", evt.RequestID,
			"correlation_id", evt.CorrelationID,
		)
		return fmt.Errorf("notify: %w", err)
	}

	s.logger.Info("Notification sent", "event_type", evt.Type, "request_id", evt.RequestID)
	return nil
}
