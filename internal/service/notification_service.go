package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/one-system/case-service/internal/config"
	"github.com/one-system/case-service/internal/domain"
	"github.com/one-system/case-service/internal/events"
	"github.com/one-system/case-service/internal/repository"
)

// NotificationService turns lifecycle events into in-app notification rows
// and queues them for external delivery. It subscribes to the dispatcher;
// producers never call it directly.
type NotificationService struct {
	notifications repository.NotificationRepository
	redis         *redis.Client
	cfg           config.NotificationConfig
	logger        *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(notifications repository.NotificationRepository, rdb *redis.Client, cfg config.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{notifications: notifications, redis: rdb, cfg: cfg, logger: logger}
}

// Register subscribes the service to the events it delivers.
func (s *NotificationService) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventCaseAssigned, s.onAssigned)
	dispatcher.Subscribe(events.EventCaseStatusChanged, s.onStatusChanged)
	dispatcher.Subscribe(events.EventCaseEscalated, s.onEscalated)
}

func (s *NotificationService) onAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CaseAssignedPayload)
	if !ok || payload.NewOfficerID == nil {
		return nil
	}
	msg := fmt.Sprintf("case %s was assigned to you", event.CaseID)
	s.deliver(ctx, &domain.Notification{
		UserID:  *payload.NewOfficerID,
		CaseID:  &event.CaseID,
		Type:    string(events.EventCaseAssigned),
		Message: &msg,
	}, event)
	return nil
}

func (s *NotificationService) onStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CaseStatusChangedPayload)
	if !ok || payload.AssignedOfficerID == nil {
		return nil
	}
	// The actor already knows; notify the assigned officer when someone else
	// moved their case.
	if event.Actor.UserID != nil && *event.Actor.UserID == *payload.AssignedOfficerID {
		return nil
	}
	msg := fmt.Sprintf("case %s moved from %s to %s", event.CaseID, payload.OldStatus, payload.NewStatus)
	s.deliver(ctx, &domain.Notification{
		UserID:  *payload.AssignedOfficerID,
		CaseID:  &event.CaseID,
		Type:    string(events.EventCaseStatusChanged),
		Message: &msg,
	}, event)
	return nil
}

func (s *NotificationService) onEscalated(ctx context.Context, event events.Event) error {
	// Escalations always go to the delivery queue so the external channel can
	// fan them out to supervisors; the in-app row needs an assignee.
	s.enqueue(ctx, event)
	return nil
}

func (s *NotificationService) deliver(ctx context.Context, n *domain.Notification, event events.Event) {
	if err := s.notifications.Create(ctx, n); err != nil {
		s.logger.Warn("failed to store notification",
			zap.String("case_id", event.CaseID), zap.Error(err))
	}
	s.enqueue(ctx, event)
}

// enqueue pushes the raw event onto the Redis delivery queue. Queue failures
// are logged and dropped; notification delivery is best-effort and must not
// fail the originating transition.
func (s *NotificationService) enqueue(ctx context.Context, event events.Event) {
	if s.redis == nil || s.cfg.QueueKey == "" {
		return
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.redis.LPush(ctx, s.cfg.QueueKey, raw).Err(); err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("case_id", event.CaseID), zap.Error(err))
	}
}
