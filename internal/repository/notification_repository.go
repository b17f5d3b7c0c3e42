package repository

import (
	"context"

	"github.com/one-system/case-service/internal/domain"
)

// NotificationRepository persists in-app notification rows.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
}

type notificationRepository struct {
	db DBTX
}

// NewNotificationRepository instantiates the repository.
func NewNotificationRepository(db DBTX) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, case_id, type, message)
        VALUES ($1,$2,$3,$4)
        RETURNING id, is_read, created_at`
	return r.db.QueryRow(ctx, query, n.UserID, n.CaseID, n.Type, n.Message).
		Scan(&n.ID, &n.IsRead, &n.CreatedAt)
}
