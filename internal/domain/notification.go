package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app notification row for one recipient.
type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CaseID    *string
	Type      string
	Message   *string
	IsRead    bool
	CreatedAt time.Time
}
