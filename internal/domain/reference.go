package domain

import (
	"time"

	"github.com/google/uuid"
)

// ServiceType is a reference row describing a service classification.
type ServiceType struct {
	Code        string
	Label       string
	Channel     *SourceChannel
	IsComplaint bool
}

// ComplaintType is a reference row for complaint sub-classification.
type ComplaintType struct {
	Code  string
	Label string
}

// ClosureReason is a fixed administrative closure reason.
// RequiresNote marks catch-all reasons that demand a free-text note.
type ClosureReason struct {
	Code         string
	Label        string
	LabelTH      string
	RequiresNote bool
}

// HandlerMapping maps a free-text source handler name to a resolved user.
// UserID stays nil while the name is unresolved; resolution is re-attempted
// on every ingestion run.
type HandlerMapping struct {
	ID          uuid.UUID
	DisplayName string
	UserID      *uuid.UUID
	IsActive    bool
	CreatedAt   time.Time
}
