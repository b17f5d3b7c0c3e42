package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/one-system/case-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCaseCreated       EventType = "case_created"
	EventCaseStatusChanged EventType = "case_status_changed"
	EventCaseAssigned      EventType = "case_assigned"
	EventCaseEscalated     EventType = "case_escalated"
)

// Actor encapsulates actor metadata for an event. System-initiated events
// (ingestion, scheduled recomputation) carry a nil UserID.
type Actor struct {
	UserID *uuid.UUID  `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	CaseID    string      `json:"case_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CaseCreatedPayload payload.
type CaseCreatedPayload struct {
	SourceChannel   domain.SourceChannel `json:"source_channel"`
	ServiceTypeCode string               `json:"service_type_code"`
	Priority        domain.CasePriority  `json:"priority"`
	Province        *string              `json:"province,omitempty"`
}

// CaseStatusChangedPayload payload.
type CaseStatusChangedPayload struct {
	OldStatus         domain.CaseStatus `json:"old_status"`
	NewStatus         domain.CaseStatus `json:"new_status"`
	AssignedOfficerID *uuid.UUID        `json:"assigned_officer_id,omitempty"`
	ClosureReasonCode *string           `json:"closure_reason_code,omitempty"`
	Note              string            `json:"note,omitempty"`
}

// CaseAssignedPayload payload.
type CaseAssignedPayload struct {
	PrevOfficerID *uuid.UUID `json:"prev_officer_id,omitempty"`
	NewOfficerID  *uuid.UUID `json:"new_officer_id,omitempty"`
}

// CaseEscalatedPayload payload.
type CaseEscalatedPayload struct {
	Priority domain.CasePriority `json:"priority"`
	OldTier  int                 `json:"old_tier"`
	NewTier  int                 `json:"new_tier"`
}
