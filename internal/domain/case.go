package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CaseStatus enumerates lifecycle states for complaint cases.
type CaseStatus string

const (
	CaseStatusWaitingVerify CaseStatus = "WAITING_VERIFY"
	CaseStatusInProgress    CaseStatus = "IN_PROGRESS"
	CaseStatusFollowingUp   CaseStatus = "FOLLOWING_UP"
	CaseStatusPending       CaseStatus = "PENDING"
	CaseStatusDone          CaseStatus = "DONE"
	CaseStatusClose         CaseStatus = "CLOSE"
	CaseStatusRejected      CaseStatus = "REJECTED"
	CaseStatusCancelled     CaseStatus = "CANCELLED"
	CaseStatusDuplicate     CaseStatus = "DUPLICATE"
)

// IsTerminal reports whether the status ends the case lifecycle.
func (s CaseStatus) IsTerminal() bool {
	switch s {
	case CaseStatusClose, CaseStatusRejected, CaseStatusCancelled, CaseStatusDuplicate:
		return true
	}
	return false
}

// SLAApplies reports whether the SLA clock is ticking in this status.
func (s CaseStatus) SLAApplies() bool {
	switch s {
	case CaseStatusInProgress, CaseStatusFollowingUp, CaseStatusPending:
		return true
	}
	return false
}

// CasePriority enumerates SLA urgency, highest first.
type CasePriority string

const (
	CasePriorityCritical CasePriority = "CRITICAL"
	CasePriorityHigh     CasePriority = "HIGH"
	CasePriorityMedium   CasePriority = "MEDIUM"
	CasePriorityLow      CasePriority = "LOW"
)

// Priorities lists all valid priorities.
func Priorities() []CasePriority {
	return []CasePriority{CasePriorityCritical, CasePriorityHigh, CasePriorityMedium, CasePriorityLow}
}

// SourceChannel identifies where a case record originated.
type SourceChannel string

const (
	SourceChannelLine       SourceChannel = "LINE"
	SourceChannelCallCenter SourceChannel = "CALL_1146"
	SourceChannelDirect     SourceChannel = "IMS_DIRECT"
)

// Case is the canonical unit of work all downstream logic operates on.
type Case struct {
	CaseID              string
	SourceChannel       SourceChannel
	SourceSeqNo         *int
	SourceSchemaVersion string
	Status              CaseStatus
	Priority            CasePriority
	ServiceTypeCode     string
	ComplaintTypeCode   *string
	ReporterName        *string
	ContactNumber       *string
	LineUserID          *string
	HandlerName         *string
	Description         string
	Province            *string
	DistrictOffice      *string
	RoadNumber          *string
	GPSLat              *decimal.Decimal
	GPSLng              *decimal.Decimal
	ReportedAt          time.Time
	ReceivedAt          *time.Time
	SLAStartedAt        *time.Time
	ClosedAt            *time.Time
	ExpectedFixDate     *time.Time
	AssignedOfficerID   *uuid.UUID
	OverdueTier         *int
	ClosureReasonCode   *string
	Notes               *string
	DuplicateOfCaseID   *string
	RawExtra            map[string]any
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsComplaint reports whether the case carries a complaint service type,
// which makes location fields and complaint type mandatory.
func (c *Case) IsComplaint(complaintServiceTypes map[string]bool) bool {
	return complaintServiceTypes[c.ServiceTypeCode]
}
