package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/one-system/case-service/internal/domain"
)

// CreateCaseRequest payload for direct case entry.
type CreateCaseRequest struct {
	ServiceTypeCode   string           `json:"service_type_code"`
	ComplaintTypeCode string           `json:"complaint_type_code"`
	Priority          string           `json:"priority"`
	Description       string           `json:"description"`
	ReporterName      string           `json:"reporter_name"`
	ContactNumber     string           `json:"contact_number"`
	Province          string           `json:"province"`
	DistrictOffice    string           `json:"district_office"`
	RoadNumber        string           `json:"road_number"`
	GPSLat            *decimal.Decimal `json:"gps_lat"`
	GPSLng            *decimal.Decimal `json:"gps_lng"`
	ReportedAt        *time.Time       `json:"reported_at"`
	AssignedOfficerID *uuid.UUID       `json:"assigned_officer_id"`
	Notes             string           `json:"notes"`
}

// TransitionRequest payload for a status change.
type TransitionRequest struct {
	To                string     `json:"to"`
	AssigneeID        *uuid.UUID `json:"assignee_id"`
	ExpectedFixDate   *time.Time `json:"expected_fix_date"`
	DuplicateOfCaseID *string    `json:"duplicate_of_case_id"`
	Note              string     `json:"note"`
}

// AssignRequest payload for an assignment change. A nil officer unassigns.
type AssignRequest struct {
	OfficerID *uuid.UUID `json:"officer_id"`
}

// CloseTier4Request payload for administrative closure.
type CloseTier4Request struct {
	ReasonCode string `json:"reason_code"`
	Note       string `json:"note"`
}

// CaseResponse is the canonical case representation returned by the API.
type CaseResponse struct {
	CaseID            string               `json:"case_id"`
	SourceChannel     domain.SourceChannel `json:"source_channel"`
	SourceSeqNo       *int                 `json:"source_seq_no,omitempty"`
	Status            domain.CaseStatus    `json:"status"`
	Priority          domain.CasePriority  `json:"priority"`
	ServiceTypeCode   string               `json:"service_type_code"`
	ComplaintTypeCode *string              `json:"complaint_type_code,omitempty"`
	ReporterName      *string              `json:"reporter_name,omitempty"`
	ContactNumber     *string              `json:"contact_number,omitempty"`
	HandlerName       *string              `json:"handler_name,omitempty"`
	Description       string               `json:"description"`
	Province          *string              `json:"province,omitempty"`
	DistrictOffice    *string              `json:"district_office,omitempty"`
	RoadNumber        *string              `json:"road_number,omitempty"`
	GPSLat            *decimal.Decimal     `json:"gps_lat,omitempty"`
	GPSLng            *decimal.Decimal     `json:"gps_lng,omitempty"`
	ReportedAt        time.Time            `json:"reported_at"`
	ReceivedAt        *time.Time           `json:"received_at,omitempty"`
	SLAStartedAt      *time.Time           `json:"sla_started_at,omitempty"`
	ClosedAt          *time.Time           `json:"closed_at,omitempty"`
	ExpectedFixDate   *time.Time           `json:"expected_fix_date,omitempty"`
	AssignedOfficerID *uuid.UUID           `json:"assigned_officer_id,omitempty"`
	OverdueTier       *int                 `json:"overdue_tier,omitempty"`
	ClosureReasonCode *string              `json:"closure_reason_code,omitempty"`
	Notes             *string              `json:"notes,omitempty"`
	DuplicateOfCaseID *string              `json:"duplicate_of_case_id,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// HistoryEntryResponse is one audit-trail row.
type HistoryEntryResponse struct {
	ID                  uuid.UUID          `json:"id"`
	ChangedByUserID     *uuid.UUID         `json:"changed_by_user_id,omitempty"`
	ChangedAt           time.Time          `json:"changed_at"`
	PrevStatus          *domain.CaseStatus `json:"prev_status,omitempty"`
	NewStatus           *domain.CaseStatus `json:"new_status,omitempty"`
	PrevAssignedOfficer *uuid.UUID         `json:"prev_assigned_officer,omitempty"`
	NewAssignedOfficer  *uuid.UUID         `json:"new_assigned_officer,omitempty"`
	ChangeNotes         *string            `json:"change_notes,omitempty"`
}

// NewCaseResponse maps a domain case to its API shape.
func NewCaseResponse(c *domain.Case) CaseResponse {
	return CaseResponse{
		CaseID:            c.CaseID,
		SourceChannel:     c.SourceChannel,
		SourceSeqNo:       c.SourceSeqNo,
		Status:            c.Status,
		Priority:          c.Priority,
		ServiceTypeCode:   c.ServiceTypeCode,
		ComplaintTypeCode: c.ComplaintTypeCode,
		ReporterName:      c.ReporterName,
		ContactNumber:     c.ContactNumber,
		HandlerName:       c.HandlerName,
		Description:       c.Description,
		Province:          c.Province,
		DistrictOffice:    c.DistrictOffice,
		RoadNumber:        c.RoadNumber,
		GPSLat:            c.GPSLat,
		GPSLng:            c.GPSLng,
		ReportedAt:        c.ReportedAt,
		ReceivedAt:        c.ReceivedAt,
		SLAStartedAt:      c.SLAStartedAt,
		ClosedAt:          c.ClosedAt,
		ExpectedFixDate:   c.ExpectedFixDate,
		AssignedOfficerID: c.AssignedOfficerID,
		OverdueTier:       c.OverdueTier,
		ClosureReasonCode: c.ClosureReasonCode,
		Notes:             c.Notes,
		DuplicateOfCaseID: c.DuplicateOfCaseID,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

// NewHistoryEntryResponse maps one history row.
func NewHistoryEntryResponse(h *domain.CaseHistory) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:                  h.ID,
		ChangedByUserID:     h.ChangedByUserID,
		ChangedAt:           h.ChangedAt,
		PrevStatus:          h.PrevStatus,
		NewStatus:           h.NewStatus,
		PrevAssignedOfficer: h.PrevAssignedOfficer,
		NewAssignedOfficer:  h.NewAssignedOfficer,
		ChangeNotes:         h.ChangeNotes,
	}
}
