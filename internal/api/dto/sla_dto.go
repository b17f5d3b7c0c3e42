package dto

import (
	"time"

	"github.com/one-system/case-service/internal/domain"
)

// SLAConfigRequest payload for updating one priority's configuration.
type SLAConfigRequest struct {
	Priority         string `json:"priority"`
	TempFixHours     int    `json:"temp_fix_hours"`
	PermanentFixDays int    `json:"permanent_fix_days"`
	OverdueT1Days    int    `json:"overdue_t1_days"`
	OverdueT2Days    int    `json:"overdue_t2_days"`
	OverdueT3Days    int    `json:"overdue_t3_days"`
	OverdueT4Days    int    `json:"overdue_t4_days"`
}

// SLAConfigResponse is one priority's configuration.
type SLAConfigResponse struct {
	Priority         domain.CasePriority `json:"priority"`
	TempFixHours     int                 `json:"temp_fix_hours"`
	PermanentFixDays int                 `json:"permanent_fix_days"`
	OverdueT1Days    int                 `json:"overdue_t1_days"`
	OverdueT2Days    int                 `json:"overdue_t2_days"`
	OverdueT3Days    int                 `json:"overdue_t3_days"`
	OverdueT4Days    int                 `json:"overdue_t4_days"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// NewSLAConfigResponse maps a config row.
func NewSLAConfigResponse(cfg *domain.SLAConfig) SLAConfigResponse {
	return SLAConfigResponse{
		Priority:         cfg.Priority,
		TempFixHours:     cfg.TempFixHours,
		PermanentFixDays: cfg.PermanentFixDays,
		OverdueT1Days:    cfg.OverdueT1Days,
		OverdueT2Days:    cfg.OverdueT2Days,
		OverdueT3Days:    cfg.OverdueT3Days,
		OverdueT4Days:    cfg.OverdueT4Days,
		UpdatedAt:        cfg.UpdatedAt,
	}
}

// SummaryRowResponse is one rollup cell.
type SummaryRowResponse struct {
	SummaryDate       string               `json:"summary_date"`
	SourceChannel     domain.SourceChannel `json:"source_channel"`
	Province          string               `json:"province"`
	DistrictOffice    string               `json:"district_office"`
	ServiceTypeCode   string               `json:"service_type_code"`
	ComplaintTypeCode string               `json:"complaint_type_code"`
	Priority          domain.CasePriority  `json:"priority"`
	Status            domain.CaseStatus    `json:"status"`
	CaseCount         int                  `json:"case_count"`
	OverdueCount      int                  `json:"overdue_count"`
	ClosedWithinSLA   int                  `json:"closed_within_sla"`
	AvgCloseHours     *float64             `json:"avg_close_hours,omitempty"`
}

// NewSummaryRowResponse maps a rollup row.
func NewSummaryRowResponse(row *domain.DailySummaryRow) SummaryRowResponse {
	return SummaryRowResponse{
		SummaryDate:       row.SummaryDate.Format("2006-01-02"),
		SourceChannel:     row.SourceChannel,
		Province:          row.Province,
		DistrictOffice:    row.DistrictOffice,
		ServiceTypeCode:   row.ServiceTypeCode,
		ComplaintTypeCode: row.ComplaintTypeCode,
		Priority:          row.Priority,
		Status:            row.Status,
		CaseCount:         row.CaseCount,
		OverdueCount:      row.OverdueCount,
		ClosedWithinSLA:   row.ClosedWithinSLA,
		AvgCloseHours:     row.AvgCloseHours,
	}
}
