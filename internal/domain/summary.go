package domain

import "time"

// DailySummaryRow is one aggregated cell of the summary_cases_daily rollup.
// Tier-4 administrative closures are never counted in ClosedWithinSLA.
type DailySummaryRow struct {
	SummaryDate       time.Time
	SourceChannel     SourceChannel
	Province          string
	DistrictOffice    string
	ServiceTypeCode   string
	ComplaintTypeCode string
	Priority          CasePriority
	Status            CaseStatus
	CaseCount         int
	OverdueCount      int
	ClosedWithinSLA   int
	AvgCloseHours     *float64
}
