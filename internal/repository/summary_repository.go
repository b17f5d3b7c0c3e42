package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/one-system/case-service/internal/domain"
)

// SummaryRepository maintains the summary_cases_daily rollup.
type SummaryRepository interface {
	RefreshDaily(ctx context.Context, day time.Time) (int, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]domain.DailySummaryRow, error)
}

type summaryRepository struct {
	db DBTX
}

// NewSummaryRepository instantiates the repository.
func NewSummaryRepository(db DBTX) SummaryRepository {
	return &summaryRepository{db: db}
}

func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// RefreshDaily recomputes the rollup for one day from the cases table.
// Tier-4 administrative closures (closure_reason_code set) never count as
// closed within SLA.
func (r *summaryRepository) RefreshDaily(ctx context.Context, day time.Time) (int, error) {
	day = day.Truncate(24 * time.Hour)

	del, delArgs, err := builder().
		Delete("summary_cases_daily").
		Where(sq.Eq{"summary_date": day}).
		ToSql()
	if err != nil {
		return 0, err
	}
	if _, err := r.db.Exec(ctx, del, delArgs...); err != nil {
		return 0, err
	}

	sel, selArgs, err := builder().
		Select(
			"reported_at::date AS summary_date",
			"source_channel",
			"COALESCE(province, '') AS province",
			"COALESCE(district_office, '') AS district_office",
			"service_type_code",
			"COALESCE(complaint_type_code, '') AS complaint_type_code",
			"priority",
			"status",
			"COUNT(*) AS case_count",
			"COUNT(*) FILTER (WHERE overdue_tier IS NOT NULL) AS overdue_count",
			"COUNT(*) FILTER (WHERE status = 'CLOSE' AND closure_reason_code IS NULL AND overdue_tier IS NULL) AS closed_within_sla",
			"AVG(EXTRACT(EPOCH FROM closed_at - reported_at) / 3600.0) FILTER (WHERE closed_at IS NOT NULL) AS avg_close_hours",
		).
		From("cases").
		Where(sq.Expr("reported_at::date = ?", day)).
		GroupBy("reported_at::date", "source_channel", "COALESCE(province, '')",
			"COALESCE(district_office, '')", "service_type_code",
			"COALESCE(complaint_type_code, '')", "priority", "status").
		ToSql()
	if err != nil {
		return 0, err
	}

	insert := `
        INSERT INTO summary_cases_daily (summary_date, source_channel, province, district_office,
            service_type_code, complaint_type_code, priority, status,
            case_count, overdue_count, closed_within_sla, avg_close_hours)
        ` + sel
	cmd, err := r.db.Exec(ctx, insert, selArgs...)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *summaryRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]domain.DailySummaryRow, error) {
	query, args, err := builder().
		Select("summary_date", "source_channel", "province", "district_office",
			"service_type_code", "complaint_type_code", "priority", "status",
			"case_count", "overdue_count", "closed_within_sla", "avg_close_hours").
		From("summary_cases_daily").
		Where(sq.GtOrEq{"summary_date": from}).
		Where(sq.LtOrEq{"summary_date": to}).
		OrderBy("summary_date").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DailySummaryRow
	for rows.Next() {
		var row domain.DailySummaryRow
		if err := rows.Scan(
			&row.SummaryDate,
			&row.SourceChannel,
			&row.Province,
			&row.DistrictOffice,
			&row.ServiceTypeCode,
			&row.ComplaintTypeCode,
			&row.Priority,
			&row.Status,
			&row.CaseCount,
			&row.OverdueCount,
			&row.ClosedWithinSLA,
			&row.AvgCloseHours,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
