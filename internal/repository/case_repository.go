package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/one-system/case-service/internal/domain"
)

// CaseFilter captures listing parameters.
type CaseFilter struct {
	SourceChannel     *domain.SourceChannel
	Statuses          []domain.CaseStatus
	Priorities        []domain.CasePriority
	Province          *string
	DistrictOffice    *string
	ServiceTypeCode   *string
	AssignedOfficerID *uuid.UUID
	OverdueTierMin    *int
	ReportedFrom      *time.Time
	ReportedTo        *time.Time
	Limit             int
	Offset            int
}

// CaseRepository encapsulates case persistence. The ingestion pipeline is the
// only creator of rows; the transition engine is the only status mutator.
type CaseRepository interface {
	Create(ctx context.Context, c *domain.Case) error
	GetByID(ctx context.Context, caseID string) (*domain.Case, error)
	// UpdateLifecycle persists the mutable lifecycle fields. The update is
	// guarded by the expected current status; zero rows affected means a
	// concurrent transition won and the caller observes a conflict.
	UpdateLifecycle(ctx context.Context, c *domain.Case, expected domain.CaseStatus) (bool, error)
	UpdateAssignment(ctx context.Context, caseID string, officerID *uuid.UUID) error
	UpdateOverdueTier(ctx context.Context, caseID string, tier *int) error
	FindByDedupKey(ctx context.Context, channel domain.SourceChannel, seqNo int, reportedAt time.Time) (*domain.Case, error)
	ListWithFilter(ctx context.Context, filter CaseFilter) ([]domain.Case, error)
	ListActiveForSLA(ctx context.Context) ([]domain.Case, error)
}

type caseRepository struct {
	db DBTX
}

// NewCaseRepository instantiates the repository.
func NewCaseRepository(db DBTX) CaseRepository {
	return &caseRepository{db: db}
}

const caseColumns = `case_id, source_channel, source_seq_no, source_schema_version, status, priority,
        service_type_code, complaint_type_code, reporter_name, contact_number, line_user_id,
        handler_name, description, province, district_office, road_number, gps_lat, gps_lng,
        reported_at, received_at, sla_started_at, closed_at, expected_fix_date,
        assigned_officer_id, overdue_tier, closure_reason_code, notes, duplicate_of_case_id,
        raw_extra, created_at, updated_at`

func (r *caseRepository) Create(ctx context.Context, c *domain.Case) error {
	const query = `
        INSERT INTO cases (case_id, source_channel, source_seq_no, source_schema_version, status, priority,
            service_type_code, complaint_type_code, reporter_name, contact_number, line_user_id,
            handler_name, description, province, district_office, road_number, gps_lat, gps_lng,
            reported_at, received_at, sla_started_at, closed_at, expected_fix_date,
            assigned_officer_id, overdue_tier, closure_reason_code, notes, duplicate_of_case_id, raw_extra)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29)
        RETURNING created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		c.CaseID,
		c.SourceChannel,
		c.SourceSeqNo,
		c.SourceSchemaVersion,
		c.Status,
		c.Priority,
		c.ServiceTypeCode,
		c.ComplaintTypeCode,
		c.ReporterName,
		c.ContactNumber,
		c.LineUserID,
		c.HandlerName,
		c.Description,
		c.Province,
		c.DistrictOffice,
		c.RoadNumber,
		c.GPSLat,
		c.GPSLng,
		c.ReportedAt,
		c.ReceivedAt,
		c.SLAStartedAt,
		c.ClosedAt,
		c.ExpectedFixDate,
		c.AssignedOfficerID,
		c.OverdueTier,
		c.ClosureReasonCode,
		c.Notes,
		c.DuplicateOfCaseID,
		c.RawExtra,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *caseRepository) GetByID(ctx context.Context, caseID string) (*domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE case_id=$1`
	return r.fetchSingle(ctx, query, caseID)
}

func (r *caseRepository) FindByDedupKey(ctx context.Context, channel domain.SourceChannel, seqNo int, reportedAt time.Time) (*domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases
        WHERE source_channel=$1 AND source_seq_no=$2 AND reported_at=$3`
	return r.fetchSingle(ctx, query, channel, seqNo, reportedAt)
}

func (r *caseRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Case, error) {
	var c domain.Case
	if err := scanCase(r.db.QueryRow(ctx, query, args...), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *caseRepository) UpdateLifecycle(ctx context.Context, c *domain.Case, expected domain.CaseStatus) (bool, error) {
	const query = `
        UPDATE cases SET status=$1, sla_started_at=$2, closed_at=$3, expected_fix_date=$4,
            assigned_officer_id=$5, closure_reason_code=$6, notes=$7, duplicate_of_case_id=$8,
            updated_at=NOW()
        WHERE case_id=$9 AND status=$10`
	cmd, err := r.db.Exec(ctx, query,
		c.Status,
		c.SLAStartedAt,
		c.ClosedAt,
		c.ExpectedFixDate,
		c.AssignedOfficerID,
		c.ClosureReasonCode,
		c.Notes,
		c.DuplicateOfCaseID,
		c.CaseID,
		expected,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *caseRepository) UpdateAssignment(ctx context.Context, caseID string, officerID *uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `UPDATE cases SET assigned_officer_id=$1, updated_at=NOW() WHERE case_id=$2`, officerID, caseID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *caseRepository) UpdateOverdueTier(ctx context.Context, caseID string, tier *int) error {
	_, err := r.db.Exec(ctx, `UPDATE cases SET overdue_tier=$1, updated_at=NOW() WHERE case_id=$2`, tier, caseID)
	return err
}

func (r *caseRepository) ListWithFilter(ctx context.Context, filter CaseFilter) ([]domain.Case, error) {
	base := `SELECT ` + caseColumns + ` FROM cases`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.SourceChannel != nil {
		args = append(args, *filter.SourceChannel)
		clauses = append(clauses, fmt.Sprintf("source_channel=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Province != nil {
		args = append(args, *filter.Province)
		clauses = append(clauses, fmt.Sprintf("province=$%d", len(args)))
	}
	if filter.DistrictOffice != nil {
		args = append(args, *filter.DistrictOffice)
		clauses = append(clauses, fmt.Sprintf("district_office=$%d", len(args)))
	}
	if filter.ServiceTypeCode != nil {
		args = append(args, *filter.ServiceTypeCode)
		clauses = append(clauses, fmt.Sprintf("service_type_code=$%d", len(args)))
	}
	if filter.AssignedOfficerID != nil {
		args = append(args, *filter.AssignedOfficerID)
		clauses = append(clauses, fmt.Sprintf("assigned_officer_id=$%d", len(args)))
	}
	if filter.OverdueTierMin != nil {
		args = append(args, *filter.OverdueTierMin)
		clauses = append(clauses, fmt.Sprintf("overdue_tier >= $%d", len(args)))
	}
	if filter.ReportedFrom != nil {
		args = append(args, *filter.ReportedFrom)
		clauses = append(clauses, fmt.Sprintf("reported_at >= $%d", len(args)))
	}
	if filter.ReportedTo != nil {
		args = append(args, *filter.ReportedTo)
		clauses = append(clauses, fmt.Sprintf("reported_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY reported_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCases(rows)
}

func (r *caseRepository) ListActiveForSLA(ctx context.Context) ([]domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases
        WHERE status IN ($1,$2,$3) AND sla_started_at IS NOT NULL`
	rows, err := r.db.Query(ctx, query,
		domain.CaseStatusInProgress, domain.CaseStatusFollowingUp, domain.CaseStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCases(rows)
}

func scanCase(row pgx.Row, c *domain.Case) error {
	return row.Scan(
		&c.CaseID,
		&c.SourceChannel,
		&c.SourceSeqNo,
		&c.SourceSchemaVersion,
		&c.Status,
		&c.Priority,
		&c.ServiceTypeCode,
		&c.ComplaintTypeCode,
		&c.ReporterName,
		&c.ContactNumber,
		&c.LineUserID,
		&c.HandlerName,
		&c.Description,
		&c.Province,
		&c.DistrictOffice,
		&c.RoadNumber,
		&c.GPSLat,
		&c.GPSLng,
		&c.ReportedAt,
		&c.ReceivedAt,
		&c.SLAStartedAt,
		&c.ClosedAt,
		&c.ExpectedFixDate,
		&c.AssignedOfficerID,
		&c.OverdueTier,
		&c.ClosureReasonCode,
		&c.Notes,
		&c.DuplicateOfCaseID,
		&c.RawExtra,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}

func scanCases(rows pgx.Rows) ([]domain.Case, error) {
	var result []domain.Case
	for rows.Next() {
		var c domain.Case
		if err := scanCase(rows, &c); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
