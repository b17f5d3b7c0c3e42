package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/one-system/case-service/internal/domain"
)

// HistoryRepository appends and reads the immutable case audit trail.
type HistoryRepository interface {
	Append(ctx context.Context, entry *domain.CaseHistory) error
	ListByCase(ctx context.Context, caseID string, limit, offset int) ([]domain.CaseHistory, error)
}

type historyRepository struct {
	db DBTX
}

// NewHistoryRepository instantiates the repository.
func NewHistoryRepository(db DBTX) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Append(ctx context.Context, entry *domain.CaseHistory) error {
	const query = `
        INSERT INTO case_history (case_id, changed_by_user_id, prev_status, new_status,
            prev_assigned_officer, new_assigned_officer, change_notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, changed_at`
	return r.db.QueryRow(ctx, query,
		entry.CaseID,
		entry.ChangedByUserID,
		entry.PrevStatus,
		entry.NewStatus,
		entry.PrevAssignedOfficer,
		entry.NewAssignedOfficer,
		entry.ChangeNotes,
	).Scan(&entry.ID, &entry.ChangedAt)
}

func (r *historyRepository) ListByCase(ctx context.Context, caseID string, limit, offset int) ([]domain.CaseHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, case_id, changed_by_user_id, changed_at, prev_status, new_status,
               prev_assigned_officer, new_assigned_officer, change_notes
        FROM case_history
        WHERE case_id=$1
        ORDER BY changed_at ASC
        LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, caseID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows)
}

func scanHistory(rows pgx.Rows) ([]domain.CaseHistory, error) {
	var result []domain.CaseHistory
	for rows.Next() {
		var entry domain.CaseHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.CaseID,
			&entry.ChangedByUserID,
			&entry.ChangedAt,
			&entry.PrevStatus,
			&entry.NewStatus,
			&entry.PrevAssignedOfficer,
			&entry.NewAssignedOfficer,
			&entry.ChangeNotes,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
