package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/one-system/case-service/internal/domain"
)

// SLARepository reads and writes per-priority SLA configuration.
type SLARepository interface {
	GetByPriority(ctx context.Context, priority domain.CasePriority) (*domain.SLAConfig, error)
	List(ctx context.Context) ([]domain.SLAConfig, error)
	Upsert(ctx context.Context, cfg *domain.SLAConfig) error
}

type slaRepository struct {
	db DBTX
}

// NewSLARepository instantiates the repository.
func NewSLARepository(db DBTX) SLARepository {
	return &slaRepository{db: db}
}

const slaColumns = `id, priority, temp_fix_hours, permanent_fix_days,
        overdue_t1_days, overdue_t2_days, overdue_t3_days, overdue_t4_days, updated_by, updated_at`

func (r *slaRepository) GetByPriority(ctx context.Context, priority domain.CasePriority) (*domain.SLAConfig, error) {
	query := `SELECT ` + slaColumns + ` FROM sla_config WHERE priority=$1`
	var cfg domain.SLAConfig
	if err := scanSLA(r.db.QueryRow(ctx, query, priority), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *slaRepository) List(ctx context.Context) ([]domain.SLAConfig, error) {
	query := `SELECT ` + slaColumns + ` FROM sla_config ORDER BY priority`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAConfig
	for rows.Next() {
		var cfg domain.SLAConfig
		if err := scanSLA(rows, &cfg); err != nil {
			return nil, err
		}
		result = append(result, cfg)
	}
	return result, rows.Err()
}

func (r *slaRepository) Upsert(ctx context.Context, cfg *domain.SLAConfig) error {
	const query = `
        INSERT INTO sla_config (priority, temp_fix_hours, permanent_fix_days,
            overdue_t1_days, overdue_t2_days, overdue_t3_days, overdue_t4_days, updated_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (priority)
        DO UPDATE SET temp_fix_hours=EXCLUDED.temp_fix_hours,
            permanent_fix_days=EXCLUDED.permanent_fix_days,
            overdue_t1_days=EXCLUDED.overdue_t1_days,
            overdue_t2_days=EXCLUDED.overdue_t2_days,
            overdue_t3_days=EXCLUDED.overdue_t3_days,
            overdue_t4_days=EXCLUDED.overdue_t4_days,
            updated_by=EXCLUDED.updated_by,
            updated_at=NOW()
        RETURNING id, updated_at`
	return r.db.QueryRow(ctx, query,
		cfg.Priority,
		cfg.TempFixHours,
		cfg.PermanentFixDays,
		cfg.OverdueT1Days,
		cfg.OverdueT2Days,
		cfg.OverdueT3Days,
		cfg.OverdueT4Days,
		cfg.UpdatedBy,
	).Scan(&cfg.ID, &cfg.UpdatedAt)
}

func scanSLA(row pgx.Row, cfg *domain.SLAConfig) error {
	return row.Scan(
		&cfg.ID,
		&cfg.Priority,
		&cfg.TempFixHours,
		&cfg.PermanentFixDays,
		&cfg.OverdueT1Days,
		&cfg.OverdueT2Days,
		&cfg.OverdueT3Days,
		&cfg.OverdueT4Days,
		&cfg.UpdatedBy,
		&cfg.UpdatedAt,
	)
}
