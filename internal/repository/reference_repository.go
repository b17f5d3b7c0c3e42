package repository

import (
	"context"

	"github.com/one-system/case-service/internal/domain"
)

// ReferenceRepository supplies classification, closure-reason and
// handler-mapping reference data. Read-only for the engine except handler
// rows, which ingestion creates for unseen names.
type ReferenceRepository interface {
	ListServiceTypes(ctx context.Context) ([]domain.ServiceType, error)
	ListComplaintTypes(ctx context.Context) ([]domain.ComplaintType, error)
	GetClosureReason(ctx context.Context, code string) (*domain.ClosureReason, error)
	ResolveHandler(ctx context.Context, displayName string) (*domain.HandlerMapping, error)
	CreateHandler(ctx context.Context, displayName string) (*domain.HandlerMapping, error)
}

type referenceRepository struct {
	db DBTX
}

// NewReferenceRepository instantiates the repository.
func NewReferenceRepository(db DBTX) ReferenceRepository {
	return &referenceRepository{db: db}
}

func (r *referenceRepository) ListServiceTypes(ctx context.Context) ([]domain.ServiceType, error) {
	rows, err := r.db.Query(ctx, `SELECT code, label, channel, is_complaint FROM ref_service_type ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceType
	for rows.Next() {
		var st domain.ServiceType
		if err := rows.Scan(&st.Code, &st.Label, &st.Channel, &st.IsComplaint); err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}

func (r *referenceRepository) ListComplaintTypes(ctx context.Context) ([]domain.ComplaintType, error) {
	rows, err := r.db.Query(ctx, `SELECT code, label FROM ref_complaint_type ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ComplaintType
	for rows.Next() {
		var ct domain.ComplaintType
		if err := rows.Scan(&ct.Code, &ct.Label); err != nil {
			return nil, err
		}
		result = append(result, ct)
	}
	return result, rows.Err()
}

func (r *referenceRepository) GetClosureReason(ctx context.Context, code string) (*domain.ClosureReason, error) {
	var reason domain.ClosureReason
	err := r.db.QueryRow(ctx,
		`SELECT code, label, label_th, requires_note FROM ref_closure_reason WHERE code=$1`, code,
	).Scan(&reason.Code, &reason.Label, &reason.LabelTH, &reason.RequiresNote)
	if err != nil {
		return nil, err
	}
	return &reason, nil
}

func (r *referenceRepository) ResolveHandler(ctx context.Context, displayName string) (*domain.HandlerMapping, error) {
	var mapping domain.HandlerMapping
	err := r.db.QueryRow(ctx,
		`SELECT id, display_name, user_id, is_active, created_at FROM ref_handler WHERE display_name=$1`, displayName,
	).Scan(&mapping.ID, &mapping.DisplayName, &mapping.UserID, &mapping.IsActive, &mapping.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

func (r *referenceRepository) CreateHandler(ctx context.Context, displayName string) (*domain.HandlerMapping, error) {
	mapping := domain.HandlerMapping{DisplayName: displayName, IsActive: true}
	err := r.db.QueryRow(ctx, `
        INSERT INTO ref_handler (display_name)
        VALUES ($1)
        ON CONFLICT (display_name) DO UPDATE SET display_name=EXCLUDED.display_name
        RETURNING id, user_id, is_active, created_at`, displayName,
	).Scan(&mapping.ID, &mapping.UserID, &mapping.IsActive, &mapping.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}
