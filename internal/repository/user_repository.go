package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/one-system/case-service/internal/domain"
)

// UserRepository reads resolved actor identities. Account management lives
// with the external identity provider; this service only looks users up.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type userRepository struct {
	db DBTX
}

// NewUserRepository instantiates the repository.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.QueryRow(ctx,
		`SELECT id, full_name, email, role, responsible_province, is_active, created_at
         FROM users WHERE id=$1`, id,
	).Scan(&user.ID, &user.FullName, &user.Email, &user.Role, &user.ResponsibleProvince, &user.IsActive, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
