package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role enumerates actor roles supplied by the identity provider.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleDispatcher Role = "DISPATCHER"
	RoleOfficer    Role = "OFFICER"
	RoleExecutive  Role = "EXECUTIVE"
)

// User is a resolved actor identity.
type User struct {
	ID                  uuid.UUID
	FullName            string
	Email               *string
	Role                Role
	ResponsibleProvince *string
	IsActive            bool
	CreatedAt           time.Time
}

// Actor is the minimal identity attached to transitions and events.
type Actor struct {
	UserID *uuid.UUID
	Role   Role
}
