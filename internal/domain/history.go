package domain

import (
	"time"

	"github.com/google/uuid"
)

// CaseHistory is an append-only record of a status or assignment change.
// Rows are never updated or deleted after insertion.
type CaseHistory struct {
	ID                  uuid.UUID
	CaseID              string
	ChangedByUserID     *uuid.UUID
	ChangedAt           time.Time
	PrevStatus          *CaseStatus
	NewStatus           *CaseStatus
	PrevAssignedOfficer *uuid.UUID
	NewAssignedOfficer  *uuid.UUID
	ChangeNotes         *string
}
