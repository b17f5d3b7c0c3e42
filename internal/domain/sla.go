package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SLAConfig holds the deadlines and overdue thresholds for one priority.
// Thresholds are day counts measured from the moment the temporary-fix
// deadline is breached and must be strictly ascending.
type SLAConfig struct {
	ID               uuid.UUID
	Priority         CasePriority `validate:"required,oneof=CRITICAL HIGH MEDIUM LOW"`
	TempFixHours     int          `validate:"required,gt=0"`
	PermanentFixDays int          `validate:"required,gt=0"`
	OverdueT1Days    int          `validate:"required,gt=0"`
	OverdueT2Days    int          `validate:"required,gt=0"`
	OverdueT3Days    int          `validate:"required,gt=0"`
	OverdueT4Days    int          `validate:"required,gt=0"`
	UpdatedBy        *uuid.UUID
	UpdatedAt        time.Time
}

// ValidateThresholds enforces the ascending tier ordering. Checked at write
// time only; reads trust persisted rows.
func (c SLAConfig) ValidateThresholds() error {
	if !(c.OverdueT1Days < c.OverdueT2Days && c.OverdueT2Days < c.OverdueT3Days && c.OverdueT3Days < c.OverdueT4Days) {
		return fmt.Errorf("overdue thresholds must be strictly ascending: %d, %d, %d, %d",
			c.OverdueT1Days, c.OverdueT2Days, c.OverdueT3Days, c.OverdueT4Days)
	}
	return nil
}

// OverdueTier derives the overdue tier (1..4) for a case, or 0 when the case
// is not overdue. Deterministic: identical inputs always yield the same tier,
// whether evaluated on a read path or during bulk recomputation.
//
// Returns 0 when the status is terminal or not actively worked, when the SLA
// clock has not started, or while the temporary-fix deadline has not passed.
// Otherwise the breach duration (elapsed minus the temporary-fix window) is
// truncated to whole days and compared against the ascending thresholds; the
// highest exceeded tier wins.
func OverdueTier(status CaseStatus, slaStartedAt *time.Time, cfg SLAConfig, now time.Time) int {
	if !status.SLAApplies() {
		return 0
	}
	if slaStartedAt == nil {
		return 0
	}
	elapsed := now.Sub(*slaStartedAt)
	tempFix := time.Duration(cfg.TempFixHours) * time.Hour
	if elapsed <= tempFix {
		return 0
	}
	breachDays := int((elapsed - tempFix).Hours() / 24)
	switch {
	case breachDays >= cfg.OverdueT4Days:
		return 4
	case breachDays >= cfg.OverdueT3Days:
		return 3
	case breachDays >= cfg.OverdueT2Days:
		return 2
	case breachDays >= cfg.OverdueT1Days:
		return 1
	}
	return 0
}
