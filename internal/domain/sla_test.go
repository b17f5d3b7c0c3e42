package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func criticalConfig() SLAConfig {
	return SLAConfig{
		Priority:         CasePriorityCritical,
		TempFixHours:     12,
		PermanentFixDays: 3,
		OverdueT1Days:    1,
		OverdueT2Days:    3,
		OverdueT3Days:    7,
		OverdueT4Days:    14,
	}
}

func TestOverdueTier(t *testing.T) {
	cfg := criticalConfig()
	started := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status CaseStatus
		start  *time.Time
		now    time.Time
		want   int
	}{
		{"clock not started", CaseStatusInProgress, nil, started.Add(100 * 24 * time.Hour), 0},
		{"within temp fix window", CaseStatusInProgress, &started, started.Add(11 * time.Hour), 0},
		{"breached but under a day", CaseStatusInProgress, &started, started.Add(20 * time.Hour), 0},
		{"one day past temp fix", CaseStatusInProgress, &started, started.Add(12*time.Hour + 25*time.Hour), 1},
		{"four days past temp fix", CaseStatusInProgress, &started, started.Add(12*time.Hour + 4*24*time.Hour), 2},
		{"eight days past temp fix", CaseStatusInProgress, &started, started.Add(12*time.Hour + 8*24*time.Hour), 3},
		{"deep breach caps at four", CaseStatusInProgress, &started, started.Add(12*time.Hour + 400*24*time.Hour), 4},
		{"on hold still accrues", CaseStatusPending, &started, started.Add(12*time.Hour + 25*time.Hour), 1},
		{"following up still accrues", CaseStatusFollowingUp, &started, started.Add(12*time.Hour + 25*time.Hour), 1},
		{"waiting verify never overdue", CaseStatusWaitingVerify, &started, started.Add(100 * 24 * time.Hour), 0},
		{"resolved never overdue", CaseStatusDone, &started, started.Add(100 * 24 * time.Hour), 0},
		{"terminal never overdue", CaseStatusClose, &started, started.Add(100 * 24 * time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OverdueTier(tt.status, tt.start, cfg, tt.now))
		})
	}
}

func TestOverdueTierDeterministic(t *testing.T) {
	cfg := criticalConfig()
	started := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	now := started.Add(12*time.Hour + 5*24*time.Hour)

	first := OverdueTier(CaseStatusInProgress, &started, cfg, now)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, OverdueTier(CaseStatusInProgress, &started, cfg, now))
	}
}

func TestOverdueTierMonotonicOverTime(t *testing.T) {
	cfg := criticalConfig()
	started := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	prev := 0
	for day := 0; day <= 30; day++ {
		now := started.Add(time.Duration(day) * 24 * time.Hour)
		tier := OverdueTier(CaseStatusInProgress, &started, cfg, now)
		require.GreaterOrEqual(t, tier, prev, "tier regressed at day %d", day)
		prev = tier
	}
	assert.Equal(t, 4, prev)
}

func TestValidateThresholds(t *testing.T) {
	cfg := criticalConfig()
	require.NoError(t, cfg.ValidateThresholds())

	cfg.OverdueT2Days = cfg.OverdueT1Days
	assert.Error(t, cfg.ValidateThresholds())

	cfg = criticalConfig()
	cfg.OverdueT4Days = 2
	assert.Error(t, cfg.ValidateThresholds())
}

func TestStatusPredicates(t *testing.T) {
	for _, status := range []CaseStatus{CaseStatusClose, CaseStatusRejected, CaseStatusCancelled, CaseStatusDuplicate} {
		assert.True(t, status.IsTerminal(), string(status))
		assert.False(t, status.SLAApplies(), string(status))
	}
	for _, status := range []CaseStatus{CaseStatusWaitingVerify, CaseStatusInProgress, CaseStatusFollowingUp, CaseStatusPending, CaseStatusDone} {
		assert.False(t, status.IsTerminal(), string(status))
	}
	assert.False(t, CaseStatusWaitingVerify.SLAApplies())
	assert.False(t, CaseStatusDone.SLAApplies())
}
