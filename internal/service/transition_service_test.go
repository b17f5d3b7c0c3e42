package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/one-system/case-service/internal/domain"
	"github.com/one-system/case-service/internal/events"
	"github.com/one-system/case-service/internal/observability"
	apperrors "github.com/one-system/case-service/pkg/util"
)

func newTransitionFixture(t *testing.T) (*TransitionService, *fakeCaseRepo, *fakeHistoryRepo, *recordingDispatcher) {
	t.Helper()
	cases := newFakeCaseRepo()
	history := &fakeHistoryRepo{}
	dispatcher := &recordingDispatcher{}
	sla := NewSLAService(SLADependencies{
		ConfigRepo: newFakeSLARepo(domain.SLAConfig{
			Priority:         domain.CasePriorityCritical,
			TempFixHours:     12,
			PermanentFixDays: 3,
			OverdueT1Days:    1,
			OverdueT2Days:    3,
			OverdueT3Days:    7,
			OverdueT4Days:    14,
		}),
		CaseRepo:   cases,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Metrics:    observability.NewMetrics(),
	})
	svc := NewTransitionService(TransitionDependencies{
		TxManager:     &fakeTxManager{cases: cases, history: history},
		CaseRepo:      cases,
		ReferenceRepo: newFakeReferenceRepo(),
		SLAService:    sla,
		Dispatcher:    dispatcher,
		Logger:        zap.NewNop(),
		Metrics:       observability.NewMetrics(),
	})
	return svc, cases, history, dispatcher
}

func seedCase(cases *fakeCaseRepo, id string, status domain.CaseStatus) *domain.Case {
	kase := &domain.Case{
		CaseID:          id,
		SourceChannel:   domain.SourceChannelDirect,
		Status:          status,
		Priority:        domain.CasePriorityCritical,
		ServiceTypeCode: "ROAD_DAMAGE",
		Description:     "collapsed shoulder on km 12",
		ReportedAt:      time.Now().Add(-48 * time.Hour),
	}
	cases.put(kase)
	return kase
}

func dispatcherActor() domain.Actor {
	id := uuid.New()
	return domain.Actor{UserID: &id, Role: domain.RoleDispatcher}
}

func officerActor() domain.Actor {
	id := uuid.New()
	return domain.Actor{UserID: &id, Role: domain.RoleOfficer}
}

func adminActor() domain.Actor {
	id := uuid.New()
	return domain.Actor{UserID: &id, Role: domain.RoleAdmin}
}

func TestTransitionRejectsUnknownEdge(t *testing.T) {
	svc, cases, history, _ := newTransitionFixture(t)
	seedCase(cases, "DRR-2568-000001", domain.CaseStatusWaitingVerify)

	_, err := svc.Transition(context.Background(), dispatcherActor(), "DRR-2568-000001",
		TransitionInput{To: domain.CaseStatusDone})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "WAITING_VERIFY", domainErr.Details["current_status"])
	assert.Equal(t, "DONE", domainErr.Details["attempted_status"])

	// Rejection leaves the case and its history untouched.
	stored, err := cases.GetByID(context.Background(), "DRR-2568-000001")
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusWaitingVerify, stored.Status)
	assert.Empty(t, history.entries)
}

func TestTransitionRejectsOutOfTerminal(t *testing.T) {
	svc, cases, _, _ := newTransitionFixture(t)
	seedCase(cases, "DRR-2568-000002", domain.CaseStatusClose)

	_, err := svc.Transition(context.Background(), adminActor(), "DRR-2568-000002",
		TransitionInput{To: domain.CaseStatusInProgress})
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
}

func TestTransitionEnforcesRole(t *testing.T) {
	svc, cases, _, _ := newTransitionFixture(t)
	seedCase(cases, "DRR-2568-000003", domain.CaseStatusWaitingVerify)

	officerID := uuid.New()
	_, err := svc.Transition(context.Background(), officerActor(), "DRR-2568-000003",
		TransitionInput{To: domain.CaseStatusInProgress, AssigneeID: &officerID})
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestStartWorkRequiresAssigneeAndStartsClock(t *testing.T) {
	svc, cases, history, dispatcher := newTransitionFixture(t)
	seedCase(cases, "DRR-2568-000004", domain.CaseStatusWaitingVerify)

	_, err := svc.Transition(context.Background(), dispatcherActor(), "DRR-2568-000004",
		TransitionInput{To: domain.CaseStatusInProgress})
	assert.True(t, apperrors.IsCode(err, "MISSING_REQUIRED_FIELD"))

	officerID := uuid.New()
	updated, err := svc.Transition(context.Background(), dispatcherActor(), "DRR-2568-000004",
		TransitionInput{To: domain.CaseStatusInProgress, AssigneeID: &officerID})
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusInProgress, updated.Status)
	require.NotNil(t, updated.SLAStartedAt)
	assert.Equal(t, &officerID, updated.AssignedOfficerID)

	require.Len(t, history.entries, 1)
	assert.Equal(t, domain.CaseStatusWaitingVerify, *history.entries[0].PrevStatus)
	assert.Equal(t, domain.CaseStatusInProgress, *history.entries[0].NewStatus)

	changed := dispatcher.byType(events.EventCaseStatusChanged)
	require.Len(t, changed, 1)
}

func TestHoldRequiresExpectedFixDate(t *testing.T) {
	svc, cases, _, _ := newTransitionFixture(t)
	started := time.Now().Add(-24 * time.Hour)
	kase := seedCase(cases, "DRR-2568-000005", domain.CaseStatusInProgress)
	kase.SLAStartedAt = &started
	cases.put(kase)

	_, err := svc.Transition(context.Background(), officerActor(), "DRR-2568-000005",
		TransitionInput{To: domain.CaseStatusPending})
	assert.True(t, apperrors.IsCode(err, "MISSING_REQUIRED_FIELD"))

	fixDate := time.Now().Add(7 * 24 * time.Hour)
	updated, err := svc.Transition(context.Background(), officerActor(), "DRR-2568-000005",
		TransitionInput{To: domain.CaseStatusPending, ExpectedFixDate: &fixDate})
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusPending, updated.Status)
	require.NotNil(t, updated.ExpectedFixDate)
	// Going on hold must not reset the clock.
	require.NotNil(t, updated.SLAStartedAt)
	assert.WithinDuration(t, started, *updated.SLAStartedAt, time.Second)
}

func TestDuplicateRequiresExistingTarget(t *testing.T) {
	svc, cases, _, _ := newTransitionFixture(t)
	seedCase(cases, "DRR-2568-000006", domain.CaseStatusWaitingVerify)

	missing := "DRR-2568-999999"
	_, err := svc.Transition(context.Background(), dispatcherActor(), "DRR-2568-000006",
		TransitionInput{To: domain.CaseStatusDuplicate, DuplicateOfCaseID: &missing})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	self := "DRR-2568-000006"
	_, err = svc.Transition(context.Background(), dispatcherActor(), "DRR-2568-000006",
		TransitionInput{To: domain.CaseStatusDuplicate, DuplicateOfCaseID: &self})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	seedCase(cases, "DRR-2568-000007", domain.CaseStatusInProgress)
	target := "DRR-2568-000007"
	updated, err := svc.Transition(context.Background(), dispatcherActor(), "DRR-2568-000006",
		TransitionInput{To: domain.CaseStatusDuplicate, DuplicateOfCaseID: &target})
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusDuplicate, updated.Status)
	assert.Equal(t, &target, updated.DuplicateOfCaseID)
}

func TestReopenIsAdminOnlyAndKeepsClock(t *testing.T) {
	svc, cases, _, _ := newTransitionFixture(t)
	started := time.Now().Add(-72 * time.Hour)
	kase := seedCase(cases, "DRR-2568-000008", domain.CaseStatusDone)
	kase.SLAStartedAt = &started
	cases.put(kase)

	_, err := svc.Transition(context.Background(), officerActor(), "DRR-2568-000008",
		TransitionInput{To: domain.CaseStatusWaitingVerify})
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	updated, err := svc.Transition(context.Background(), adminActor(), "DRR-2568-000008",
		TransitionInput{To: domain.CaseStatusWaitingVerify})
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusWaitingVerify, updated.Status)
	require.NotNil(t, updated.SLAStartedAt)
	assert.WithinDuration(t, started, *updated.SLAStartedAt, time.Second)
}

func TestReopenedCaseDoesNotRestartClock(t *testing.T) {
	svc, cases, _, _ := newTransitionFixture(t)
	started := time.Now().Add(-72 * time.Hour)
	kase := seedCase(cases, "DRR-2568-000009", domain.CaseStatusDone)
	kase.SLAStartedAt = &started
	cases.put(kase)

	_, err := svc.Transition(context.Background(), adminActor(), "DRR-2568-000009",
		TransitionInput{To: domain.CaseStatusWaitingVerify})
	require.NoError(t, err)

	officerID := uuid.New()
	updated, err := svc.Transition(context.Background(), adminActor(), "DRR-2568-000009",
		TransitionInput{To: domain.CaseStatusInProgress, AssigneeID: &officerID})
	require.NoError(t, err)
	// The clock was already running; re-entering work keeps the original start.
	require.NotNil(t, updated.SLAStartedAt)
	assert.WithinDuration(t, started, *updated.SLAStartedAt, time.Second)
}

func TestCloseSetsClosedAt(t *testing.T) {
	svc, cases, _, _ := newTransitionFixture(t)
	seedCase(cases, "DRR-2568-000010", domain.CaseStatusDone)

	updated, err := svc.Transition(context.Background(), officerActor(), "DRR-2568-000010",
		TransitionInput{To: domain.CaseStatusClose})
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusClose, updated.Status)
	require.NotNil(t, updated.ClosedAt)
	assert.Nil(t, updated.ClosureReasonCode)
}

func TestConcurrentTransitionLoses(t *testing.T) {
	svc, cases, history, _ := newTransitionFixture(t)
	seedCase(cases, "DRR-2568-000011", domain.CaseStatusDone)

	lost := false
	cases.updateLifecycleResult = &lost

	_, err := svc.Transition(context.Background(), officerActor(), "DRR-2568-000011",
		TransitionInput{To: domain.CaseStatusClose})
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
	assert.Empty(t, history.entries)
}

func TestCloseTier4(t *testing.T) {
	svc, cases, history, _ := newTransitionFixture(t)
	started := time.Now().Add(-30 * 24 * time.Hour)
	kase := seedCase(cases, "DRR-2568-000012", domain.CaseStatusInProgress)
	kase.SLAStartedAt = &started
	cases.put(kase)

	_, err := svc.CloseTier4(context.Background(), officerActor(), "DRR-2568-000012", "BUDGET_PENDING", "")
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	_, err = svc.CloseTier4(context.Background(), adminActor(), "DRR-2568-000012", "NO_SUCH_REASON", "")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	// The catch-all reason demands a note.
	_, err = svc.CloseTier4(context.Background(), adminActor(), "DRR-2568-000012", "OTHER", "")
	assert.True(t, apperrors.IsCode(err, "MISSING_REQUIRED_FIELD"))

	updated, err := svc.CloseTier4(context.Background(), adminActor(), "DRR-2568-000012", "BUDGET_PENDING", "")
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusClose, updated.Status)
	require.NotNil(t, updated.ClosureReasonCode)
	assert.Equal(t, "BUDGET_PENDING", *updated.ClosureReasonCode)
	require.NotNil(t, updated.ClosedAt)
	require.Len(t, history.entries, 1)
}

func TestCloseTier4RejectsLowTier(t *testing.T) {
	svc, cases, _, _ := newTransitionFixture(t)
	started := time.Now().Add(-24 * time.Hour)
	kase := seedCase(cases, "DRR-2568-000013", domain.CaseStatusInProgress)
	kase.SLAStartedAt = &started
	cases.put(kase)

	_, err := svc.CloseTier4(context.Background(), adminActor(), "DRR-2568-000013", "BUDGET_PENDING", "note")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestAssignAppendsHistory(t *testing.T) {
	svc, cases, history, dispatcher := newTransitionFixture(t)
	seedCase(cases, "DRR-2568-000014", domain.CaseStatusInProgress)

	officerID := uuid.New()
	updated, err := svc.Assign(context.Background(), dispatcherActor(), "DRR-2568-000014", &officerID)
	require.NoError(t, err)
	assert.Equal(t, &officerID, updated.AssignedOfficerID)

	require.Len(t, history.entries, 1)
	assert.Nil(t, history.entries[0].PrevAssignedOfficer)
	assert.Equal(t, &officerID, history.entries[0].NewAssignedOfficer)
	assert.Nil(t, history.entries[0].NewStatus)

	assigned := dispatcher.byType(events.EventCaseAssigned)
	require.Len(t, assigned, 1)

	_, err = svc.Assign(context.Background(), officerActor(), "DRR-2568-000014", &officerID)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}
