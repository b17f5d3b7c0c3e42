package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/one-system/case-service/internal/config"
	"github.com/one-system/case-service/internal/domain"
	"github.com/one-system/case-service/internal/events"
	"github.com/one-system/case-service/internal/observability"
	apperrors "github.com/one-system/case-service/pkg/util"
)

func newCaseFixture(t *testing.T) (*CaseService, *fakeCaseRepo, *fakeHistoryRepo, *recordingDispatcher) {
	t.Helper()
	cases := newFakeCaseRepo()
	history := &fakeHistoryRepo{}
	dispatcher := &recordingDispatcher{}
	sla := NewSLAService(SLADependencies{
		ConfigRepo: newFakeSLARepo(validMediumConfig()),
		CaseRepo:   cases,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Metrics:    observability.NewMetrics(),
	})
	svc := NewCaseService(CaseDependencies{
		TxManager:     &fakeTxManager{cases: cases, history: history},
		CaseRepo:      cases,
		HistoryRepo:   history,
		ReferenceRepo: newFakeReferenceRepo(),
		Allocator:     NewSequenceService(&fakeSequenceRepo{}, config.CaseConfig{IDPrefix: "DRR", EraYearOffset: 543, SeqMaxRetries: 3}),
		SLAService:    sla,
		Dispatcher:    dispatcher,
		Logger:        zap.NewNop(),
		Metrics:       observability.NewMetrics(),
	})
	return svc, cases, history, dispatcher
}

func TestCreateDirectCase(t *testing.T) {
	svc, _, history, dispatcher := newCaseFixture(t)

	reported := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	kase, err := svc.Create(context.Background(), dispatcherActor(), CreateCaseInput{
		ServiceTypeCode:   "ROAD_DAMAGE",
		ComplaintTypeCode: "POTHOLE",
		Description:       "deep pothole near the market",
		Province:          "Khon Kaen",
		DistrictOffice:    "District 4",
		RoadNumber:        "2039",
		ReportedAt:        &reported,
	})
	require.NoError(t, err)
	assert.Equal(t, "DRR-2568-000001", kase.CaseID)
	assert.Equal(t, domain.CaseStatusWaitingVerify, kase.Status)
	assert.Equal(t, domain.CasePriorityMedium, kase.Priority)
	assert.Equal(t, domain.SourceChannelDirect, kase.SourceChannel)
	assert.Nil(t, kase.SLAStartedAt)
	require.NotNil(t, kase.ComplaintTypeCode)
	assert.Equal(t, "POTHOLE", *kase.ComplaintTypeCode)

	require.Len(t, history.entries, 1)
	assert.Equal(t, domain.CaseStatusWaitingVerify, *history.entries[0].NewStatus)
	require.Len(t, dispatcher.byType(events.EventCaseCreated), 1)
}

func TestCreateDirectCaseRoleAndValidation(t *testing.T) {
	svc, _, _, _ := newCaseFixture(t)

	_, err := svc.Create(context.Background(), officerActor(), CreateCaseInput{
		ServiceTypeCode: "GENERAL_INQUIRY",
		Description:     "question about road tolls",
	})
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	_, err = svc.Create(context.Background(), dispatcherActor(), CreateCaseInput{
		ServiceTypeCode: "GENERAL_INQUIRY",
	})
	assert.True(t, apperrors.IsCode(err, "MISSING_REQUIRED_FIELD"))

	_, err = svc.Create(context.Background(), dispatcherActor(), CreateCaseInput{
		ServiceTypeCode: "UNKNOWN_TYPE",
		Description:     "whatever",
	})
	assert.True(t, apperrors.IsCode(err, "UNKNOWN_CLASSIFICATION"))

	_, err = svc.Create(context.Background(), dispatcherActor(), CreateCaseInput{
		ServiceTypeCode: "GENERAL_INQUIRY",
		Description:     "loud noise",
		Priority:        "SOMEDAY",
	})
	assert.True(t, apperrors.IsCode(err, "UNKNOWN_CLASSIFICATION"))
}

func TestCreateComplaintRequiresLocation(t *testing.T) {
	svc, _, _, _ := newCaseFixture(t)

	_, err := svc.Create(context.Background(), dispatcherActor(), CreateCaseInput{
		ServiceTypeCode:   "ROAD_DAMAGE",
		ComplaintTypeCode: "POTHOLE",
		Description:       "deep pothole",
		Province:          "Khon Kaen",
		DistrictOffice:    "District 4",
		// road number missing
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "MISSING_REQUIRED_FIELD"))

	// Non-complaint service types need no location at all.
	kase, err := svc.Create(context.Background(), dispatcherActor(), CreateCaseInput{
		ServiceTypeCode: "GENERAL_INQUIRY",
		Description:     "asking about permits",
	})
	require.NoError(t, err)
	assert.Nil(t, kase.Province)
	assert.Nil(t, kase.ComplaintTypeCode)
}

func TestGetDecoratesDerivedTier(t *testing.T) {
	svc, cases, _, _ := newCaseFixture(t)

	started := time.Now().Add(-40 * 24 * time.Hour)
	stale := 1
	cases.put(&domain.Case{
		CaseID:          "DRR-2568-000050",
		Status:          domain.CaseStatusInProgress,
		Priority:        domain.CasePriorityMedium,
		ServiceTypeCode: "ROAD_DAMAGE",
		Description:     "subsiding embankment",
		ReportedAt:      started,
		SLAStartedAt:    &started,
		OverdueTier:     &stale,
	})

	kase, err := svc.Get(context.Background(), "DRR-2568-000050")
	require.NoError(t, err)
	// The stored tier is stale; reads always present the derived one.
	require.NotNil(t, kase.OverdueTier)
	assert.Equal(t, 4, *kase.OverdueTier)
}

func TestGetMissingCase(t *testing.T) {
	svc, _, _, _ := newCaseFixture(t)

	_, err := svc.Get(context.Background(), "DRR-2568-404404")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}
