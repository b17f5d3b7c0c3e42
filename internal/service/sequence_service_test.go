package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/one-system/case-service/internal/config"
	apperrors "github.com/one-system/case-service/pkg/util"
)

type fakeSequenceRepo struct {
	seq      int
	failures int
	err      error
	calls    int
}

func (f *fakeSequenceRepo) NextSeq(ctx context.Context, eraYear int) (int, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return 0, f.err
	}
	f.seq++
	return f.seq, nil
}

func caseConfig() config.CaseConfig {
	return config.CaseConfig{IDPrefix: "DRR", EraYearOffset: 543, SeqMaxRetries: 3}
}

func TestFormatCaseID(t *testing.T) {
	assert.Equal(t, "DRR-2568-000001", FormatCaseID("DRR", 2568, 1))
	assert.Equal(t, "DRR-2568-012345", FormatCaseID("DRR", 2568, 12345))
	assert.Equal(t, "DRR-2568-1234567", FormatCaseID("DRR", 2568, 1234567))
}

func TestEraYear(t *testing.T) {
	svc := NewSequenceService(&fakeSequenceRepo{}, caseConfig())
	reported := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 2568, svc.EraYear(reported))
}

func TestNextCaseIDSequential(t *testing.T) {
	svc := NewSequenceService(&fakeSequenceRepo{}, caseConfig())

	first, err := svc.NextCaseID(context.Background(), 2568)
	require.NoError(t, err)
	second, err := svc.NextCaseID(context.Background(), 2568)
	require.NoError(t, err)

	assert.Equal(t, "DRR-2568-000001", first)
	assert.Equal(t, "DRR-2568-000002", second)
}

func TestNextCaseIDRetriesLockContention(t *testing.T) {
	repo := &fakeSequenceRepo{failures: 2, err: &pgconn.PgError{Code: "40001"}}
	svc := NewSequenceService(repo, caseConfig())

	id, err := svc.NextCaseID(context.Background(), 2568)
	require.NoError(t, err)
	assert.Equal(t, "DRR-2568-000001", id)
	assert.Equal(t, 3, repo.calls)
}

func TestNextCaseIDGivesUpAsConflict(t *testing.T) {
	repo := &fakeSequenceRepo{failures: 100, err: &pgconn.PgError{Code: "55P03"}}
	svc := NewSequenceService(repo, caseConfig())

	_, err := svc.NextCaseID(context.Background(), 2568)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "CONFLICT"))
	// Initial attempt plus the configured retries.
	assert.Equal(t, 4, repo.calls)
}

func TestNextCaseIDPermanentErrorNotRetried(t *testing.T) {
	sentinel := errors.New("connection refused")
	repo := &fakeSequenceRepo{failures: 100, err: sentinel}
	svc := NewSequenceService(repo, caseConfig())

	_, err := svc.NextCaseID(context.Background(), 2568)
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, repo.calls)
}
