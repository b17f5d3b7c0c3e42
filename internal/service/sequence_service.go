package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/one-system/case-service/internal/config"
	"github.com/one-system/case-service/internal/repository"
	apperrors "github.com/one-system/case-service/pkg/util"
)

// SequenceService issues durable case identifiers of the form
// <prefix>-<era year>-<seq>, with the sequence strictly increasing per
// era-year. The database row lock is the serialization point; transient lock
// contention is retried with bounded backoff before surfacing as a conflict.
type SequenceService struct {
	sequences repository.SequenceRepository
	cfg       config.CaseConfig
}

// NewSequenceService constructs the service.
func NewSequenceService(sequences repository.SequenceRepository, cfg config.CaseConfig) *SequenceService {
	return &SequenceService{sequences: sequences, cfg: cfg}
}

// EraYear derives the identifier partition year from a reported timestamp.
func (s *SequenceService) EraYear(t time.Time) int {
	return t.Year() + s.cfg.EraYearOffset
}

// NextCaseID allocates the next identifier for the era-year. Numbers are
// never reused; a rolled-back caller leaves a gap, never a duplicate.
func (s *SequenceService) NextCaseID(ctx context.Context, eraYear int) (string, error) {
	var seq int
	op := func() error {
		next, err := s.sequences.NextSeq(ctx, eraYear)
		if err != nil {
			if repository.IsSerializationFailure(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		seq = next
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.cfg.SeqMaxRetries)),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		if repository.IsSerializationFailure(err) {
			return "", apperrors.NewConflict("case sequence contention", map[string]any{"era_year": eraYear})
		}
		return "", err
	}
	return FormatCaseID(s.cfg.IDPrefix, eraYear, seq), nil
}

// FormatCaseID renders the canonical identifier with a zero-padded sequence.
func FormatCaseID(prefix string, eraYear, seq int) string {
	return fmt.Sprintf("%s-%d-%06d", prefix, eraYear, seq)
}
