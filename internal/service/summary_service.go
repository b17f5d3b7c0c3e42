package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/one-system/case-service/internal/domain"
	"github.com/one-system/case-service/internal/repository"
	apperrors "github.com/one-system/case-service/pkg/util"
)

// SummaryService maintains and serves the daily rollup used by dashboards.
type SummaryService struct {
	summaries repository.SummaryRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewSummaryService constructs the service.
func NewSummaryService(summaries repository.SummaryRepository, logger *zap.Logger) *SummaryService {
	return &SummaryService{summaries: summaries, logger: logger, now: time.Now}
}

// RefreshDay rebuilds the rollup for one calendar day.
func (s *SummaryService) RefreshDay(ctx context.Context, day time.Time) (int, error) {
	rows, err := s.summaries.RefreshDaily(ctx, day)
	if err != nil {
		return 0, err
	}
	s.logger.Info("daily summary refreshed",
		zap.String("day", day.Format("2006-01-02")), zap.Int("rows", rows))
	return rows, nil
}

// RefreshRecent rebuilds today and yesterday. Yesterday is included because
// late transitions keep mutating cases reported near midnight.
func (s *SummaryService) RefreshRecent(ctx context.Context) (int, error) {
	today := s.now().Truncate(24 * time.Hour)
	total := 0
	for _, day := range []time.Time{today.AddDate(0, 0, -1), today} {
		rows, err := s.RefreshDay(ctx, day)
		if err != nil {
			return total, err
		}
		total += rows
	}
	return total, nil
}

// ListRange returns rollup rows between two dates inclusive.
func (s *SummaryService) ListRange(ctx context.Context, from, to time.Time) ([]domain.DailySummaryRow, error) {
	if to.Before(from) {
		return nil, apperrors.NewValidationError("date range end precedes start", map[string]any{
			"from": from.Format("2006-01-02"),
			"to":   to.Format("2006-01-02"),
		})
	}
	return s.summaries.ListByDateRange(ctx, from, to)
}
