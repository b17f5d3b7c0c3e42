package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/one-system/case-service/internal/domain"
	"github.com/one-system/case-service/internal/events"
	"github.com/one-system/case-service/internal/observability"
	"github.com/one-system/case-service/internal/repository"
	apperrors "github.com/one-system/case-service/pkg/util"
)

const slaCacheKeyPrefix = "case-service:sla-config:"

// SLAService owns SLA configuration and overdue-tier derivation. Reads go
// through a short-lived Redis cache so list endpoints do not hammer the
// config table; a cache outage degrades to direct reads.
type SLAService struct {
	configs    repository.SLARepository
	cases      repository.CaseRepository
	redis      *redis.Client
	cacheTTL   time.Duration
	validate   *validator.Validate
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// SLADependencies bundles collaborators for the service.
type SLADependencies struct {
	ConfigRepo repository.SLARepository
	CaseRepo   repository.CaseRepository
	Redis      *redis.Client
	CacheTTL   time.Duration
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	return &SLAService{
		configs:    deps.ConfigRepo,
		cases:      deps.CaseRepo,
		redis:      deps.Redis,
		cacheTTL:   deps.CacheTTL,
		validate:   validator.New(),
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		now:        time.Now,
	}
}

// ConfigFor returns the SLA configuration for a priority, served from the
// cache when fresh.
func (s *SLAService) ConfigFor(ctx context.Context, priority domain.CasePriority) (*domain.SLAConfig, error) {
	if cached := s.fromCache(ctx, priority); cached != nil {
		return cached, nil
	}
	cfg, err := s.configs.GetByPriority(ctx, priority)
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	s.toCache(ctx, cfg)
	return cfg, nil
}

// ListConfigs returns every priority's configuration straight from the table.
func (s *SLAService) ListConfigs(ctx context.Context) ([]domain.SLAConfig, error) {
	return s.configs.List(ctx)
}

// UpdateConfig validates and persists one priority's configuration. Invalid
// thresholds are rejected before any write.
func (s *SLAService) UpdateConfig(ctx context.Context, actor domain.Actor, cfg *domain.SLAConfig) error {
	if actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("SLA configuration requires the ADMIN role")
	}
	if err := s.validate.Struct(cfg); err != nil {
		return apperrors.NewConfigurationInvalid(err.Error(), nil)
	}
	if err := cfg.ValidateThresholds(); err != nil {
		return apperrors.NewConfigurationInvalid(err.Error(), map[string]any{"priority": cfg.Priority})
	}
	cfg.UpdatedBy = actor.UserID
	if err := s.configs.Upsert(ctx, cfg); err != nil {
		return err
	}
	s.invalidate(ctx, cfg.Priority)
	s.logger.Info("sla configuration updated",
		zap.String("priority", string(cfg.Priority)),
		zap.Int("temp_fix_hours", cfg.TempFixHours))
	return nil
}

// DeriveTier computes the current overdue tier for a case without persisting
// it. Read paths use this so a stale stored tier never reaches a caller.
func (s *SLAService) DeriveTier(ctx context.Context, kase *domain.Case) (int, error) {
	cfg, err := s.ConfigFor(ctx, kase.Priority)
	if err != nil {
		return 0, err
	}
	return domain.OverdueTier(kase.Status, kase.SLAStartedAt, *cfg, s.now()), nil
}

// Decorate overwrites the case's stored tier with the freshly derived value
// before it is returned to a caller.
func (s *SLAService) Decorate(ctx context.Context, kase *domain.Case) error {
	tier, err := s.DeriveTier(ctx, kase)
	if err != nil {
		return err
	}
	kase.OverdueTier = &tier
	return nil
}

// RecomputeResult summarizes one bulk recomputation pass.
type RecomputeResult struct {
	Evaluated int `json:"evaluated"`
	Updated   int `json:"updated"`
	Escalated int `json:"escalated"`
}

// BulkRecompute re-derives the tier of every actively worked case and
// persists changes. Tier increases emit an escalation event; decreases are
// persisted silently (the configuration may have been relaxed).
func (s *SLAService) BulkRecompute(ctx context.Context) (*RecomputeResult, error) {
	active, err := s.cases.ListActiveForSLA(ctx)
	if err != nil {
		return nil, err
	}

	configs := map[domain.CasePriority]*domain.SLAConfig{}
	result := &RecomputeResult{}
	now := s.now()
	for i := range active {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		kase := &active[i]
		cfg, ok := configs[kase.Priority]
		if !ok {
			cfg, err = s.ConfigFor(ctx, kase.Priority)
			if err != nil {
				s.logger.Warn("missing sla configuration, skipping priority",
					zap.String("priority", string(kase.Priority)), zap.Error(err))
				configs[kase.Priority] = nil
				continue
			}
			configs[kase.Priority] = cfg
		}
		if cfg == nil {
			continue
		}

		result.Evaluated++
		tier := domain.OverdueTier(kase.Status, kase.SLAStartedAt, *cfg, now)
		prev := 0
		if kase.OverdueTier != nil {
			prev = *kase.OverdueTier
		}
		if tier == prev {
			continue
		}

		if err := s.cases.UpdateOverdueTier(ctx, kase.CaseID, &tier); err != nil {
			s.logger.Warn("failed to persist overdue tier",
				zap.String("case_id", kase.CaseID), zap.Error(err))
			continue
		}
		result.Updated++
		if tier > prev {
			result.Escalated++
			s.metrics.RecordEscalation(string(kase.Priority), tier)
			s.publishEscalated(ctx, kase, prev, tier)
		}
	}

	s.logger.Info("overdue tiers recomputed",
		zap.Int("evaluated", result.Evaluated),
		zap.Int("updated", result.Updated),
		zap.Int("escalated", result.Escalated))
	return result, nil
}

func (s *SLAService) publishEscalated(ctx context.Context, kase *domain.Case, prev, tier int) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventCaseEscalated,
		CaseID:    kase.CaseID,
		Timestamp: s.now(),
		Payload: events.CaseEscalatedPayload{
			Priority: kase.Priority,
			OldTier:  prev,
			NewTier:  tier,
		},
	})
}

func (s *SLAService) fromCache(ctx context.Context, priority domain.CasePriority) *domain.SLAConfig {
	if s.redis == nil || s.cacheTTL <= 0 {
		return nil
	}
	raw, err := s.redis.Get(ctx, slaCacheKeyPrefix+string(priority)).Bytes()
	if err != nil {
		return nil
	}
	var cfg domain.SLAConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil
	}
	return &cfg
}

func (s *SLAService) toCache(ctx context.Context, cfg *domain.SLAConfig) {
	if s.redis == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, slaCacheKeyPrefix+string(cfg.Priority), raw, s.cacheTTL).Err(); err != nil {
		s.logger.Debug("sla config cache write failed", zap.Error(err))
	}
}

func (s *SLAService) invalidate(ctx context.Context, priority domain.CasePriority) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, slaCacheKeyPrefix+string(priority)).Err(); err != nil {
		s.logger.Debug("sla config cache invalidation failed", zap.Error(err))
	}
}
