package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/one-system/case-service/internal/domain"
	"github.com/one-system/case-service/internal/events"
	"github.com/one-system/case-service/internal/repository"
)

type fakeCaseRepo struct {
	mu    sync.Mutex
	cases map[string]*domain.Case

	updateLifecycleResult *bool
	tierUpdates           map[string]int
}

func newFakeCaseRepo() *fakeCaseRepo {
	return &fakeCaseRepo{cases: map[string]*domain.Case{}, tierUpdates: map[string]int{}}
}

func (f *fakeCaseRepo) put(c *domain.Case) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *c
	f.cases[c.CaseID] = &clone
}

func (f *fakeCaseRepo) Create(ctx context.Context, c *domain.Case) error {
	f.put(c)
	return nil
}

func (f *fakeCaseRepo) GetByID(ctx context.Context, caseID string) (*domain.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cases[caseID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *c
	return &clone, nil
}

func (f *fakeCaseRepo) UpdateLifecycle(ctx context.Context, c *domain.Case, expected domain.CaseStatus) (bool, error) {
	if f.updateLifecycleResult != nil {
		return *f.updateLifecycleResult, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.cases[c.CaseID]
	if !ok || current.Status != expected {
		return false, nil
	}
	clone := *c
	f.cases[c.CaseID] = &clone
	return true, nil
}

func (f *fakeCaseRepo) UpdateAssignment(ctx context.Context, caseID string, officerID *uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cases[caseID]
	if !ok {
		return pgx.ErrNoRows
	}
	c.AssignedOfficerID = officerID
	return nil
}

func (f *fakeCaseRepo) UpdateOverdueTier(ctx context.Context, caseID string, tier *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.cases[caseID]; ok {
		c.OverdueTier = tier
	}
	if tier != nil {
		f.tierUpdates[caseID] = *tier
	}
	return nil
}

func (f *fakeCaseRepo) FindByDedupKey(ctx context.Context, channel domain.SourceChannel, seqNo int, reportedAt time.Time) (*domain.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cases {
		if c.SourceChannel == channel && c.SourceSeqNo != nil && *c.SourceSeqNo == seqNo && c.ReportedAt.Equal(reportedAt) {
			clone := *c
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeCaseRepo) ListWithFilter(ctx context.Context, filter repository.CaseFilter) ([]domain.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Case
	for _, c := range f.cases {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCaseRepo) ListActiveForSLA(ctx context.Context) ([]domain.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Case
	for _, c := range f.cases {
		if c.Status.SLAApplies() && c.SLAStartedAt != nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.CaseHistory
}

func (f *fakeHistoryRepo) Append(ctx context.Context, entry *domain.CaseHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = uuid.New()
	entry.ChangedAt = time.Now()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistoryRepo) ListByCase(ctx context.Context, caseID string, limit, offset int) ([]domain.CaseHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CaseHistory
	for _, e := range f.entries {
		if e.CaseID == caseID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeTxManager runs the function directly against the fakes; there is no
// transactional boundary to simulate.
type fakeTxManager struct {
	cases   repository.CaseRepository
	history repository.HistoryRepository
}

func (f *fakeTxManager) WithinTx(ctx context.Context, fn func(r repository.TxRepositories) error) error {
	return fn(repository.TxRepositories{Cases: f.cases, History: f.history})
}

type fakeSLARepo struct {
	mu      sync.Mutex
	configs map[domain.CasePriority]domain.SLAConfig
}

func newFakeSLARepo(configs ...domain.SLAConfig) *fakeSLARepo {
	repo := &fakeSLARepo{configs: map[domain.CasePriority]domain.SLAConfig{}}
	for _, cfg := range configs {
		repo.configs[cfg.Priority] = cfg
	}
	return repo
}

func (f *fakeSLARepo) GetByPriority(ctx context.Context, priority domain.CasePriority) (*domain.SLAConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.configs[priority]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &cfg, nil
}

func (f *fakeSLARepo) List(ctx context.Context) ([]domain.SLAConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SLAConfig
	for _, cfg := range f.configs {
		out = append(out, cfg)
	}
	return out, nil
}

func (f *fakeSLARepo) Upsert(ctx context.Context, cfg *domain.SLAConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg.ID = uuid.New()
	cfg.UpdatedAt = time.Now()
	f.configs[cfg.Priority] = *cfg
	return nil
}

type fakeReferenceRepo struct {
	serviceTypes   []domain.ServiceType
	complaintTypes []domain.ComplaintType
	closureReasons map[string]domain.ClosureReason
	handlers       map[string]domain.HandlerMapping
}

func newFakeReferenceRepo() *fakeReferenceRepo {
	return &fakeReferenceRepo{
		serviceTypes: []domain.ServiceType{
			{Code: "ROAD_DAMAGE", Label: "Road damage", IsComplaint: true},
			{Code: "GENERAL_INQUIRY", Label: "General inquiry", IsComplaint: false},
		},
		complaintTypes: []domain.ComplaintType{
			{Code: "POTHOLE", Label: "Pothole"},
			{Code: "FLOODING", Label: "Flooding"},
		},
		closureReasons: map[string]domain.ClosureReason{
			"BUDGET_PENDING": {Code: "BUDGET_PENDING", Label: "Awaiting budget allocation"},
			"OTHER":          {Code: "OTHER", Label: "Other reason", RequiresNote: true},
		},
		handlers: map[string]domain.HandlerMapping{},
	}
}

func (f *fakeReferenceRepo) ListServiceTypes(ctx context.Context) ([]domain.ServiceType, error) {
	return f.serviceTypes, nil
}

func (f *fakeReferenceRepo) ListComplaintTypes(ctx context.Context) ([]domain.ComplaintType, error) {
	return f.complaintTypes, nil
}

func (f *fakeReferenceRepo) GetClosureReason(ctx context.Context, code string) (*domain.ClosureReason, error) {
	reason, ok := f.closureReasons[code]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &reason, nil
}

func (f *fakeReferenceRepo) ResolveHandler(ctx context.Context, displayName string) (*domain.HandlerMapping, error) {
	mapping, ok := f.handlers[displayName]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &mapping, nil
}

func (f *fakeReferenceRepo) CreateHandler(ctx context.Context, displayName string) (*domain.HandlerMapping, error) {
	mapping := domain.HandlerMapping{ID: uuid.New(), DisplayName: displayName, IsActive: true, CreatedAt: time.Now()}
	f.handlers[displayName] = mapping
	return &mapping, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *recordingDispatcher) byType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
