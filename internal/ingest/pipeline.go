package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/one-system/case-service/internal/domain"
	"github.com/one-system/case-service/internal/events"
	"github.com/one-system/case-service/internal/observability"
	"github.com/one-system/case-service/internal/repository"
	apperrors "github.com/one-system/case-service/pkg/util"
)

// Outcome classifies the result of one input record.
type Outcome string

const (
	OutcomeInserted         Outcome = "inserted"
	OutcomeDuplicateSkipped Outcome = "duplicate_skipped"
	OutcomeRejected         Outcome = "rejected"
)

// RecordResult is the per-record accounting entry of a batch run.
type RecordResult struct {
	Index   int     `json:"index"`
	CaseID  string  `json:"case_id,omitempty"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}

// BatchResult is the complete accounting of every input record.
type BatchResult struct {
	Source     domain.SourceChannel `json:"source"`
	Results    []RecordResult       `json:"results"`
	Inserted   int                  `json:"inserted"`
	Duplicates int                  `json:"duplicates"`
	Rejected   int                  `json:"rejected"`
}

// CaseNumberAllocator hands out the next durable case identifier for an
// era-year. Implemented by the sequence service.
type CaseNumberAllocator interface {
	NextCaseID(ctx context.Context, eraYear int) (string, error)
}

// Pipeline orchestrates field mapping, canonicalization, dedup checking and
// idempotent upserts for one batch of raw source records.
type Pipeline struct {
	mappings      *MappingConfig
	cases         repository.CaseRepository
	refs          repository.ReferenceRepository
	allocator     CaseNumberAllocator
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	metrics       *observability.Metrics
	eraYearOffset int
}

// PipelineDependencies bundles collaborators for the pipeline.
type PipelineDependencies struct {
	Mappings      *MappingConfig
	CaseRepo      repository.CaseRepository
	ReferenceRepo repository.ReferenceRepository
	Allocator     CaseNumberAllocator
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	EraYearOffset int
}

// NewPipeline constructs the pipeline.
func NewPipeline(deps PipelineDependencies) *Pipeline {
	return &Pipeline{
		mappings:      deps.Mappings,
		cases:         deps.CaseRepo,
		refs:          deps.ReferenceRepo,
		allocator:     deps.Allocator,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		eraYearOffset: deps.EraYearOffset,
	}
}

// Run ingests one batch. One malformed record never aborts its siblings; the
// result always accounts for every input record. Cancelling the context stops
// between records, never mid-record, so a rerun of the same batch is safe.
func (p *Pipeline) Run(ctx context.Context, source domain.SourceChannel, records []map[string]any) (*BatchResult, error) {
	mapping, err := p.mappings.ForSource(source)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}

	serviceTypes, err := p.refs.ListServiceTypes(ctx)
	if err != nil {
		return nil, err
	}
	complaintTypes, err := p.refs.ListComplaintTypes(ctx)
	if err != nil {
		return nil, err
	}
	mapper := NewMapper(mapping)
	canon := NewCanonicalizer(BuildReferenceTables(serviceTypes, complaintTypes))

	result := &BatchResult{Source: source, Results: make([]RecordResult, 0, len(records))}
	for i, raw := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		entry := p.ingestOne(ctx, source, mapping, mapper, canon, i, raw)
		switch entry.Outcome {
		case OutcomeInserted:
			result.Inserted++
		case OutcomeDuplicateSkipped:
			result.Duplicates++
		case OutcomeRejected:
			result.Rejected++
		}
		p.metrics.RecordIngestOutcome(string(source), string(entry.Outcome))
		result.Results = append(result.Results, entry)
	}
	p.logger.Info("batch ingested",
		zap.String("source", string(source)),
		zap.Int("records", len(records)),
		zap.Int("inserted", result.Inserted),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("rejected", result.Rejected),
	)
	return result, nil
}

func (p *Pipeline) ingestOne(ctx context.Context, source domain.SourceChannel, mapping *SourceMapping, mapper *Mapper, canon *Canonicalizer, index int, raw map[string]any) RecordResult {
	rec, err := mapper.Map(raw)
	if err != nil {
		return rejected(index, err)
	}
	kase, err := canon.Canonicalize(source, mapping, rec)
	if err != nil {
		return rejected(index, err)
	}

	if kase.SourceSeqNo != nil {
		existing, err := p.cases.FindByDedupKey(ctx, source, *kase.SourceSeqNo, kase.ReportedAt)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return rejected(index, err)
		}
		if existing != nil {
			return RecordResult{Index: index, CaseID: existing.CaseID, Outcome: OutcomeDuplicateSkipped}
		}
	}

	p.resolveHandler(ctx, kase)

	caseID, err := p.allocator.NextCaseID(ctx, eraYear(kase.ReportedAt, p.eraYearOffset))
	if err != nil {
		return rejected(index, err)
	}
	kase.CaseID = caseID
	now := time.Now()
	kase.ReceivedAt = &now

	if err := p.cases.Create(ctx, kase); err != nil {
		// A concurrent run may have inserted the same dedup key between the
		// check and the insert; the unique index makes the rerun a no-op.
		if repository.IsUniqueViolation(err) {
			return RecordResult{Index: index, Outcome: OutcomeDuplicateSkipped}
		}
		return rejected(index, err)
	}

	p.publishCreated(ctx, kase)
	return RecordResult{Index: index, CaseID: kase.CaseID, Outcome: OutcomeInserted}
}

// resolveHandler re-attempts the handler-name lookup on every run. A missing
// mapping is never an error: the case stays unassigned and the name is kept
// so an administrator can map it later.
func (p *Pipeline) resolveHandler(ctx context.Context, kase *domain.Case) {
	if kase.HandlerName == nil {
		return
	}
	mapping, err := p.refs.ResolveHandler(ctx, *kase.HandlerName)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, err := p.refs.CreateHandler(ctx, *kase.HandlerName); err != nil {
			p.logger.Warn("failed to register unresolved handler name",
				zap.String("handler_name", *kase.HandlerName), zap.Error(err))
		}
		p.logger.Info("handler name unresolved, case left unassigned",
			zap.String("handler_name", *kase.HandlerName))
		return
	}
	if err != nil {
		p.logger.Warn("handler lookup failed", zap.String("handler_name", *kase.HandlerName), zap.Error(err))
		return
	}
	if mapping.UserID != nil && mapping.IsActive {
		kase.AssignedOfficerID = mapping.UserID
	}
}

func (p *Pipeline) publishCreated(ctx context.Context, kase *domain.Case) {
	if p.dispatcher == nil {
		return
	}
	_ = p.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventCaseCreated,
		CaseID:    kase.CaseID,
		Timestamp: time.Now(),
		Payload: events.CaseCreatedPayload{
			SourceChannel:   kase.SourceChannel,
			ServiceTypeCode: kase.ServiceTypeCode,
			Priority:        kase.Priority,
			Province:        kase.Province,
		},
	})
}

func rejected(index int, err error) RecordResult {
	domainErr := apperrors.ToDomainError(err)
	return RecordResult{
		Index:   index,
		Outcome: OutcomeRejected,
		Reason:  domainErr.Code + ": " + domainErr.Message,
	}
}
