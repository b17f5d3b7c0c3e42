package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/one-system/case-service/internal/domain"
	"github.com/one-system/case-service/internal/events"
	"github.com/one-system/case-service/internal/ingest"
	"github.com/one-system/case-service/internal/observability"
	"github.com/one-system/case-service/internal/repository"
	apperrors "github.com/one-system/case-service/pkg/util"
)

// CreateCaseInput carries a directly entered case. Direct entry always
// starts at WAITING_VERIFY; backdated working statuses only arrive through
// the ingestion pipeline.
type CreateCaseInput struct {
	ServiceTypeCode   string
	ComplaintTypeCode string
	Priority          string
	Description       string
	ReporterName      string
	ContactNumber     string
	Province          string
	DistrictOffice    string
	RoadNumber        string
	GPSLat            *decimal.Decimal
	GPSLng            *decimal.Decimal
	ReportedAt        *time.Time
	AssignedOfficerID *uuid.UUID
	Notes             string
}

// CaseService serves direct case entry and read paths. Every case leaving a
// read path carries a freshly derived overdue tier, never the stored one.
type CaseService struct {
	tx         repository.TxManager
	cases      repository.CaseRepository
	history    repository.HistoryRepository
	refs       repository.ReferenceRepository
	allocator  *SequenceService
	sla        *SLAService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// CaseDependencies bundles collaborators for the service.
type CaseDependencies struct {
	TxManager     repository.TxManager
	CaseRepo      repository.CaseRepository
	HistoryRepo   repository.HistoryRepository
	ReferenceRepo repository.ReferenceRepository
	Allocator     *SequenceService
	SLAService    *SLAService
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Metrics       *observability.Metrics
}

// NewCaseService constructs the service.
func NewCaseService(deps CaseDependencies) *CaseService {
	return &CaseService{
		tx:         deps.TxManager,
		cases:      deps.CaseRepo,
		history:    deps.HistoryRepo,
		refs:       deps.ReferenceRepo,
		allocator:  deps.Allocator,
		sla:        deps.SLAService,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		now:        time.Now,
	}
}

// Create registers a directly entered case and writes its first history row
// in the same transaction.
func (s *CaseService) Create(ctx context.Context, actor domain.Actor, in CreateCaseInput) (*domain.Case, error) {
	if actor.Role != domain.RoleDispatcher && actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("direct case entry requires the DISPATCHER or ADMIN role")
	}
	if in.Description == "" {
		return nil, apperrors.NewMissingRequiredField("description")
	}

	serviceTypes, err := s.refs.ListServiceTypes(ctx)
	if err != nil {
		return nil, err
	}
	complaintTypes, err := s.refs.ListComplaintTypes(ctx)
	if err != nil {
		return nil, err
	}
	tables := ingest.BuildReferenceTables(serviceTypes, complaintTypes)

	serviceCode, ok := tables.ServiceAliases[strings.ToLower(in.ServiceTypeCode)]
	if !ok {
		return nil, apperrors.NewUnknownClassification("service_type", in.ServiceTypeCode)
	}

	priority := domain.CasePriorityMedium
	if in.Priority != "" {
		priority = domain.CasePriority(strings.ToUpper(in.Priority))
		switch priority {
		case domain.CasePriorityCritical, domain.CasePriorityHigh, domain.CasePriorityMedium, domain.CasePriorityLow:
		default:
			return nil, apperrors.NewUnknownClassification("priority", in.Priority)
		}
	}

	reportedAt := s.now()
	if in.ReportedAt != nil {
		reportedAt = *in.ReportedAt
	}

	kase := &domain.Case{
		SourceChannel:     domain.SourceChannelDirect,
		Status:            domain.CaseStatusWaitingVerify,
		Priority:          priority,
		ServiceTypeCode:   serviceCode,
		Description:       in.Description,
		GPSLat:            in.GPSLat,
		GPSLng:            in.GPSLng,
		ReportedAt:        reportedAt,
		AssignedOfficerID: in.AssignedOfficerID,
		RawExtra:          map[string]any{},
	}
	setIfPresent(&kase.ReporterName, in.ReporterName)
	setIfPresent(&kase.ContactNumber, in.ContactNumber)
	setIfPresent(&kase.Notes, in.Notes)

	if tables.ComplaintServiceTypes[serviceCode] {
		if in.ComplaintTypeCode == "" {
			return nil, apperrors.NewMissingRequiredField("complaint_type")
		}
		complaintCode, ok := tables.ComplaintAliases[strings.ToLower(in.ComplaintTypeCode)]
		if !ok {
			return nil, apperrors.NewUnknownClassification("complaint_type", in.ComplaintTypeCode)
		}
		if in.Province == "" {
			return nil, apperrors.NewMissingRequiredField("province")
		}
		if in.DistrictOffice == "" {
			return nil, apperrors.NewMissingRequiredField("district_office")
		}
		if in.RoadNumber == "" {
			return nil, apperrors.NewMissingRequiredField("road_number")
		}
		kase.ComplaintTypeCode = &complaintCode
		setIfPresent(&kase.Province, in.Province)
		setIfPresent(&kase.DistrictOffice, in.DistrictOffice)
		setIfPresent(&kase.RoadNumber, in.RoadNumber)
	}

	caseID, err := s.allocator.NextCaseID(ctx, s.allocator.EraYear(reportedAt))
	if err != nil {
		return nil, err
	}
	kase.CaseID = caseID
	received := s.now()
	kase.ReceivedAt = &received

	err = s.tx.WithinTx(ctx, func(r repository.TxRepositories) error {
		if err := r.Cases.Create(ctx, kase); err != nil {
			return err
		}
		status := kase.Status
		return r.History.Append(ctx, &domain.CaseHistory{
			CaseID:             kase.CaseID,
			ChangedByUserID:    actor.UserID,
			NewStatus:          &status,
			NewAssignedOfficer: kase.AssignedOfficerID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordIngestOutcome(string(domain.SourceChannelDirect), string(ingest.OutcomeInserted))
	s.publishCreated(ctx, actor, kase)
	s.logger.Info("case created",
		zap.String("case_id", kase.CaseID),
		zap.String("service_type", kase.ServiceTypeCode))
	return kase, nil
}

// Get returns one case with its derived overdue tier.
func (s *CaseService) Get(ctx context.Context, caseID string) (*domain.Case, error) {
	kase, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("case", map[string]any{"case_id": caseID})
		}
		return nil, err
	}
	if err := s.sla.Decorate(ctx, kase); err != nil {
		// Tier derivation needs an SLA row for the priority; without one the
		// stored tier is the best available answer.
		s.logger.Warn("tier derivation failed", zap.String("case_id", caseID), zap.Error(err))
	}
	return kase, nil
}

// List returns cases matching the filter, each with its derived tier.
func (s *CaseService) List(ctx context.Context, filter repository.CaseFilter) ([]domain.Case, error) {
	cases, err := s.cases.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range cases {
		if err := s.sla.Decorate(ctx, &cases[i]); err != nil {
			s.logger.Warn("tier derivation failed",
				zap.String("case_id", cases[i].CaseID), zap.Error(err))
		}
	}
	return cases, nil
}

// History returns the audit trail of one case in chronological order.
func (s *CaseService) History(ctx context.Context, caseID string, limit, offset int) ([]domain.CaseHistory, error) {
	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("case", map[string]any{"case_id": caseID})
		}
		return nil, err
	}
	return s.history.ListByCase(ctx, caseID, limit, offset)
}

func (s *CaseService) publishCreated(ctx context.Context, actor domain.Actor, kase *domain.Case) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventCaseCreated,
		CaseID:    kase.CaseID,
		Actor:     events.Actor{UserID: actor.UserID, Role: actor.Role},
		Timestamp: s.now(),
		Payload: events.CaseCreatedPayload{
			SourceChannel:   kase.SourceChannel,
			ServiceTypeCode: kase.ServiceTypeCode,
			Priority:        kase.Priority,
			Province:        kase.Province,
		},
	})
}

func setIfPresent(dst **string, value string) {
	if value != "" {
		v := value
		*dst = &v
	}
}
