package service

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

// TransitionInput carries the optional fields a transition guard may require.
type TransitionInput struct {
	To                domain.CaseStatus
	AssigneeID        *uuid.UUID
	ExpectedFixDate   *time.Time
	DuplicateOfCaseID *string
	Note              string
}

type transitionRule struct {
	roles []domain.Role
	guard func(kase *domain.Case, in *TransitionInput, now time.Time) error
}

func roleAllowed(rule transitionRule, role domain.Role) bool {
	for _, allowed := range rule.roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// transitionTable is the single source of truth for legal status changes.
// Adding a transition is a table edit, never a new branch at a call site.
var transitionTable = map[domain.CaseStatus]map[domain.CaseStatus]transitionRule{
	domain.CaseStatusWaitingVerify: {
		domain.CaseStatusInProgress: {
			roles: []domain.Role{domain.RoleDispatcher, domain.RoleAdmin},
			guard: guardStartWork,
		},
		domain.CaseStatusRejected: {
			roles: []domain.Role{domain.RoleDispatcher, domain.RoleAdmin},
		},
		domain.CaseStatusCancelled: {
			roles: []domain.Role{domain.RoleDispatcher, domain.RoleAdmin},
		},
		domain.CaseStatusDuplicate: {
			roles: []domain.Role{domain.RoleDispatcher, domain.RoleAdmin},
			guard: guardDuplicate,
		},
	},
	domain.CaseStatusInProgress: {
		domain.CaseStatusFollowingUp: {
			roles: []domain.Role{domain.RoleOfficer, domain.RoleAdmin},
		},
		domain.CaseStatusPending: {
			roles: []domain.Role{domain.RoleOfficer, domain.RoleAdmin},
			guard: guardHold,
		},
		domain.CaseStatusDone: {
			roles: []domain.Role{domain.RoleOfficer, domain.RoleAdmin},
		},
	},
	domain.CaseStatusFollowingUp: {
		domain.CaseStatusInProgress: {
			roles: []domain.Role{domain.RoleOfficer, domain.RoleAdmin},
		},
		domain.CaseStatusDone: {
			roles: []domain.Role{domain.RoleOfficer, domain.RoleAdmin},
		},
	},
	domain.CaseStatusPending: {
		domain.CaseStatusInProgress: {
			roles: []domain.Role{domain.RoleOfficer, domain.RoleAdmin},
		},
		domain.CaseStatusDone: {
			roles: []domain.Role{domain.RoleOfficer, domain.RoleAdmin},
		},
	},
	domain.CaseStatusDone: {
		domain.CaseStatusClose: {
			roles: []domain.Role{domain.RoleOfficer, domain.RoleAdmin},
		},
		// Reopen. The SLA clock is deliberately not reset so the original
		// breach history survives.
		domain.CaseStatusWaitingVerify: {
			roles: []domain.Role{domain.RoleAdmin},
		},
	},
}

func guardStartWork(kase *domain.Case, in *TransitionInput, now time.Time) error {
	if in.AssigneeID == nil && kase.AssignedOfficerID == nil {
		return apperrors.NewMissingRequiredField("assignee")
	}
	return nil
}

func guardHold(kase *domain.Case, in *TransitionInput, now time.Time) error {
	if in.ExpectedFixDate == nil {
		return apperrors.NewMissingRequiredField("expected_fix_date")
	}
	return nil
}

func guardDuplicate(kase *domain.Case, in *TransitionInput, now time.Time) error {
	if in.DuplicateOfCaseID == nil || *in.DuplicateOfCaseID == "" {
		return apperrors.NewMissingRequiredField("duplicate_of_case_id")
	}
	if *in.DuplicateOfCaseID == kase.CaseID {
		return apperrors.NewValidationError("case cannot duplicate itself", nil)
	}
	return nil
}

// TransitionService is the gatekeeper for every status and assignment change.
// Each successful transition commits the case update and the history append
// in one transaction; the lifecycle event is emitted after commit.
type TransitionService struct {
	tx         repository.TxManager
	cases      repository.CaseRepository
	refs       repository.ReferenceRepository
	sla        *SLAService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// TransitionDependencies bundles collaborators for the service.
type TransitionDependencies struct {
	TxManager     repository.TxManager
	CaseRepo      repository.CaseRepository
	ReferenceRepo repository.ReferenceRepository
	SLAService    *SLAService
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Metrics       *observability.Metrics
}

// NewTransitionService constructs the service.
func NewTransitionService(deps TransitionDependencies) *TransitionService {
	return &TransitionService{
		tx:         deps.TxManager,
		cases:      deps.CaseRepo,
		refs:       deps.ReferenceRepo,
		sla:        deps.SLAService,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		now:        time.Now,
	}
}

// Transition validates and applies one status change.
func (s *TransitionService) Transition(ctx context.Context, actor domain.Actor, caseID string, in TransitionInput) (*domain.Case, error) {
	if in.DuplicateOfCaseID != nil && *in.DuplicateOfCaseID != "" {
		if _, err := s.cases.GetByID(ctx, *in.DuplicateOfCaseID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("duplicate-of case", map[string]any{"case_id": *in.DuplicateOfCaseID})
			}
			return nil, err
		}
	}

	var updated *domain.Case
	var prevStatus domain.CaseStatus
	err := s.tx.WithinTx(ctx, func(r repository.TxRepositories) error {
		kase, err := r.Cases.GetByID(ctx, caseID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("case", map[string]any{"case_id": caseID})
			}
			return err
		}

		rule, ok := transitionTable[kase.Status][in.To]
		if !ok {
			return apperrors.NewInvalidTransition(string(kase.Status), string(in.To), nil)
		}
		if !roleAllowed(rule, actor.Role) {
			return apperrors.NewForbidden("role " + string(actor.Role) + " may not apply this transition")
		}
		now := s.now()
		if rule.guard != nil {
			if err := rule.guard(kase, &in, now); err != nil {
				return err
			}
		}

		prevStatus = kase.Status
		prevOfficer := kase.AssignedOfficerID
		s.apply(kase, &in, now)

		applied, err := r.Cases.UpdateLifecycle(ctx, kase, prevStatus)
		if err != nil {
			return err
		}
		if !applied {
			// A concurrent transition won; the loser sees a conflict, never
			// a corrupted intermediate state.
			return apperrors.NewConflict("case was modified concurrently", map[string]any{"case_id": caseID})
		}

		entry := &domain.CaseHistory{
			CaseID:              kase.CaseID,
			ChangedByUserID:     actor.UserID,
			PrevStatus:          &prevStatus,
			NewStatus:           &kase.Status,
			PrevAssignedOfficer: prevOfficer,
			NewAssignedOfficer:  kase.AssignedOfficerID,
		}
		if in.Note != "" {
			note := in.Note
			entry.ChangeNotes = &note
		}
		if err := r.History.Append(ctx, entry); err != nil {
			return err
		}
		updated = kase
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransition(string(prevStatus), string(updated.Status))
	s.publishStatusChanged(ctx, actor, updated, prevStatus, in.Note)
	return updated, nil
}

func (s *TransitionService) apply(kase *domain.Case, in *TransitionInput, now time.Time) {
	kase.Status = in.To
	switch in.To {
	case domain.CaseStatusInProgress:
		if in.AssigneeID != nil {
			kase.AssignedOfficerID = in.AssigneeID
		}
		if kase.SLAStartedAt == nil {
			started := now
			kase.SLAStartedAt = &started
		}
	case domain.CaseStatusPending:
		kase.ExpectedFixDate = in.ExpectedFixDate
	case domain.CaseStatusDuplicate:
		kase.DuplicateOfCaseID = in.DuplicateOfCaseID
	case domain.CaseStatusClose:
		closed := now
		kase.ClosedAt = &closed
	}
}

// CloseTier4 is the administrative closure path for cases whose derived
// overdue tier has reached 4. It is never counted as a resolution: the
// closure reason code stays on the case and downstream aggregation excludes
// it from resolved-within-SLA figures.
func (s *TransitionService) CloseTier4(ctx context.Context, actor domain.Actor, caseID, reasonCode, note string) (*domain.Case, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("tier-4 closure requires the ADMIN role")
	}

	reason, err := s.refs.GetClosureReason(ctx, reasonCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("unknown closure reason code", map[string]any{"reason_code": reasonCode})
		}
		return nil, err
	}
	if reason.RequiresNote && note == "" {
		return nil, apperrors.NewMissingRequiredField("note")
	}

	var updated *domain.Case
	var prevStatus domain.CaseStatus
	err = s.tx.WithinTx(ctx, func(r repository.TxRepositories) error {
		kase, err := r.Cases.GetByID(ctx, caseID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("case", map[string]any{"case_id": caseID})
			}
			return err
		}

		cfg, err := s.sla.ConfigFor(ctx, kase.Priority)
		if err != nil {
			return err
		}
		now := s.now()
		if tier := domain.OverdueTier(kase.Status, kase.SLAStartedAt, *cfg, now); tier != 4 {
			return apperrors.NewValidationError("case is not at overdue tier 4",
				map[string]any{"case_id": caseID, "derived_tier": tier})
		}

		prevStatus = kase.Status
		kase.Status = domain.CaseStatusClose
		closed := now
		kase.ClosedAt = &closed
		code := reason.Code
		kase.ClosureReasonCode = &code
		if note != "" {
			n := note
			kase.Notes = &n
		}

		applied, err := r.Cases.UpdateLifecycle(ctx, kase, prevStatus)
		if err != nil {
			return err
		}
		if !applied {
			return apperrors.NewConflict("case was modified concurrently", map[string]any{"case_id": caseID})
		}

		entry := &domain.CaseHistory{
			CaseID:          kase.CaseID,
			ChangedByUserID: actor.UserID,
			PrevStatus:      &prevStatus,
			NewStatus:       &kase.Status,
		}
		historyNote := "tier-4 closure: " + reason.Code
		if note != "" {
			historyNote += " - " + note
		}
		entry.ChangeNotes = &historyNote
		if err := r.History.Append(ctx, entry); err != nil {
			return err
		}
		updated = kase
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransition(string(prevStatus), string(updated.Status))
	s.publishStatusChanged(ctx, actor, updated, prevStatus, note)
	return updated, nil
}

// Assign changes the assigned officer without a status change, with the
// history appended in the same transaction.
func (s *TransitionService) Assign(ctx context.Context, actor domain.Actor, caseID string, officerID *uuid.UUID) (*domain.Case, error) {
	if actor.Role != domain.RoleDispatcher && actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("assignment requires the DISPATCHER or ADMIN role")
	}

	var updated *domain.Case
	var prevOfficer *uuid.UUID
	err := s.tx.WithinTx(ctx, func(r repository.TxRepositories) error {
		kase, err := r.Cases.GetByID(ctx, caseID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("case", map[string]any{"case_id": caseID})
			}
			return err
		}
		if kase.Status.IsTerminal() {
			return apperrors.NewValidationError("cannot reassign a terminal case", map[string]any{"status": kase.Status})
		}

		prevOfficer = kase.AssignedOfficerID
		if err := r.Cases.UpdateAssignment(ctx, caseID, officerID); err != nil {
			return err
		}
		kase.AssignedOfficerID = officerID

		entry := &domain.CaseHistory{
			CaseID:              kase.CaseID,
			ChangedByUserID:     actor.UserID,
			PrevAssignedOfficer: prevOfficer,
			NewAssignedOfficer:  officerID,
		}
		if err := r.History.Append(ctx, entry); err != nil {
			return err
		}
		updated = kase
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishAssigned(ctx, actor, updated, prevOfficer, officerID)
	return updated, nil
}

func (s *TransitionService) publishStatusChanged(ctx context.Context, actor domain.Actor, kase *domain.Case, prev domain.CaseStatus, note string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventCaseStatusChanged,
		CaseID:    kase.CaseID,
		Actor:     events.Actor{UserID: actor.UserID, Role: actor.Role},
		Timestamp: s.now(),
		Payload: events.CaseStatusChangedPayload{
			OldStatus:         prev,
			NewStatus:         kase.Status,
			AssignedOfficerID: kase.AssignedOfficerID,
			ClosureReasonCode: kase.ClosureReasonCode,
			Note:              note,
		},
	})
}

func (s *TransitionService) publishAssigned(ctx context.Context, actor domain.Actor, kase *domain.Case, prev, next *uuid.UUID) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventCaseAssigned,
		CaseID:    kase.CaseID,
		Actor:     events.Actor{UserID: actor.UserID, Role: actor.Role},
		Timestamp: s.now(),
		Payload:   events.CaseAssignedPayload{PrevOfficerID: prev, NewOfficerID: next},
	})
}
