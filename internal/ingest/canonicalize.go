package ingest

import (
	"strings"
	"time"

	"github.com/one-system/case-service/internal/domain"
	apperrors "github.com/one-system/case-service/pkg/util"
)

// ReferenceTables is the canonicalizer's view of the reference data provider:
// alias lookups for classifications and the set of service types that denote
// complaints. Effective immediately, rebuilt per ingestion run.
type ReferenceTables struct {
	ServiceAliases        map[string]string
	ComplaintAliases      map[string]string
	ComplaintServiceTypes map[string]bool
}

// BuildReferenceTables indexes reference rows by code and label,
// case-insensitively, so sources may carry either form.
func BuildReferenceTables(serviceTypes []domain.ServiceType, complaintTypes []domain.ComplaintType) ReferenceTables {
	tables := ReferenceTables{
		ServiceAliases:        map[string]string{},
		ComplaintAliases:      map[string]string{},
		ComplaintServiceTypes: map[string]bool{},
	}
	for _, st := range serviceTypes {
		tables.ServiceAliases[strings.ToLower(st.Code)] = st.Code
		tables.ServiceAliases[strings.ToLower(st.Label)] = st.Code
		if st.IsComplaint {
			tables.ComplaintServiceTypes[st.Code] = true
		}
	}
	for _, ct := range complaintTypes {
		tables.ComplaintAliases[strings.ToLower(ct.Code)] = ct.Code
		tables.ComplaintAliases[strings.ToLower(ct.Label)] = ct.Code
	}
	return tables
}

// Canonicalizer turns mapped records into canonical cases: classification
// aliasing, status vocabulary, and the conditional location invariant.
type Canonicalizer struct {
	refs ReferenceTables
}

// NewCanonicalizer constructs a canonicalizer over the given tables.
func NewCanonicalizer(refs ReferenceTables) *Canonicalizer {
	return &Canonicalizer{refs: refs}
}

// Canonicalize validates and normalizes one mapped record into a Case.
// The returned case has no identifier yet; the pipeline assigns one.
func (c *Canonicalizer) Canonicalize(source domain.SourceChannel, mapping *SourceMapping, rec *MappedRecord) (*domain.Case, error) {
	if rec.ServiceType == "" {
		return nil, apperrors.NewMissingRequiredField(TargetServiceType)
	}
	serviceCode, ok := c.refs.ServiceAliases[strings.ToLower(rec.ServiceType)]
	if !ok {
		return nil, apperrors.NewUnknownClassification(TargetServiceType, rec.ServiceType)
	}

	status, err := c.canonicalStatus(mapping, rec.Status)
	if err != nil {
		return nil, err
	}
	priority, err := c.canonicalPriority(mapping, rec.Priority)
	if err != nil {
		return nil, err
	}

	kase := &domain.Case{
		SourceChannel:       source,
		SourceSeqNo:         rec.SourceSeqNo,
		SourceSchemaVersion: rec.SchemaVersion,
		Status:              status,
		Priority:            priority,
		ServiceTypeCode:     serviceCode,
		Description:         rec.Description,
		GPSLat:              rec.GPSLat,
		GPSLng:              rec.GPSLng,
		ReportedAt:          rec.ReportedAt,
		RawExtra:            rec.RawExtra,
	}
	setOptional(&kase.ReporterName, rec.ReporterName)
	setOptional(&kase.ContactNumber, rec.ContactNumber)
	setOptional(&kase.LineUserID, rec.LineUserID)
	setOptional(&kase.HandlerName, rec.HandlerName)

	if c.refs.ComplaintServiceTypes[serviceCode] {
		// Complaint cases must carry a full location and sub-classification.
		if rec.ComplaintType == "" {
			return nil, apperrors.NewMissingRequiredField(TargetComplaintType)
		}
		complaintCode, ok := c.refs.ComplaintAliases[strings.ToLower(rec.ComplaintType)]
		if !ok {
			return nil, apperrors.NewUnknownClassification(TargetComplaintType, rec.ComplaintType)
		}
		if rec.Province == "" {
			return nil, apperrors.NewMissingRequiredField(TargetProvince)
		}
		if rec.DistrictOffice == "" {
			return nil, apperrors.NewMissingRequiredField(TargetDistrictOffice)
		}
		if rec.RoadNumber == "" {
			return nil, apperrors.NewMissingRequiredField(TargetRoadNumber)
		}
		kase.ComplaintTypeCode = &complaintCode
		setOptional(&kase.Province, rec.Province)
		setOptional(&kase.DistrictOffice, rec.DistrictOffice)
		setOptional(&kase.RoadNumber, rec.RoadNumber)
	}
	// Non-complaint cases keep location and complaint type null even when the
	// raw record carried them; the values survive in RawExtra.

	if kase.Status.SLAApplies() {
		// Backfilled records can arrive already in work; the clock starts at
		// the reported time, the best information the source carries.
		started := rec.ReportedAt
		kase.SLAStartedAt = &started
	}

	return kase, nil
}

func (c *Canonicalizer) canonicalStatus(mapping *SourceMapping, raw string) (domain.CaseStatus, error) {
	if raw == "" {
		return domain.CaseStatusWaitingVerify, nil
	}
	if alias, ok := mapping.StatusAliases[raw]; ok {
		raw = alias
	}
	status := domain.CaseStatus(strings.ToUpper(raw))
	switch status {
	case domain.CaseStatusWaitingVerify, domain.CaseStatusInProgress, domain.CaseStatusFollowingUp,
		domain.CaseStatusPending, domain.CaseStatusDone, domain.CaseStatusClose,
		domain.CaseStatusRejected, domain.CaseStatusCancelled, domain.CaseStatusDuplicate:
		return status, nil
	}
	return "", apperrors.NewUnknownClassification(TargetStatus, raw)
}

func (c *Canonicalizer) canonicalPriority(mapping *SourceMapping, raw string) (domain.CasePriority, error) {
	if raw == "" {
		return domain.CasePriorityMedium, nil
	}
	if alias, ok := mapping.PriorityAliases[raw]; ok {
		raw = alias
	}
	priority := domain.CasePriority(strings.ToUpper(raw))
	switch priority {
	case domain.CasePriorityCritical, domain.CasePriorityHigh, domain.CasePriorityMedium, domain.CasePriorityLow:
		return priority, nil
	}
	return "", apperrors.NewUnknownClassification(TargetPriority, raw)
}

func setOptional(dst **string, value string) {
	if value != "" {
		v := value
		*dst = &v
	}
}

// eraYear derives the identifier partition year from the reported timestamp.
func eraYear(reportedAt time.Time, offset int) int {
	return reportedAt.Year() + offset
}
