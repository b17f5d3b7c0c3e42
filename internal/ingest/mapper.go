package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/one-system/case-service/pkg/util"
)

// MappedRecord is a raw source record after field mapping: canonical field
// slots filled from the declared rules, everything unmapped preserved
// verbatim in RawExtra.
type MappedRecord struct {
	SourceSeqNo    *int
	ReportedAt     time.Time
	ServiceType    string
	ComplaintType  string
	Status         string
	Priority       string
	ReporterName   string
	ContactNumber  string
	LineUserID     string
	HandlerName    string
	Description    string
	Province       string
	DistrictOffice string
	RoadNumber     string
	GPSLat         *decimal.Decimal
	GPSLng         *decimal.Decimal
	RawExtra       map[string]any
	SchemaVersion  string
}

// Mapper applies one source's declarative mapping to raw records.
type Mapper struct {
	mapping *SourceMapping
}

// NewMapper builds a mapper for one source mapping.
func NewMapper(mapping *SourceMapping) *Mapper {
	return &Mapper{mapping: mapping}
}

// Map resolves canonical fields from a raw record. Failures are per-record:
// a malformed timestamp or number rejects this record only.
func (m *Mapper) Map(raw map[string]any) (*MappedRecord, error) {
	rec := &MappedRecord{
		RawExtra:      map[string]any{},
		SchemaVersion: m.mapping.SchemaVersion,
	}

	mapped := make(map[string]bool, len(m.mapping.Fields))
	for _, rule := range m.mapping.Fields {
		mapped[rule.Source] = true

		val, ok := raw[rule.Source]
		if !ok {
			continue
		}
		str := m.normalize(stringify(val))
		if str == "" {
			continue
		}
		if err := m.assign(rec, rule.Target, str); err != nil {
			return nil, err
		}
	}

	for key, val := range raw {
		if !mapped[key] {
			rec.RawExtra[key] = val
		}
	}

	if rec.ReportedAt.IsZero() {
		return nil, apperrors.NewMissingRequiredField(TargetReportedAt)
	}
	if rec.Description == "" {
		return nil, apperrors.NewMissingRequiredField(TargetDescription)
	}
	return rec, nil
}

// normalize trims and turns source-specific null sentinels into absence.
func (m *Mapper) normalize(value string) string {
	value = strings.TrimSpace(value)
	for _, token := range m.mapping.NullTokens {
		if strings.EqualFold(value, token) {
			return ""
		}
	}
	return value
}

func (m *Mapper) assign(rec *MappedRecord, target, value string) error {
	switch target {
	case TargetSourceSeqNo:
		seq, err := strconv.Atoi(value)
		if err != nil {
			return apperrors.NewValidationError(
				fmt.Sprintf("source_seq_no %q is not numeric", value), nil)
		}
		rec.SourceSeqNo = &seq
	case TargetReportedAt:
		parsed, err := m.parseTime(value)
		if err != nil {
			return apperrors.NewMalformedTimestamp(TargetReportedAt, value)
		}
		rec.ReportedAt = parsed
	case TargetServiceType:
		rec.ServiceType = value
	case TargetComplaintType:
		rec.ComplaintType = value
	case TargetStatus:
		rec.Status = value
	case TargetPriority:
		rec.Priority = value
	case TargetReporterName:
		rec.ReporterName = value
	case TargetContactNumber:
		rec.ContactNumber = value
	case TargetLineUserID:
		rec.LineUserID = value
	case TargetHandlerName:
		rec.HandlerName = value
	case TargetDescription:
		rec.Description = value
	case TargetProvince:
		rec.Province = value
	case TargetDistrictOffice:
		rec.DistrictOffice = value
	case TargetRoadNumber:
		rec.RoadNumber = value
	case TargetGPSLat:
		lat, err := decimal.NewFromString(value)
		if err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("gps_lat %q is not numeric", value), nil)
		}
		rec.GPSLat = &lat
	case TargetGPSLng:
		lng, err := decimal.NewFromString(value)
		if err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("gps_lng %q is not numeric", value), nil)
		}
		rec.GPSLng = &lng
	}
	return nil
}

// parseTime tries the source's declared layouts in order.
func (m *Mapper) parseTime(value string) (time.Time, error) {
	for _, layout := range m.mapping.TimeFormats {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("no declared layout matches %q", value)
}

func stringify(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; keep integers clean.
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
