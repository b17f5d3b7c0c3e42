package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/one-system/case-service/pkg/util"
)

func lineMapping() *SourceMapping {
	return &SourceMapping{
		SchemaVersion: "line-v1",
		TimeFormats:   []string{"2006-01-02T15:04:05Z07:00", "02/01/2006 15:04"},
		NullTokens:    []string{"-", "n/a", "ไม่ระบุ"},
		Fields: []FieldRule{
			{Source: "seq_no", Target: TargetSourceSeqNo},
			{Source: "created_time", Target: TargetReportedAt},
			{Source: "service", Target: TargetServiceType},
			{Source: "complaint_category", Target: TargetComplaintType},
			{Source: "case_status", Target: TargetStatus},
			{Source: "urgency", Target: TargetPriority},
			{Source: "display_name", Target: TargetReporterName},
			{Source: "handler", Target: TargetHandlerName},
			{Source: "detail", Target: TargetDescription},
			{Source: "province", Target: TargetProvince},
			{Source: "district", Target: TargetDistrictOffice},
			{Source: "road_no", Target: TargetRoadNumber},
			{Source: "latitude", Target: TargetGPSLat},
			{Source: "longitude", Target: TargetGPSLng},
		},
		StatusAliases:   map[string]string{"กำลังดำเนินการ": "IN_PROGRESS"},
		PriorityAliases: map[string]string{"ด่วนมาก": "HIGH"},
	}
}

func TestMapResolvesDeclaredFields(t *testing.T) {
	mapper := NewMapper(lineMapping())

	rec, err := mapper.Map(map[string]any{
		"seq_no":       float64(42),
		"created_time": "2025-06-01T09:30:00+07:00",
		"service":      "Road damage",
		"detail":       "guardrail torn off",
		"latitude":     "16.439208",
		"longitude":    "102.828888",
		"extra_field":  "kept as-is",
	})
	require.NoError(t, err)

	require.NotNil(t, rec.SourceSeqNo)
	assert.Equal(t, 42, *rec.SourceSeqNo)
	assert.Equal(t, "Road damage", rec.ServiceType)
	assert.Equal(t, "guardrail torn off", rec.Description)
	assert.Equal(t, "line-v1", rec.SchemaVersion)

	expected, _ := time.Parse(time.RFC3339, "2025-06-01T09:30:00+07:00")
	assert.True(t, rec.ReportedAt.Equal(expected))

	require.NotNil(t, rec.GPSLat)
	assert.Equal(t, "16.439208", rec.GPSLat.String())

	// Unmapped fields survive verbatim.
	assert.Equal(t, "kept as-is", rec.RawExtra["extra_field"])
	_, mapped := rec.RawExtra["seq_no"]
	assert.False(t, mapped)
}

func TestMapSecondTimeLayout(t *testing.T) {
	mapper := NewMapper(lineMapping())

	rec, err := mapper.Map(map[string]any{
		"created_time": "01/06/2025 09:30",
		"detail":       "fallen tree",
	})
	require.NoError(t, err)
	assert.Equal(t, time.June, rec.ReportedAt.Month())
	assert.Equal(t, 1, rec.ReportedAt.Day())
}

func TestMapNullTokensMeanAbsence(t *testing.T) {
	mapper := NewMapper(lineMapping())

	rec, err := mapper.Map(map[string]any{
		"created_time": "2025-06-01T09:30:00+07:00",
		"detail":       "flooded underpass",
		"display_name": "-",
		"province":     "ไม่ระบุ",
		"handler":      " n/a ",
	})
	require.NoError(t, err)
	assert.Empty(t, rec.ReporterName)
	assert.Empty(t, rec.Province)
	assert.Empty(t, rec.HandlerName)
}

func TestMapMalformedTimestamp(t *testing.T) {
	mapper := NewMapper(lineMapping())

	_, err := mapper.Map(map[string]any{
		"created_time": "yesterday evening",
		"detail":       "broken streetlight",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "MALFORMED_TIMESTAMP"))
}

func TestMapMissingRequiredFields(t *testing.T) {
	mapper := NewMapper(lineMapping())

	_, err := mapper.Map(map[string]any{"detail": "no timestamp"})
	assert.True(t, apperrors.IsCode(err, "MISSING_REQUIRED_FIELD"))

	_, err = mapper.Map(map[string]any{"created_time": "2025-06-01T09:30:00+07:00"})
	assert.True(t, apperrors.IsCode(err, "MISSING_REQUIRED_FIELD"))
}

func TestMapNonNumericSeqNo(t *testing.T) {
	mapper := NewMapper(lineMapping())

	_, err := mapper.Map(map[string]any{
		"seq_no":       "abc",
		"created_time": "2025-06-01T09:30:00+07:00",
		"detail":       "noise complaint",
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}
