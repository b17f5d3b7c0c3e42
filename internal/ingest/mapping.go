package ingest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/one-system/case-service/internal/domain"
)

// Canonical field targets a mapping rule may resolve to.
const (
	TargetSourceSeqNo    = "source_seq_no"
	TargetReportedAt     = "reported_at"
	TargetServiceType    = "service_type"
	TargetComplaintType  = "complaint_type"
	TargetStatus         = "status"
	TargetPriority       = "priority"
	TargetReporterName   = "reporter_name"
	TargetContactNumber  = "contact_number"
	TargetLineUserID     = "line_user_id"
	TargetHandlerName    = "handler_name"
	TargetDescription    = "description"
	TargetProvince       = "province"
	TargetDistrictOffice = "district_office"
	TargetRoadNumber     = "road_number"
	TargetGPSLat         = "gps_lat"
	TargetGPSLng         = "gps_lng"
)

var knownTargets = map[string]bool{
	TargetSourceSeqNo:    true,
	TargetReportedAt:     true,
	TargetServiceType:    true,
	TargetComplaintType:  true,
	TargetStatus:         true,
	TargetPriority:       true,
	TargetReporterName:   true,
	TargetContactNumber:  true,
	TargetLineUserID:     true,
	TargetHandlerName:    true,
	TargetDescription:    true,
	TargetProvince:       true,
	TargetDistrictOffice: true,
	TargetRoadNumber:     true,
	TargetGPSLat:         true,
	TargetGPSLng:         true,
}

// FieldRule maps one raw source field onto a canonical target.
type FieldRule struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// SourceMapping is the declarative mapping for one source channel: ordered
// field rules, accepted time layouts, null sentinel tokens, and the alias
// tables for source-specific status and priority vocabulary.
type SourceMapping struct {
	SchemaVersion   string            `yaml:"schema_version"`
	TimeFormats     []string          `yaml:"time_formats"`
	NullTokens      []string          `yaml:"null_tokens"`
	Fields          []FieldRule       `yaml:"fields"`
	StatusAliases   map[string]string `yaml:"status_aliases"`
	PriorityAliases map[string]string `yaml:"priority_aliases"`
}

// MappingConfig holds all per-source mappings, loaded once at pipeline start.
type MappingConfig struct {
	Sources map[string]SourceMapping `yaml:"sources"`
}

// LoadMappingConfig reads and validates the mapping file.
func LoadMappingConfig(path string) (*MappingConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping config: %w", err)
	}
	var cfg MappingConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse mapping config: %w", err)
	}
	for source, mapping := range cfg.Sources {
		if mapping.SchemaVersion == "" {
			return nil, fmt.Errorf("source %s: schema_version is required", source)
		}
		if len(mapping.TimeFormats) == 0 {
			return nil, fmt.Errorf("source %s: at least one time format is required", source)
		}
		for _, rule := range mapping.Fields {
			if !knownTargets[rule.Target] {
				return nil, fmt.Errorf("source %s: unknown mapping target %q", source, rule.Target)
			}
		}
	}
	return &cfg, nil
}

// ForSource returns the mapping for a source channel.
func (c *MappingConfig) ForSource(source domain.SourceChannel) (*SourceMapping, error) {
	mapping, ok := c.Sources[string(source)]
	if !ok {
		return nil, fmt.Errorf("no mapping configured for source %s", source)
	}
	return &mapping, nil
}
