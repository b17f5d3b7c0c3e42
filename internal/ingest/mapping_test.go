package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/one-system/case-service/internal/domain"
)

func writeMapping(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mappings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMappingConfig(t *testing.T) {
	path := writeMapping(t, `
sources:
  LINE:
    schema_version: "line-v1"
    time_formats:
      - "2006-01-02T15:04:05Z07:00"
    null_tokens: ["-"]
    fields:
      - source: seq_no
        target: source_seq_no
      - source: created_time
        target: reported_at
    status_aliases:
      "รอตรวจสอบ": WAITING_VERIFY
`)
	cfg, err := LoadMappingConfig(path)
	require.NoError(t, err)

	mapping, err := cfg.ForSource(domain.SourceChannelLine)
	require.NoError(t, err)
	assert.Equal(t, "line-v1", mapping.SchemaVersion)
	assert.Len(t, mapping.Fields, 2)
	assert.Equal(t, "WAITING_VERIFY", mapping.StatusAliases["รอตรวจสอบ"])

	_, err = cfg.ForSource(domain.SourceChannelCallCenter)
	assert.Error(t, err)
}

func TestLoadMappingConfigRejectsUnknownTarget(t *testing.T) {
	path := writeMapping(t, `
sources:
  LINE:
    schema_version: "line-v1"
    time_formats: ["2006-01-02"]
    fields:
      - source: foo
        target: not_a_real_target
`)
	_, err := LoadMappingConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mapping target")
}

func TestLoadMappingConfigRequiresSchemaVersionAndFormats(t *testing.T) {
	_, err := LoadMappingConfig(writeMapping(t, `
sources:
  LINE:
    time_formats: ["2006-01-02"]
`))
	assert.Error(t, err)

	_, err = LoadMappingConfig(writeMapping(t, `
sources:
  LINE:
    schema_version: "line-v1"
`))
	assert.Error(t, err)
}

func TestLoadMappingConfigMissingFile(t *testing.T) {
	_, err := LoadMappingConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
