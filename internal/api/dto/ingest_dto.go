package dto

import "github.com/one-system/case-service/internal/ingest"

// IngestBatchRequest carries one batch of raw source records. The records
// keep their source field names; mapping happens server side.
type IngestBatchRequest struct {
	Source  string           `json:"source"`
	Records []map[string]any `json:"records"`
}

// IngestBatchResponse reports the per-record accounting of a run.
type IngestBatchResponse struct {
	Source     string                `json:"source"`
	Inserted   int                   `json:"inserted"`
	Duplicates int                   `json:"duplicates"`
	Rejected   int                   `json:"rejected"`
	Results    []ingest.RecordResult `json:"results"`
}

// NewIngestBatchResponse maps a batch result.
func NewIngestBatchResponse(result *ingest.BatchResult) IngestBatchResponse {
	return IngestBatchResponse{
		Source:     string(result.Source),
		Inserted:   result.Inserted,
		Duplicates: result.Duplicates,
		Rejected:   result.Rejected,
		Results:    result.Results,
	}
}
