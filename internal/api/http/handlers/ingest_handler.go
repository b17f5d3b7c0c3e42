package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/one-system/case-service/internal/api/dto"
	"github.com/one-system/case-service/internal/domain"
	"github.com/one-system/case-service/internal/ingest"
	apperrors "github.com/one-system/case-service/pkg/util"
)

// IngestHandler serves batch ingestion for external sources.
type IngestHandler struct {
	pipeline *ingest.Pipeline
}

// NewIngestHandler constructs handler.
func NewIngestHandler(pipeline *ingest.Pipeline) *IngestHandler {
	return &IngestHandler{pipeline: pipeline}
}

// IngestBatch POST /ingest/batch.
func (h *IngestHandler) IngestBatch(c *fiber.Ctx) error {
	var req dto.IngestBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Source == "" {
		return apperrors.NewMissingRequiredField("source")
	}
	if len(req.Records) == 0 {
		return apperrors.NewValidationError("records must not be empty", nil)
	}

	source := domain.SourceChannel(strings.ToUpper(req.Source))
	result, err := h.pipeline.Run(c.UserContext(), source, req.Records)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIngestBatchResponse(result)})
}
