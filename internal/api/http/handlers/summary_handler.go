package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/one-system/case-service/internal/api/dto"
	"github.com/one-system/case-service/internal/service"
	apperrors "github.com/one-system/case-service/pkg/util"
)

// SummaryHandler serves the daily rollup endpoints.
type SummaryHandler struct {
	summary *service.SummaryService
}

// NewSummaryHandler constructs handler.
func NewSummaryHandler(summary *service.SummaryService) *SummaryHandler {
	return &SummaryHandler{summary: summary}
}

// List GET /summaries/daily?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (h *SummaryHandler) List(c *fiber.Ctx) error {
	from, err := parseDay(c.Query("from"))
	if err != nil {
		return apperrors.NewValidationError("from must be a YYYY-MM-DD date", nil)
	}
	to, err := parseDay(c.Query("to"))
	if err != nil {
		return apperrors.NewValidationError("to must be a YYYY-MM-DD date", nil)
	}

	rows, err := h.summary.ListRange(c.UserContext(), from, to)
	if err != nil {
		return err
	}
	items := make([]dto.SummaryRowResponse, 0, len(rows))
	for i := range rows {
		items = append(items, dto.NewSummaryRowResponse(&rows[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Refresh POST /summaries/daily/refresh?day=YYYY-MM-DD.
func (h *SummaryHandler) Refresh(c *fiber.Ctx) error {
	raw := c.Query("day")
	if raw == "" {
		rows, err := h.summary.RefreshRecent(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": fiber.Map{"rows": rows}})
	}

	day, err := parseDay(raw)
	if err != nil {
		return apperrors.NewValidationError("day must be a YYYY-MM-DD date", nil)
	}
	rows, err := h.summary.RefreshDay(c.UserContext(), day)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"rows": rows}})
}

func parseDay(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", raw)
}
