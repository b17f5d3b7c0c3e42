package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/one-system/case-service/internal/api/dto"
	"github.com/one-system/case-service/internal/auth"
	"github.com/one-system/case-service/internal/domain"
	"github.com/one-system/case-service/internal/service"
	apperrors "github.com/one-system/case-service/pkg/util"
)

// SLAHandler serves SLA configuration and recomputation endpoints.
type SLAHandler struct {
	sla *service.SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(sla *service.SLAService) *SLAHandler {
	return &SLAHandler{sla: sla}
}

// ListConfigs GET /sla/configs.
func (h *SLAHandler) ListConfigs(c *fiber.Ctx) error {
	configs, err := h.sla.ListConfigs(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.SLAConfigResponse, 0, len(configs))
	for i := range configs {
		items = append(items, dto.NewSLAConfigResponse(&configs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateConfig PUT /sla/configs.
func (h *SLAHandler) UpdateConfig(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SLAConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	cfg := &domain.SLAConfig{
		Priority:         domain.CasePriority(strings.ToUpper(req.Priority)),
		TempFixHours:     req.TempFixHours,
		PermanentFixDays: req.PermanentFixDays,
		OverdueT1Days:    req.OverdueT1Days,
		OverdueT2Days:    req.OverdueT2Days,
		OverdueT3Days:    req.OverdueT3Days,
		OverdueT4Days:    req.OverdueT4Days,
	}
	if err := h.sla.UpdateConfig(c.UserContext(), principal.Actor(), cfg); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSLAConfigResponse(cfg)})
}

// Recompute POST /sla/recompute.
func (h *SLAHandler) Recompute(c *fiber.Ctx) error {
	result, err := h.sla.BulkRecompute(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}
