package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/one-system/case-service/internal/api/dto"
	"github.com/one-system/case-service/internal/auth"
	"github.com/one-system/case-service/internal/domain"
	"github.com/one-system/case-service/internal/repository"
	"github.com/one-system/case-service/internal/service"
	apperrors "github.com/one-system/case-service/pkg/util"
)

// CasesHandler serves case entry, reads and lifecycle endpoints.
type CasesHandler struct {
	cases       *service.CaseService
	transitions *service.TransitionService
}

// NewCasesHandler constructs handler.
func NewCasesHandler(cases *service.CaseService, transitions *service.TransitionService) *CasesHandler {
	return &CasesHandler{cases: cases, transitions: transitions}
}

// Create POST /cases.
func (h *CasesHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	kase, err := h.cases.Create(c.UserContext(), principal.Actor(), service.CreateCaseInput{
		ServiceTypeCode:   req.ServiceTypeCode,
		ComplaintTypeCode: req.ComplaintTypeCode,
		Priority:          req.Priority,
		Description:       req.Description,
		ReporterName:      req.ReporterName,
		ContactNumber:     req.ContactNumber,
		Province:          req.Province,
		DistrictOffice:    req.DistrictOffice,
		RoadNumber:        req.RoadNumber,
		GPSLat:            req.GPSLat,
		GPSLng:            req.GPSLng,
		ReportedAt:        req.ReportedAt,
		AssignedOfficerID: req.AssignedOfficerID,
		Notes:             req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCaseResponse(kase)})
}

// List GET /cases.
func (h *CasesHandler) List(c *fiber.Ctx) error {
	filter := parseCaseQuery(c)
	cases, err := h.cases.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.CaseResponse, 0, len(cases))
	for i := range cases {
		items = append(items, dto.NewCaseResponse(&cases[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /cases/:id.
func (h *CasesHandler) Get(c *fiber.Ctx) error {
	kase, err := h.cases.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCaseResponse(kase)})
}

// History GET /cases/:id/history.
func (h *CasesHandler) History(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	history, err := h.cases.History(c.UserContext(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryEntryResponse, 0, len(history))
	for i := range history {
		items = append(items, dto.NewHistoryEntryResponse(&history[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Transition POST /cases/:id/transition.
func (h *CasesHandler) Transition(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.To == "" {
		return apperrors.NewMissingRequiredField("to")
	}

	kase, err := h.transitions.Transition(c.UserContext(), principal.Actor(), c.Params("id"), service.TransitionInput{
		To:                domain.CaseStatus(strings.ToUpper(req.To)),
		AssigneeID:        req.AssigneeID,
		ExpectedFixDate:   req.ExpectedFixDate,
		DuplicateOfCaseID: req.DuplicateOfCaseID,
		Note:              req.Note,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCaseResponse(kase)})
}

// Assign POST /cases/:id/assign.
func (h *CasesHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	kase, err := h.transitions.Assign(c.UserContext(), principal.Actor(), c.Params("id"), req.OfficerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCaseResponse(kase)})
}

// CloseTier4 POST /cases/:id/close-tier4.
func (h *CasesHandler) CloseTier4(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CloseTier4Request
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ReasonCode == "" {
		return apperrors.NewMissingRequiredField("reason_code")
	}

	kase, err := h.transitions.CloseTier4(c.UserContext(), principal.Actor(), c.Params("id"), req.ReasonCode, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCaseResponse(kase)})
}

func parseCaseQuery(c *fiber.Ctx) repository.CaseFilter {
	filter := repository.CaseFilter{
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	}
	if raw := c.Query("source"); raw != "" {
		source := domain.SourceChannel(strings.ToUpper(raw))
		filter.SourceChannel = &source
	}
	for _, raw := range splitCSV(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.CaseStatus(strings.ToUpper(raw)))
	}
	for _, raw := range splitCSV(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.CasePriority(strings.ToUpper(raw)))
	}
	if raw := c.Query("province"); raw != "" {
		filter.Province = &raw
	}
	if raw := c.Query("district_office"); raw != "" {
		filter.DistrictOffice = &raw
	}
	if raw := c.Query("service_type"); raw != "" {
		filter.ServiceTypeCode = &raw
	}
	if raw := c.Query("assigned_officer_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			filter.AssignedOfficerID = &id
		}
	}
	if raw := c.Query("overdue_tier_min"); raw != "" {
		if tier, err := strconv.Atoi(raw); err == nil {
			filter.OverdueTierMin = &tier
		}
	}
	if raw := c.Query("reported_from"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.ReportedFrom = &ts
		}
	}
	if raw := c.Query("reported_to"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.ReportedTo = &ts
		}
	}
	return filter
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
