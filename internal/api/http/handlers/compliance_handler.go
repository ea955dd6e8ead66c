package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/compliance-portal/internal/api/dto"
	"github.com/spec-kit/compliance-portal/internal/domain"
	"github.com/spec-kit/compliance-portal/internal/repository"
	"github.com/spec-kit/compliance-portal/internal/service"
)

// ComplianceHandler exposes states, rules, templates, alerts and stats.
type ComplianceHandler struct {
	service *service.ComplianceService
}

// NewComplianceHandler constructs handler.
func NewComplianceHandler(complianceService *service.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{service: complianceService}
}

// ListStates GET /api/compliance/states.
func (h *ComplianceHandler) ListStates(c *fiber.Ctx) error {
	states, err := h.service.ListStates(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(states)
}

// GetState GET /api/compliance/states/:stateCode.
func (h *ComplianceHandler) GetState(c *fiber.Ctx) error {
	state, err := h.service.GetState(c.UserContext(), c.Params("stateCode"))
	if err != nil {
		return err
	}
	return c.JSON(state)
}

// UpsertState PUT /api/compliance/states/:stateCode.
func (h *ComplianceHandler) UpsertState(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	code := c.Params("stateCode")
	if err := dto.Validate(struct {
		StateCode string `json:"stateCode" validate:"state_code"`
	}{code}, ""); err != nil {
		return err
	}
	var req dto.StateRequest
	if err := parse(c, &req, "State name is required"); err != nil {
		return err
	}
	state, err := req.ToDomain()
	if err != nil {
		return err
	}

	saved, err := h.service.UpsertState(c.UserContext(), p.User.ID, code, state)
	if err != nil {
		return err
	}
	return c.JSON(saved)
}

// ListRules GET /api/compliance/rules?state=&silo=&confidence=&status=.
func (h *ComplianceHandler) ListRules(c *fiber.Ctx) error {
	rules, err := h.service.ListRules(c.UserContext(), parseRuleQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(rules)
}

// RulesForStateSilo GET /api/compliance/states/:stateCode/silo/:siloId.
func (h *ComplianceHandler) RulesForStateSilo(c *fiber.Ctx) error {
	rules, err := h.service.RulesForStateSilo(c.UserContext(), c.Params("stateCode"), domain.Silo(c.Params("siloId")))
	if err != nil {
		return err
	}
	return c.JSON(rules)
}

// GetRule GET /api/compliance/rules/:id.
func (h *ComplianceHandler) GetRule(c *fiber.Ctx) error {
	rule, err := h.service.GetRule(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(rule)
}

// CreateRule POST /api/compliance/rules.
func (h *ComplianceHandler) CreateRule(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	rule, err := parseRule(c)
	if err != nil {
		return err
	}

	created, err := h.service.CreateRule(c.UserContext(), p.User.ID, rule)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(created)
}

// UpdateRule PUT /api/compliance/rules/:id.
func (h *ComplianceHandler) UpdateRule(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	rule, err := parseRule(c)
	if err != nil {
		return err
	}

	updated, err := h.service.UpdateRule(c.UserContext(), p.User.ID, c.Params("id"), rule)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

// DeleteRule DELETE /api/compliance/rules/:id.
func (h *ComplianceHandler) DeleteRule(c *fiber.Ctx) error {
	if err := h.service.DeleteRule(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Rule deleted successfully"})
}

// ListTemplates GET /api/compliance/templates.
func (h *ComplianceHandler) ListTemplates(c *fiber.Ctx) error {
	templates, err := h.service.ListTemplates(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(templates)
}

// CreateTemplate POST /api/compliance/templates.
func (h *ComplianceHandler) CreateTemplate(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.TemplateRequest
	if err := parse(c, &req, "Category and template are required"); err != nil {
		return err
	}

	tpl, err := h.service.CreateTemplate(c.UserContext(), p.User.ID, req.ToDomain())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(tpl)
}

// ListAlerts GET /api/compliance/alerts?status=.
func (h *ComplianceHandler) ListAlerts(c *fiber.Ctx) error {
	var status *domain.AlertStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		s := domain.AlertStatus(raw)
		status = &s
	}
	alerts, err := h.service.ListAlerts(c.UserContext(), status)
	if err != nil {
		return err
	}
	return c.JSON(alerts)
}

// CreateAlert POST /api/compliance/alerts.
func (h *ComplianceHandler) CreateAlert(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.AlertRequest
	if err := parse(c, &req, "State, silo, and description are required"); err != nil {
		return err
	}

	alert, err := h.service.CreateAlert(c.UserContext(), p.User.ID, req.ToDomain())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(alert)
}

// UpdateAlert PUT /api/compliance/alerts/:id.
func (h *ComplianceHandler) UpdateAlert(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.AlertUpdateRequest
	if err := parse(c, &req, ""); err != nil {
		return err
	}

	alert, err := h.service.UpdateAlert(c.UserContext(), p.User.ID, c.Params("id"), domain.AlertStatus(req.Status), req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(alert)
}

// Stats GET /api/compliance/stats.
func (h *ComplianceHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func parseRule(c *fiber.Ctx) (*domain.ComplianceRule, error) {
	var req dto.RuleRequest
	if err := parse(c, &req, dto.MsgRuleRequired); err != nil {
		return nil, err
	}
	return req.ToDomain()
}

func parseRuleQuery(c *fiber.Ctx) repository.RuleFilter {
	filter := repository.RuleFilter{
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}
	if state := strings.TrimSpace(c.Query("state")); state != "" {
		filter.State = &state
	}
	if silo := strings.TrimSpace(c.Query("silo")); silo != "" {
		s := domain.Silo(silo)
		filter.Silo = &s
	}
	if confidence := strings.TrimSpace(c.Query("confidence")); confidence != "" {
		conf := domain.Confidence(strings.ToUpper(confidence))
		filter.Confidence = &conf
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		s := domain.RuleStatus(status)
		filter.Status = &s
	}
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		filter.Category = &category
	}
	return filter
}
