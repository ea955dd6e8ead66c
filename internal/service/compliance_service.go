package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/compliance-portal/internal/domain"
	"github.com/spec-kit/compliance-portal/internal/repository"
	apperrors "github.com/spec-kit/compliance-portal/pkg/util"
)

// ComplianceService manages the state rule catalogue.
type ComplianceService struct {
	rules     repository.RuleRepository
	templates repository.TemplateRepository
	alerts    repository.AlertRepository
	states    repository.StateRepository
	stats     repository.StatsRepository
	logger    *zap.Logger
	now       func() time.Time
}

// ComplianceDependencies encapsulates repo requirements for the compliance service.
type ComplianceDependencies struct {
	RuleRepo     repository.RuleRepository
	TemplateRepo repository.TemplateRepository
	AlertRepo    repository.AlertRepository
	StateRepo    repository.StateRepository
	StatsRepo    repository.StatsRepository
	Logger       *zap.Logger
}

// NewComplianceService builds the service.
func NewComplianceService(deps ComplianceDependencies) *ComplianceService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComplianceService{
		rules:     deps.RuleRepo,
		templates: deps.TemplateRepo,
		alerts:    deps.AlertRepo,
		states:    deps.StateRepo,
		stats:     deps.StatsRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// ListStates returns every state overview sorted by name.
func (s *ComplianceService) ListStates(ctx context.Context) ([]domain.ComplianceState, error) {
	states, err := s.states.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return states, nil
}

func (s *ComplianceService) GetState(ctx context.Context, code string) (*domain.ComplianceState, error) {
	state, err := s.states.GetByCode(ctx, code)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewNotFound("State", map[string]any{"stateCode": domain.NormalizeStateCode(code)})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return state, nil
}

// UpsertState creates or replaces the overview of the state in the path.
func (s *ComplianceService) UpsertState(ctx context.Context, actorID, code string, state *domain.ComplianceState) (*domain.ComplianceState, error) {
	state.StateCode = domain.NormalizeStateCode(code)
	state.UpdatedBy = actorID
	if state.LastReviewDate.IsZero() {
		state.LastReviewDate = s.now().UTC()
	}
	if state.Status == "" {
		state.Status = domain.StateStatusResearch
	}
	if err := s.states.Upsert(ctx, state); err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.GetState(ctx, state.StateCode)
}

// ListRules returns rules matching filter, newest first.
func (s *ComplianceService) ListRules(ctx context.Context, filter repository.RuleFilter) ([]domain.ComplianceRule, error) {
	rules, err := s.rules.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return rules, nil
}

// RulesForStateSilo lists the rules of one state and practice area.
func (s *ComplianceService) RulesForStateSilo(ctx context.Context, code string, silo domain.Silo) ([]domain.ComplianceRule, error) {
	state := domain.NormalizeStateCode(code)
	return s.ListRules(ctx, repository.RuleFilter{State: &state, Silo: &silo})
}

func (s *ComplianceService) GetRule(ctx context.Context, id string) (*domain.ComplianceRule, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewNotFound("Rule", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return rule, nil
}

// CreateRule stores a new rule; rule ids are unique.
func (s *ComplianceService) CreateRule(ctx context.Context, actorID string, rule *domain.ComplianceRule) (*domain.ComplianceRule, error) {
	rule.Normalize()
	if err := s.ensureRuleIDFree(ctx, rule.RuleID, ""); err != nil {
		return nil, err
	}
	rule.CreatedBy = actorID
	rule.UpdatedBy = actorID
	rule.LastUpdated = s.now().UTC()
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, apperrors.MapError(err)
	}
	return rule, nil
}

// UpdateRule replaces every editable field of an existing rule.
func (s *ComplianceService) UpdateRule(ctx context.Context, actorID, id string, rule *domain.ComplianceRule) (*domain.ComplianceRule, error) {
	existing, err := s.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	rule.Normalize()
	if err := s.ensureRuleIDFree(ctx, rule.RuleID, existing.ID); err != nil {
		return nil, err
	}

	rule.ID = existing.ID
	rule.CreatedBy = existing.CreatedBy
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedBy = actorID
	rule.LastUpdated = s.now().UTC()
	if err := s.rules.Update(ctx, rule); err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewNotFound("Rule", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return rule, nil
}

func (s *ComplianceService) ensureRuleIDFree(ctx context.Context, ruleID, excludeID string) error {
	taken, err := s.rules.RuleIDTaken(ctx, ruleID, excludeID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if taken {
		return apperrors.NewAlreadyExists("Rule ID already exists")
	}
	return nil
}

func (s *ComplianceService) DeleteRule(ctx context.Context, id string) error {
	if err := s.rules.Delete(ctx, id); err != nil {
		if apperrors.IsNoRows(err) {
			return apperrors.NewNotFound("Rule", map[string]any{"id": id})
		}
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("rule deleted", zap.String("id", id))
	return nil
}

func (s *ComplianceService) ListTemplates(ctx context.Context) ([]domain.ComplianceTemplate, error) {
	templates, err := s.templates.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return templates, nil
}

// CreateTemplate rejects templates using placeholders that are not declared variables.
func (s *ComplianceService) CreateTemplate(ctx context.Context, actorID string, tpl *domain.ComplianceTemplate) (*domain.ComplianceTemplate, error) {
	if missing := tpl.UndeclaredPlaceholders(); len(missing) > 0 {
		return nil, apperrors.NewValidationError("Template uses undeclared variables",
			map[string]any{"variables": missing})
	}
	tpl.Category = strings.TrimSpace(tpl.Category)
	tpl.CreatedBy = actorID
	tpl.UpdatedBy = actorID
	if err := s.templates.Create(ctx, tpl); err != nil {
		return nil, apperrors.MapError(err)
	}
	return tpl, nil
}

func (s *ComplianceService) ListAlerts(ctx context.Context, status *domain.AlertStatus) ([]domain.ComplianceAlert, error) {
	alerts, err := s.alerts.List(ctx, status)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return alerts, nil
}

// CreateAlert stores a pending alert, generating an alert id when none is given.
func (s *ComplianceService) CreateAlert(ctx context.Context, actorID string, alert *domain.ComplianceAlert) (*domain.ComplianceAlert, error) {
	alert.State = domain.NormalizeStateCode(alert.State)
	if alert.AlertID == "" {
		alert.AlertID = fmt.Sprintf("ALERT-%s-%d", alert.State, s.now().UnixNano())
	}
	if alert.Confidence == "" {
		alert.Confidence = domain.ConfidenceMedium
	}
	alert.Status = domain.AlertStatusPending
	alert.CreatedBy = actorID
	if err := s.alerts.Create(ctx, alert); err != nil {
		return nil, apperrors.MapError(err)
	}
	return alert, nil
}

// UpdateAlert changes status and notes. Leaving pending stamps who closed the
// alert and when; returning to pending clears the stamp.
func (s *ComplianceService) UpdateAlert(ctx context.Context, actorID, id string, status domain.AlertStatus, notes *string) (*domain.ComplianceAlert, error) {
	alert, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewNotFound("Alert", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}

	if status != "" && status != alert.Status {
		alert.Status = status
		if status == domain.AlertStatusPending {
			alert.ResolvedBy, alert.ResolvedAt = nil, nil
		} else {
			now := s.now().UTC()
			alert.ResolvedBy = &actorID
			alert.ResolvedAt = &now
		}
	}
	if notes != nil {
		alert.Notes = *notes
	}

	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, apperrors.MapError(err)
	}
	return alert, nil
}

// Stats returns the dashboard counters.
func (s *ComplianceService) Stats(ctx context.Context) (domain.ComplianceStats, error) {
	stats, err := s.stats.ComplianceStats(ctx)
	if err != nil {
		return domain.ComplianceStats{}, apperrors.NewInternalError(err)
	}
	return stats, nil
}
