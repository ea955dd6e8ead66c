package dto

import (
	"strings"

	"github.com/spec-kit/compliance-portal/internal/domain"
	"github.com/spec-kit/compliance-portal/internal/service"
)

// MsgRuleRequired is reported when a rule misses a mandatory field.
const MsgRuleRequired = "Rule ID, state, silo, authority, category, rule text, and sources are required"

// RuleRequest is the create and full-update payload of a rule.
type RuleRequest struct {
	RuleID         string            `json:"ruleId" validate:"required,rule_id"`
	State          string            `json:"state" validate:"required,state_code"`
	Silo           string            `json:"silo" validate:"required,oneof=public_adjusting construction insurance_carrier legal"`
	Authority      string            `json:"authority" validate:"required,oneof=REG STATUTE CASE ADVISORY"`
	Confidence     string            `json:"confidence" validate:"omitempty,oneof=HIGH MEDIUM LOW"`
	Category       string            `json:"category" validate:"required"`
	Subcategory    string            `json:"subcategory"`
	RuleText       string            `json:"ruleText" validate:"required"`
	Description    string            `json:"description"`
	Sources        []string          `json:"sources" validate:"required,min=1,dive,required"`
	LeveragePoints []string          `json:"leveragePoints"`
	Version        string            `json:"version"`
	SunsetDate     string            `json:"sunsetDate"`
	Tests          []domain.RuleTest `json:"tests"`
	Status         string            `json:"status" validate:"omitempty,oneof=active pending archived"`
}

func (r RuleRequest) ToDomain() (*domain.ComplianceRule, error) {
	sunset, err := parseOptionalDate("sunsetDate", r.SunsetDate)
	if err != nil {
		return nil, err
	}
	return &domain.ComplianceRule{
		RuleID:         r.RuleID,
		State:          r.State,
		Silo:           domain.Silo(r.Silo),
		Authority:      domain.Authority(r.Authority),
		Confidence:     domain.Confidence(r.Confidence),
		Category:       r.Category,
		Subcategory:    r.Subcategory,
		RuleText:       r.RuleText,
		Description:    r.Description,
		Sources:        r.Sources,
		LeveragePoints: r.LeveragePoints,
		Version:        strings.TrimSpace(r.Version),
		SunsetDate:     sunset,
		Tests:          r.Tests,
		Status:         domain.RuleStatus(r.Status),
	}, nil
}

// StateRequest upserts the overview of the state named in the path.
type StateRequest struct {
	StateName         string             `json:"stateName" validate:"required"`
	Status            string             `json:"status" validate:"omitempty,oneof=active prohibited pending research"`
	PALicenseRequired bool               `json:"paLicenseRequired"`
	LicenseInfo       domain.LicenseInfo `json:"licenseInfo"`
	Notes             string             `json:"notes"`
	LastReviewDate    string             `json:"lastReviewDate"`
	NextReviewDate    string             `json:"nextReviewDate"`
}

func (r StateRequest) ToDomain() (*domain.ComplianceState, error) {
	last, err := parseOptionalDate("lastReviewDate", r.LastReviewDate)
	if err != nil {
		return nil, err
	}
	next, err := parseOptionalDate("nextReviewDate", r.NextReviewDate)
	if err != nil {
		return nil, err
	}
	state := &domain.ComplianceState{
		StateName:         strings.TrimSpace(r.StateName),
		Status:            domain.StateStatus(r.Status),
		PALicenseRequired: r.PALicenseRequired,
		LicenseInfo:       r.LicenseInfo,
		Notes:             r.Notes,
		NextReviewDate:    next,
	}
	if last != nil {
		state.LastReviewDate = *last
	}
	return state, nil
}

// TemplateRequest creates a response template.
type TemplateRequest struct {
	Category    string   `json:"category" validate:"required"`
	Template    string   `json:"template" validate:"required"`
	Variables   []string `json:"variables"`
	Description string   `json:"description"`
	Status      string   `json:"status" validate:"omitempty,oneof=active archived"`
}

func (r TemplateRequest) ToDomain() *domain.ComplianceTemplate {
	status := domain.TemplateStatus(r.Status)
	if status == "" {
		status = domain.TemplateStatusActive
	}
	variables := r.Variables
	if variables == nil {
		variables = []string{}
	}
	return &domain.ComplianceTemplate{
		Category:    r.Category,
		Template:    r.Template,
		Variables:   variables,
		Description: r.Description,
		Status:      status,
	}
}

// AlertRequest creates an alert.
type AlertRequest struct {
	AlertID      string   `json:"alertId"`
	State        string   `json:"state" validate:"required,state_code"`
	Silo         string   `json:"silo" validate:"required,oneof=public_adjusting construction insurance_carrier legal"`
	Confidence   string   `json:"confidence" validate:"omitempty,oneof=HIGH MEDIUM LOW"`
	Description  string   `json:"description" validate:"required"`
	Category     string   `json:"category"`
	RelatedRules []string `json:"relatedRules"`
	Notes        string   `json:"notes"`
}

func (r AlertRequest) ToDomain() *domain.ComplianceAlert {
	related := r.RelatedRules
	if related == nil {
		related = []string{}
	}
	return &domain.ComplianceAlert{
		AlertID:      strings.TrimSpace(r.AlertID),
		State:        r.State,
		Silo:         domain.Silo(r.Silo),
		Confidence:   domain.Confidence(r.Confidence),
		Description:  r.Description,
		Category:     r.Category,
		RelatedRules: related,
		Notes:        r.Notes,
	}
}

// AlertUpdateRequest changes the status and notes of an alert.
type AlertUpdateRequest struct {
	Status string  `json:"status" validate:"omitempty,oneof=pending resolved dismissed"`
	Notes  *string `json:"notes"`
}

// ChatRequest asks a question, optionally continuing an existing session.
type ChatRequest struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state" validate:"omitempty,state_code"`
	Silo      string `json:"silo" validate:"omitempty,oneof=public_adjusting construction insurance_carrier legal"`
	Question  string `json:"question" validate:"required"`
}

func (r ChatRequest) ToInput() service.ChatInput {
	return service.ChatInput{
		SessionID: strings.TrimSpace(r.SessionID),
		State:     r.State,
		Silo:      domain.Silo(r.Silo),
		Question:  r.Question,
	}
}
