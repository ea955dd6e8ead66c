package domain

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// Silo is the practice area a rule or alert belongs to.
type Silo string

const (
	SiloPublicAdjusting  Silo = "public_adjusting"
	SiloConstruction     Silo = "construction"
	SiloInsuranceCarrier Silo = "insurance_carrier"
	SiloLegal            Silo = "legal"
)

// Authority describes the legal weight of a rule. Display and filtering only.
type Authority string

const (
	AuthorityRegulation Authority = "REG"
	AuthorityStatute    Authority = "STATUTE"
	AuthorityCase       Authority = "CASE"
	AuthorityAdvisory   Authority = "ADVISORY"
)

// Confidence is the curator's certainty about a rule or alert.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// RuleStatus is the publication state of a rule.
type RuleStatus string

const (
	RuleStatusActive   RuleStatus = "active"
	RuleStatusPending  RuleStatus = "pending"
	RuleStatusArchived RuleStatus = "archived"
)

// DefaultRuleVersion is assigned to new rules without a version.
const DefaultRuleVersion = "1.0.0"

// RuleIDPattern is the XX-CATEGORY-SUBCATEGORY-### format of rule identifiers.
var RuleIDPattern = regexp.MustCompile(`^[A-Z]{2}-[A-Z]+-[A-Z]+-\d{3}$`)

// RuleTest is a given/expect example attached to a rule. It is never evaluated.
type RuleTest struct {
	Given  map[string]any `json:"given"`
	Expect string         `json:"expect"`
}

// ComplianceRule is a single state regulatory rule.
type ComplianceRule struct {
	ID             string     `json:"id"`
	RuleID         string     `json:"ruleId"`
	State          string     `json:"state"`
	Silo           Silo       `json:"silo"`
	Authority      Authority  `json:"authority"`
	Confidence     Confidence `json:"confidence"`
	Category       string     `json:"category"`
	Subcategory    string     `json:"subcategory,omitempty"`
	RuleText       string     `json:"ruleText"`
	Description    string     `json:"description,omitempty"`
	Sources        []string   `json:"sources"`
	LeveragePoints []string   `json:"leveragePoints"`
	Version        string     `json:"version"`
	LastUpdated    time.Time  `json:"lastUpdated"`
	SunsetDate     *time.Time `json:"sunsetDate,omitempty"`
	Tests          []RuleTest `json:"tests"`
	TestsCount     int        `json:"testsCount"`
	Status         RuleStatus `json:"status"`
	CreatedBy      string     `json:"createdBy"`
	UpdatedBy      string     `json:"updatedBy"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Normalize applies the canonical casing and derived fields before persistence.
func (r *ComplianceRule) Normalize() {
	r.RuleID = strings.ToUpper(strings.TrimSpace(r.RuleID))
	r.State = NormalizeStateCode(r.State)
	r.Category = strings.TrimSpace(r.Category)
	r.Subcategory = strings.TrimSpace(r.Subcategory)
	if r.Confidence == "" {
		r.Confidence = ConfidenceMedium
	}
	if r.Status == "" {
		r.Status = RuleStatusActive
	}
	if r.Version == "" {
		r.Version = DefaultRuleVersion
	}
	if r.Sources == nil {
		r.Sources = []string{}
	}
	if r.LeveragePoints == nil {
		r.LeveragePoints = []string{}
	}
	if r.Tests == nil {
		r.Tests = []RuleTest{}
	}
	r.TestsCount = len(r.Tests)
}

// IsSunset reports whether the rule has passed its sunset date at now.
func (r *ComplianceRule) IsSunset(now time.Time) bool {
	return r.SunsetDate != nil && !now.Before(*r.SunsetDate)
}

// TemplateStatus is the lifecycle of a response template.
type TemplateStatus string

const (
	TemplateStatusActive   TemplateStatus = "active"
	TemplateStatusArchived TemplateStatus = "archived"
)

// ComplianceTemplate is a response template with {{variable}} placeholders.
type ComplianceTemplate struct {
	ID          string         `json:"id"`
	Category    string         `json:"category"`
	Template    string         `json:"template"`
	Variables   []string       `json:"variables"`
	Description string         `json:"description,omitempty"`
	UsageCount  int            `json:"usageCount"`
	Status      TemplateStatus `json:"status"`
	CreatedBy   string         `json:"createdBy"`
	UpdatedBy   string         `json:"updatedBy"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)

// Placeholders lists the distinct variable names used in the template body.
func (t *ComplianceTemplate) Placeholders() []string {
	seen := map[string]struct{}{}
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(t.Template, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// UndeclaredPlaceholders lists placeholders missing from Variables.
func (t *ComplianceTemplate) UndeclaredPlaceholders() []string {
	declared := make(map[string]struct{}, len(t.Variables))
	for _, v := range t.Variables {
		declared[v] = struct{}{}
	}
	var missing []string
	for _, name := range t.Placeholders() {
		if _, ok := declared[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Render substitutes values into the template; unknown placeholders render empty.
func (t *ComplianceTemplate) Render(values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(t.Template, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		return values[name]
	})
}

// AlertStatus is the review state of an alert.
type AlertStatus string

const (
	AlertStatusPending   AlertStatus = "pending"
	AlertStatusResolved  AlertStatus = "resolved"
	AlertStatusDismissed AlertStatus = "dismissed"
)

// ComplianceAlert flags a possible change in a state's rules.
type ComplianceAlert struct {
	ID           string      `json:"id"`
	AlertID      string      `json:"alertId"`
	State        string      `json:"state"`
	Silo         Silo        `json:"silo"`
	Confidence   Confidence  `json:"confidence"`
	Description  string      `json:"description"`
	Category     string      `json:"category"`
	RelatedRules []string    `json:"relatedRules"`
	Status       AlertStatus `json:"status"`
	ResolvedBy   *string     `json:"resolvedBy,omitempty"`
	ResolvedAt   *time.Time  `json:"resolvedAt,omitempty"`
	Notes        string      `json:"notes,omitempty"`
	CreatedBy    string      `json:"createdBy"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// StateStatus is the portal's operating status in a state.
type StateStatus string

const (
	StateStatusActive     StateStatus = "active"
	StateStatusProhibited StateStatus = "prohibited"
	StateStatusPending    StateStatus = "pending"
	StateStatusResearch   StateStatus = "research"
)

// LicenseInfo summarizes public adjuster licensing in a state.
type LicenseInfo struct {
	ApplicationFee *float64 `json:"applicationFee,omitempty"`
	RenewalFee     *float64 `json:"renewalFee,omitempty"`
	BondAmount     *float64 `json:"bondAmount,omitempty"`
	CERequirements string   `json:"ceRequirements,omitempty"`
	ExamRequired   *bool    `json:"examRequired,omitempty"`
}

// ComplianceState is the per-state overview record.
type ComplianceState struct {
	ID                string      `json:"id"`
	StateCode         string      `json:"stateCode"`
	StateName         string      `json:"stateName"`
	Status            StateStatus `json:"status"`
	PALicenseRequired bool        `json:"paLicenseRequired"`
	LicenseInfo       LicenseInfo `json:"licenseInfo"`
	Notes             string      `json:"notes,omitempty"`
	LastReviewDate    time.Time   `json:"lastReviewDate"`
	NextReviewDate    *time.Time  `json:"nextReviewDate,omitempty"`
	RulesCount        int         `json:"rulesCount"`
	UpdatedBy         string      `json:"updatedBy"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// NormalizeStateCode upper-cases and trims a two-letter code.
func NormalizeStateCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatSessionStatus is the lifecycle of a chat session.
type ChatSessionStatus string

const (
	ChatSessionActive   ChatSessionStatus = "active"
	ChatSessionArchived ChatSessionStatus = "archived"
)

// ChatMessage is one turn in a chat session.
type ChatMessage struct {
	Role         ChatRole  `json:"role"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	RelatedRules []string  `json:"relatedRules,omitempty"`
}

// ChatSession is a user's conversation scoped to an optional state and silo.
type ChatSession struct {
	ID        string            `json:"id"`
	SessionID string            `json:"sessionId"`
	UserID    string            `json:"userId"`
	State     string            `json:"state,omitempty"`
	Silo      Silo              `json:"silo,omitempty"`
	Messages  []ChatMessage     `json:"messages"`
	Status    ChatSessionStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// ComplianceStats is the dashboard summary.
type ComplianceStats struct {
	TotalRules     int `json:"totalRules"`
	HighConfidence int `json:"highConfidence"`
	TotalStates    int `json:"totalStates"`
	PendingAlerts  int `json:"pendingAlerts"`
}

// MarshalTests encodes rule tests for storage.
func MarshalTests(tests []RuleTest) ([]byte, error) {
	if tests == nil {
		tests = []RuleTest{}
	}
	return json.Marshal(tests)
}
