package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/compliance-portal/internal/domain"
)

// RuleFilter captures rule search parameters.
type RuleFilter struct {
	State      *string
	Silo       *domain.Silo
	Confidence *domain.Confidence
	Status     *domain.RuleStatus
	Category   *string
	Limit      int
	Offset     int
}

// RuleRepository encapsulates compliance rule persistence.
type RuleRepository interface {
	Create(ctx context.Context, rule *domain.ComplianceRule) error
	Update(ctx context.Context, rule *domain.ComplianceRule) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.ComplianceRule, error)
	RuleIDTaken(ctx context.Context, ruleID, excludeID string) (bool, error)
	List(ctx context.Context, filter RuleFilter) ([]domain.ComplianceRule, error)
}

type ruleRepository struct {
	db DBTX
}

// NewRuleRepository instantiates repository.
func NewRuleRepository(db DBTX) RuleRepository {
	return &ruleRepository{db: db}
}

const ruleColumns = `id, rule_id, state, silo, authority, confidence, category, subcategory, rule_text, description,
               sources, leverage_points, version, last_updated, sunset_date, tests, tests_count, status,
               created_by, updated_by, created_at, updated_at`

func (r *ruleRepository) Create(ctx context.Context, rule *domain.ComplianceRule) error {
	rule.Normalize()
	tests, err := domain.MarshalTests(rule.Tests)
	if err != nil {
		return err
	}
	if rule.LastUpdated.IsZero() {
		rule.LastUpdated = time.Now().UTC()
	}

	const query = `
        INSERT INTO compliance_rules (rule_id, state, silo, authority, confidence, category, subcategory, rule_text,
            description, sources, leverage_points, version, last_updated, sunset_date, tests, tests_count, status,
            created_by, updated_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		rule.RuleID,
		rule.State,
		rule.Silo,
		rule.Authority,
		rule.Confidence,
		rule.Category,
		rule.Subcategory,
		rule.RuleText,
		rule.Description,
		rule.Sources,
		rule.LeveragePoints,
		rule.Version,
		rule.LastUpdated,
		rule.SunsetDate,
		tests,
		rule.TestsCount,
		rule.Status,
		rule.CreatedBy,
		rule.UpdatedBy,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

func (r *ruleRepository) Update(ctx context.Context, rule *domain.ComplianceRule) error {
	rule.Normalize()
	tests, err := domain.MarshalTests(rule.Tests)
	if err != nil {
		return err
	}

	const query = `
        UPDATE compliance_rules SET rule_id=$1, state=$2, silo=$3, authority=$4, confidence=$5, category=$6,
            subcategory=$7, rule_text=$8, description=$9, sources=$10, leverage_points=$11, version=$12,
            last_updated=$13, sunset_date=$14, tests=$15, tests_count=$16, status=$17, updated_by=$18,
            updated_at=NOW()
        WHERE id=$19
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query,
		rule.RuleID,
		rule.State,
		rule.Silo,
		rule.Authority,
		rule.Confidence,
		rule.Category,
		rule.Subcategory,
		rule.RuleText,
		rule.Description,
		rule.Sources,
		rule.LeveragePoints,
		rule.Version,
		rule.LastUpdated,
		rule.SunsetDate,
		tests,
		rule.TestsCount,
		rule.Status,
		rule.UpdatedBy,
		rule.ID,
	).Scan(&rule.UpdatedAt)
}

func (r *ruleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM compliance_rules WHERE id::text=$1 OR rule_id=$2`
	cmd, err := r.db.Exec(ctx, query, id, strings.ToUpper(id))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// GetByID accepts either the row id or the human rule identifier.
func (r *ruleRepository) GetByID(ctx context.Context, id string) (*domain.ComplianceRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM compliance_rules WHERE id::text=$1 OR rule_id=$2 LIMIT 1`
	return scanRule(r.db.QueryRow(ctx, query, id, strings.ToUpper(id)))
}

func (r *ruleRepository) RuleIDTaken(ctx context.Context, ruleID, excludeID string) (bool, error) {
	const query = `
        SELECT EXISTS (SELECT 1 FROM compliance_rules WHERE rule_id=$1 AND id::text <> $2)`
	var exists bool
	err := r.db.QueryRow(ctx, query, strings.ToUpper(ruleID), excludeID).Scan(&exists)
	return exists, err
}

// List returns rules matching filter, newest first.
func (r *ruleRepository) List(ctx context.Context, filter RuleFilter) ([]domain.ComplianceRule, error) {
	base := `SELECT ` + ruleColumns + ` FROM compliance_rules`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.State != nil {
		args = append(args, domain.NormalizeStateCode(*filter.State))
		clauses = append(clauses, fmt.Sprintf("state=$%d", len(args)))
	}
	if filter.Silo != nil {
		args = append(args, *filter.Silo)
		clauses = append(clauses, fmt.Sprintf("silo=$%d", len(args)))
	}
	if filter.Confidence != nil {
		args = append(args, *filter.Confidence)
		clauses = append(clauses, fmt.Sprintf("confidence=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY created_at DESC", base, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ComplianceRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}
	return result, rows.Err()
}

func scanRule(row pgx.Row) (*domain.ComplianceRule, error) {
	var (
		rule  domain.ComplianceRule
		tests []byte
	)
	if err := row.Scan(
		&rule.ID,
		&rule.RuleID,
		&rule.State,
		&rule.Silo,
		&rule.Authority,
		&rule.Confidence,
		&rule.Category,
		&rule.Subcategory,
		&rule.RuleText,
		&rule.Description,
		&rule.Sources,
		&rule.LeveragePoints,
		&rule.Version,
		&rule.LastUpdated,
		&rule.SunsetDate,
		&tests,
		&rule.TestsCount,
		&rule.Status,
		&rule.CreatedBy,
		&rule.UpdatedBy,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(tests, &rule.Tests); err != nil {
		return nil, err
	}
	return &rule, nil
}
