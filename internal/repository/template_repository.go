package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/compliance-portal/internal/domain"
)

// TemplateRepository manages response templates.
type TemplateRepository interface {
	Create(ctx context.Context, tpl *domain.ComplianceTemplate) error
	List(ctx context.Context) ([]domain.ComplianceTemplate, error)
	GetActiveByCategory(ctx context.Context, category string) (*domain.ComplianceTemplate, error)
	IncrementUsage(ctx context.Context, id string) error
}

type templateRepository struct {
	db DBTX
}

// NewTemplateRepository builds the repository.
func NewTemplateRepository(db DBTX) TemplateRepository {
	return &templateRepository{db: db}
}

const templateColumns = `id, category, template, variables, description, usage_count, status, created_by, updated_by,
               created_at, updated_at`

func (r *templateRepository) Create(ctx context.Context, tpl *domain.ComplianceTemplate) error {
	if tpl.Variables == nil {
		tpl.Variables = []string{}
	}
	if tpl.Status == "" {
		tpl.Status = domain.TemplateStatusActive
	}
	const query = `
        INSERT INTO compliance_templates (category, template, variables, description, status, created_by, updated_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, usage_count, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		tpl.Category,
		tpl.Template,
		tpl.Variables,
		tpl.Description,
		tpl.Status,
		tpl.CreatedBy,
		tpl.UpdatedBy,
	).Scan(&tpl.ID, &tpl.UsageCount, &tpl.CreatedAt, &tpl.UpdatedAt)
}

// List returns every template sorted by category.
func (r *templateRepository) List(ctx context.Context) ([]domain.ComplianceTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM compliance_templates ORDER BY category, created_at`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ComplianceTemplate{}
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *tpl)
	}
	return result, rows.Err()
}

// GetActiveByCategory returns the most used active template of a category.
func (r *templateRepository) GetActiveByCategory(ctx context.Context, category string) (*domain.ComplianceTemplate, error) {
	query := `SELECT ` + templateColumns + `
        FROM compliance_templates WHERE category=$1 AND status=$2
        ORDER BY usage_count DESC, created_at
        LIMIT 1`
	return scanTemplate(r.db.QueryRow(ctx, query, category, domain.TemplateStatusActive))
}

func (r *templateRepository) IncrementUsage(ctx context.Context, id string) error {
	const query = `UPDATE compliance_templates SET usage_count=usage_count+1 WHERE id=$1`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTemplate(row pgx.Row) (*domain.ComplianceTemplate, error) {
	var tpl domain.ComplianceTemplate
	if err := row.Scan(
		&tpl.ID,
		&tpl.Category,
		&tpl.Template,
		&tpl.Variables,
		&tpl.Description,
		&tpl.UsageCount,
		&tpl.Status,
		&tpl.CreatedBy,
		&tpl.UpdatedBy,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &tpl, nil
}
