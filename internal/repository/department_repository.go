package repository

import (
	"context"

	"github.com/spec-kit/compliance-portal/internal/domain"
)

// DepartmentRepository manages department persistence.
type DepartmentRepository interface {
	ListByIDs(ctx context.Context, ids []string) ([]domain.Department, error)
}

type departmentRepository struct {
	db DBTX
}

// NewDepartmentRepository builds the repository.
func NewDepartmentRepository(db DBTX) DepartmentRepository {
	return &departmentRepository{db: db}
}

// ListByIDs resolves department references; unknown ids are skipped.
func (r *departmentRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Department, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `
        SELECT id, name, description, is_active, created_at, updated_at
        FROM departments WHERE id::text = ANY($1)
        ORDER BY name`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Department
	for rows.Next() {
		var dept domain.Department
		if err := rows.Scan(&dept.ID, &dept.Name, &dept.Description, &dept.IsActive, &dept.CreatedAt, &dept.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, dept)
	}
	return result, rows.Err()
}
