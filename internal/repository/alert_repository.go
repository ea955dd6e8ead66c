package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/compliance-portal/internal/domain"
)

// AlertRepository manages compliance alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *domain.ComplianceAlert) error
	Update(ctx context.Context, alert *domain.ComplianceAlert) error
	GetByID(ctx context.Context, id string) (*domain.ComplianceAlert, error)
	List(ctx context.Context, status *domain.AlertStatus) ([]domain.ComplianceAlert, error)
}

type alertRepository struct {
	db DBTX
}

// NewAlertRepository builds the repository.
func NewAlertRepository(db DBTX) AlertRepository {
	return &alertRepository{db: db}
}

const alertColumns = `id, alert_id, state, silo, confidence, description, category, related_rules, status,
               resolved_by, resolved_at, notes, created_by, created_at, updated_at`

func (r *alertRepository) Create(ctx context.Context, alert *domain.ComplianceAlert) error {
	if alert.RelatedRules == nil {
		alert.RelatedRules = []string{}
	}
	if alert.Status == "" {
		alert.Status = domain.AlertStatusPending
	}
	const query = `
        INSERT INTO compliance_alerts (alert_id, state, silo, confidence, description, category, related_rules,
            status, notes, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		alert.AlertID,
		alert.State,
		alert.Silo,
		alert.Confidence,
		alert.Description,
		alert.Category,
		alert.RelatedRules,
		alert.Status,
		alert.Notes,
		alert.CreatedBy,
	).Scan(&alert.ID, &alert.CreatedAt, &alert.UpdatedAt)
}

func (r *alertRepository) Update(ctx context.Context, alert *domain.ComplianceAlert) error {
	const query = `
        UPDATE compliance_alerts SET status=$1, notes=$2, resolved_by=$3, resolved_at=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query,
		alert.Status,
		alert.Notes,
		alert.ResolvedBy,
		alert.ResolvedAt,
		alert.ID,
	).Scan(&alert.UpdatedAt)
}

func (r *alertRepository) GetByID(ctx context.Context, id string) (*domain.ComplianceAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM compliance_alerts WHERE id::text=$1 OR alert_id=$1 LIMIT 1`
	return scanAlert(r.db.QueryRow(ctx, query, id))
}

// List returns alerts newest first, optionally narrowed to one status.
func (r *alertRepository) List(ctx context.Context, status *domain.AlertStatus) ([]domain.ComplianceAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM compliance_alerts`
	args := []any{}
	if status != nil {
		args = append(args, *status)
		query += fmt.Sprintf(" WHERE status=$%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ComplianceAlert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *alert)
	}
	return result, rows.Err()
}

func scanAlert(row pgx.Row) (*domain.ComplianceAlert, error) {
	var alert domain.ComplianceAlert
	if err := row.Scan(
		&alert.ID,
		&alert.AlertID,
		&alert.State,
		&alert.Silo,
		&alert.Confidence,
		&alert.Description,
		&alert.Category,
		&alert.RelatedRules,
		&alert.Status,
		&alert.ResolvedBy,
		&alert.ResolvedAt,
		&alert.Notes,
		&alert.CreatedBy,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &alert, nil
}
