package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/compliance-portal/internal/domain"
)

// StateRepository manages per-state compliance overviews.
type StateRepository interface {
	List(ctx context.Context) ([]domain.ComplianceState, error)
	GetByCode(ctx context.Context, code string) (*domain.ComplianceState, error)
	Upsert(ctx context.Context, state *domain.ComplianceState) error
}

type stateRepository struct {
	db DBTX
}

// NewStateRepository builds the repository.
func NewStateRepository(db DBTX) StateRepository {
	return &stateRepository{db: db}
}

// rules_count is derived from active rules at read time.
const stateSelect = `
        SELECT s.id, s.state_code, s.state_name, s.status, s.pa_license_required, s.license_info, s.notes,
               s.last_review_date, s.next_review_date,
               (SELECT COUNT(*) FROM compliance_rules r WHERE r.state = s.state_code AND r.status = 'active'),
               s.updated_by, s.created_at, s.updated_at
        FROM compliance_states s`

// List returns all states sorted by name.
func (r *stateRepository) List(ctx context.Context) ([]domain.ComplianceState, error) {
	rows, err := r.db.Query(ctx, stateSelect+` ORDER BY s.state_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ComplianceState{}
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *state)
	}
	return result, rows.Err()
}

func (r *stateRepository) GetByCode(ctx context.Context, code string) (*domain.ComplianceState, error) {
	return scanState(r.db.QueryRow(ctx, stateSelect+` WHERE s.state_code=$1`, domain.NormalizeStateCode(code)))
}

// Upsert inserts or replaces the state record keyed by state code.
func (r *stateRepository) Upsert(ctx context.Context, state *domain.ComplianceState) error {
	state.StateCode = domain.NormalizeStateCode(state.StateCode)
	info, err := marshalJSON(state.LicenseInfo)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO compliance_states (state_code, state_name, status, pa_license_required, license_info, notes,
            last_review_date, next_review_date, updated_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (state_code) DO UPDATE SET
            state_name=EXCLUDED.state_name, status=EXCLUDED.status,
            pa_license_required=EXCLUDED.pa_license_required, license_info=EXCLUDED.license_info,
            notes=EXCLUDED.notes, last_review_date=EXCLUDED.last_review_date,
            next_review_date=EXCLUDED.next_review_date, updated_by=EXCLUDED.updated_by, updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		state.StateCode,
		state.StateName,
		state.Status,
		state.PALicenseRequired,
		info,
		state.Notes,
		state.LastReviewDate,
		state.NextReviewDate,
		state.UpdatedBy,
	).Scan(&state.ID, &state.CreatedAt, &state.UpdatedAt)
}

func scanState(row pgx.Row) (*domain.ComplianceState, error) {
	var (
		state domain.ComplianceState
		info  []byte
	)
	if err := row.Scan(
		&state.ID,
		&state.StateCode,
		&state.StateName,
		&state.Status,
		&state.PALicenseRequired,
		&info,
		&state.Notes,
		&state.LastReviewDate,
		&state.NextReviewDate,
		&state.RulesCount,
		&state.UpdatedBy,
		&state.CreatedAt,
		&state.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(info, &state.LicenseInfo); err != nil {
		return nil, err
	}
	return &state, nil
}
