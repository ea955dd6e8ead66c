package repository

import (
	"context"

	"github.com/spec-kit/compliance-portal/internal/domain"
)

// CredentialRepository stores licenses, bonds and experiences.
type CredentialRepository interface {
	Create(ctx context.Context, cred *domain.Credential) error
	ListByUser(ctx context.Context, userID string) ([]domain.Credential, error)
	ApprovePending(ctx context.Context, userID string) (int64, error)
}

type credentialRepository struct {
	db DBTX
}

// NewCredentialRepository builds the repository.
func NewCredentialRepository(db DBTX) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	details := []byte(cred.Details)
	if len(details) == 0 {
		details = []byte("{}")
	}
	const query = `
        INSERT INTO user_credentials (user_id, kind, status, details)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		cred.UserID,
		cred.Kind,
		cred.Status,
		details,
	).Scan(&cred.ID, &cred.CreatedAt, &cred.UpdatedAt)
}

func (r *credentialRepository) ListByUser(ctx context.Context, userID string) ([]domain.Credential, error) {
	const query = `
        SELECT id, user_id, kind, status, details, created_at, updated_at
        FROM user_credentials WHERE user_id=$1
        ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Credential
	for rows.Next() {
		var (
			cred    domain.Credential
			details []byte
		)
		if err := rows.Scan(&cred.ID, &cred.UserID, &cred.Kind, &cred.Status, &details, &cred.CreatedAt, &cred.UpdatedAt); err != nil {
			return nil, err
		}
		cred.Details = details
		result = append(result, cred)
	}
	return result, rows.Err()
}

// ApprovePending flips every pending credential of the user to approved.
func (r *credentialRepository) ApprovePending(ctx context.Context, userID string) (int64, error) {
	const query = `
        UPDATE user_credentials SET status=$1, updated_at=NOW()
        WHERE user_id=$2 AND status=$3`
	cmd, err := r.db.Exec(ctx, query, domain.CredentialApproved, userID, domain.CredentialPending)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
