package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/compliance-portal/internal/domain"
)

// UserRepository defines persistence access for portal accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetWithAssociations(ctx context.Context, id string) (*domain.User, error)
	GetByLoginEmail(ctx context.Context, email string) (*domain.User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	WorkEmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	EmployeeIDTaken(ctx context.Context, employeeID, excludeID string) (bool, error)
	ListPendingReview(ctx context.Context) ([]domain.User, error)
	SaveOnboarding(ctx context.Context, user *domain.User, creds []domain.Credential) error
	SaveApproval(ctx context.Context, user *domain.User) error
}

type userRepository struct {
	db          DBTX
	credentials CredentialRepository
	departments DepartmentRepository
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{
		db:          db,
		credentials: NewCredentialRepository(db),
		departments: NewDepartmentRepository(db),
	}
}

const userColumns = `id, first_name, last_name, employee_id, position, location, time_zone, hire_date, manager_id,
               primary_email, work_email, login_email, password_hash, role, status, rejection_reason,
               onboarding_status, profile_picture, primary_phone, work_phone, home_address, mailing_address,
               emergency_contact, social_media, bio, department_ids, created_at, updated_at`

type userJSONColumns struct {
	home, mailing, emergency, social []byte
}

func encodeUserJSON(user *domain.User) (userJSONColumns, error) {
	var cols userJSONColumns
	var err error
	if cols.home, err = marshalJSON(user.HomeAddress.WithDefaults()); err != nil {
		return cols, err
	}
	if cols.mailing, err = marshalJSON(user.MailingAddress.WithDefaults()); err != nil {
		return cols, err
	}
	if cols.emergency, err = marshalJSON(user.EmergencyContact); err != nil {
		return cols, err
	}
	if cols.social, err = marshalJSON(user.SocialMedia); err != nil {
		return cols, err
	}
	return cols, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func departmentIDs(user *domain.User) []string {
	if user.DepartmentIDs == nil {
		return []string{}
	}
	return user.DepartmentIDs
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	cols, err := encodeUserJSON(user)
	if err != nil {
		return err
	}
	if user.TimeZone == "" {
		user.TimeZone = domain.DefaultTimeZone
	}

	const query = `
        INSERT INTO users (first_name, last_name, employee_id, position, location, time_zone, hire_date, manager_id,
            primary_email, work_email, login_email, password_hash, role, status, rejection_reason, onboarding_status,
            profile_picture, primary_phone, work_phone, home_address, mailing_address, emergency_contact, social_media,
            bio, department_ids)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)
        RETURNING id, created_at, updated_at`

	return r.db.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		user.EmployeeID,
		user.Position,
		user.Location,
		user.TimeZone,
		user.HireDate,
		user.ManagerID,
		user.Identity.PrimaryEmail,
		nullableString(user.Identity.WorkEmail),
		user.Identity.LoginEmail,
		user.PasswordHash,
		user.Role,
		user.Status,
		user.RejectionReason,
		user.OnboardingStatus,
		user.ProfilePicture,
		user.PrimaryPhone,
		user.WorkPhone,
		cols.home,
		cols.mailing,
		cols.emergency,
		cols.social,
		user.Bio,
		departmentIDs(user),
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	cols, err := encodeUserJSON(user)
	if err != nil {
		return err
	}

	const query = `
        UPDATE users SET first_name=$1, last_name=$2, employee_id=$3, position=$4, location=$5, time_zone=$6,
            hire_date=$7, manager_id=$8, primary_email=$9, work_email=$10, login_email=$11, password_hash=$12,
            role=$13, status=$14, rejection_reason=$15, onboarding_status=$16, profile_picture=$17,
            primary_phone=$18, work_phone=$19, home_address=$20, mailing_address=$21, emergency_contact=$22,
            social_media=$23, bio=$24, department_ids=$25, updated_at=NOW()
        WHERE id=$26
        RETURNING updated_at`

	var updatedAt time.Time
	if err := r.db.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		user.EmployeeID,
		user.Position,
		user.Location,
		user.TimeZone,
		user.HireDate,
		user.ManagerID,
		user.Identity.PrimaryEmail,
		nullableString(user.Identity.WorkEmail),
		user.Identity.LoginEmail,
		user.PasswordHash,
		user.Role,
		user.Status,
		user.RejectionReason,
		user.OnboardingStatus,
		user.ProfilePicture,
		user.PrimaryPhone,
		user.WorkPhone,
		cols.home,
		cols.mailing,
		cols.emergency,
		cols.social,
		user.Bio,
		departmentIDs(user),
		user.ID,
	).Scan(&updatedAt); err != nil {
		return err
	}
	user.UpdatedAt = updatedAt
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id::text=$1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// GetWithAssociations loads the user plus departments, licenses, bonds and experiences.
func (r *userRepository) GetWithAssociations(ctx context.Context, id string) (*domain.User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.loadAssociations(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) loadAssociations(ctx context.Context, user *domain.User) error {
	depts, err := r.departments.ListByIDs(ctx, user.DepartmentIDs)
	if err != nil {
		return err
	}
	user.Departments = depts

	creds, err := r.credentials.ListByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	user.Licenses, user.Bonds, user.Experiences = nil, nil, nil
	for _, cred := range creds {
		switch cred.Kind {
		case domain.CredentialLicense:
			user.Licenses = append(user.Licenses, cred)
		case domain.CredentialBond:
			user.Bonds = append(user.Bonds, cred)
		case domain.CredentialExperience:
			user.Experiences = append(user.Experiences, cred)
		}
	}
	return nil
}

// GetByLoginEmail finds an account by work or primary email.
func (r *userRepository) GetByLoginEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + `
        FROM users WHERE work_email=$1 OR primary_email=$1 OR login_email=$1
        ORDER BY (login_email=$1) DESC
        LIMIT 1`
	return scanUser(r.db.QueryRow(ctx, query, domain.NormalizeEmail(email)))
}

// EmailTaken reports whether any account already uses email as primary, work or login address.
func (r *userRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	const query = `
        SELECT EXISTS (SELECT 1 FROM users WHERE primary_email=$1 OR login_email=$1 OR work_email=$1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, domain.NormalizeEmail(email)).Scan(&exists)
	return exists, err
}

func (r *userRepository) WorkEmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	const query = `
        SELECT EXISTS (SELECT 1 FROM users WHERE (work_email=$1 OR login_email=$1) AND id::text <> $2)`
	var exists bool
	err := r.db.QueryRow(ctx, query, domain.NormalizeEmail(email), excludeID).Scan(&exists)
	return exists, err
}

func (r *userRepository) EmployeeIDTaken(ctx context.Context, employeeID, excludeID string) (bool, error) {
	const query = `
        SELECT EXISTS (SELECT 1 FROM users WHERE employee_id=$1 AND id::text <> $2)`
	var exists bool
	err := r.db.QueryRow(ctx, query, employeeID, excludeID).Scan(&exists)
	return exists, err
}

// ListPendingReview returns users who finished onboarding and await approval, newest first.
func (r *userRepository) ListPendingReview(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + `
        FROM users WHERE onboarding_status=$1 AND status=$2
        ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, domain.OnboardingCompleted, domain.UserStatusPendingReview)
	if err != nil {
		return nil, err
	}

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		users = append(users, *user)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range users {
		if err := r.loadAssociations(ctx, &users[i]); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user                             domain.User
		workEmail                        *string
		home, mailing, emergency, social []byte
	)
	if err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.EmployeeID,
		&user.Position,
		&user.Location,
		&user.TimeZone,
		&user.HireDate,
		&user.ManagerID,
		&user.Identity.PrimaryEmail,
		&workEmail,
		&user.Identity.LoginEmail,
		&user.PasswordHash,
		&user.Role,
		&user.Status,
		&user.RejectionReason,
		&user.OnboardingStatus,
		&user.ProfilePicture,
		&user.PrimaryPhone,
		&user.WorkPhone,
		&home,
		&mailing,
		&emergency,
		&social,
		&user.Bio,
		&user.DepartmentIDs,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if workEmail != nil {
		user.Identity.WorkEmail = *workEmail
	}
	for _, col := range []struct {
		raw  []byte
		dest any
	}{
		{home, &user.HomeAddress},
		{mailing, &user.MailingAddress},
		{emergency, &user.EmergencyContact},
		{social, &user.SocialMedia},
	} {
		if err := unmarshalJSON(col.raw, col.dest); err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// SaveOnboarding persists the onboarding profile and its pending credentials atomically.
func (r *userRepository) SaveOnboarding(ctx context.Context, user *domain.User, creds []domain.Credential) error {
	return r.inTx(ctx, func(txRepo *userRepository) error {
		if err := txRepo.Update(ctx, user); err != nil {
			return err
		}
		for i := range creds {
			creds[i].UserID = user.ID
			creds[i].Status = domain.CredentialPending
			if err := txRepo.credentials.Create(ctx, &creds[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveApproval persists an approved account and approves its pending credentials atomically.
func (r *userRepository) SaveApproval(ctx context.Context, user *domain.User) error {
	return r.inTx(ctx, func(txRepo *userRepository) error {
		if err := txRepo.Update(ctx, user); err != nil {
			return err
		}
		_, err := txRepo.credentials.ApprovePending(ctx, user.ID)
		return err
	})
}

func (r *userRepository) inTx(ctx context.Context, fn func(txRepo *userRepository) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer rollback(ctx, tx)

	txRepo := &userRepository{
		db:          tx,
		credentials: NewCredentialRepository(tx),
		departments: NewDepartmentRepository(tx),
	}
	if err := fn(txRepo); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
