package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/compliance-portal/internal/auth"
	"github.com/spec-kit/compliance-portal/internal/config"
	"github.com/spec-kit/compliance-portal/internal/domain"
	"github.com/spec-kit/compliance-portal/internal/events"
	"github.com/spec-kit/compliance-portal/internal/observability"
	"github.com/spec-kit/compliance-portal/internal/repository"
	apperrors "github.com/spec-kit/compliance-portal/pkg/util"
)

// Client-facing messages for account flows.
const (
	MsgInvalidCredentials   = "Invalid credentials"
	MsgLoginInactive        = "Your account is inactive. Please contact an administrator."
	MsgEmailExists          = "User with this email already exists"
	MsgWorkEmailExists      = "Work email already exists"
	MsgEmployeeIDExists     = "Employee ID already exists"
	MsgIncorrectPassword    = "Incorrect current password"
	MsgInvalidResetToken    = "Invalid or expired password reset token"
	MsgOnboardingCompleted  = "Onboarding already completed"
	MsgOnboardingIncomplete = "User has not completed onboarding"
	MsgForgotPassword       = "If a user with that email exists, a password reset link has been sent."
	DefaultRejectionReason  = "No reason provided"
)

// SignupInput is the self-service registration payload.
type SignupInput struct {
	Name        string
	Email       string
	Password    string
	PhoneNumber string
}

// AuthResult pairs an account with a freshly issued session token.
type AuthResult struct {
	User  *domain.User
	Token domain.IssuedToken
}

// OnboardingInput is the profile submitted at the end of onboarding.
type OnboardingInput struct {
	ProfilePicture   string
	HomeAddress      domain.Address
	MailingAddress   domain.Address
	EmergencyContact domain.EmergencyContact
	SocialMedia      domain.SocialMedia
	Bio              string
	Experiences      []json.RawMessage
	Licenses         []json.RawMessage
	Bonds            []json.RawMessage
}

// ApprovalInput carries the employment data an admin assigns on approval.
type ApprovalInput struct {
	WorkEmail     string
	Position      string
	HireDate      time.Time
	EmployeeID    string
	ManagerID     *string
	DepartmentIDs []string
	Location      string
}

// AdminCreateUserInput creates a fully approved account.
type AdminCreateUserInput struct {
	FirstName        string
	LastName         string
	PrimaryEmail     string
	WorkEmail        string
	PrimaryPhone     string
	WorkPhone        string
	Password         string
	Position         string
	Location         string
	TimeZone         string
	HireDate         *time.Time
	EmployeeID       string
	HomeAddress      domain.Address
	MailingAddress   domain.Address
	EmergencyContact domain.EmergencyContact
	SocialMedia      domain.SocialMedia
	Role             domain.Role
}

// AuthService coordinates registration, login, onboarding and approval flows.
type AuthService struct {
	users        repository.UserRepository
	resets       repository.PasswordResetRepository
	departments  repository.DepartmentRepository
	tokens       *auth.TokenManager
	resetTokens  *auth.TokenManager
	revocations  *auth.RevocationManager
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	metrics      *observability.Metrics
	bcryptCost   int
	resetURLBase string
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	DepartmentRepo    repository.DepartmentRepository
	Tokens            *auth.TokenManager
	ResetTokens       *auth.TokenManager
	Revocations       *auth.RevocationManager
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
	Metrics           *observability.Metrics
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher(logger)
	}
	return &AuthService{
		users:        deps.UserRepo,
		resets:       deps.PasswordResetRepo,
		departments:  deps.DepartmentRepo,
		tokens:       deps.Tokens,
		resetTokens:  deps.ResetTokens,
		revocations:  deps.Revocations,
		dispatcher:   dispatcher,
		logger:       logger,
		metrics:      deps.Metrics,
		bcryptCost:   cfg.Auth.BcryptCost,
		resetURLBase: cfg.Notification.ResetURLBase,
	}
}

// Signup registers a pending account whose login email is the primary email.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	identity, err := domain.NewIdentity(in.Email)
	if err != nil {
		return nil, apperrors.NewValidationError("Name, email, password, and phone number are required", nil)
	}

	taken, err := s.users.EmailTaken(ctx, identity.PrimaryEmail)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if taken {
		return nil, apperrors.NewAlreadyExists(MsgEmailExists)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	firstName, lastName := domain.SplitName(in.Name)
	user := &domain.User{
		FirstName:        firstName,
		LastName:         lastName,
		Identity:         identity,
		PrimaryPhone:     strings.TrimSpace(in.PhoneNumber),
		PasswordHash:     hash,
		Role:             domain.RoleUser,
		Status:           domain.UserStatusPendingReview,
		OnboardingStatus: domain.OnboardingSignup,
		TimeZone:         domain.DefaultTimeZone,
		HomeAddress:      domain.Address{}.WithDefaults(),
		MailingAddress:   domain.Address{}.WithDefaults(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	token, err := s.tokens.IssueForUser(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventUserSignedUp, user.ID, nil, events.UserSignedUpPayload{
		Email: user.Identity.PrimaryEmail,
		Name:  user.FullName(),
	}))
	return &AuthResult{User: user, Token: token}, nil
}

// Login authenticates by work or primary email. Unknown accounts and wrong
// passwords are indistinguishable; account status is only revealed after the
// password matched.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByLoginEmail(ctx, email)
	if err != nil {
		if apperrors.IsNoRows(err) {
			auth.BurnPasswordCompare(password, s.bcryptCost)
			return nil, s.loginFailure(apperrors.CodeInvalidCredentials, MsgInvalidCredentials)
		}
		return nil, apperrors.NewInternalError(err)
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, s.loginFailure(apperrors.CodeInvalidCredentials, MsgInvalidCredentials)
	}

	switch user.Status {
	case domain.UserStatusInactive:
		s.metrics.RecordAuthFailure(apperrors.CodeAccountInactive)
		return nil, apperrors.NewAccountForbidden(apperrors.CodeAccountInactive, MsgLoginInactive)
	case domain.UserStatusRejected:
		s.metrics.RecordAuthFailure(apperrors.CodeAccountRejected)
		reason := user.RejectionReason
		if reason == "" {
			reason = "Not specified"
		}
		return nil, apperrors.NewAccountForbidden(apperrors.CodeAccountRejected,
			fmt.Sprintf("Your application has been rejected. Reason: %s", reason))
	}

	full, err := s.users.GetWithAssociations(ctx, user.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	token, err := s.tokens.IssueForUser(full)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: full, Token: token}, nil
}

func (s *AuthService) loginFailure(code, message string) error {
	s.metrics.RecordAuthFailure(code)
	return apperrors.NewAuthFailure(code, message)
}

// Logout revokes the presented session token. Strings that do not verify as a
// live session token are ignored so anonymous callers cannot grow the set.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if _, err := s.tokens.ParseToken(token); err != nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, token); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// RevokeToken adds an arbitrary token to the revocation set on an admin's request.
func (s *AuthService) RevokeToken(ctx context.Context, actorID, token string) error {
	if err := s.revocations.Revoke(ctx, token); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.publish(ctx, events.NewEvent(events.EventTokenRevoked, "", &actorID, events.TokenRevokedPayload{
		TokenPrefix: auth.TokenPrefix(token),
		Reason:      "admin",
	}))
	return nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return apperrors.NewNotFound("User", nil)
		}
		return apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewAuthFailure(apperrors.CodeInvalidCredentials, MsgIncorrectPassword)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// ForgotPassword issues a single-use reset token for a known email. Unknown
// emails are silently accepted.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByLoginEmail(ctx, email)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil
		}
		return apperrors.NewInternalError(err)
	}

	target := user.Identity.AuthoritativeEmail()
	issued, err := s.resetTokens.GenerateToken(user.ID, target, "")
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.resets.Create(ctx, &domain.PasswordReset{
		UserID:    user.ID,
		TokenID:   issued.ID,
		ExpiresAt: issued.ExpiresAt,
	}); err != nil {
		return apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventPasswordResetRequested, user.ID, nil, events.PasswordResetRequestedPayload{
		Email:     target,
		ResetURL:  s.resetURL(issued.Value),
		ExpiresAt: issued.ExpiresAt,
	}))
	return nil
}

func (s *AuthService) resetURL(token string) string {
	if s.resetURLBase == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(s.resetURLBase, "?") {
		sep = "&"
	}
	return s.resetURLBase + sep + "token=" + url.QueryEscape(token)
}

// ResetPassword consumes a reset token and stores the new password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	invalid := apperrors.NewBadRequest(apperrors.CodeInvalidResetToken, MsgInvalidResetToken)

	claims, err := s.resetTokens.ParseToken(token)
	if err != nil {
		return invalid
	}

	reset, err := s.resets.GetByTokenID(ctx, claims.ID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return invalid
		}
		return apperrors.NewInternalError(err)
	}
	if reset.UsedAt != nil || reset.UserID != claims.UserID {
		return invalid
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return invalid
		}
		return apperrors.NewInternalError(err)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	if err := s.resets.MarkUsed(ctx, reset.ID); err != nil {
		if apperrors.IsNoRows(err) {
			return invalid
		}
		return apperrors.NewInternalError(err)
	}

	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// CompleteOnboarding stores the onboarding profile and moves the stage to completed.
func (s *AuthService) CompleteOnboarding(ctx context.Context, userID string, in OnboardingInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewNotFound("User", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !user.CanCompleteOnboarding() {
		return nil, apperrors.NewBadRequest(apperrors.CodeBadRequest, MsgOnboardingCompleted)
	}

	if pic := strings.TrimSpace(in.ProfilePicture); pic != "" {
		user.ProfilePicture = pic
	}
	user.HomeAddress = user.HomeAddress.Merge(in.HomeAddress).WithDefaults()
	user.MailingAddress = user.MailingAddress.Merge(in.MailingAddress).WithDefaults()
	user.EmergencyContact = user.EmergencyContact.Merge(in.EmergencyContact)
	user.SocialMedia = user.SocialMedia.Merge(in.SocialMedia)
	user.Bio = in.Bio
	user.OnboardingStatus = domain.OnboardingCompleted

	creds := credentialsFrom(domain.CredentialExperience, in.Experiences)
	creds = append(creds, credentialsFrom(domain.CredentialLicense, in.Licenses)...)
	creds = append(creds, credentialsFrom(domain.CredentialBond, in.Bonds)...)

	if err := s.users.SaveOnboarding(ctx, user, creds); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventOnboardingCompleted, user.ID, nil, events.OnboardingCompletedPayload{
		Email:       user.Identity.PrimaryEmail,
		Credentials: len(creds),
	}))
	return s.reload(ctx, user.ID)
}

func credentialsFrom(kind domain.CredentialKind, raw []json.RawMessage) []domain.Credential {
	creds := make([]domain.Credential, 0, len(raw))
	for _, details := range raw {
		creds = append(creds, domain.Credential{Kind: kind, Status: domain.CredentialPending, Details: details})
	}
	return creds
}

// PendingUsers lists applicants awaiting review.
func (s *AuthService) PendingUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListPendingReview(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// ApproveUser activates an applicant and switches their login to the work email.
func (s *AuthService) ApproveUser(ctx context.Context, actorID, userID string, in ApprovalInput) (*domain.User, error) {
	workEmail := domain.NormalizeEmail(in.WorkEmail)
	if taken, err := s.users.WorkEmailTaken(ctx, workEmail, userID); err != nil {
		return nil, apperrors.NewInternalError(err)
	} else if taken {
		return nil, apperrors.NewAlreadyExists(MsgWorkEmailExists)
	}
	if taken, err := s.users.EmployeeIDTaken(ctx, in.EmployeeID, userID); err != nil {
		return nil, apperrors.NewInternalError(err)
	} else if taken {
		return nil, apperrors.NewAlreadyExists(MsgEmployeeIDExists)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewNotFound("User", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if user.OnboardingStatus != domain.OnboardingCompleted {
		return nil, apperrors.NewBadRequest(apperrors.CodeBadRequest, MsgOnboardingIncomplete)
	}

	if err := s.checkDepartments(ctx, in.DepartmentIDs); err != nil {
		return nil, err
	}
	if in.ManagerID != nil {
		if _, err := s.users.GetByID(ctx, *in.ManagerID); err != nil {
			if apperrors.IsNoRows(err) {
				return nil, apperrors.NewValidationError("Manager not found", map[string]any{"manager": *in.ManagerID})
			}
			return nil, apperrors.NewInternalError(err)
		}
	}

	if err := user.Identity.AssignWorkEmail(workEmail); err != nil {
		return nil, apperrors.NewValidationError("Work email is required", nil)
	}
	hireDate := in.HireDate
	employeeID := strings.TrimSpace(in.EmployeeID)
	user.Position = in.Position
	user.HireDate = &hireDate
	user.EmployeeID = &employeeID
	user.Location = in.Location
	user.ManagerID = in.ManagerID
	user.DepartmentIDs = in.DepartmentIDs
	user.Status = domain.UserStatusActive
	user.OnboardingStatus = domain.OnboardingApproved

	if err := s.users.SaveApproval(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventUserApproved, user.ID, &actorID, events.UserApprovedPayload{
		WorkEmail: user.Identity.WorkEmail,
		Position:  user.Position,
	}))
	return s.reload(ctx, user.ID)
}

func (s *AuthService) checkDepartments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.departments.ListByIDs(ctx, ids)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if len(found) != len(ids) {
		return apperrors.NewValidationError("Unknown department", map[string]any{"departments": ids})
	}
	return nil
}

// RejectUser marks an applicant rejected with a reason shown at login.
func (s *AuthService) RejectUser(ctx context.Context, actorID, userID, reason string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return apperrors.NewNotFound("User", nil)
		}
		return apperrors.NewInternalError(err)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRejectionReason
	}
	user.Status = domain.UserStatusRejected
	user.RejectionReason = reason
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventUserRejected, user.ID, &actorID, events.UserRejectedPayload{
		Email:  user.Identity.PrimaryEmail,
		Reason: reason,
	}))
	return nil
}

// AdminCreateUser creates an active, approved account. The login email is the
// work email when one is given.
func (s *AuthService) AdminCreateUser(ctx context.Context, in AdminCreateUserInput) (*AuthResult, error) {
	identity, err := domain.NewIdentity(in.PrimaryEmail)
	if err != nil {
		return nil, apperrors.NewValidationError("Primary email is required", nil)
	}

	if taken, err := s.users.EmailTaken(ctx, identity.PrimaryEmail); err != nil {
		return nil, apperrors.NewInternalError(err)
	} else if taken {
		return nil, apperrors.NewAlreadyExists(MsgEmailExists)
	}
	if strings.TrimSpace(in.WorkEmail) != "" {
		if taken, err := s.users.WorkEmailTaken(ctx, in.WorkEmail, ""); err != nil {
			return nil, apperrors.NewInternalError(err)
		} else if taken {
			return nil, apperrors.NewAlreadyExists(MsgWorkEmailExists)
		}
		if err := identity.AssignWorkEmail(in.WorkEmail); err != nil {
			return nil, apperrors.NewValidationError("Invalid work email", nil)
		}
	}

	var employeeID *string
	if id := strings.TrimSpace(in.EmployeeID); id != "" {
		if taken, err := s.users.EmployeeIDTaken(ctx, id, ""); err != nil {
			return nil, apperrors.NewInternalError(err)
		} else if taken {
			return nil, apperrors.NewAlreadyExists(MsgEmployeeIDExists)
		}
		employeeID = &id
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("Invalid role", map[string]any{"role": role})
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	hireDate := time.Now().UTC()
	if in.HireDate != nil {
		hireDate = *in.HireDate
	}
	timeZone := in.TimeZone
	if timeZone == "" {
		timeZone = domain.DefaultTimeZone
	}

	user := &domain.User{
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		EmployeeID:       employeeID,
		Position:         in.Position,
		Location:         in.Location,
		TimeZone:         timeZone,
		HireDate:         &hireDate,
		Identity:         identity,
		PasswordHash:     hash,
		Role:             role,
		Status:           domain.UserStatusActive,
		OnboardingStatus: domain.OnboardingApproved,
		PrimaryPhone:     in.PrimaryPhone,
		WorkPhone:        in.WorkPhone,
		HomeAddress:      in.HomeAddress.WithDefaults(),
		MailingAddress:   in.HomeAddress.Merge(in.MailingAddress).WithDefaults(),
		EmergencyContact: in.EmergencyContact,
		SocialMedia:      in.SocialMedia,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	token, err := s.tokens.IssueForUser(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) reload(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetWithAssociations(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
