package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/compliance-portal/internal/domain"
	"github.com/spec-kit/compliance-portal/internal/observability"
	apperrors "github.com/spec-kit/compliance-portal/pkg/util"
)

const principalKey = "auth_principal"

// Client-facing messages for session failures.
const (
	MsgTokenRequired   = "Access token is required"
	MsgTokenRevoked    = "Token has been revoked due to suspicious activity. Please log in again."
	MsgTokenInvalid    = "Session expired or token is invalid. Please log in again."
	MsgUserNotFound    = "Invalid token: user not found."
	MsgAccountInactive = "Your account is inactive."
)

// UserLoader resolves a token subject into a user with its associations.
type UserLoader interface {
	GetWithAssociations(ctx context.Context, id string) (*domain.User, error)
}

// Principal represents the authenticated caller.
type Principal struct {
	User   *domain.User
	Claims *Claims
	Token  string
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens      *TokenManager
	revocations *RevocationManager
	users       UserLoader
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, revocations *RevocationManager, users UserLoader, logger *zap.Logger, metrics *observability.Metrics) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, revocations: revocations, users: users, logger: logger, metrics: metrics}
}

// Handle enforces authentication for protected routes.
// Order: extract, revocation, signature and expiry, user lookup, status.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	principal, err := m.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		if de := apperrors.ToDomainError(err); de.HTTPStatus < fiber.StatusInternalServerError {
			m.metrics.RecordAuthFailure(de.Code)
		} else {
			m.logger.Error("unexpected error in auth middleware", zap.Error(err))
		}
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// Authenticate runs the validation chain for a raw Authorization header value.
func (m *AuthMiddleware) Authenticate(ctx context.Context, authHeader string) (*Principal, error) {
	token, ok := BearerToken(authHeader)
	if !ok {
		return nil, apperrors.NewAuthFailure(apperrors.CodeTokenRequired, MsgTokenRequired)
	}

	revoked, err := m.revocations.IsRevoked(ctx, token)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if revoked {
		return nil, apperrors.NewAuthFailure(apperrors.CodeTokenBlacklisted, MsgTokenRevoked)
	}

	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) || errors.Is(err, ErrTokenInvalid) {
			return nil, apperrors.NewAuthFailure(apperrors.CodeTokenInvalid, MsgTokenInvalid)
		}
		return nil, apperrors.NewInternalError(err)
	}

	user, err := m.users.GetWithAssociations(ctx, claims.UserID)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewAuthFailure(apperrors.CodeUserNotFound, MsgUserNotFound)
		}
		return nil, apperrors.NewInternalError(err)
	}

	if user.Status == domain.UserStatusInactive {
		return nil, apperrors.NewAuthFailure(apperrors.CodeAccountInactive, MsgAccountInactive)
	}

	return &Principal{User: user, Claims: claims, Token: token}, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(authHeader string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(authHeader), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok && principal != nil && principal.User != nil
}
