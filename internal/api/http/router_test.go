package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/compliance-portal/internal/api/http/handlers"
	"github.com/spec-kit/compliance-portal/internal/auth"
	"github.com/spec-kit/compliance-portal/internal/config"
	"github.com/spec-kit/compliance-portal/internal/domain"
	"github.com/spec-kit/compliance-portal/internal/observability"
	"github.com/spec-kit/compliance-portal/internal/service"
	apperrors "github.com/spec-kit/compliance-portal/pkg/util"
)

type memUsers struct {
	mu    sync.Mutex
	seq   int
	users map[string]*domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*domain.User{}}
}

func (r *memUsers) add(u *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if u.ID == "" {
		u.ID = "u-" + strconv.Itoa(r.seq)
	}
	copied := *u
	r.users[u.ID] = &copied
}

func (r *memUsers) Create(_ context.Context, user *domain.User) error {
	r.add(user)
	return nil
}

func (r *memUsers) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (r *memUsers) GetWithAssociations(ctx context.Context, id string) (*domain.User, error) {
	return r.GetByID(ctx, id)
}

func (r *memUsers) GetByLoginEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = domain.NormalizeEmail(email)
	for _, u := range r.users {
		if u.Identity.LoginEmail == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUsers) EmailTaken(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Identity.PrimaryEmail == email || u.Identity.WorkEmail == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUsers) WorkEmailTaken(context.Context, string, string) (bool, error) { return false, nil }

func (r *memUsers) EmployeeIDTaken(context.Context, string, string) (bool, error) { return false, nil }

func (r *memUsers) ListPendingReview(context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.users {
		if u.Status == domain.UserStatusPendingReview {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *memUsers) SaveOnboarding(ctx context.Context, user *domain.User, _ []domain.Credential) error {
	return r.Update(ctx, user)
}

func (r *memUsers) SaveApproval(ctx context.Context, user *domain.User) error {
	return r.Update(ctx, user)
}

type memResets struct {
	mu     sync.Mutex
	resets []domain.PasswordReset
}

func (r *memResets) Create(_ context.Context, reset *domain.PasswordReset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reset.ID = "r-" + strconv.Itoa(len(r.resets)+1)
	r.resets = append(r.resets, *reset)
	return nil
}

func (r *memResets) GetByTokenID(_ context.Context, tokenID string) (*domain.PasswordReset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.resets {
		if r.resets[i].TokenID == tokenID {
			copied := r.resets[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memResets) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.resets {
		if r.resets[i].ID == id && r.resets[i].UsedAt == nil {
			now := time.Now()
			r.resets[i].UsedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

type noDepartments struct{}

func (noDepartments) ListByIDs(context.Context, []string) ([]domain.Department, error) {
	return nil, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app    *fiber.App
	users  *memUsers
	resets *memResets
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()

	cfg := config.Config{
		Auth:         config.AuthConfig{BcryptCost: 4},
		Notification: config.NotificationConfig{ResetURLBase: "http://localhost/reset"},
	}
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	users := newMemUsers()
	resets := &memResets{}
	tokens := auth.NewTokenManager("session-secret", time.Hour)
	revocations := auth.NewRevocationManager(auth.NewMemoryRevocationStore(), logger, metrics)

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:          users,
		PasswordResetRepo: resets,
		DepartmentRepo:    noDepartments{},
		Tokens:            tokens,
		ResetTokens:       auth.NewTokenManager("reset-secret", time.Hour),
		Revocations:       revocations,
		Logger:            logger,
		Metrics:           metrics,
	})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics, true)})
	RegisterMiddlewares(app, MiddlewareConfig{
		Logger:      logger,
		Metrics:     metrics,
		ExposeStack: true,
		RateLimit:   config.RateLimitConfig{Max: rateLimit, WindowSeconds: 60},
	})
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("compliance-portal", "test", map[string]handlers.Pinger{
			"postgres": stubPinger{},
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Admin:          handlers.NewAdminHandler(authService),
		Compliance:     handlers.NewComplianceHandler(service.NewComplianceService(service.ComplianceDependencies{Logger: logger})),
		Chat:           handlers.NewChatHandler(service.NewChatService(nil, nil, nil, logger)),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, revocations, users, logger, metrics),
		Metrics:        metrics,
	})

	return &testServer{app: app, users: users, resets: resets, tokens: tokens}
}

func (s *testServer) seedUser(t *testing.T, email, password string, role domain.Role, status domain.UserStatus) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password, 4)
	require.NoError(t, err)
	identity, err := domain.NewIdentity(email)
	require.NoError(t, err)
	user := &domain.User{
		FirstName:        "Test",
		LastName:         "User",
		Identity:         identity,
		PasswordHash:     hash,
		Role:             role,
		Status:           status,
		OnboardingStatus: domain.OnboardingApproved,
	}
	s.users.add(user)
	return user
}

func (s *testServer) tokenFor(t *testing.T, u *domain.User) string {
	t.Helper()
	issued, err := s.tokens.IssueForUser(u)
	require.NoError(t, err)
	return issued.Value
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func TestSignup_CreatesPendingAccount(t *testing.T) {
	srv := newTestServer(t, 0)

	status, body := srv.do(t, nethttp.MethodPost, "/api/auth/signup", map[string]string{
		"name":        "Jane Doe",
		"email":       "Jane@Example.com",
		"password":    "pw-123456",
		"phoneNumber": "555-0100",
	}, "")

	require.Equal(t, nethttp.StatusCreated, status)
	assert.NotEmpty(t, body["token"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "jane@example.com", user["email"])
	assert.Equal(t, "pending_review", user["status"])
	assert.Equal(t, "onboarding", user["accessLevel"])
}

func TestSignup_MissingFields(t *testing.T) {
	srv := newTestServer(t, 0)

	status, body := srv.do(t, nethttp.MethodPost, "/api/auth/signup", map[string]string{"email": "a@b.co"}, "")

	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "Name, email, password, and phone number are required", body["error"])
	assert.Equal(t, apperrors.CodeValidationFailed, body["code"])
}

func TestLogin_WrongPasswordAndUnknownAccountLookAlike(t *testing.T) {
	srv := newTestServer(t, 0)
	srv.seedUser(t, "worker@example.com", "right-password", domain.RoleUser, domain.UserStatusActive)

	wrongStatus, wrongBody := srv.do(t, nethttp.MethodPost, "/api/auth/login",
		map[string]string{"email": "worker@example.com", "password": "nope"}, "")
	unknownStatus, unknownBody := srv.do(t, nethttp.MethodPost, "/api/auth/login",
		map[string]string{"email": "ghost@example.com", "password": "nope"}, "")

	assert.Equal(t, nethttp.StatusUnauthorized, wrongStatus)
	assert.Equal(t, wrongStatus, unknownStatus)
	assert.Equal(t, "Invalid credentials", wrongBody["error"])
	assert.Equal(t, wrongBody, unknownBody)
}

func TestLogin_InactiveAccountIsForbidden(t *testing.T) {
	srv := newTestServer(t, 0)
	srv.seedUser(t, "old@example.com", "pw", domain.RoleUser, domain.UserStatusInactive)

	status, body := srv.do(t, nethttp.MethodPost, "/api/auth/login",
		map[string]string{"email": "old@example.com", "password": "pw"}, "")

	assert.Equal(t, nethttp.StatusForbidden, status)
	assert.Equal(t, service.MsgLoginInactive, body["error"])
	assert.Equal(t, apperrors.CodeAccountInactive, body["code"])
}

func TestLogin_Succeeds(t *testing.T) {
	srv := newTestServer(t, 0)
	srv.seedUser(t, "ok@example.com", "pw", domain.RoleUser, domain.UserStatusActive)

	status, body := srv.do(t, nethttp.MethodPost, "/api/auth/login",
		map[string]string{"email": " OK@example.com ", "password": "pw"}, "")

	require.Equal(t, nethttp.StatusOK, status)
	assert.NotEmpty(t, body["token"])
	assert.EqualValues(t, 3600, body["expiresIn"])
}

func TestForgotPassword_UnknownEmailGetsGenericAnswer(t *testing.T) {
	srv := newTestServer(t, 0)

	status, body := srv.do(t, nethttp.MethodPost, "/api/auth/forgot-password",
		map[string]string{"email": "nobody@example.com"}, "")

	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, service.MsgForgotPassword, body["message"])
	assert.Empty(t, srv.resets.resets)
}

func TestForgotPassword_KnownEmailStoresReset(t *testing.T) {
	srv := newTestServer(t, 0)
	srv.seedUser(t, "known@example.com", "pw", domain.RoleUser, domain.UserStatusActive)

	status, body := srv.do(t, nethttp.MethodPost, "/api/auth/forgot-password",
		map[string]string{"email": "known@example.com"}, "")

	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, service.MsgForgotPassword, body["message"])
	assert.Len(t, srv.resets.resets, 1)
}

func TestVerifyToken(t *testing.T) {
	srv := newTestServer(t, 0)
	user := srv.seedUser(t, "v@example.com", "pw", domain.RoleUser, domain.UserStatusActive)
	token := srv.tokenFor(t, user)

	status, body := srv.do(t, nethttp.MethodGet, "/api/auth/verify-token", nil, token)

	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "Token is valid", body["message"])
}

func TestVerifyToken_MissingToken(t *testing.T) {
	srv := newTestServer(t, 0)

	status, body := srv.do(t, nethttp.MethodGet, "/api/auth/verify-token", nil, "")

	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeTokenRequired, body["code"])
}

func TestLogout_RevokesToken(t *testing.T) {
	srv := newTestServer(t, 0)
	user := srv.seedUser(t, "bye@example.com", "pw", domain.RoleUser, domain.UserStatusActive)
	token := srv.tokenFor(t, user)

	status, body := srv.do(t, nethttp.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "Logout successful", body["message"])

	status, body = srv.do(t, nethttp.MethodGet, "/api/auth/verify-token", nil, token)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeTokenBlacklisted, body["code"])
	assert.Equal(t, auth.MsgTokenRevoked, body["error"])
}

func TestAdminRoutes_RejectNonAdmins(t *testing.T) {
	srv := newTestServer(t, 0)
	manager := srv.seedUser(t, "m@example.com", "pw", domain.RoleManager, domain.UserStatusActive)
	token := srv.tokenFor(t, manager)

	status, _ := srv.do(t, nethttp.MethodGet, "/api/auth/pending-users", nil, token)
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, _ = srv.do(t, nethttp.MethodDelete, "/api/compliance/rules/r-1", nil, token)
	assert.Equal(t, nethttp.StatusForbidden, status)
}

func TestComplianceWrites_RequireEditorRole(t *testing.T) {
	srv := newTestServer(t, 0)
	user := srv.seedUser(t, "u@example.com", "pw", domain.RoleUser, domain.UserStatusActive)
	token := srv.tokenFor(t, user)

	status, body := srv.do(t, nethttp.MethodPost, "/api/compliance/rules", map[string]any{}, token)

	assert.Equal(t, nethttp.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeInsufficientPrivilege, body["code"])
}

func TestPendingUsers_AdminSeesApplicants(t *testing.T) {
	srv := newTestServer(t, 0)
	admin := srv.seedUser(t, "admin@example.com", "pw", domain.RoleAdmin, domain.UserStatusActive)
	srv.seedUser(t, "applicant@example.com", "pw", domain.RoleUser, domain.UserStatusPendingReview)

	status, body := srv.do(t, nethttp.MethodGet, "/api/auth/pending-users", nil, srv.tokenFor(t, admin))

	require.Equal(t, nethttp.StatusOK, status)
	pending, ok := body["pendingUsers"].([]any)
	require.True(t, ok)
	assert.Len(t, pending, 1)
}

func TestUnknownRoute_ReturnsJSON404(t *testing.T) {
	srv := newTestServer(t, 0)

	status, body := srv.do(t, nethttp.MethodGet, "/api/does-not-exist", nil, "")

	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, body["code"])
}

func TestRateLimiter_BlocksAfterBudget(t *testing.T) {
	srv := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		status, _ := srv.do(t, nethttp.MethodPost, "/api/auth/logout", nil, "")
		require.Equal(t, nethttp.StatusOK, status)
	}
	status, body := srv.do(t, nethttp.MethodPost, "/api/auth/logout", nil, "")

	assert.Equal(t, nethttp.StatusTooManyRequests, status)
	assert.Equal(t, apperrors.CodeRateLimited, body["code"])
	assert.Equal(t, MsgRateLimited, body["error"])

	healthStatus, _ := srv.do(t, nethttp.MethodGet, "/health", nil, "")
	assert.Equal(t, nethttp.StatusOK, healthStatus)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, 0)

	status, body := srv.do(t, nethttp.MethodGet, "/health", nil, "")
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, _ = srv.do(t, nethttp.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, nethttp.StatusOK, status)
}

func TestRenderError_StackOnlyWhenExposed(t *testing.T) {
	for _, expose := range []bool{true, false} {
		app := fiber.New()
		RegisterMiddlewares(app, MiddlewareConfig{Logger: zap.NewNop(), ExposeStack: expose})
		app.Get("/boom", func(c *fiber.Ctx) error {
			return apperrors.NewInternalError(errors.New("db down"))
		})

		resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/boom", nil), -1)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()

		assert.Equal(t, nethttp.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Internal server error", body["error"])
		_, hasStack := body["stack"]
		assert.Equal(t, expose, hasStack)
	}
}
