package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/spec-kit/compliance-portal/internal/domain"
	"github.com/spec-kit/compliance-portal/internal/repository"
)

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetWithAssociations(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByLoginEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) WorkEmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	args := m.Called(ctx, email, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) EmployeeIDTaken(ctx context.Context, employeeID, excludeID string) (bool, error) {
	args := m.Called(ctx, employeeID, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) ListPendingReview(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *mockUserRepo) SaveOnboarding(ctx context.Context, user *domain.User, creds []domain.Credential) error {
	return m.Called(ctx, user, creds).Error(0)
}

func (m *mockUserRepo) SaveApproval(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

type mockResetRepo struct{ mock.Mock }

func (m *mockResetRepo) Create(ctx context.Context, reset *domain.PasswordReset) error {
	return m.Called(ctx, reset).Error(0)
}

func (m *mockResetRepo) GetByTokenID(ctx context.Context, tokenID string) (*domain.PasswordReset, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PasswordReset), args.Error(1)
}

func (m *mockResetRepo) MarkUsed(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockDepartmentRepo struct{ mock.Mock }

func (m *mockDepartmentRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.Department, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Department), args.Error(1)
}

type mockRuleRepo struct{ mock.Mock }

func (m *mockRuleRepo) Create(ctx context.Context, rule *domain.ComplianceRule) error {
	return m.Called(ctx, rule).Error(0)
}

func (m *mockRuleRepo) Update(ctx context.Context, rule *domain.ComplianceRule) error {
	return m.Called(ctx, rule).Error(0)
}

func (m *mockRuleRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRuleRepo) GetByID(ctx context.Context, id string) (*domain.ComplianceRule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ComplianceRule), args.Error(1)
}

func (m *mockRuleRepo) RuleIDTaken(ctx context.Context, ruleID, excludeID string) (bool, error) {
	args := m.Called(ctx, ruleID, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRuleRepo) List(ctx context.Context, filter repository.RuleFilter) ([]domain.ComplianceRule, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ComplianceRule), args.Error(1)
}

type mockTemplateRepo struct{ mock.Mock }

func (m *mockTemplateRepo) Create(ctx context.Context, tpl *domain.ComplianceTemplate) error {
	return m.Called(ctx, tpl).Error(0)
}

func (m *mockTemplateRepo) List(ctx context.Context) ([]domain.ComplianceTemplate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ComplianceTemplate), args.Error(1)
}

func (m *mockTemplateRepo) GetActiveByCategory(ctx context.Context, category string) (*domain.ComplianceTemplate, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ComplianceTemplate), args.Error(1)
}

func (m *mockTemplateRepo) IncrementUsage(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockAlertRepo struct{ mock.Mock }

func (m *mockAlertRepo) Create(ctx context.Context, alert *domain.ComplianceAlert) error {
	return m.Called(ctx, alert).Error(0)
}

func (m *mockAlertRepo) Update(ctx context.Context, alert *domain.ComplianceAlert) error {
	return m.Called(ctx, alert).Error(0)
}

func (m *mockAlertRepo) GetByID(ctx context.Context, id string) (*domain.ComplianceAlert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ComplianceAlert), args.Error(1)
}

func (m *mockAlertRepo) List(ctx context.Context, status *domain.AlertStatus) ([]domain.ComplianceAlert, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ComplianceAlert), args.Error(1)
}

type mockStateRepo struct{ mock.Mock }

func (m *mockStateRepo) List(ctx context.Context) ([]domain.ComplianceState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ComplianceState), args.Error(1)
}

func (m *mockStateRepo) GetByCode(ctx context.Context, code string) (*domain.ComplianceState, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ComplianceState), args.Error(1)
}

func (m *mockStateRepo) Upsert(ctx context.Context, state *domain.ComplianceState) error {
	return m.Called(ctx, state).Error(0)
}

type mockStatsRepo struct{ mock.Mock }

func (m *mockStatsRepo) ComplianceStats(ctx context.Context) (domain.ComplianceStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.ComplianceStats), args.Error(1)
}

type mockChatRepo struct{ mock.Mock }

func (m *mockChatRepo) Create(ctx context.Context, session *domain.ChatSession) error {
	return m.Called(ctx, session).Error(0)
}

func (m *mockChatRepo) SaveMessages(ctx context.Context, session *domain.ChatSession) error {
	return m.Called(ctx, session).Error(0)
}

func (m *mockChatRepo) GetBySessionID(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error) {
	args := m.Called(ctx, userID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Error(1)
}

func (m *mockChatRepo) ListRecentByUser(ctx context.Context, userID string, limit int) ([]domain.ChatSession, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChatSession), args.Error(1)
}
