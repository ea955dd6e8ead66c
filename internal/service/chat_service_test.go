package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/compliance-portal/internal/domain"
	apperrors "github.com/spec-kit/compliance-portal/pkg/util"
)

func chatRules() []domain.ComplianceRule {
	sunset := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	return []domain.ComplianceRule{
		{RuleID: "FL-CON-GEN-001", State: "FL", Silo: domain.SiloPublicAdjusting, Category: "Contracts", RuleText: "Contracts need a rescission notice."},
		{RuleID: "FL-LIC-FEE-001", State: "FL", Silo: domain.SiloPublicAdjusting, Category: "Licensing", RuleText: "The license fee is $50.", Sources: []string{"626.854"}},
		{RuleID: "FL-LIC-OLD-001", State: "FL", Silo: domain.SiloPublicAdjusting, Category: "Licensing", RuleText: "Old license fee rule.", SunsetDate: &sunset},
	}
}

func TestChatAsk_RendersCategoryTemplate(t *testing.T) {
	chats, rules, templates := &mockChatRepo{}, &mockRuleRepo{}, &mockTemplateRepo{}
	svc := NewChatService(chats, rules, templates, nil)
	ctx := context.Background()

	rules.On("List", ctx, mock.Anything).Return(chatRules(), nil)
	templates.On("GetActiveByCategory", ctx, "Licensing").Return(&domain.ComplianceTemplate{
		ID:       "tpl-1",
		Template: "{{state}}: {{rule_text}} ({{sources}})",
	}, nil)
	templates.On("IncrementUsage", ctx, "tpl-1").Return(nil)
	chats.On("Create", ctx, mock.AnythingOfType("*domain.ChatSession")).Return(nil)

	session, err := svc.Ask(ctx, "u-1", ChatInput{State: "fl", Silo: domain.SiloPublicAdjusting, Question: "What is the license fee?"})
	require.NoError(t, err)

	assert.NotEmpty(t, session.SessionID)
	assert.Equal(t, "FL", session.State)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, domain.ChatRoleUser, session.Messages[0].Role)
	answer := session.Messages[1]
	assert.Equal(t, domain.ChatRoleAssistant, answer.Role)
	assert.Equal(t, "FL: The license fee is $50. (626.854)", answer.Content)
	assert.Equal(t, "FL-LIC-FEE-001", answer.RelatedRules[0])
	assert.NotContains(t, answer.RelatedRules, "FL-LIC-OLD-001")
	templates.AssertCalled(t, "IncrementUsage", ctx, "tpl-1")
}

func TestChatAsk_FallsBackToListing(t *testing.T) {
	chats, rules, templates := &mockChatRepo{}, &mockRuleRepo{}, &mockTemplateRepo{}
	svc := NewChatService(chats, rules, templates, nil)
	ctx := context.Background()

	existing := &domain.ChatSession{SessionID: "s-1", UserID: "u-1", State: "FL"}
	chats.On("GetBySessionID", ctx, "u-1", "s-1").Return(existing, nil)
	rules.On("List", ctx, mock.Anything).Return(chatRules(), nil)
	templates.On("GetActiveByCategory", ctx, "Contracts").Return(nil, pgx.ErrNoRows)
	chats.On("SaveMessages", ctx, existing).Return(nil)

	session, err := svc.Ask(ctx, "u-1", ChatInput{SessionID: "s-1", Question: "rescission contracts"})
	require.NoError(t, err)
	answer := session.Messages[1].Content
	assert.True(t, strings.HasPrefix(answer, "Relevant rules for FL:"))
	assert.Contains(t, answer, "FL-CON-GEN-001")
	chats.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestChatAsk_NoRules(t *testing.T) {
	chats, rules, templates := &mockChatRepo{}, &mockRuleRepo{}, &mockTemplateRepo{}
	svc := NewChatService(chats, rules, templates, nil)
	rules.On("List", mock.Anything, mock.Anything).Return([]domain.ComplianceRule{}, nil)
	chats.On("Create", mock.Anything, mock.Anything).Return(nil)

	session, err := svc.Ask(context.Background(), "u-1", ChatInput{State: "WY", Question: "anything?"})
	require.NoError(t, err)
	assert.Equal(t, noRulesAnswer, session.Messages[1].Content)
}

func TestChatAsk_ForeignSession(t *testing.T) {
	chats := &mockChatRepo{}
	svc := NewChatService(chats, &mockRuleRepo{}, &mockTemplateRepo{}, nil)
	chats.On("GetBySessionID", mock.Anything, "u-2", "s-1").Return(nil, pgx.ErrNoRows)

	_, err := svc.Ask(context.Background(), "u-2", ChatInput{SessionID: "s-1", Question: "hi"})
	requireDomainError(t, err, apperrors.CodeNotFound, 404)
}

func TestChatHistory_Limit(t *testing.T) {
	chats := &mockChatRepo{}
	svc := NewChatService(chats, &mockRuleRepo{}, &mockTemplateRepo{}, nil)
	chats.On("ListRecentByUser", mock.Anything, "u-1", 50).Return([]domain.ChatSession{{SessionID: "s"}}, nil)

	history, err := svc.History(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRankRules_DropsSunsetAndCaps(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var many []domain.ComplianceRule
	for i := 0; i < 5; i++ {
		many = append(many, domain.ComplianceRule{RuleID: "R", RuleText: "text"})
	}
	assert.Len(t, rankRules(many, "unrelated", now), chatRuleLimit)

	ranked := rankRules(chatRules(), "license fee", now)
	require.Len(t, ranked, 2)
	assert.Equal(t, "FL-LIC-FEE-001", ranked[0].RuleID)
}
