package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/compliance-portal/internal/domain"
	"github.com/spec-kit/compliance-portal/internal/repository"
	apperrors "github.com/spec-kit/compliance-portal/pkg/util"
)

const (
	chatHistoryLimit = 50
	chatRuleLimit    = 3
	noRulesAnswer    = "No compliance rules were found for the requested scope."
)

// ChatInput is one question asked in a chat session.
type ChatInput struct {
	SessionID string
	State     string
	Silo      domain.Silo
	Question  string
}

// ChatService answers questions from the rule catalogue and keeps the transcript.
type ChatService struct {
	chats     repository.ChatRepository
	rules     repository.RuleRepository
	templates repository.TemplateRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewChatService builds the service.
func NewChatService(chats repository.ChatRepository, rules repository.RuleRepository, templates repository.TemplateRepository, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{chats: chats, rules: rules, templates: templates, logger: logger, now: time.Now}
}

// Ask appends the question and a generated answer to the caller's session,
// creating the session when no id is given.
func (s *ChatService) Ask(ctx context.Context, userID string, in ChatInput) (*domain.ChatSession, error) {
	session, isNew, err := s.openSession(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	answer, related, err := s.answer(ctx, session, in.Question)
	if err != nil {
		return nil, err
	}
	session.Messages = append(session.Messages,
		domain.ChatMessage{Role: domain.ChatRoleUser, Content: strings.TrimSpace(in.Question), Timestamp: now},
		domain.ChatMessage{Role: domain.ChatRoleAssistant, Content: answer, Timestamp: now, RelatedRules: related},
	)

	if isNew {
		err = s.chats.Create(ctx, session)
	} else {
		err = s.chats.SaveMessages(ctx, session)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return session, nil
}

func (s *ChatService) openSession(ctx context.Context, userID string, in ChatInput) (*domain.ChatSession, bool, error) {
	if in.SessionID != "" {
		session, err := s.chats.GetBySessionID(ctx, userID, in.SessionID)
		if err == nil {
			return session, false, nil
		}
		if !apperrors.IsNoRows(err) {
			return nil, false, apperrors.NewInternalError(err)
		}
		return nil, false, apperrors.NewNotFound("Chat session", map[string]any{"sessionId": in.SessionID})
	}
	return &domain.ChatSession{
		SessionID: uuid.NewString(),
		UserID:    userID,
		State:     domain.NormalizeStateCode(in.State),
		Silo:      in.Silo,
		Status:    domain.ChatSessionActive,
	}, true, nil
}

// answer renders the category template of the best matching rule, or a plain
// listing of the matches when no template exists.
func (s *ChatService) answer(ctx context.Context, session *domain.ChatSession, question string) (string, []string, error) {
	active := domain.RuleStatusActive
	filter := repository.RuleFilter{Status: &active}
	if session.State != "" {
		filter.State = &session.State
	}
	if session.Silo != "" {
		filter.Silo = &session.Silo
	}

	candidates, err := s.rules.List(ctx, filter)
	if err != nil {
		return "", nil, apperrors.NewInternalError(err)
	}
	matches := rankRules(candidates, question, s.now())
	if len(matches) == 0 {
		return noRulesAnswer, nil, nil
	}

	related := make([]string, 0, len(matches))
	for _, rule := range matches {
		related = append(related, rule.RuleID)
	}

	top := matches[0]
	tpl, err := s.templates.GetActiveByCategory(ctx, top.Category)
	if err != nil {
		if !apperrors.IsNoRows(err) {
			return "", nil, apperrors.NewInternalError(err)
		}
		return listingAnswer(session, matches), related, nil
	}

	rendered := tpl.Render(map[string]string{
		"state":           top.State,
		"silo":            string(top.Silo),
		"category":        top.Category,
		"subcategory":     top.Subcategory,
		"rule_id":         top.RuleID,
		"rule_text":       top.RuleText,
		"sources":         strings.Join(top.Sources, "; "),
		"leverage_points": strings.Join(top.LeveragePoints, "; "),
		"question":        strings.TrimSpace(question),
	})
	if err := s.templates.IncrementUsage(ctx, tpl.ID); err != nil {
		s.logger.Warn("template usage not recorded", zap.String("template_id", tpl.ID), zap.Error(err))
	}
	return rendered, related, nil
}

func listingAnswer(session *domain.ChatSession, rules []domain.ComplianceRule) string {
	var b strings.Builder
	scope := session.State
	if scope == "" {
		scope = "all states"
	}
	if session.Silo != "" {
		scope = fmt.Sprintf("%s (%s)", scope, session.Silo)
	}
	fmt.Fprintf(&b, "Relevant rules for %s:", scope)
	for _, rule := range rules {
		fmt.Fprintf(&b, "\n- %s: %s", rule.RuleID, rule.RuleText)
	}
	return b.String()
}

// rankRules scores rules by question keywords and drops sunset rules. When no
// keyword hits, the newest rules of the scope are returned.
func rankRules(rules []domain.ComplianceRule, question string, now time.Time) []domain.ComplianceRule {
	terms := keywords(question)

	type scored struct {
		rule  domain.ComplianceRule
		score int
		order int
	}
	var live []scored
	for i, rule := range rules {
		if rule.IsSunset(now) {
			continue
		}
		haystack := strings.ToLower(strings.Join([]string{
			rule.Category, rule.Subcategory, rule.RuleText, rule.Description, rule.RuleID,
		}, " "))
		score := 0
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				score++
			}
		}
		live = append(live, scored{rule: rule, score: score, order: i})
	}

	sort.SliceStable(live, func(i, j int) bool {
		if live[i].score != live[j].score {
			return live[i].score > live[j].score
		}
		return live[i].order < live[j].order
	})

	out := make([]domain.ComplianceRule, 0, chatRuleLimit)
	for _, s := range live {
		if len(out) == chatRuleLimit {
			break
		}
		out = append(out, s.rule)
	}
	return out
}

func keywords(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 3 {
			out = append(out, f)
		}
	}
	return out
}

// History returns the caller's most recent sessions.
func (s *ChatService) History(ctx context.Context, userID string) ([]domain.ChatSession, error) {
	sessions, err := s.chats.ListRecentByUser(ctx, userID, chatHistoryLimit)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return sessions, nil
}
