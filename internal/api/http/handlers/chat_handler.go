package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/compliance-portal/internal/api/dto"
	"github.com/spec-kit/compliance-portal/internal/service"
)

// ChatHandler exposes the rule chat endpoints.
type ChatHandler struct {
	chat *service.ChatService
}

// NewChatHandler constructs handler.
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chatService}
}

// Ask POST /api/compliance/chat.
func (h *ChatHandler) Ask(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.ChatRequest
	if err := parse(c, &req, "Question is required"); err != nil {
		return err
	}

	session, err := h.chat.Ask(c.UserContext(), p.User.ID, req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(session)
}

// History GET /api/compliance/chat/history.
func (h *ChatHandler) History(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	sessions, err := h.chat.History(c.UserContext(), p.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(sessions)
}
