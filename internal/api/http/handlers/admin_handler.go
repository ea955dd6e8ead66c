package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/compliance-portal/internal/api/dto"
	"github.com/spec-kit/compliance-portal/internal/service"
)

// AdminHandler exposes the account review endpoints reserved to admins.
type AdminHandler struct {
	auth *service.AuthService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService) *AdminHandler {
	return &AdminHandler{auth: authService}
}

// PendingUsers handles GET /api/auth/pending-users.
func (h *AdminHandler) PendingUsers(c *fiber.Ctx) error {
	users, err := h.auth.PendingUsers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"pendingUsers": dto.NewUserResponses(users)})
}

// ApproveUser handles POST /api/auth/approve-user/:userId.
func (h *AdminHandler) ApproveUser(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.ApproveUserRequest
	if err := parse(c, &req, dto.MsgApprovalRequired); err != nil {
		return err
	}
	in, err := req.ToInput()
	if err != nil {
		return err
	}

	user, err := h.auth.ApproveUser(c.UserContext(), p.User.ID, c.Params("userId"), in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "User approved successfully",
		"user":    dto.NewUserResponse(user),
	})
}

// RejectUser handles POST /api/auth/reject-user/:userId.
func (h *AdminHandler) RejectUser(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.RejectUserRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return dto.InvalidPayload()
		}
	}

	if err := h.auth.RejectUser(c.UserContext(), p.User.ID, c.Params("userId"), req.RejectionReason); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "User has been rejected"})
}

// AdminCreateUser handles POST /api/auth/admin-create-user.
func (h *AdminHandler) AdminCreateUser(c *fiber.Ctx) error {
	var req dto.AdminCreateUserRequest
	if err := parse(c, &req, dto.MsgAdminCreateRequired); err != nil {
		return err
	}
	in, err := req.ToInput()
	if err != nil {
		return err
	}

	result, err := h.auth.AdminCreateUser(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewAuthResponse(result.User, result.Token, "User created successfully"))
}

// RevokeToken handles POST /api/auth/revoke-token.
func (h *AdminHandler) RevokeToken(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.RevokeTokenRequest
	if err := parse(c, &req, dto.MsgTokenRequired); err != nil {
		return err
	}

	if err := h.auth.RevokeToken(c.UserContext(), p.User.ID, req.Token); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Token revoked"})
}
