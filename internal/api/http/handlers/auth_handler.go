package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/compliance-portal/internal/api/dto"
	"github.com/spec-kit/compliance-portal/internal/auth"
	"github.com/spec-kit/compliance-portal/internal/service"
	apperrors "github.com/spec-kit/compliance-portal/pkg/util"
)

// AuthHandler exposes the account endpoints under /api/auth.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// principal returns the caller attached by the session middleware.
func principal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewAuthFailure(apperrors.CodeTokenRequired, auth.MsgTokenRequired)
	}
	return p, nil
}

// parse decodes and validates the body into req.
func parse(c *fiber.Ctx, req any, requiredMsg string) error {
	if err := c.BodyParser(req); err != nil {
		return dto.InvalidPayload()
	}
	return dto.Validate(req, requiredMsg)
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := parse(c, &req, dto.MsgSignupRequired); err != nil {
		return err
	}

	result, err := h.auth.Signup(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewAuthResponse(result.User, result.Token,
		"User created successfully. Please complete your onboarding."))
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parse(c, &req, dto.MsgLoginRequired); err != nil {
		return err
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAuthResponse(result.User, result.Token, ""))
}

// Logout handles POST /api/auth/logout. A presented bearer token is revoked.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization)); ok {
		if err := h.auth.Logout(c.UserContext(), token); err != nil {
			return err
		}
	}
	return c.JSON(dto.MessageResponse{Message: "Logout successful"})
}

// VerifyToken handles GET /api/auth/verify-token.
func (h *AuthHandler) VerifyToken(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"user":    dto.NewUserResponse(p.User),
		"message": "Token is valid",
	})
}

// Profile handles GET /api/auth/profile.
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": dto.NewUserResponse(p.User)})
}

// ChangePassword handles POST /api/auth/change-password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := parse(c, &req, dto.MsgChangePasswordRequired); err != nil {
		return err
	}

	if err := h.auth.ChangePassword(c.UserContext(), p.User.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Password changed successfully"})
}

// ForgotPassword handles POST /api/auth/forgot-password. The answer never
// reveals whether the account exists.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := parse(c, &req, dto.MsgEmailRequired); err != nil {
		return err
	}

	if err := h.auth.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: service.MsgForgotPassword})
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := parse(c, &req, dto.MsgResetRequired); err != nil {
		return err
	}

	if err := h.auth.ResetPassword(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Password has been reset successfully"})
}

// CompleteOnboarding handles POST /api/auth/complete-onboarding.
func (h *AuthHandler) CompleteOnboarding(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.OnboardingRequest
	if err := parse(c, &req, ""); err != nil {
		return err
	}

	user, err := h.auth.CompleteOnboarding(c.UserContext(), p.User.ID, req.ToInput())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Onboarding completed successfully. Your application is pending review.",
		"user":    dto.NewUserResponse(user),
	})
}
