package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/compliance-portal/internal/api/http/handlers"
	"github.com/spec-kit/compliance-portal/internal/auth"
	"github.com/spec-kit/compliance-portal/internal/domain"
	"github.com/spec-kit/compliance-portal/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Admin          *handlers.AdminHandler
	Compliance     *handlers.ComplianceHandler
	Chat           *handlers.ChatHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Health)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	session := cfg.AuthMiddleware.Handle
	editors := auth.RequireRole(domain.RoleAdmin, domain.RoleManager)
	admin := auth.RequireAdmin()

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/signup", cfg.Auth.Signup)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Post("/forgot-password", cfg.Auth.ForgotPassword)
	authGroup.Post("/reset-password", cfg.Auth.ResetPassword)
	authGroup.Get("/verify-token", session, cfg.Auth.VerifyToken)
	authGroup.Get("/profile", session, cfg.Auth.Profile)
	authGroup.Post("/change-password", session, cfg.Auth.ChangePassword)
	authGroup.Post("/complete-onboarding", session, cfg.Auth.CompleteOnboarding)

	authGroup.Get("/pending-users", session, admin, cfg.Admin.PendingUsers)
	authGroup.Post("/approve-user/:userId", session, admin, cfg.Admin.ApproveUser)
	authGroup.Post("/reject-user/:userId", session, admin, cfg.Admin.RejectUser)
	authGroup.Post("/admin-create-user", session, admin, cfg.Admin.AdminCreateUser)
	authGroup.Post("/revoke-token", session, admin, cfg.Admin.RevokeToken)

	compliance := api.Group("/compliance", session)
	compliance.Get("/states", cfg.Compliance.ListStates)
	compliance.Get("/states/:stateCode", cfg.Compliance.GetState)
	compliance.Put("/states/:stateCode", editors, cfg.Compliance.UpsertState)
	compliance.Get("/states/:stateCode/silo/:siloId", cfg.Compliance.RulesForStateSilo)

	compliance.Get("/rules", cfg.Compliance.ListRules)
	compliance.Get("/rules/:id", cfg.Compliance.GetRule)
	compliance.Post("/rules", editors, cfg.Compliance.CreateRule)
	compliance.Put("/rules/:id", editors, cfg.Compliance.UpdateRule)
	compliance.Delete("/rules/:id", admin, cfg.Compliance.DeleteRule)

	compliance.Get("/templates", cfg.Compliance.ListTemplates)
	compliance.Post("/templates", editors, cfg.Compliance.CreateTemplate)

	compliance.Get("/alerts", cfg.Compliance.ListAlerts)
	compliance.Post("/alerts", editors, cfg.Compliance.CreateAlert)
	compliance.Put("/alerts/:id", editors, cfg.Compliance.UpdateAlert)

	compliance.Post("/chat", cfg.Chat.Ask)
	compliance.Get("/chat/history", cfg.Chat.History)
	compliance.Get("/stats", cfg.Compliance.Stats)
}
