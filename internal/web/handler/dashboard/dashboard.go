// Package dashboard provides the dashboard handler, the landing page after login.
package dashboard

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/felipemart/baseprojeto/internal/authz"
	"github.com/felipemart/baseprojeto/internal/config"
	"github.com/felipemart/baseprojeto/internal/db/models"
	"github.com/felipemart/baseprojeto/internal/web/handler"
	"github.com/felipemart/baseprojeto/internal/web/navigation"
)

const (
	// Path is the path to the dashboard page.
	Path = handler.RootPath + "dashboard"

	// TemplateName is the name of the dashboard template.
	TemplateName = "dashboard/dashboard"
)

// Stats holds the account counters shown on the landing page.
type Stats struct {
	TotalUsers   int64
	ActiveUsers  int64
	DeletedUsers int64
	TotalRoles   int64
}

// Service is the dashboard handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the dashboard handler.
var Handler = Service{}

// Init initializes the dashboard handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, perms *authz.PermissionService) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg

	// register routes with permission checks
	app.Get(Path,
		authz.RequirePermission(perms, authz.PermDashboardView),
		s.Get,
	)
}

// Get handles the dashboard page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	nav := navigation.NewContext("Dashboard", "dashboard", "dashboard").
		AddBreadcrumb("Home", Path, false).
		AddBreadcrumb("Dashboard", Path, true)

	var stats Stats

	if err := s.db.Model(&models.User{}).Unscoped().Count(&stats.TotalUsers).Error; err != nil {
		log.Error().Err(err).Msg("failed to count users")

		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	if err := s.db.Model(&models.User{}).Count(&stats.ActiveUsers).Error; err != nil {
		log.Error().Err(err).Msg("failed to count active users")

		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	stats.DeletedUsers = stats.TotalUsers - stats.ActiveUsers

	if err := s.db.Model(&models.Role{}).Count(&stats.TotalRoles).Error; err != nil {
		log.Error().Err(err).Msg("failed to count roles")

		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	log.Debug().
		Int64("total_users", stats.TotalUsers).
		Int64("active_users", stats.ActiveUsers).
		Int64("total_roles", stats.TotalRoles).
		Msg("Dashboard stats retrieved successfully")

	return c.Render(TemplateName, fiber.Map{
		"Navigation":  nav,
		"Stats":       stats,
		"CurrentUser": c.Locals("CurrentUser"),
	}, handler.BaseLayout)
}
