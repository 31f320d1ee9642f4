// Package login provides the login page and local credential authentication.
package login

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/felipemart/baseprojeto/internal/authz"
	"github.com/felipemart/baseprojeto/internal/config"
	"github.com/felipemart/baseprojeto/internal/db/models"
	"github.com/felipemart/baseprojeto/internal/web/handler"
	"github.com/felipemart/baseprojeto/internal/web/session"
)

const (
	// Path is the path to the login page.
	Path = "/login"

	// TemplateName is the login page template.
	TemplateName = "auth/login"
)

// Service is the login handler service.
type Service struct {
	cfg   *config.Config
	db    *gorm.DB
	roles *authz.RoleService
	perms *authz.PermissionService
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	roles *authz.RoleService,
	perms *authz.PermissionService,
) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New("app or db is nil")
	}

	s.db = db
	s.cfg = cfg
	s.roles = roles
	s.perms = perms

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post(handler.RouterRootPath, s.Post)
	})

	return nil
}

// Get handles the login page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	return c.Render(TemplateName, fiber.Map{})
}

// authenticate looks up the user by email and verifies the password.
// Soft-deleted users are invisible to the default scope, so a deleted
// account fails the same way a wrong password does.
func (s *Service) authenticate(email, password string) (*models.User, error) {
	var user models.User

	err := s.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, err
	}

	if !user.VerifyPassword(password) {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// Post handles the login form submission.
func (s *Service) Post(c *fiber.Ctx) error {
	var in struct {
		Email    string `form:"email"`
		Password string `form:"password"`
	}

	if err := c.BodyParser(&in); err != nil {
		return c.Render(TemplateName, fiber.Map{
			"error": "Invalid form data",
		})
	}

	user, err := s.authenticate(in.Email, in.Password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			log.Error().Err(err).Msg("login query failed")
		}

		return c.Render(TemplateName, fiber.Map{
			"error": "Invalid email or password",
		})
	}

	sessionID := session.GenerateSessionID()

	userSession := &session.Data{
		User: *user,
	}

	if err = userSession.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")

		return c.Render(TemplateName, fiber.Map{
			"error": "Internal server error",
		})
	}

	// Rebuild both authz cache entries so checks reflect the relational
	// truth from the first request of this session.
	if _, err := s.roles.RefreshSession(c.Context(), user.ID); err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("failed to refresh role session")
	}

	if _, err := s.perms.RefreshSession(c.Context(), user.ID); err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("failed to refresh permission session")
	}

	cookieSettings := &fiber.Cookie{
		Name:     "session",
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	if s.cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)

	return c.Redirect("/dashboard")
}
