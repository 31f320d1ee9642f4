// Package logout clears the login session and the authz cache entries.
package logout

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/felipemart/baseprojeto/internal/authz"
	"github.com/felipemart/baseprojeto/internal/config"
	"github.com/felipemart/baseprojeto/internal/web/handler"
	"github.com/felipemart/baseprojeto/internal/web/handler/login"
	"github.com/felipemart/baseprojeto/internal/web/session"
)

// Service is the logout handler service.
type Service struct {
	cfg   *config.Config
	cache *authz.SessionCache
}

// Handler is the logout handler.
var Handler = Service{}

// Init initializes the logout handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, cache *authz.SessionCache) {
	if app == nil || cfg == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.cache = cache

	app.Get(handler.RootPath+"logout", s.Logout)
	app.Post(handler.RootPath+"logout", s.Logout)
}

// Logout handles user logout by clearing the session.
func (s *Service) Logout(c *fiber.Ctx) error {
	sessionID := c.Cookies("session")
	if sessionID != "" {
		sessionData := new(session.Data)
		if err := sessionData.Read(sessionID); err == nil && sessionData.User.ID > 0 {
			if err := s.cache.Invalidate(c.Context(), sessionData.User.ID); err != nil {
				log.Error().Err(err).Msg("failed to invalidate authz cache")
			}
		}

		if err := session.Store.Storage.Delete(sessionID); err != nil {
			log.Error().Err(err).Msg("failed to delete session")
		}
	}

	// Clear the session cookie
	c.Cookie(&fiber.Cookie{
		Name:     "session",
		Value:    "",
		MaxAge:   -1,
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.Redirect(login.Path)
}
