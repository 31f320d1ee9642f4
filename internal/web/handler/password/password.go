// Package password provides the password recovery, reset and first-password
// creation flows.
package password

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/felipemart/baseprojeto/internal/config"
	"github.com/felipemart/baseprojeto/internal/db/controller/passwordtoken"
	"github.com/felipemart/baseprojeto/internal/db/models"
	"github.com/felipemart/baseprojeto/internal/notify"
	"github.com/felipemart/baseprojeto/internal/web/handler"
)

const (
	// RecoveryPath is the path of the recovery request form.
	RecoveryPath = handler.RootPath + "password/recovery"
	// ResetPath is the path of the token-gated reset form.
	ResetPath = handler.RootPath + "password/reset/:token"
	// CreatePath is the path of the token-gated first-password form.
	CreatePath = handler.RootPath + "password/create/:token"

	// TemplateRecovery renders the recovery request form.
	TemplateRecovery = "auth/password_recovery"
	// TemplateReset renders the reset/create form.
	TemplateReset = "auth/password_reset"

	// recoveryMessage is shown after every recovery request, whether or not
	// the email exists, so the form does not leak which addresses are known.
	recoveryMessage = "Email enviado! Verifique sua caixa de entrada."
)

// Service is the password flow handler service.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
	notifier  *notify.Service
}

// Handler is the password flow handler.
var Handler = Service{}

// TokenTTL bounds how long an emailed link stays redeemable.
const TokenTTL = 2 * time.Hour

// Init initializes the password flow handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, notifier *notify.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.validator = validator.New()
	s.notifier = notifier

	app.Get(RecoveryPath, s.RecoveryForm)
	app.Post(RecoveryPath, s.Recovery)
	app.Get(ResetPath, s.ResetForm(models.TokenPurposeRecovery))
	app.Post(ResetPath, s.Reset(models.TokenPurposeRecovery))
	app.Get(CreatePath, s.ResetForm(models.TokenPurposeCreate))
	app.Post(CreatePath, s.Reset(models.TokenPurposeCreate))
}

// RecoveryForm renders the recovery request form.
func (s *Service) RecoveryForm(c *fiber.Ctx) error {
	return c.Render(TemplateRecovery, fiber.Map{})
}

// Recovery handles the recovery request: issue a token for the account and
// send the reset link. The response is identical whether or not the email
// exists.
func (s *Service) Recovery(c *fiber.Ctx) error {
	var in struct {
		Email string `form:"email" validate:"required,email"`
	}

	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateRecovery, fiber.Map{
			"error": "Invalid form data",
		})
	}

	if err := s.validator.Struct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateRecovery, fiber.Map{
			"error": "Informe um e-mail válido.",
			"Email": in.Email,
		})
	}

	var user models.User
	if err := s.db.Where("email = ?", in.Email).First(&user).Error; err == nil {
		token, err := passwordtoken.Issue(s.db, user.ID, models.TokenPurposeRecovery, TokenTTL)
		if err != nil {
			log.Error().Err(err).Uint64("user_id", user.ID).Msg("failed to issue recovery token")
		} else {
			s.notifier.PasswordRecovery(&user, token)
		}
	}

	return c.Render(TemplateRecovery, fiber.Map{
		"message": recoveryMessage,
	})
}

// ResetForm renders the token-gated password form when the token resolves.
func (s *Service) ResetForm(purpose models.TokenPurpose) fiber.Handler {
	return func(c *fiber.Ctx) error {
		row, err := passwordtoken.Lookup(s.db, c.Params("token"))
		if err != nil || row.Purpose != purpose {
			return c.Status(fiber.StatusNotFound).Render(TemplateReset, fiber.Map{
				"error": "Link inválido ou expirado.",
			})
		}

		return c.Render(TemplateReset, fiber.Map{
			"Token":    c.Params("token"),
			"IsCreate": purpose == models.TokenPurposeCreate,
		})
	}
}

// Reset consumes the token and stores the new password.
func (s *Service) Reset(purpose models.TokenPurpose) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in struct {
			Password        string `form:"password"         validate:"required,min=8"`
			PasswordConfirm string `form:"password_confirm" validate:"required,eqfield=Password"`
		}

		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).Render(TemplateReset, fiber.Map{
				"error": "Invalid form data",
				"Token": c.Params("token"),
			})
		}

		if err := s.validator.Struct(in); err != nil {
			return c.Status(fiber.StatusBadRequest).Render(TemplateReset, fiber.Map{
				"error": "A senha deve ter ao menos 8 caracteres e a confirmação deve conferir.",
				"Token": c.Params("token"),
			})
		}

		row, err := passwordtoken.Lookup(s.db, c.Params("token"))
		if err != nil || row.Purpose != purpose {
			return c.Status(fiber.StatusNotFound).Render(TemplateReset, fiber.Map{
				"error": "Link inválido ou expirado.",
			})
		}

		if _, err := passwordtoken.Consume(s.db, c.Params("token")); err != nil {
			return c.Status(fiber.StatusNotFound).Render(TemplateReset, fiber.Map{
				"error": "Link inválido ou expirado.",
			})
		}

		err = s.db.Model(&models.User{}).
			Where("id = ?", row.UserID).
			Update("password", models.HashPassword(in.Password)).Error
		if err != nil {
			log.Error().Err(err).Uint64("user_id", row.UserID).Msg("failed to update password")

			return c.Status(fiber.StatusInternalServerError).Render(TemplateReset, fiber.Map{
				"error": "Erro ao salvar a senha.",
			})
		}

		return c.Redirect("/login")
	}
}
