// Package notify sends transactional email notifications. Delivery is best
// effort by contract: a failed notification is logged and dropped, it never
// fails the mutation that triggered it.
package notify

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/felipemart/baseprojeto/internal/config"
	"github.com/felipemart/baseprojeto/internal/db/models"
)

// Sender delivers a single message. Satisfied by the SMTP sender in
// production and by fakes in tests.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// Service formats and dispatches the notifications this application sends.
type Service struct {
	sender  Sender
	baseURL string
}

// New creates a notification service. When mail is disabled in the config the
// service still works but only logs what it would have sent.
func New(cfg *config.Config) *Service {
	var sender Sender
	if cfg.Mail.Enabled {
		sender = NewSMTPSender(cfg.Mail)
	}

	return &Service{
		sender:  sender,
		baseURL: cfg.Webserver.URL,
	}
}

// NewWithSender creates a notification service with an explicit sender.
func NewWithSender(sender Sender, baseURL string) *Service {
	return &Service{sender: sender, baseURL: baseURL}
}

// dispatch hands the message to the sender and swallows failures.
func (s *Service) dispatch(to, subject, body string) {
	if s == nil {
		return
	}

	if s.sender == nil {
		log.Info().Str("to", to).Str("subject", subject).Msg("mail disabled, notification skipped")
		return
	}

	if err := s.sender.Send(to, subject, body); err != nil {
		log.Error().Err(err).Str("to", to).Str("subject", subject).Msg("failed to send notification")
	}
}

// Welcome sends the greeting mail for a freshly created account.
func (s *Service) Welcome(user *models.User) {
	body := fmt.Sprintf(
		"<p>Olá %s,</p><p>Sua conta foi criada. Em instantes você receberá um link para definir sua senha.</p>",
		user.Name,
	)
	s.dispatch(user.Email, "Bem-vindo", body)
}

// PasswordCreate sends the link for setting the first password of an
// admin-created account.
func (s *Service) PasswordCreate(user *models.User, token string) {
	link := s.baseURL + "/password/create/" + token
	body := fmt.Sprintf(
		"<p>Olá %s,</p><p>Defina sua senha de acesso através do link:</p><p><a href=%q>%s</a></p>",
		user.Name, link, link,
	)
	s.dispatch(user.Email, "Criação de senha", body)
}

// PasswordRecovery sends the reset link for the password recovery flow.
func (s *Service) PasswordRecovery(user *models.User, token string) {
	link := s.baseURL + "/password/reset/" + token
	body := fmt.Sprintf(
		"<p>Olá %s,</p><p>Recebemos um pedido de recuperação de senha. Redefina através do link:</p><p><a href=%q>%s</a></p>",
		user.Name, link, link,
	)
	s.dispatch(user.Email, "Recuperação de senha", body)
}
