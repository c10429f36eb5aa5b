package email

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/studytrack/internal/observability/logger"
)

// Mailer arma los mails de verificación y reset y los entrega best-effort.
// El bool de retorno indica si el envío salió; nunca propaga error hacia el
// caller (la operación que dispara el mail no debe fallar por el mail).
type Mailer struct {
	Sender        Sender
	Tmpl          *Templates
	PublicBaseURL string // base de los links del frontend, ej "https://app.studytrack.dev"
	VerifyTTL     time.Duration
	ResetTTL      time.Duration
}

func (m *Mailer) link(path, token string) string {
	base := strings.TrimRight(m.PublicBaseURL, "/")
	return base + path + "?token=" + url.QueryEscape(token)
}

// SendVerificationLink manda el mail de verificación con el token en claro.
func (m *Mailer) SendVerificationLink(ctx context.Context, to, name, token string) bool {
	log := logger.From(ctx).With(logger.Component("email.mailer"), logger.Op("SendVerificationLink"))

	html, txt, err := m.Tmpl.RenderVerify(VerifyVars{
		Name: name,
		Link: m.link("/verify-email", token),
		TTL:  m.VerifyTTL.String(),
	})
	if err != nil {
		log.Error("render failed", logger.Err(err))
		return false
	}
	if err := m.Sender.Send(to, "Confirma tu email - StudyTrack", html, txt); err != nil {
		log.Warn("send failed", logger.Err(err))
		return false
	}
	return true
}

// SendResetLink manda el mail de reset con el token en claro.
func (m *Mailer) SendResetLink(ctx context.Context, to, name, token string) bool {
	log := logger.From(ctx).With(logger.Component("email.mailer"), logger.Op("SendResetLink"))

	html, txt, err := m.Tmpl.RenderReset(ResetVars{
		Name: name,
		Link: m.link("/reset-password", token),
		TTL:  m.ResetTTL.String(),
	})
	if err != nil {
		log.Error("render failed", logger.Err(err))
		return false
	}
	if err := m.Sender.Send(to, "Restablecer contraseña - StudyTrack", html, txt); err != nil {
		log.Warn("send failed", logger.Err(err))
		return false
	}
	return true
}
