// Package auth implementa el ciclo de vida de cuentas y sesiones:
// registro con verificación de email, login, rotación de refresh tokens,
// logout y reset de password por token de un solo uso.
package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/studytrack/internal/domain"
	jwtx "github.com/dropDatabas3/studytrack/internal/jwt"
	"github.com/dropDatabas3/studytrack/internal/metrics"
	"github.com/dropDatabas3/studytrack/internal/observability/logger"
	"github.com/dropDatabas3/studytrack/internal/security/password"
)

// Notifier entrega los mails de verificación y reset. Best-effort: el bool
// indica si salió, nunca devuelve error al flujo que lo disparó.
type Notifier interface {
	SendVerificationLink(ctx context.Context, email, name, token string) bool
	SendResetLink(ctx context.Context, email, name, token string) bool
}

// Deps contiene las dependencias del servicio de auth.
type Deps struct {
	Accounts domain.AccountRepository
	Issuer   *jwtx.Issuer
	Hasher   password.Params
	Notifier Notifier

	// VerifyTTL: vida del token de verificación (default 24h).
	VerifyTTL time.Duration
	// ResetTTL: vida del token de reset (default 10m; ventana corta a
	// propósito, el reset es más sensible que la verificación).
	ResetTTL time.Duration

	// AllowUnverifiedLogin deshabilita el gate de verificación en Login.
	// El zero value fuerza el gate: deshabilitarlo es una decisión de
	// producto explícita, nunca un default.
	AllowUnverifiedLogin bool

	// NotifyTimeout acota el envío asíncrono de cada mail (default 10s).
	NotifyTimeout time.Duration

	// Now es inyectable para tests. Default: time.Now UTC.
	Now func() time.Time
}

// Service es el orquestador de los flujos de auth.
type Service struct {
	deps Deps
}

// Errores de auth. Los de resultado de autenticación son deliberadamente
// pobres en información: el caller nunca sabe qué precondición exacta falló.
var (
	ErrMissingFields         = errors.New("missing required fields")
	ErrConflict              = errors.New("email already registered")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrVerificationRequired  = errors.New("email verification required")
	ErrInvalidOrExpiredToken = errors.New("token invalid or expired")
	ErrInvalidRefreshToken   = errors.New("invalid refresh token")
)

// NewService crea el servicio aplicando defaults.
func NewService(deps Deps) *Service {
	if deps.VerifyTTL <= 0 {
		deps.VerifyTTL = 24 * time.Hour
	}
	if deps.ResetTTL <= 0 {
		deps.ResetTTL = 10 * time.Minute
	}
	if deps.NotifyTimeout <= 0 {
		deps.NotifyTimeout = 10 * time.Second
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{deps: deps}
}

func (s *Service) log(ctx context.Context, op string) *zap.Logger {
	return logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op(op),
	)
}

// notifyAsync despacha el envío en background con timeout propio: el éxito
// de la operación que lo dispara nunca depende del mail. El contexto es
// nuevo a propósito: que el caller abandone el request no cancela el envío.
func (s *Service) notifyAsync(kind string, send func(ctx context.Context) bool) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.deps.NotifyTimeout)
		defer cancel()
		if !send(ctx) {
			metrics.NotifierFailuresTotal.WithLabelValues(kind).Inc()
		}
	}()
}
