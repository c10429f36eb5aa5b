package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/studytrack/internal/domain"
	"github.com/dropDatabas3/studytrack/internal/metrics"
	"github.com/dropDatabas3/studytrack/internal/observability/logger"
	tokens "github.com/dropDatabas3/studytrack/internal/security/token"
)

// VerifyEmail consume un token de verificación. Marca la cuenta como
// verificada y limpia el par digest+expiry en el mismo update. El error es
// genérico a propósito: no distinguimos token incorrecto de token vencido.
func (s *Service) VerifyEmail(ctx context.Context, plaintext string) (*AccountSummary, error) {
	log := s.log(ctx, "VerifyEmail")

	if plaintext == "" {
		return nil, ErrInvalidOrExpiredToken
	}

	acc, err := s.deps.Accounts.FindByVerificationDigest(ctx, tokens.Digest(plaintext), s.deps.Now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.ObserveAuthOp("verify_email", "denied")
			return nil, ErrInvalidOrExpiredToken
		}
		metrics.ObserveAuthOp("verify_email", "error")
		return nil, fmt.Errorf("lookup verification token: %w", err)
	}

	// Verificado es monotónico: false → true, nunca vuelve atrás.
	acc.EmailVerified = true
	acc.ClearVerificationToken()

	if err := s.deps.Accounts.Update(ctx, acc); err != nil {
		log.Error("persist verification failed", logger.Err(err))
		metrics.ObserveAuthOp("verify_email", "error")
		return nil, fmt.Errorf("persist verification: %w", err)
	}

	log.Info("email verified", logger.AccountID(acc.ID))
	metrics.ObserveAuthOp("verify_email", "ok")

	sum := summarize(acc)
	return &sum, nil
}

// ResendVerification regenera el token de verificación de una cuenta sin
// verificar, pisando el pendiente. La respuesta es genérica exista o no la
// cuenta (anti-enumeración, misma postura que ForgotPassword).
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	log := s.log(ctx, "ResendVerification")

	email = normalizeEmail(email)
	if email == "" {
		return ErrMissingFields
	}

	acc, err := s.deps.Accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// anti-enum: éxito silencioso
			log.Debug("resend for unknown email (anti-enum)")
			return nil
		}
		return fmt.Errorf("lookup account: %w", err)
	}
	if acc.EmailVerified {
		// ya verificada: también éxito silencioso
		return nil
	}

	plain, digest, err := tokens.Generate()
	if err != nil {
		log.Error("verification token generation failed", logger.Err(err))
		return fmt.Errorf("generate verification token: %w", err)
	}

	acc.SetVerificationToken(digest, s.deps.Now().Add(s.deps.VerifyTTL))
	if err := s.deps.Accounts.Update(ctx, acc); err != nil {
		log.Error("persist verification token failed", logger.Err(err))
		return fmt.Errorf("persist verification token: %w", err)
	}

	s.notifyAsync("verification", func(ctx context.Context) bool {
		return s.deps.Notifier.SendVerificationLink(ctx, acc.Email, acc.Name, plain)
	})
	return nil
}
