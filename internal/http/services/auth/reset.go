package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/studytrack/internal/domain"
	"github.com/dropDatabas3/studytrack/internal/metrics"
	"github.com/dropDatabas3/studytrack/internal/observability/logger"
	"github.com/dropDatabas3/studytrack/internal/security/password"
	tokens "github.com/dropDatabas3/studytrack/internal/security/token"
)

// ForgotPassword inicia el flujo de reset. La respuesta es idéntica exista
// o no la cuenta; solo una falla de infraestructura produce error. Un reset
// pendiente anterior queda pisado: hay a lo sumo un token de reset vivo.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	log := s.log(ctx, "ForgotPassword")

	email = normalizeEmail(email)
	if email == "" {
		return ErrMissingFields
	}

	acc, err := s.deps.Accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// anti-enum: mismo resultado que el caso feliz
			log.Debug("forgot password for unknown email (anti-enum)")
			metrics.ObserveAuthOp("forgot_password", "ok")
			return nil
		}
		metrics.ObserveAuthOp("forgot_password", "error")
		return fmt.Errorf("lookup account: %w", err)
	}

	plain, digest, err := tokens.Generate()
	if err != nil {
		log.Error("reset token generation failed", logger.Err(err))
		metrics.ObserveAuthOp("forgot_password", "error")
		return fmt.Errorf("generate reset token: %w", err)
	}

	acc.SetResetToken(digest, s.deps.Now().Add(s.deps.ResetTTL))
	if err := s.deps.Accounts.Update(ctx, acc); err != nil {
		log.Error("persist reset token failed", logger.Err(err))
		metrics.ObserveAuthOp("forgot_password", "error")
		return fmt.Errorf("persist reset token: %w", err)
	}

	log.Info("reset token issued", logger.AccountID(acc.ID))
	metrics.ObserveAuthOp("forgot_password", "ok")

	s.notifyAsync("reset", func(ctx context.Context) bool {
		return s.deps.Notifier.SendResetLink(ctx, acc.Email, acc.Name, plain)
	})
	return nil
}

// ResetPassword consume un token de reset: reemplaza el hash, limpia el par
// digest+expiry y vacía TODOS los refresh tokens, así cada sesión viva queda
// invalidada y hay que volver a loguearse en todos lados. Todo en un único
// update de la cuenta.
func (s *Service) ResetPassword(ctx context.Context, plaintext, newPassword string) error {
	log := s.log(ctx, "ResetPassword")

	if plaintext == "" || newPassword == "" {
		return ErrMissingFields
	}

	acc, err := s.deps.Accounts.FindByResetDigest(ctx, tokens.Digest(plaintext), s.deps.Now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.ObserveAuthOp("reset_password", "denied")
			return ErrInvalidOrExpiredToken
		}
		metrics.ObserveAuthOp("reset_password", "error")
		return fmt.Errorf("lookup reset token: %w", err)
	}

	phc, err := password.Hash(s.deps.Hasher, newPassword)
	if err != nil {
		log.Error("password hash failed", logger.Err(err))
		metrics.ObserveAuthOp("reset_password", "error")
		return fmt.Errorf("hash password: %w", err)
	}

	acc.PasswordHash = &phc
	acc.ClearResetToken()
	acc.RefreshTokens = []string{}

	if err := s.deps.Accounts.Update(ctx, acc); err != nil {
		log.Error("persist password reset failed", logger.Err(err))
		metrics.ObserveAuthOp("reset_password", "error")
		return fmt.Errorf("persist password reset: %w", err)
	}

	log.Info("password reset, all sessions revoked", logger.AccountID(acc.ID))
	metrics.ObserveAuthOp("reset_password", "ok")
	return nil
}
