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

// Logout revoca el refresh token presentado. Idempotente por contrato:
// un token ya ausente, vencido o malformado no es un error, el estado
// final deseado ("ese token no sirve") ya se cumple.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	log := s.log(ctx, "Logout")

	if refreshToken == "" {
		return nil
	}

	claims, err := s.deps.Issuer.VerifyRefresh(refreshToken)
	if err != nil {
		log.Debug("logout with unusable token", logger.Err(err))
		return nil
	}

	err = s.deps.Accounts.RemoveRefreshToken(ctx, claims.Subject, tokens.Digest(refreshToken))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// cuenta inexistente: nada que revocar
			return nil
		}
		metrics.ObserveAuthOp("logout", "error")
		return fmt.Errorf("remove refresh token: %w", err)
	}

	metrics.ObserveAuthOp("logout", "ok")
	return nil
}

// LogoutAll vacía el array completo de refresh tokens de la cuenta
// (cerrar sesión en todos los dispositivos).
func (s *Service) LogoutAll(ctx context.Context, accountID string) error {
	log := s.log(ctx, "LogoutAll")

	if accountID == "" {
		return ErrMissingFields
	}

	if err := s.deps.Accounts.ClearRefreshTokens(ctx, accountID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		metrics.ObserveAuthOp("logout_all", "error")
		return fmt.Errorf("clear refresh tokens: %w", err)
	}

	log.Info("logged out everywhere", logger.AccountID(accountID))
	metrics.ObserveAuthOp("logout_all", "ok")
	return nil
}
