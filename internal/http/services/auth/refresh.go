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

// Refresh rota un refresh token: valida firma y expiry, chequea que el
// digest presentado siga vivo en la cuenta y lo reemplaza in-place por el
// nuevo, en una sola operación atómica del store. Rotación uno-por-uno:
// el largo del array no cambia.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	log := s.log(ctx, "Refresh")

	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	claims, err := s.deps.Issuer.VerifyRefresh(refreshToken)
	if err != nil {
		// Expirado y malformado colapsan en el mismo error hacia afuera.
		log.Debug("refresh token verification failed", logger.Err(err))
		metrics.ObserveAuthOp("refresh", "denied")
		return nil, ErrInvalidRefreshToken
	}

	acc, err := s.deps.Accounts.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.ObserveAuthOp("refresh", "denied")
			return nil, ErrInvalidRefreshToken
		}
		metrics.ObserveAuthOp("refresh", "error")
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	pair, newDigest, err := s.issuePair(acc)
	if err != nil {
		log.Error("token issue failed", logger.Err(err))
		metrics.ObserveAuthOp("refresh", "error")
		return nil, err
	}

	// Presencia + reemplazo en la misma sentencia: si el token ya fue
	// rotado, revocado o desalojado, acá aparece como ausente y el
	// request pierde (cubre dos refresh concurrentes con el mismo token).
	err = s.deps.Accounts.ReplaceRefreshToken(ctx, acc.ID, tokens.Digest(refreshToken), newDigest)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Info("refresh token not in account (revoked or rotated)", logger.AccountID(acc.ID))
			metrics.ObserveAuthOp("refresh", "denied")
			return nil, ErrInvalidRefreshToken
		}
		metrics.ObserveAuthOp("refresh", "error")
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	metrics.ObserveAuthOp("refresh", "ok")
	return &RefreshResult{Account: summarize(acc), Tokens: pair}, nil
}
