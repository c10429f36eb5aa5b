package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/studytrack/internal/domain"
	"github.com/dropDatabas3/studytrack/internal/metrics"
	"github.com/dropDatabas3/studytrack/internal/observability/logger"
	"github.com/dropDatabas3/studytrack/internal/security/password"
	tokens "github.com/dropDatabas3/studytrack/internal/security/token"
)

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// Login autentica por credenciales y emite un par access+refresh. El digest
// del refresh se agrega al array de la cuenta, acotado a los 5 más
// recientes (el más viejo se desaloja).
//
// "Cuenta inexistente" y "password incorrecto" devuelven el mismo error:
// la respuesta no revela si el email está registrado.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	log := s.log(ctx, "Login")

	in.Email = normalizeEmail(in.Email)
	if in.Email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}

	acc, err := s.deps.Accounts.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Debug("account not found")
			metrics.ObserveAuthOp("login", "denied")
			return nil, ErrInvalidCredentials
		}
		metrics.ObserveAuthOp("login", "error")
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	// Cuentas federadas no tienen password local.
	if !acc.HasPassword() || !password.Verify(in.Password, *acc.PasswordHash) {
		log.Debug("password check failed")
		metrics.ObserveAuthOp("login", "denied")
		return nil, ErrInvalidCredentials
	}

	if !acc.EmailVerified && !s.deps.AllowUnverifiedLogin {
		log.Info("login denied: email not verified", logger.AccountID(acc.ID))
		metrics.ObserveAuthOp("login", "denied")
		return nil, ErrVerificationRequired
	}

	pair, refreshDigest, err := s.issuePair(acc)
	if err != nil {
		log.Error("token issue failed", logger.Err(err))
		metrics.ObserveAuthOp("login", "error")
		return nil, err
	}

	// Append + recorte a la cota en una sola operación atómica del store.
	if err := s.deps.Accounts.AppendRefreshToken(ctx, acc.ID, refreshDigest, domain.MaxRefreshTokens); err != nil {
		log.Error("persist refresh token failed", logger.Err(err))
		metrics.ObserveAuthOp("login", "error")
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}

	now := s.deps.Now()
	if err := s.deps.Accounts.TouchLastLogin(ctx, acc.ID, now); err != nil {
		// lastLoginAt es informativo; la sesión ya quedó establecida.
		log.Warn("touch last login failed", logger.Err(err))
	}
	acc.LastLoginAt = &now

	log.Info("login successful", logger.AccountID(acc.ID))
	metrics.ObserveAuthOp("login", "ok")

	return &LoginResult{Account: summarize(acc), Tokens: pair}, nil
}

// issuePair emite access+refresh y devuelve además el digest del refresh
// (lo único que se persiste).
func (s *Service) issuePair(acc *domain.Account) (TokenPair, string, error) {
	access, exp, err := s.deps.Issuer.IssueAccess(acc.ID, acc.Email, acc.Role)
	if err != nil {
		return TokenPair{}, "", fmt.Errorf("issue access token: %w", err)
	}
	refresh, _, err := s.deps.Issuer.IssueRefresh(acc.ID)
	if err != nil {
		return TokenPair{}, "", fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: exp,
	}, tokens.Digest(refresh), nil
}
