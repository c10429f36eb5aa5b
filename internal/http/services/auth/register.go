package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dropDatabas3/studytrack/internal/domain"
	"github.com/dropDatabas3/studytrack/internal/metrics"
	"github.com/dropDatabas3/studytrack/internal/observability/logger"
	"github.com/dropDatabas3/studytrack/internal/security/password"
	tokens "github.com/dropDatabas3/studytrack/internal/security/token"
)

// Register da de alta una cuenta por credenciales, sin verificar, con un
// token de verificación pendiente. No emite tokens de sesión: una cuenta
// sin verificar no puede loguearse.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	log := s.log(ctx, "Register")

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}

	// Chequeo de duplicado. El UNIQUE del store cubre la carrera entre el
	// chequeo y el insert.
	if _, err := s.deps.Accounts.FindByEmail(ctx, in.Email); err == nil {
		metrics.ObserveAuthOp("register", "denied")
		return nil, ErrConflict
	} else if !errors.Is(err, domain.ErrNotFound) {
		metrics.ObserveAuthOp("register", "error")
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	phc, err := password.Hash(s.deps.Hasher, in.Password)
	if err != nil {
		log.Error("password hash failed", logger.Err(err))
		metrics.ObserveAuthOp("register", "error")
		return nil, fmt.Errorf("hash password: %w", err)
	}

	plain, digest, err := tokens.Generate()
	if err != nil {
		log.Error("verification token generation failed", logger.Err(err))
		metrics.ObserveAuthOp("register", "error")
		return nil, fmt.Errorf("generate verification token: %w", err)
	}

	now := s.deps.Now()
	acc := &domain.Account{
		ID:            uuid.NewString(),
		Name:          in.Name,
		Email:         in.Email,
		Role:          "user",
		Provider:      domain.ProviderCredentials,
		PasswordHash:  &phc,
		RefreshTokens: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	acc.SetVerificationToken(digest, now.Add(s.deps.VerifyTTL))

	if err := s.deps.Accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			metrics.ObserveAuthOp("register", "denied")
			return nil, ErrConflict
		}
		log.Error("account creation failed", logger.Err(err))
		metrics.ObserveAuthOp("register", "error")
		return nil, fmt.Errorf("create account: %w", err)
	}

	log.Info("account registered", logger.AccountID(acc.ID))
	metrics.ObserveAuthOp("register", "ok")

	// Best-effort: la falla del mail no voltea el registro.
	s.notifyAsync("verification", func(ctx context.Context) bool {
		return s.deps.Notifier.SendVerificationLink(ctx, acc.Email, acc.Name, plain)
	})

	return &RegisterResult{Account: summarize(acc)}, nil
}
