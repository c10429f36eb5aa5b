package auth

import (
	"time"

	"github.com/dropDatabas3/studytrack/internal/domain"
)

// AccountSummary es la vista pública de una cuenta. Nunca incluye el hash
// del password ni los digests de tokens.
type AccountSummary struct {
	ID            string
	Name          string
	Email         string
	Role          string
	Provider      domain.Provider
	EmailVerified bool
	LastLoginAt   *time.Time
	CreatedAt     time.Time
}

func summarize(a *domain.Account) AccountSummary {
	return AccountSummary{
		ID:            a.ID,
		Name:          a.Name,
		Email:         a.Email,
		Role:          a.Role,
		Provider:      a.Provider,
		EmailVerified: a.EmailVerified,
		LastLoginAt:   a.LastLoginAt,
		CreatedAt:     a.CreatedAt,
	}
}

// RegisterInput son los datos de alta de cuenta.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// RegisterResult: solo el resumen. Una cuenta sin verificar no recibe
// tokens en el registro.
type RegisterResult struct {
	Account AccountSummary
}

// LoginInput son las credenciales de login.
type LoginInput struct {
	Email    string
	Password string
}

// TokenPair es el par access+refresh emitido por Login y Refresh.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// LoginResult: resumen + par de tokens.
type LoginResult struct {
	Account AccountSummary
	Tokens  TokenPair
}

// RefreshResult: el par nuevo tras la rotación.
type RefreshResult struct {
	Account AccountSummary
	Tokens  TokenPair
}
