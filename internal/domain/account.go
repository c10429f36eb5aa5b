// Package domain define el registro de cuenta y el contrato del repositorio.
package domain

import "time"

// MaxRefreshTokens es la cota de refresh tokens vivos por cuenta.
// Al superarla se desalojan los más viejos.
const MaxRefreshTokens = 5

// Provider indica cómo se autentica la cuenta.
type Provider string

const (
	// ProviderCredentials: email + password (hash presente).
	ProviderCredentials Provider = "credentials"
	// ProviderFederated: identidad externa (sin password local).
	ProviderFederated Provider = "federated"
)

// Account es el registro de identidad persistido.
//
// Los pares digest+expiry de verificación y reset viven y mueren juntos:
// se setean juntos y se limpian juntos. RefreshTokens guarda digests SHA-256
// de los tokens firmados, nunca el token en claro, y siempre es un slice
// no-nil (posiblemente vacío).
type Account struct {
	ID       string
	Name     string
	Email    string // normalizado a lowercase al escribir
	Role     string
	Provider Provider

	// PasswordHash es nil para cuentas federadas.
	PasswordHash *string

	EmailVerified      bool
	VerificationDigest *string
	VerificationExpiry *time.Time

	ResetDigest *string
	ResetExpiry *time.Time

	// RefreshTokens: digests ordenados por antigüedad (el [0] es el más viejo).
	RefreshTokens []string

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasPassword indica si la cuenta puede autenticarse por credenciales.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// SetVerificationToken setea el par digest+expiry de verificación,
// pisando cualquier token pendiente.
func (a *Account) SetVerificationToken(digest string, expiry time.Time) {
	a.VerificationDigest = &digest
	a.VerificationExpiry = &expiry
}

// ClearVerificationToken limpia el par digest+expiry de verificación.
func (a *Account) ClearVerificationToken() {
	a.VerificationDigest = nil
	a.VerificationExpiry = nil
}

// SetResetToken setea el par digest+expiry de reset, pisando cualquier
// token pendiente (solo un reset vivo por cuenta).
func (a *Account) SetResetToken(digest string, expiry time.Time) {
	a.ResetDigest = &digest
	a.ResetExpiry = &expiry
}

// ClearResetToken limpia el par digest+expiry de reset.
func (a *Account) ClearResetToken() {
	a.ResetDigest = nil
	a.ResetExpiry = nil
}
