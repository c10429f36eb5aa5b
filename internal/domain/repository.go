package domain

import (
	"context"
	"time"
)

// AccountRepository es el contrato del store de cuentas.
//
// Update persiste la fila completa en una sola sentencia (atómico a nivel
// documento). Las mutaciones del array de refresh tokens tienen métodos
// dedicados porque son el único punto con riesgo de lost-update bajo
// requests concurrentes: cada implementación debe ejecutarlas como una
// única operación atómica sobre el store.
type AccountRepository interface {
	Ping(ctx context.Context) error

	// Create persiste una cuenta nueva. Email duplicado ⇒ ErrConflict.
	Create(ctx context.Context, a *Account) error

	// FindByEmail busca por email normalizado. Sin match ⇒ ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// FindByID busca por ID opaco. Sin match ⇒ ErrNotFound.
	FindByID(ctx context.Context, id string) (*Account, error)

	// FindByVerificationDigest busca la cuenta cuyo digest de verificación
	// matchea y cuya expiry es posterior a now. Sin match ⇒ ErrNotFound.
	FindByVerificationDigest(ctx context.Context, digest string, now time.Time) (*Account, error)

	// FindByResetDigest: ídem para el token de reset.
	FindByResetDigest(ctx context.Context, digest string, now time.Time) (*Account, error)

	// Update persiste todos los campos de la cuenta atómicamente.
	Update(ctx context.Context, a *Account) error

	// TouchLastLogin actualiza solo lastLoginAt, sin tocar el resto de la
	// fila (evita pisar el array de refresh tokens con una copia stale).
	TouchLastLogin(ctx context.Context, id string, at time.Time) error

	// AppendRefreshToken agrega un digest al final del array y recorta a
	// los `limit` más recientes (los más viejos se desalojan primero).
	AppendRefreshToken(ctx context.Context, id, tokenDigest string, limit int) error

	// ReplaceRefreshToken reemplaza in-place oldDigest por newDigest,
	// preservando la posición. Si oldDigest no está ⇒ ErrNotFound
	// (cubre revocación y carreras de rotación).
	ReplaceRefreshToken(ctx context.Context, id, oldDigest, newDigest string) error

	// RemoveRefreshToken elimina un digest del array. Idempotente:
	// remover un digest ausente no es error.
	RemoveRefreshToken(ctx context.Context, id, tokenDigest string) error

	// ClearRefreshTokens vacía el array (logout everywhere).
	ClearRefreshTokens(ctx context.Context, id string) error
}
