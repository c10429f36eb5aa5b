package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dropDatabas3/studytrack/internal/domain"
)

const accountColumns = `id, name, email, role, provider, password_hash,
	email_verified, verification_digest, verification_expiry,
	reset_digest, reset_expiry, refresh_tokens, last_login_at,
	created_at, updated_at`

// uniqueViolation es el SQLSTATE de postgres para violación de UNIQUE.
const uniqueViolation = "23505"

// mapErr traduce errores de pgx a los sentinelas de domain.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrConflict
	}
	return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.Role, &a.Provider, &a.PasswordHash,
		&a.EmailVerified, &a.VerificationDigest, &a.VerificationExpiry,
		&a.ResetDigest, &a.ResetExpiry, &a.RefreshTokens, &a.LastLoginAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	if a.RefreshTokens == nil {
		a.RefreshTokens = []string{}
	}
	return &a, nil
}

func (s *Store) Create(ctx context.Context, a *domain.Account) error {
	refresh := a.RefreshTokens
	if refresh == nil {
		refresh = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, name, email, role, provider, password_hash,
			email_verified, verification_digest, verification_expiry,
			reset_digest, reset_expiry, refresh_tokens, last_login_at)
		VALUES ($1, $2, lower($3), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.Name, a.Email, a.Role, a.Provider, a.PasswordHash,
		a.EmailVerified, a.VerificationDigest, a.VerificationExpiry,
		a.ResetDigest, a.ResetExpiry, refresh, a.LastLoginAt,
	)
	return mapErr(err)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = lower($1)`, email)
	return scanAccount(row)
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (s *Store) FindByVerificationDigest(ctx context.Context, digest string, now time.Time) (*domain.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE verification_digest = $1 AND verification_expiry > $2`, digest, now)
	return scanAccount(row)
}

func (s *Store) FindByResetDigest(ctx context.Context, digest string, now time.Time) (*domain.Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE reset_digest = $1 AND reset_expiry > $2`, digest, now)
	return scanAccount(row)
}

func (s *Store) Update(ctx context.Context, a *domain.Account) error {
	refresh := a.RefreshTokens
	if refresh == nil {
		refresh = []string{}
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts SET
			name = $2, email = lower($3), role = $4, provider = $5,
			password_hash = $6, email_verified = $7,
			verification_digest = $8, verification_expiry = $9,
			reset_digest = $10, reset_expiry = $11,
			refresh_tokens = $12, last_login_at = $13, updated_at = now()
		WHERE id = $1`,
		a.ID, a.Name, a.Email, a.Role, a.Provider, a.PasswordHash,
		a.EmailVerified, a.VerificationDigest, a.VerificationExpiry,
		a.ResetDigest, a.ResetExpiry, refresh, a.LastLoginAt,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET last_login_at = $2, updated_at = now() WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AppendRefreshToken agrega el digest y recorta a los `limit` más recientes
// en una sola sentencia (atómico a nivel fila).
func (s *Store) AppendRefreshToken(ctx context.Context, id, tokenDigest string, limit int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts SET
			refresh_tokens = (refresh_tokens || $2::text)
				[GREATEST(1, cardinality(refresh_tokens) + 2 - $3) : cardinality(refresh_tokens) + 1],
			updated_at = now()
		WHERE id = $1`,
		id, tokenDigest, limit,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReplaceRefreshToken rota in-place: el check de presencia y el reemplazo son
// la misma sentencia, así dos refresh concurrentes con el mismo token no
// pueden ganar los dos.
func (s *Store) ReplaceRefreshToken(ctx context.Context, id, oldDigest, newDigest string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts SET
			refresh_tokens = array_replace(refresh_tokens, $2, $3),
			updated_at = now()
		WHERE id = $1 AND $2 = ANY(refresh_tokens)`,
		id, oldDigest, newDigest,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) RemoveRefreshToken(ctx context.Context, id, tokenDigest string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts SET
			refresh_tokens = array_remove(refresh_tokens, $2),
			updated_at = now()
		WHERE id = $1`,
		id, tokenDigest,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) ClearRefreshTokens(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts SET refresh_tokens = '{}', updated_at = now()
		WHERE id = $1`,
		id,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
