// Package jwt firma y verifica los tokens de acceso y refresh del servicio.
//
// Access y refresh se firman con secretos HS256 DISTINTOS: un secreto de
// refresh filtrado no puede forjar access tokens, y viceversa. El issuer es
// puramente stateless; la revocación de refresh tokens vive en el store.
package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Errores de verificación. Hacia el borde HTTP ambos colapsan en un error
// genérico de token inválido; la distinción existe para logs y tests.
var (
	ErrExpired   = errors.New("token expired")
	ErrMalformed = errors.New("token malformed or signature invalid")
)

// AccessClaims son los claims de un access token.
type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwtv5.RegisteredClaims
}

// RefreshClaims son los claims de un refresh token (solo identidad).
type RefreshClaims struct {
	jwtv5.RegisteredClaims
}

// Issuer firma tokens con secretos separados por tipo.
type Issuer struct {
	Iss           string
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration // ej: 15m
	RefreshTTL    time.Duration // ej: 168h
}

// NewIssuer crea un Issuer con TTLs por defecto (access 15m, refresh 7d).
func NewIssuer(iss string, accessSecret, refreshSecret []byte) *Issuer {
	return &Issuer{
		Iss:           iss,
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}
}

// IssueAccess emite un access token firmado con el secreto de access.
func (i *Issuer) IssueAccess(accountID, email, role string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.AccessTTL)

	claims := AccessClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    i.Iss,
			Subject:   accountID,
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(i.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueRefresh emite un refresh token firmado con el secreto de refresh.
// El JTI hace único a cada token aunque se emitan dos en el mismo segundo.
func (i *Issuer) IssueRefresh(accountID string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.RefreshTTL)

	claims := RefreshClaims{
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    i.Iss,
			Subject:   accountID,
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(i.RefreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// VerifyAccess valida firma, issuer y expiración de un access token.
func (i *Issuer) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.verify(token, claims, i.AccessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh valida firma, issuer y expiración de un refresh token.
func (i *Issuer) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := i.verify(token, claims, i.RefreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (i *Issuer) verify(token string, claims jwtv5.Claims, secret []byte) error {
	parsed, err := jwtv5.ParseWithClaims(token, claims,
		func(t *jwtv5.Token) (any, error) { return secret, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithIssuer(i.Iss),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return ErrExpired
		}
		return ErrMalformed
	}
	if !parsed.Valid {
		return ErrMalformed
	}
	return nil
}
