// Package token genera tokens de un solo uso (verificación de email,
// reset de password). El plaintext viaja una única vez al usuario; en la DB
// se persiste solamente su digest SHA-256.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// PlaintextBytes es la entropía del token (256 bits).
const PlaintextBytes = 32

// Generate genera un token opaco aleatorio (base64url sin padding) y su
// digest. El plaintext se envía por email y no se guarda nunca.
func Generate() (plaintext, digest string, err error) {
	b := make([]byte, PlaintextBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	plaintext = base64.RawURLEncoding.EncodeToString(b)
	return plaintext, Digest(plaintext), nil
}

// Digest devuelve sha256(plaintext) en base64url sin padding (para guardar en DB).
func Digest(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Matches recomputa el digest del plaintext presentado y lo compara en
// tiempo constante contra el digest almacenado.
func Matches(plaintext, digest string) bool {
	if plaintext == "" || digest == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(Digest(plaintext)), []byte(digest)) == 1
}
