package password

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Cost bounds. bcrypt admite 4..31 pero debajo de 8 es inseguro y arriba de 15
// el login se vuelve impracticable (>1s por verify en hardware típico).
const (
	MinCost     = 8
	MaxCost     = 15
	DefaultCost = 12
)

type Params struct {
	Cost int
}

var Default = Params{Cost: DefaultCost}

// clampCost acota el cost al rango [MinCost, MaxCost].
func clampCost(c int) int {
	if c < MinCost {
		return MinCost
	}
	if c > MaxCost {
		return MaxCost
	}
	return c
}

// Hash devuelve un hash bcrypt (salted) del password en texto plano.
// El salt lo genera bcrypt internamente; el cost queda embebido en el hash.
func Hash(p Params, plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("empty password")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), clampCost(p.Cost))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compara un password en texto plano contra un hash almacenado.
// Un hash malformado devuelve false, nunca panic ni error hacia arriba.
func Verify(plain, hash string) bool {
	if plain == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// IsHash detecta si un string ya es un hash bcrypt.
// Guard contra re-hashear un valor ya hasheado (el hash de un password debe
// calcularse exactamente una vez por mutación).
func IsHash(s string) bool {
	if !strings.HasPrefix(s, "$2") {
		return false
	}
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}
