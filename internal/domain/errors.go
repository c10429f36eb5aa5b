package domain

import "errors"

// Errores sentinela del repositorio. Las capas superiores los traducen a la
// taxonomía de auth; acá solo describen el resultado del acceso a datos.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("store unavailable")
)
