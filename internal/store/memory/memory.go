// Package memory implementa AccountRepository en memoria.
// Pensado para desarrollo local y tests; mismas semánticas que store/pg,
// con el mutex garantizando la atomicidad de las mutaciones de array.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/studytrack/internal/domain"
)

type Store struct {
	mu      sync.RWMutex
	byID    map[string]*domain.Account
	byEmail map[string]string // email normalizado → id
}

func New() *Store {
	return &Store{
		byID:    make(map[string]*domain.Account),
		byEmail: make(map[string]string),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

// clone copia el registro para que el caller no aliasee estado interno.
func clone(a *domain.Account) *domain.Account {
	c := *a
	c.RefreshTokens = append([]string(nil), a.RefreshTokens...)
	return &c
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) Create(_ context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalize(a.Email)
	if _, exists := s.byEmail[email]; exists {
		return domain.ErrConflict
	}
	rec := clone(a)
	rec.Email = email
	if rec.RefreshTokens == nil {
		rec.RefreshTokens = []string{}
	}
	s.byID[rec.ID] = rec
	s.byEmail[email] = rec.ID
	return nil
}

func (s *Store) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalize(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(s.byID[id]), nil
}

func (s *Store) FindByID(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(a), nil
}

func (s *Store) FindByVerificationDigest(_ context.Context, digest string, now time.Time) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.byID {
		if a.VerificationDigest != nil && *a.VerificationDigest == digest &&
			a.VerificationExpiry != nil && a.VerificationExpiry.After(now) {
			return clone(a), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) FindByResetDigest(_ context.Context, digest string, now time.Time) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.byID {
		if a.ResetDigest != nil && *a.ResetDigest == digest &&
			a.ResetExpiry != nil && a.ResetExpiry.After(now) {
			return clone(a), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) Update(_ context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byID[a.ID]
	if !ok {
		return domain.ErrNotFound
	}
	rec := clone(a)
	rec.Email = normalize(a.Email)
	rec.UpdatedAt = time.Now().UTC()
	if rec.RefreshTokens == nil {
		rec.RefreshTokens = []string{}
	}
	if old.Email != rec.Email {
		delete(s.byEmail, old.Email)
		s.byEmail[rec.Email] = rec.ID
	}
	s.byID[a.ID] = rec
	return nil
}

func (s *Store) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	t := at
	a.LastLoginAt = &t
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) AppendRefreshToken(_ context.Context, id, tokenDigest string, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.RefreshTokens = append(a.RefreshTokens, tokenDigest)
	if limit > 0 && len(a.RefreshTokens) > limit {
		// desalojo oldest-first
		a.RefreshTokens = append([]string(nil), a.RefreshTokens[len(a.RefreshTokens)-limit:]...)
	}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) ReplaceRefreshToken(_ context.Context, id, oldDigest, newDigest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	for i, d := range a.RefreshTokens {
		if d == oldDigest {
			a.RefreshTokens[i] = newDigest
			a.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *Store) RemoveRefreshToken(_ context.Context, id, tokenDigest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	out := a.RefreshTokens[:0]
	for _, d := range a.RefreshTokens {
		if d != tokenDigest {
			out = append(out, d)
		}
	}
	a.RefreshTokens = out
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) ClearRefreshTokens(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.RefreshTokens = []string{}
	a.UpdatedAt = time.Now().UTC()
	return nil
}
