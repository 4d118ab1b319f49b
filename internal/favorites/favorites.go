// Package favorites keeps the set of favorite country names for the
// authenticated session.
//
// The set is empty and read-only while logged out. Logging out clears it in
// memory only; the persisted copy stays so the next login in the same profile
// restores it.
package favorites

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/AbdulWasayUl/country-explorer/internal/apperror"
	"github.com/AbdulWasayUl/country-explorer/internal/logger"
	"github.com/AbdulWasayUl/country-explorer/internal/store"
)

type Store struct {
	state store.Store

	mu            sync.RWMutex
	names         map[string]struct{}
	authenticated bool
}

func New(state store.Store) *Store {
	return &Store{state: state, names: make(map[string]struct{})}
}

// HandleAuthChange is registered as a session listener.
func (s *Store) HandleAuthChange(ctx context.Context, authenticated bool) {
	if !authenticated {
		s.mu.Lock()
		s.authenticated = false
		s.names = make(map[string]struct{})
		s.mu.Unlock()
		return
	}
	if err := s.hydrate(ctx); err != nil {
		logger.Error("[favorites] failed to load favorites: %v", err)
	}
}

func (s *Store) hydrate(ctx context.Context) error {
	var list []string
	_, err := store.GetJSON(ctx, s.state, store.KeyFavorites, &list)
	if store.IsCorrupt(err) {
		logger.Error("[favorites] persisted favorites are corrupt, starting empty: %v", err)
		list, err = nil, nil
	}

	names := make(map[string]struct{}, len(list))
	for _, n := range list {
		if n = strings.TrimSpace(n); n != "" {
			names[n] = struct{}{}
		}
	}

	s.mu.Lock()
	s.authenticated = true
	s.names = names
	s.mu.Unlock()
	return err
}

// Toggle adds name if absent and removes it if present, then persists the
// whole set. It reports whether name is a favorite afterwards.
func (s *Store) Toggle(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, apperror.Validation("favorites.toggle", "country name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authenticated {
		return false, apperror.Auth("favorites.toggle", "login required to keep favorites")
	}

	_, had := s.names[name]
	if had {
		delete(s.names, name)
	} else {
		s.names[name] = struct{}{}
	}

	if err := store.SetJSON(ctx, s.state, store.KeyFavorites, sortedNames(s.names)); err != nil {
		// keep memory and storage in agreement
		if had {
			s.names[name] = struct{}{}
		} else {
			delete(s.names, name)
		}
		return had, err
	}
	return !had, nil
}

func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.names[name]
	return ok
}

// List returns the favorites sorted by name.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedNames(s.names)
}

// Contains returns a point-in-time membership test.
func (s *Store) Contains() func(string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make(map[string]struct{}, len(s.names))
	for n := range s.names {
		snapshot[n] = struct{}{}
	}
	return func(name string) bool {
		_, ok := snapshot[name]
		return ok
	}
}

func sortedNames(names map[string]struct{}) []string {
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
