// Package catalog keeps the application catalog for the lifetime of a session
package catalog

import (
	"sync"

	"github.com/patrickmn/go-cache"

	"github.com/jgoulah/billbuddy/pkg/models"
)

// Store maps application names to catalog entries. It is loaded once per
// login and flushed on logout.
type Store struct {
	mu    sync.RWMutex
	cache *cache.Cache
	order []string
}

// New creates an empty store
func New() *Store {
	return &Store{cache: cache.New(cache.NoExpiration, 0)}
}

// Load replaces the catalog
func (s *Store) Load(apps []models.Application) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Flush()
	s.order = s.order[:0]
	for _, app := range apps {
		if _, dup := s.cache.Get(app.ApplicationName); !dup {
			s.order = append(s.order, app.ApplicationName)
		}
		s.cache.Set(app.ApplicationName, app, cache.NoExpiration)
	}
}

// Lookup returns the entry for name
func (s *Store) Lookup(name string) (models.Application, bool) {
	v, ok := s.cache.Get(name)
	if !ok {
		return models.Application{}, false
	}
	return v.(models.Application), true
}

// All returns the catalog in backend order
func (s *Store) All() []models.Application {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Application, 0, len(s.order))
	for _, name := range s.order {
		if app, ok := s.Lookup(name); ok {
			out = append(out, app)
		}
	}
	return out
}

// Len returns the number of entries
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

// Flush empties the store
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Flush()
	s.order = nil
}
