// Package selection holds the model id used for the next question. A
// single Store instance is injected into every surface that reads or
// changes the selection; nothing else may mutate it.
package selection

import (
	"sync"

	"github.com/lumin-ai/lens/internal/catalog"
)

// Store is the session-lifetime selected-model state. Unset until the
// one-shot default assignment or an explicit Select.
type Store struct {
	mu   sync.Mutex
	id   string
	set  bool
	subs []func(id string)
}

func NewStore() *Store {
	return &Store{}
}

// Current returns the selected model id, and whether one is selected.
func (s *Store) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, s.set
}

// Select records an explicit user selection. It always wins over the
// default and is never overwritten automatically afterward.
func (s *Store) Select(id string) {
	s.mu.Lock()
	s.id = id
	s.set = true
	subs := s.subs
	s.mu.Unlock()

	for _, fn := range subs {
		fn(id)
	}
}

// EnsureDefault assigns def when no model is selected yet and def is in
// the catalog. It only ever transitions unset to set: a later catalog
// reload with the same default must not touch an existing selection.
func (s *Store) EnsureDefault(cat *catalog.Catalog, def string) bool {
	s.mu.Lock()
	if s.set || !cat.Has(def) {
		s.mu.Unlock()
		return false
	}
	s.id = def
	s.set = true
	subs := s.subs
	s.mu.Unlock()

	for _, fn := range subs {
		fn(def)
	}
	return true
}

// Subscribe registers a callback invoked on every selection change.
// Rendering surfaces subscribe instead of polling; callbacks run on the
// mutating goroutine and must not call back into the store.
func (s *Store) Subscribe(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}
