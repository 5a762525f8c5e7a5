package config

import (
	"sync"
)

// Change describes a settings update delivered to observers.
type Change struct {
	// Old is the settings before the update.
	Old Config

	// New is the settings after the update.
	New Config

	// Source identifies where the update came from ("file", "blob",
	// "api").
	Source string
}

// Observer is called when settings change.
type Observer func(change Change)

// Subscription is an active observer registration.
type Subscription struct {
	id    uint64
	store *Store
}

// Unsubscribe removes the observer. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s.store != nil {
		s.store.unsubscribe(s.id)
		s.store = nil
	}
}

// Store holds the current settings and fans out changes to observers.
// Observers run synchronously on the updating goroutine.
type Store struct {
	mu        sync.RWMutex
	current   Config
	observers map[uint64]Observer
	nextID    uint64
}

// NewStore creates a store seeded with the given settings.
func NewStore(initial Config) *Store {
	return &Store{
		current:   initial,
		observers: make(map[uint64]Observer),
	}
}

// Current returns the active settings.
func (s *Store) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates and installs new settings, notifying observers.
// Invalid settings are rejected and the current settings stand.
func (s *Store) Update(cfg Config, source string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	old := s.current
	s.current = cfg
	obs := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		obs = append(obs, o)
	}
	s.mu.Unlock()

	change := Change{Old: old, New: cfg, Source: source}
	for _, o := range obs {
		o(change)
	}
	return nil
}

// Subscribe registers an observer for settings changes.
func (s *Store) Subscribe(o Observer) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.observers[id] = o
	return &Subscription{id: id, store: s}
}

func (s *Store) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.observers, id)
}

// ObserverCount returns the number of registered observers.
func (s *Store) ObserverCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}
