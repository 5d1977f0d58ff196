package config

import (
	"sync"
	"sync/atomic"
)

// Store holds the active configuration snapshot.
// Snapshots are never mutated after being stored; Reload swaps in a new one.
type Store struct {
	path    string
	current atomic.Pointer[Config]

	mu        sync.Mutex
	listeners []func(*Config)
}

// NewStore creates a store seeded with cfg loaded from path ("" when defaults are in use)
func NewStore(cfg *Config, path string) *Store {
	s := &Store{path: path}
	s.current.Store(cfg)
	return s
}

// Get returns the active snapshot
func (s *Store) Get() *Config {
	return s.current.Load()
}

// Path returns the file the configuration came from
func (s *Store) Path() string {
	return s.path
}

// OnChange registers fn to run after every successful reload
func (s *Store) OnChange(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Reload re-reads the config file. On error the previous snapshot stays active.
func (s *Store) Reload() (*Config, error) {
	if s.path == "" {
		return s.Get(), nil
	}

	cfg, _, err := LoadFromPath(s.path)
	if err != nil {
		return nil, err
	}
	s.current.Store(cfg)

	s.mu.Lock()
	listeners := make([]func(*Config), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(cfg)
	}
	return cfg, nil
}
