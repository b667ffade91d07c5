package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/eugenenazirov/envyaml"
)

var (
	// ErrNoLoader indicates the storage was created without a way to load configuration.
	ErrNoLoader = errors.New("configuration loader is required")
)

// Loader builds a fresh configuration.
type Loader func() (*envyaml.Config, error)

// Storage provides access to the configuration served by the API.
type Storage interface {
	Config() *envyaml.Config
	LoadedAt() time.Time
	Reload() (*envyaml.Config, error)
}

// MemoryStorage keeps the current configuration in memory and guards access with a RWMutex.
// Reloads run one at a time, so the configuration served is always the one
// loaded last. A failed reload leaves the previous configuration in place.
type MemoryStorage struct {
	mu       sync.RWMutex
	reloadMu sync.Mutex
	loader   Loader
	clock    func() time.Time
	cfg      *envyaml.Config
	loadedAt time.Time
}

// Option configures MemoryStorage.
type Option func(*MemoryStorage)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *MemoryStorage) {
		s.clock = clock
	}
}

// NewMemoryStorage performs the initial load.
func NewMemoryStorage(loader Loader, opts ...Option) (*MemoryStorage, error) {
	if loader == nil {
		return nil, ErrNoLoader
	}

	s := &MemoryStorage{
		loader: loader,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Config returns the current configuration.
func (s *MemoryStorage) Config() *envyaml.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cfg
}

// LoadedAt returns the time of the last successful load.
func (s *MemoryStorage) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadedAt
}

// Reload builds a new configuration and swaps it in. Readers are not blocked
// while the loader runs; concurrent reloads wait for each other.
func (s *MemoryStorage) Reload() (*envyaml.Config, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	cfg, err := s.loader()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	s.mu.Lock()
	s.cfg = cfg
	s.loadedAt = s.clock()
	s.mu.Unlock()

	return cfg, nil
}
