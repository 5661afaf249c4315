package settings

import (
	"context"
	"sync"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
)

// Path is the agent's settings endpoint.
const Path = "/settings"

// Client is the subset of the agent client the store needs.
type Client interface {
	GetJSON(ctx context.Context, path string, out any) error
	PostJSON(ctx context.Context, path string, body, out any) error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// Store is the process-wide view of the agent's thresholds. The in-memory
// copy only changes when the agent confirms a load or a submit.
type Store struct {
	client Client
	log    logger.Logger

	mu      sync.RWMutex
	current Thresholds
	loaded  bool
}

// NewStore creates a store seeded with Defaults.
func NewStore(c Client, opts ...Option) *Store {
	s := &Store{
		client:  c,
		log:     logger.Noop(),
		current: Defaults(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the last confirmed thresholds, or Defaults before the first load.
func (s *Store) Current() Thresholds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Loaded reports whether the agent has confirmed the current state.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Load fetches the agent's settings and replaces the in-memory copy. On
// failure the previous state is kept and the error returned.
func (s *Store) Load(ctx context.Context) error {
	// Fields the agent omits keep their defaults.
	fetched := Defaults()
	if err := s.client.GetJSON(ctx, Path, &fetched); err != nil {
		s.log.Warn("load settings: %s", errors.ShortMessage(err))
		return err
	}

	s.mu.Lock()
	s.current = fetched
	s.loaded = true
	s.mu.Unlock()

	s.log.Debug("settings loaded: %+v", fetched)
	return nil
}

// Ensure loads once; later calls are no-ops while the state is loaded.
func (s *Store) Ensure(ctx context.Context) error {
	if s.Loaded() {
		return nil
	}
	return s.Load(ctx)
}

// Submit validates t and, only if valid, sends it to the agent. On success
// the agent's echo becomes the in-memory state.
func (s *Store) Submit(ctx context.Context, t Thresholds) error {
	if err := Validate(t); err != nil {
		return err
	}

	echo := t
	if err := s.client.PostJSON(ctx, Path, t, &echo); err != nil {
		s.log.Warn("submit settings: %s", errors.ShortMessage(err))
		return err
	}

	s.mu.Lock()
	s.current = echo
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Update applies fn to the current thresholds and submits the result.
func (s *Store) Update(ctx context.Context, fn func(*Thresholds) error) (Thresholds, error) {
	if err := s.Ensure(ctx); err != nil {
		return Thresholds{}, err
	}

	next := s.Current()
	if err := fn(&next); err != nil {
		return Thresholds{}, err
	}
	if err := s.Submit(ctx, next); err != nil {
		return Thresholds{}, err
	}
	return s.Current(), nil
}
