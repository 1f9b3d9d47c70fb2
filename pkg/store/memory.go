package store

import (
	"context"
	"sync"

	"mercator-hq/underwriter/pkg/strategy"
)

// MemoryStore is an in-memory strategy store.
type MemoryStore struct {
	mu      sync.RWMutex
	configs []*strategy.EngineConfig
}

// NewMemoryStore creates a store holding configs.
func NewMemoryStore(configs ...*strategy.EngineConfig) *MemoryStore {
	s := &MemoryStore{}
	for _, cfg := range configs {
		s.put(cfg)
	}
	return s
}

// ActiveStrategies returns the stored strategies matching q.
func (s *MemoryStore) ActiveStrategies(ctx context.Context, q Query) ([]*strategy.EngineConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return filter(s.configs, q), nil
}

// Put adds cfg, replacing a stored strategy with the same organization and
// name.
func (s *MemoryStore) Put(_ context.Context, cfg *strategy.EngineConfig) error {
	if cfg == nil || cfg.Name == "" {
		return ErrNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(cfg)
	return nil
}

func (s *MemoryStore) put(cfg *strategy.EngineConfig) {
	for i, existing := range s.configs {
		if existing.Organization == cfg.Organization && existing.Name == cfg.Name {
			s.configs[i] = cfg
			return
		}
	}
	s.configs = append(s.configs, cfg)
}

// Delete removes the named strategy. Deleting an unknown strategy is not an
// error.
func (s *MemoryStore) Delete(_ context.Context, organization, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.configs {
		if existing.Organization == organization && existing.Name == name {
			s.configs = append(s.configs[:i], s.configs[i+1:]...)
			return nil
		}
	}
	return nil
}
