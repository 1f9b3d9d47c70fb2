package store

import (
	"context"
	"errors"
	"slices"

	"mercator-hq/underwriter/pkg/strategy"
)

// ErrNameRequired indicates a strategy document without a name.
var ErrNameRequired = errors.New("strategy name is required")

// Query selects strategies from a store.
type Query struct {
	// Organization restricts results to one organization. Empty matches all.
	Organization string

	// Names restricts results to the given strategy names. Names are
	// compared after version suffixes are stripped.
	Names []string

	// IncludeInactive also returns strategies whose status is not active.
	IncludeInactive bool
}

// Store loads strategy documents.
type Store interface {
	ActiveStrategies(ctx context.Context, q Query) ([]*strategy.EngineConfig, error)
}

// Matches reports whether cfg satisfies q.
func (q Query) Matches(cfg *strategy.EngineConfig) bool {
	if !q.IncludeInactive && !cfg.Active() {
		return false
	}
	if q.Organization != "" && cfg.Organization != q.Organization {
		return false
	}
	if len(q.Names) > 0 && !slices.Contains(q.Names, cfg.ShortName()) && !slices.Contains(q.Names, cfg.Name) {
		return false
	}
	return true
}

// filter returns the configs matching q, preserving order.
func filter(configs []*strategy.EngineConfig, q Query) []*strategy.EngineConfig {
	out := make([]*strategy.EngineConfig, 0, len(configs))
	for _, cfg := range configs {
		if q.Matches(cfg) {
			out = append(out, cfg)
		}
	}
	return out
}
