package health

import (
	"context"
	"errors"

	"mercator-hq/underwriter/pkg/orchestrator"
)

// ErrNoEngines is reported until a non-empty engine set has been built.
var ErrNoEngines = errors.New("no strategies compiled")

// EngineSource exposes the active engine set.
type EngineSource interface {
	Get() *orchestrator.EngineSet
}

// EnginesLoaded fails while no engine set is active or the active set is
// empty.
func EnginesLoaded(src EngineSource) CheckFunc {
	return func(context.Context) error {
		set := src.Get()
		if set == nil || set.Len() == 0 {
			return ErrNoEngines
		}
		return nil
	}
}

// Pinger is implemented by storage backends.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping fails when p cannot be reached.
func Ping(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}
