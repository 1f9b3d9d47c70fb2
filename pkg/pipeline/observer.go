package pipeline

import (
	"time"

	"mercator-hq/underwriter/pkg/strategy"
)

// Observer receives timing and outcome of pipeline runs.
type Observer interface {
	ObserveStage(engine string, stage strategy.StageType, outcome OutcomeKind, duration time.Duration)
	ObserveDecision(engine, outcome string, duration time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, strategy.StageType, OutcomeKind, time.Duration) {}
func (nopObserver) ObserveDecision(string, string, time.Duration)                       {}
