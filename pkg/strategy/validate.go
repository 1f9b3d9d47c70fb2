package strategy

import (
	"errors"
	"fmt"
)

// Validate checks the structural rules every strategy must satisfy before
// compilation: a name, known stage types, and a name on every segment.
func (e *EngineConfig) Validate() error {
	var errs ValidationErrors

	add := func(field string, err error) {
		errs = append(errs, &ValidationError{Engine: e.Name, Field: field, Err: err})
	}

	if e.Name == "" {
		add("name", errors.New("engine name is required"))
	}

	seen := make(map[string]int)
	for i := range e.Stages {
		stage := &e.Stages[i]
		field := fmt.Sprintf("module_run_order[%d]", i)

		if !stage.Type.Valid() {
			add(field+".type", fmt.Errorf("%w: %q", ErrUnknownStageType, stage.Type))
		}
		if stage.StageName() == "" {
			add(field+".name", errors.New("stage name is required"))
		}
		if prev, ok := seen[stage.Key(i)]; ok {
			add(field+".lookup_name", fmt.Errorf("duplicates module_run_order[%d]", prev))
		}
		seen[stage.Key(i)] = i

		for j := range stage.Segments {
			if stage.Segments[j].Name == "" {
				add(fmt.Sprintf("%s.segments[%d].name", field, j), ErrSegmentNameRequired)
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
