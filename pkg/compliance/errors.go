package compliance

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRuleset is returned when a ruleset definition is incomplete.
	ErrInvalidRuleset = errors.New("invalid ruleset")

	// ErrNoStages is returned when a pipeline is built without stages.
	ErrNoStages = errors.New("pipeline has no stages")
)

// RulesetError reports a ruleset field that failed to compile.
type RulesetError struct {
	// Path is the file the ruleset came from, if any.
	Path string
	// Field is the offending field, e.g. "first.patterns[2]".
	Field string
	Cause error
}

func (e *RulesetError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("ruleset %s: %s: %v", e.Path, e.Field, e.Cause)
	}
	return fmt.Sprintf("ruleset: %s: %v", e.Field, e.Cause)
}

func (e *RulesetError) Unwrap() error {
	return e.Cause
}

// Is makes every RulesetError match ErrInvalidRuleset.
func (e *RulesetError) Is(target error) bool {
	return target == ErrInvalidRuleset
}

// StageError wraps an internal failure of a stage evaluator. It is never
// returned past the pipeline; the pipeline converts it to SafeDefault.
type StageError struct {
	Law   Law
	Phase Phase
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage (%s) failed: %v", e.Law, e.Phase, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// PanicError carries a value recovered from a panicking stage.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
