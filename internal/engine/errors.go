package engine

import (
	"context"
	"errors"
	"fmt"
)

// Error tags give each error kind a stable machine label alongside its
// human-readable message.
const (
	TagParse      = "parse_error"
	TagSchema     = "schema_error"
	TagInfeasible = "infeasible"
	TagConfig     = "config_error"
	TagCancelled  = "cancelled"
	TagTimeout    = "timeout"
)

// ParseError reports a malformed time, window, frequency, or constraint
// string, naming the event it belongs to.
type ParseError struct {
	Event string
	Input string
	Err   error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Event == "" {
		return fmt.Sprintf("engine: cannot parse %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("engine: event %q: cannot parse %q: %v", e.Event, e.Input, e.Err)
}

// Unwrap exposes the underlying parse failure.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchemaError reports an event table violating the required shape.
type SchemaError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("engine: invalid event table: %s", e.Reason)
	}
	return fmt.Sprintf("engine: invalid event table: field %s: %s", e.Field, e.Reason)
}

// InfeasibleError reports that no assignment satisfies the hard constraints.
// Static is true when the infeasibility was proven before search (an ordering
// cycle at graph build, or a clock bound outside the day interval), false when
// the search exhausted its root.
type InfeasibleError struct {
	Static bool
	Reason string
}

// Error implements the error interface.
func (e *InfeasibleError) Error() string {
	stage := "search exhaustion"
	if e.Static {
		stage = "static analysis"
	}
	return fmt.Sprintf("engine: no feasible schedule (detected at %s): %s", stage, e.Reason)
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("engine: invalid config: %s: %s", e.Field, e.Reason)
}

var (
	// ErrCancelled is returned when cooperative cancellation is observed.
	ErrCancelled = errors.New("engine: cancelled")
	// ErrTimeout is returned when the deadline passes during search.
	ErrTimeout = errors.New("engine: timed out")
)

// Tag maps an engine error to its stable machine label, or "" for nil and
// "unexpected" for errors outside the engine's kinds.
func Tag(err error) string {
	if err == nil {
		return ""
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return TagParse
	}
	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		return TagSchema
	}
	var infeasibleErr *InfeasibleError
	if errors.As(err, &infeasibleErr) {
		return TagInfeasible
	}
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return TagConfig
	}
	switch {
	case errors.Is(err, ErrCancelled):
		return TagCancelled
	case errors.Is(err, ErrTimeout):
		return TagTimeout
	}
	return "unexpected"
}

// mapContextErr converts a context error observed by the solver into the
// engine's cancellation kinds.
func mapContextErr(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	default:
		return err
	}
}
