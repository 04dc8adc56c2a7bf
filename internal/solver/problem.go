// Package solver assigns integer minute-of-day times to event instances by
// backtracking search with interval propagation, selecting the
// minimum-penalty feasible assignment under the configured strategy.
package solver

import (
	"errors"

	"github.com/example/daily-scheduler/internal/timeutil"
)

// Granularity is the minute step the search commits to. Times are only ever
// assigned on the grid day_start + i*Granularity, which bounds the search
// space for a full day to a few hundred values per variable.
const Granularity = 5

// Strategy biases the objective toward one end of the day.
type Strategy int

const (
	// Earliest minimizes t - day_start per instance.
	Earliest Strategy = iota
	// Latest minimizes day_end - t per instance.
	Latest
)

// Variable is one decision variable: the time of instance Index of Event.
type Variable struct {
	Event string
	Index int
	Count int
	// Seed is the uniform target hint for the instance. It participates in
	// the objective only as a final tie-break.
	Seed int
	// Gap is the minimum spacing to the previous instance of the same
	// event, in minutes. Always at least Granularity so instances stay
	// strictly ordered.
	Gap int
	// MinClock and MaxClock carry after/before clock bounds. Zero values
	// mean unbounded within the day interval.
	MinClock int
	MaxClock int
	// SoftWindows are the event-local windows feeding the penalty term.
	SoftWindows []timeutil.Interval
}

// Ordering requires every instance of Before to be at or before every
// instance of After.
type Ordering struct {
	Before string
	After  string
}

// Separation requires every instance pair across the two events to differ by
// at least Minutes.
type Separation struct {
	A       string
	B       string
	Minutes int
}

// Tie binds instance k of A to instance k of B at the same time. Instance
// counts of tied events are equalized before the problem is built.
type Tie struct {
	A string
	B string
}

// Problem is a compiled scheduling instance. Variables must already be in
// search order: ascending topological rank, then event name, then instance
// index.
type Problem struct {
	DayStart      int
	DayEnd        int
	Strategy      Strategy
	PenaltyWeight float64
	Tolerance     int
	GlobalWindows []timeutil.Interval
	Variables     []Variable
	Orderings     []Ordering
	Separations   []Separation
	Ties          []Tie
	// MaxNodes bounds the optimization phase. Once an incumbent exists the
	// search stops after this many nodes and returns the best assignment
	// found; the bound keeps runtime deterministic for fixed inputs.
	MaxNodes int
}

// Assignment is one solved instance time.
type Assignment struct {
	Event   string
	Index   int
	Minutes int
}

// ErrInfeasible is returned when the search exhausts the root without a
// feasible assignment.
var ErrInfeasible = errors.New("solver: no feasible assignment")

// ErrNoVariables is returned for a problem with nothing to schedule.
var ErrNoVariables = errors.New("solver: no variables")

const defaultMaxNodes = 200000

// cancellationInterval controls how often the search polls the context at
// backtrack boundaries.
const cancellationInterval = 256
