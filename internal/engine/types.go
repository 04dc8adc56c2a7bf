// Package engine computes a concrete daily timetable for a set of recurring
// events. Schedule is a pure function of its inputs: it parses the event
// definitions, expands frequencies into instances, normalizes constraints
// into a graph, and runs the solver to produce the minimum-penalty feasible
// assignment.
package engine

import "github.com/example/daily-scheduler/internal/solver"

// Strategy selects the objective bias.
type Strategy string

const (
	// StrategyEarliest pulls instances toward the day start.
	StrategyEarliest Strategy = "earliest"
	// StrategyLatest pulls instances toward the day end.
	StrategyLatest Strategy = "latest"
)

// Default configuration values.
const (
	DefaultDayStart        = "08:00"
	DefaultDayEnd          = "22:00"
	DefaultPenaltyWeight   = 0.3
	DefaultWindowTolerance = 0.0
)

// EventDef defines one recurring event to schedule.
type EventDef struct {
	// Name identifies the event; it must be non-empty and unique within a
	// scheduling call.
	Name     string
	Category string
	Unit     string
	// Divisor splits a dose across occurrences: a divisor of d multiplies
	// the instance count by d. Amount is carried through unchanged; it is
	// not divided per instance.
	Amount  *float64
	Divisor *int64
	// Frequency is a frequency string; blank means "1x daily".
	Frequency string
	// Constraints are free-text constraint strings in the closed grammar.
	Constraints []string
	// Windows are per-event window strings feeding the soft penalty term.
	Windows []string
	Note    *string
}

// Config carries the scheduling call configuration.
type Config struct {
	// Strategy is "earliest" or "latest"; blank defaults to earliest.
	Strategy Strategy
	// DayStart and DayEnd bound the day in "HH:MM"; blanks default to
	// 08:00 and 22:00.
	DayStart string
	DayEnd   string
	// Windows are global window strings. When non-empty every instance
	// must fall within tolerance of one of them.
	Windows []string
	// PenaltyWeight scales the soft-window deviation term.
	PenaltyWeight float64
	// WindowTolerance is the distance in minutes by which a time may fall
	// outside a window while still counting as inside it.
	WindowTolerance float64
	// Debug enables the structured trace stream. Traces never affect the
	// returned assignment.
	Debug bool
	// Trace receives trace records when Debug is set. A nil sink with
	// Debug on discards the stream.
	Trace solver.Tracer
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Strategy:        StrategyEarliest,
		DayStart:        DefaultDayStart,
		DayEnd:          DefaultDayEnd,
		PenaltyWeight:   DefaultPenaltyWeight,
		WindowTolerance: DefaultWindowTolerance,
	}
}

// ScheduledInstance is one solved occurrence.
type ScheduledInstance struct {
	// EntityName is the event the instance belongs to.
	EntityName string
	// Instance is the occurrence index within the event, from zero.
	Instance int
	// TimeMinutes is the assigned time in minutes since midnight.
	TimeMinutes int
}
