package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/example/daily-scheduler/internal/constraint"
	"github.com/example/daily-scheduler/internal/frequency"
	"github.com/example/daily-scheduler/internal/solver"
	"github.com/example/daily-scheduler/internal/timeutil"
)

// Schedule computes a concrete timetable for the events under the
// configuration. The call is pure and synchronous; distinct calls share no
// state. Cancellation and deadlines on ctx are observed cooperatively at
// search backtrack boundaries.
func Schedule(ctx context.Context, events []EventDef, cfg Config) ([]ScheduledInstance, error) {
	resolved, err := resolveConfig(cfg)
	if err != nil {
		return nil, err
	}

	parsed, err := parseEvents(events, resolved)
	if err != nil {
		return nil, err
	}

	graph, err := buildGraph(parsed)
	if err != nil {
		return nil, err
	}

	expand(parsed, graph, resolved)

	problem, err := compileProblem(parsed, graph, resolved)
	if err != nil {
		return nil, err
	}

	var tracer solver.Tracer
	if resolved.debug {
		tracer = resolved.trace
	}

	assignments, err := solver.Solve(ctx, problem, tracer)
	if err != nil {
		switch {
		case errors.Is(err, solver.ErrInfeasible):
			return nil, &InfeasibleError{Static: false, Reason: "search exhausted every assignment"}
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, mapContextErr(err)
		default:
			return nil, err
		}
	}

	result := assemble(assignments)
	if err := verify(result, parsed, resolved); err != nil {
		return nil, err
	}
	return result, nil
}

// resolvedConfig is the validated, minute-typed form of Config.
type resolvedConfig struct {
	strategy      solver.Strategy
	dayStart      int
	dayEnd        int
	globalWindows []timeutil.Interval
	penaltyWeight float64
	tolerance     int
	debug         bool
	trace         solver.Tracer
}

func resolveConfig(cfg Config) (resolvedConfig, error) {
	resolved := resolvedConfig{
		penaltyWeight: cfg.PenaltyWeight,
		debug:         cfg.Debug,
		trace:         cfg.Trace,
	}

	switch cfg.Strategy {
	case "", StrategyEarliest:
		resolved.strategy = solver.Earliest
	case StrategyLatest:
		resolved.strategy = solver.Latest
	default:
		return resolvedConfig{}, &ConfigError{Field: "strategy", Reason: fmt.Sprintf("unknown strategy %q", cfg.Strategy)}
	}

	dayStart := cfg.DayStart
	if dayStart == "" {
		dayStart = DefaultDayStart
	}
	dayEnd := cfg.DayEnd
	if dayEnd == "" {
		dayEnd = DefaultDayEnd
	}

	start, err := timeutil.ParseClock(dayStart)
	if err != nil {
		return resolvedConfig{}, &ConfigError{Field: "day_start", Reason: err.Error()}
	}
	end, err := timeutil.ParseClock(dayEnd)
	if err != nil {
		return resolvedConfig{}, &ConfigError{Field: "day_end", Reason: err.Error()}
	}
	if end <= start {
		return resolvedConfig{}, &ConfigError{Field: "day_end", Reason: "day end must come after day start"}
	}
	resolved.dayStart = start
	resolved.dayEnd = end

	if cfg.PenaltyWeight < 0 {
		return resolvedConfig{}, &ConfigError{Field: "penalty_weight", Reason: "must not be negative"}
	}
	if cfg.WindowTolerance < 0 {
		return resolvedConfig{}, &ConfigError{Field: "window_tolerance", Reason: "must not be negative"}
	}
	resolved.tolerance = int(math.Floor(cfg.WindowTolerance))

	windows, err := timeutil.ParseWindows(cfg.Windows)
	if err != nil {
		return resolvedConfig{}, &ConfigError{Field: "windows", Reason: err.Error()}
	}
	resolved.globalWindows = windows

	return resolved, nil
}

// parsedEvent is one event after parsing and expansion.
type parsedEvent struct {
	def        EventDef
	spec       frequency.Spec
	predicates []constraint.Predicate
	windows    []timeutil.Interval
	count      int
	gap        int
	minClock   int
	maxClock   int
	seeds      []int
}

func parseEvents(events []EventDef, resolved resolvedConfig) ([]*parsedEvent, error) {
	if len(events) == 0 {
		return nil, &SchemaError{Reason: "no events to schedule"}
	}

	seen := make(map[string]struct{}, len(events))
	parsed := make([]*parsedEvent, 0, len(events))

	for _, def := range events {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, &SchemaError{Field: "Event", Reason: "event name must not be empty"}
		}
		folded := strings.ToLower(name)
		if _, dup := seen[folded]; dup {
			return nil, &SchemaError{Field: "Event", Reason: fmt.Sprintf("duplicate event name %q", name)}
		}
		seen[folded] = struct{}{}

		if def.Divisor != nil && *def.Divisor < 1 {
			return nil, &SchemaError{Field: "Divisor", Reason: fmt.Sprintf("event %q: divisor must be positive", name)}
		}

		spec, err := frequency.Parse(def.Frequency)
		if err != nil {
			return nil, &ParseError{Event: name, Input: def.Frequency, Err: err}
		}

		predicates := make([]constraint.Predicate, 0, len(def.Constraints))
		for _, raw := range def.Constraints {
			predicate, err := constraint.Parse(raw)
			if err != nil {
				return nil, &ParseError{Event: name, Input: raw, Err: err}
			}
			predicates = append(predicates, predicate)
		}

		windows := make([]timeutil.Interval, 0, len(def.Windows))
		for _, raw := range def.Windows {
			window, err := timeutil.ParseWindow(raw)
			if err != nil {
				return nil, &ParseError{Event: name, Input: raw, Err: err}
			}
			windows = append(windows, window)
		}

		event := &parsedEvent{def: def, spec: spec, predicates: predicates, windows: windows}
		event.def.Name = name
		parsed = append(parsed, event)
	}

	// Cross-event references must resolve within this call.
	for _, event := range parsed {
		for i, predicate := range event.predicates {
			if predicate.Target == "" {
				continue
			}
			if _, ok := seen[strings.ToLower(predicate.Target)]; !ok {
				return nil, &ParseError{
					Event: event.def.Name,
					Input: event.def.Constraints[i],
					Err:   fmt.Errorf("unknown event %q", predicate.Target),
				}
			}
		}
	}

	return parsed, nil
}

func buildGraph(parsed []*parsedEvent) (*constraint.Graph, error) {
	names := make([]string, len(parsed))
	predicates := make(map[string][]constraint.Predicate, len(parsed))
	for i, event := range parsed {
		names[i] = event.def.Name
		predicates[event.def.Name] = event.predicates
	}

	graph, err := constraint.BuildGraph(names, predicates)
	if err != nil {
		if errors.Is(err, constraint.ErrOrderingCycle) {
			return nil, &InfeasibleError{Static: true, Reason: err.Error()}
		}
		return nil, err
	}
	return graph, nil
}

// expand determines instance counts, spacing, clock bounds, and seed targets
// for every event. Within a with-group the larger instance count wins so tied
// partners always pair up.
func expand(parsed []*parsedEvent, graph *constraint.Graph, resolved resolvedConfig) {
	byName := make(map[string]*parsedEvent, len(parsed))
	for _, event := range parsed {
		byName[event.def.Name] = event
	}

	for _, event := range parsed {
		count := event.spec.Instances(resolved.dayStart, resolved.dayEnd)
		divisor := 1
		if event.def.Divisor != nil {
			divisor = int(*event.def.Divisor)
		}
		event.count = count * divisor

		gap := solver.Granularity
		if implied := event.spec.ImpliedGap(); divisor == 1 && implied > gap {
			// Dose splitting relaxes the frequency's own spacing; the
			// fractions may cluster unless an apart constraint says
			// otherwise.
			gap = implied
		}
		event.minClock = 0
		event.maxClock = 0
		for _, predicate := range event.predicates {
			switch predicate.Kind {
			case constraint.KindApart:
				if predicate.Minutes > gap {
					gap = predicate.Minutes
				}
			case constraint.KindAfterTime:
				if predicate.Minutes > event.minClock {
					event.minClock = predicate.Minutes
				}
			case constraint.KindBeforeTime:
				if event.maxClock == 0 || predicate.Minutes < event.maxClock {
					event.maxClock = predicate.Minutes
				}
			}
		}
		event.gap = gap
	}

	for _, group := range graph.WithGroups() {
		max := 0
		for _, name := range group {
			if byName[name].count > max {
				max = byName[name].count
			}
		}
		for _, name := range group {
			byName[name].count = max
		}
	}

	for _, event := range parsed {
		event.seeds = frequency.SeedTargets(event.count, resolved.dayStart, resolved.dayEnd)
	}
}

func compileProblem(parsed []*parsedEvent, graph *constraint.Graph, resolved resolvedConfig) (*solver.Problem, error) {
	// A before-time bound that precedes the day interval can never hold.
	for _, event := range parsed {
		if event.maxClock > 0 && event.maxClock < resolved.dayStart {
			return nil, &InfeasibleError{
				Static: true,
				Reason: fmt.Sprintf("event %q must end before %s but the day starts at %s", event.def.Name, timeutil.FormatClock(event.maxClock), timeutil.FormatClock(resolved.dayStart)),
			}
		}
		if event.minClock > resolved.dayEnd {
			return nil, &InfeasibleError{
				Static: true,
				Reason: fmt.Sprintf("event %q must start after %s but the day ends at %s", event.def.Name, timeutil.FormatClock(event.minClock), timeutil.FormatClock(resolved.dayEnd)),
			}
		}
	}

	ordered := append([]*parsedEvent(nil), parsed...)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := graph.Rank(ordered[i].def.Name), graph.Rank(ordered[j].def.Name)
		if ri != rj {
			return ri < rj
		}
		return ordered[i].def.Name < ordered[j].def.Name
	})

	problem := &solver.Problem{
		DayStart:      resolved.dayStart,
		DayEnd:        resolved.dayEnd,
		Strategy:      resolved.strategy,
		PenaltyWeight: resolved.penaltyWeight,
		Tolerance:     resolved.tolerance,
		GlobalWindows: resolved.globalWindows,
	}

	for _, event := range ordered {
		for k := 0; k < event.count; k++ {
			problem.Variables = append(problem.Variables, solver.Variable{
				Event:       event.def.Name,
				Index:       k,
				Count:       event.count,
				Seed:        event.seeds[k],
				Gap:         event.gap,
				MinClock:    event.minClock,
				MaxClock:    event.maxClock,
				SoftWindows: event.windows,
			})
		}
	}

	for _, edge := range graph.Edges() {
		switch edge.Kind {
		case constraint.KindBeforeEvent:
			problem.Orderings = append(problem.Orderings, solver.Ordering{Before: edge.From, After: edge.To})
		case constraint.KindApartFrom:
			problem.Separations = append(problem.Separations, solver.Separation{A: edge.From, B: edge.To, Minutes: edge.Minutes})
		}
	}

	for _, group := range graph.WithGroups() {
		for i := 1; i < len(group); i++ {
			problem.Ties = append(problem.Ties, solver.Tie{A: group[0], B: group[i]})
		}
	}

	return problem, nil
}

func assemble(assignments []solver.Assignment) []ScheduledInstance {
	result := make([]ScheduledInstance, len(assignments))
	for i, assignment := range assignments {
		result[i] = ScheduledInstance{
			EntityName:  assignment.Event,
			Instance:    assignment.Index,
			TimeMinutes: assignment.Minutes,
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TimeMinutes != result[j].TimeMinutes {
			return result[i].TimeMinutes < result[j].TimeMinutes
		}
		if result[i].EntityName != result[j].EntityName {
			return result[i].EntityName < result[j].EntityName
		}
		return result[i].Instance < result[j].Instance
	})
	return result
}

// verify asserts the output invariants. A violation here is an engine bug,
// not a user error.
func verify(result []ScheduledInstance, parsed []*parsedEvent, resolved resolvedConfig) error {
	expected := 0
	for _, event := range parsed {
		expected += event.count
	}
	if len(result) != expected {
		return fmt.Errorf("engine: internal: produced %d instances, expected %d", len(result), expected)
	}

	lastByEvent := make(map[string]map[int]int)
	for _, instance := range result {
		if instance.TimeMinutes < resolved.dayStart || instance.TimeMinutes > resolved.dayEnd {
			return fmt.Errorf("engine: internal: instance %q/%d at %d escapes the day interval", instance.EntityName, instance.Instance, instance.TimeMinutes)
		}
		if lastByEvent[instance.EntityName] == nil {
			lastByEvent[instance.EntityName] = make(map[int]int)
		}
		lastByEvent[instance.EntityName][instance.Instance] = instance.TimeMinutes
	}

	for name, times := range lastByEvent {
		for k := 1; k < len(times); k++ {
			if times[k] <= times[k-1] {
				return fmt.Errorf("engine: internal: event %q instances out of order", name)
			}
		}
	}

	return nil
}
