package solver

import (
	"context"
	"errors"
	"testing"

	"github.com/example/daily-scheduler/internal/timeutil"
)

func variable(event string, index, count, gap int) Variable {
	return Variable{Event: event, Index: index, Count: count, Gap: gap, Seed: 480}
}

func solve(t *testing.T, p *Problem) []Assignment {
	t.Helper()
	result, err := Solve(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	return result
}

func TestSolveRespectsGranularity(t *testing.T) {
	t.Parallel()

	p := &Problem{
		DayStart: 480,
		DayEnd:   1320,
		Variables: []Variable{
			variable("a", 0, 2, Granularity),
			variable("a", 1, 2, Granularity),
		},
	}
	result := solve(t, p)

	for _, assignment := range result {
		if (assignment.Minutes-480)%Granularity != 0 {
			t.Errorf("assignment %d off the %d-minute grid", assignment.Minutes, Granularity)
		}
	}
	if result[0].Minutes != 480 || result[1].Minutes != 485 {
		t.Errorf("result = %+v, want instances at 480 and 485", result)
	}
}

func TestSolveLatestStrategy(t *testing.T) {
	t.Parallel()

	p := &Problem{
		DayStart: 480,
		DayEnd:   1320,
		Strategy: Latest,
		Variables: []Variable{
			variable("a", 0, 2, 60),
			variable("a", 1, 2, 60),
		},
	}
	result := solve(t, p)

	if result[1].Minutes != 1320 {
		t.Errorf("last instance at %d, want 1320", result[1].Minutes)
	}
	if result[0].Minutes != 1260 {
		t.Errorf("first instance at %d, want 1260", result[0].Minutes)
	}
}

func TestSolveOrderingPropagation(t *testing.T) {
	t.Parallel()

	p := &Problem{
		DayStart: 480,
		DayEnd:   1320,
		Variables: []Variable{
			{Event: "a", Index: 0, Count: 1, Gap: Granularity, Seed: 480, MinClock: 600},
			variable("b", 0, 1, Granularity),
		},
		Orderings: []Ordering{{Before: "a", After: "b"}},
	}
	result := solve(t, p)

	if result[0].Minutes != 600 {
		t.Errorf("a at %d, want 600", result[0].Minutes)
	}
	if result[1].Minutes < 600 {
		t.Errorf("b at %d, want at or after a", result[1].Minutes)
	}
}

func TestSolveSeparation(t *testing.T) {
	t.Parallel()

	p := &Problem{
		DayStart: 480,
		DayEnd:   1320,
		Variables: []Variable{
			variable("a", 0, 1, Granularity),
			variable("b", 0, 1, Granularity),
		},
		Separations: []Separation{{A: "a", B: "b", Minutes: 120}},
	}
	result := solve(t, p)

	delta := result[0].Minutes - result[1].Minutes
	if delta < 0 {
		delta = -delta
	}
	if delta < 120 {
		t.Errorf("instances only %d minutes apart, want at least 120", delta)
	}
}

func TestSolveTiePinsPartners(t *testing.T) {
	t.Parallel()

	p := &Problem{
		DayStart: 480,
		DayEnd:   1320,
		Variables: []Variable{
			{Event: "a", Index: 0, Count: 1, Gap: Granularity, Seed: 480, MinClock: 720},
			variable("b", 0, 1, Granularity),
		},
		Ties: []Tie{{A: "a", B: "b"}},
	}
	result := solve(t, p)

	if result[0].Minutes != result[1].Minutes {
		t.Errorf("tied instances at %d and %d, want equal", result[0].Minutes, result[1].Minutes)
	}
	if result[0].Minutes != 720 {
		t.Errorf("tied pair at %d, want 720", result[0].Minutes)
	}
}

func TestSolveInfeasibleEmptyDomain(t *testing.T) {
	t.Parallel()

	p := &Problem{
		DayStart: 480,
		DayEnd:   1320,
		Variables: []Variable{
			// Five instances at eight hour spacing cannot fit a fourteen
			// hour day.
			variable("a", 0, 5, 480),
			variable("a", 1, 5, 480),
			variable("a", 2, 5, 480),
			variable("a", 3, 5, 480),
			variable("a", 4, 5, 480),
		},
	}
	_, err := Solve(context.Background(), p, nil)
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("Solve = %v, want ErrInfeasible", err)
	}
}

func TestSolveInfeasibleSeparation(t *testing.T) {
	t.Parallel()

	p := &Problem{
		DayStart: 480,
		DayEnd:   540,
		Variables: []Variable{
			variable("a", 0, 1, Granularity),
			variable("b", 0, 1, Granularity),
		},
		Separations: []Separation{{A: "a", B: "b", Minutes: 120}},
	}
	_, err := Solve(context.Background(), p, nil)
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("Solve = %v, want ErrInfeasible", err)
	}
}

func TestSolveHardGlobalWindows(t *testing.T) {
	t.Parallel()

	p := &Problem{
		DayStart:      480,
		DayEnd:        1320,
		GlobalWindows: []timeutil.Interval{{Start: 900, End: 960}},
		Tolerance:     10,
		Variables:     []Variable{variable("a", 0, 1, Granularity)},
	}
	result := solve(t, p)

	if got := result[0].Minutes; got != 890 {
		t.Errorf("a at %d, want 890 at the tolerance edge of the window", got)
	}
}

func TestSolveEmptyProblem(t *testing.T) {
	t.Parallel()

	_, err := Solve(context.Background(), &Problem{DayStart: 480, DayEnd: 1320}, nil)
	if !errors.Is(err, ErrNoVariables) {
		t.Fatalf("Solve = %v, want ErrNoVariables", err)
	}
}

func TestSolveTraceStream(t *testing.T) {
	t.Parallel()

	var events []TraceEvent
	tracer := TracerFunc(func(event TraceEvent) { events = append(events, event) })

	p := &Problem{
		DayStart: 480,
		DayEnd:   1320,
		Variables: []Variable{
			variable("a", 0, 2, 480),
			variable("a", 1, 2, 480),
		},
	}
	if _, err := Solve(context.Background(), p, tracer); err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}

	kinds := make(map[string]int)
	for _, event := range events {
		kinds[event.Kind]++
	}
	if kinds[TraceAssign] == 0 {
		t.Error("no assign records traced")
	}
	if kinds[TraceIncumbent] == 0 {
		t.Error("no incumbent records traced")
	}
}
