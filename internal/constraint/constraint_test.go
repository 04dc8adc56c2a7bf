package constraint

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		want  Predicate
	}{
		{"apart with comparator", "≥8h apart", Predicate{Kind: KindApart, Minutes: 480}},
		{"apart ascii comparator", ">=6h apart", Predicate{Kind: KindApart, Minutes: 360}},
		{"apart long form", "8 hours apart", Predicate{Kind: KindApart, Minutes: 480}},
		{"apart single hour", "1 hour apart", Predicate{Kind: KindApart, Minutes: 60}},
		{"apart fractional", "1.5h apart", Predicate{Kind: KindApart, Minutes: 90}},
		{"apart mixed case", "≥8H APART", Predicate{Kind: KindApart, Minutes: 480}},
		{"apart extra whitespace", "  ≥8h   apart  ", Predicate{Kind: KindApart, Minutes: 480}},
		{"apart from event", "≥2h from food", Predicate{Kind: KindApartFrom, Minutes: 120, Target: "food"}},
		{"apart from long form", "2 hours from breakfast", Predicate{Kind: KindApartFrom, Minutes: 120, Target: "breakfast"}},
		{"before clock", "before 12:00", Predicate{Kind: KindBeforeTime, Minutes: 720}},
		{"after clock", "after 08:30", Predicate{Kind: KindAfterTime, Minutes: 510}},
		{"before event", "before dinner", Predicate{Kind: KindBeforeEvent, Target: "dinner"}},
		{"after event", "after breakfast", Predicate{Kind: KindAfterEvent, Target: "breakfast"}},
		{"with event", "with lunch", Predicate{Kind: KindWithEvent, Target: "lunch"}},
		{"with multiword event", "with evening meal", Predicate{Kind: KindWithEvent, Target: "evening meal"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tc.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tc.input, got, tc.want)
			}
		})
	}
}

func TestParseRejectsUnknown(t *testing.T) {
	t.Parallel()

	inputs := []string{"", "sometimes", "8h", "apart 8h", "before", "between 08:00 and 09:00", "≥h apart"}
	for _, input := range inputs {
		if _, err := Parse(input); !errors.Is(err, ErrUnrecognized) {
			t.Errorf("Parse(%q) = %v, want ErrUnrecognized", input, err)
		}
	}
}

func TestBuildGraph(t *testing.T) {
	t.Parallel()

	t.Run("ranks follow ordering edges", func(t *testing.T) {
		t.Parallel()
		names := []string{"breakfast", "pill", "vitamin"}
		predicates := map[string][]Predicate{
			"pill":    {{Kind: KindAfterEvent, Target: "breakfast"}},
			"vitamin": {{Kind: KindAfterEvent, Target: "pill"}},
		}

		graph, err := BuildGraph(names, predicates)
		if err != nil {
			t.Fatalf("BuildGraph returned error: %v", err)
		}
		if got := graph.Rank("breakfast"); got != 0 {
			t.Errorf("Rank(breakfast) = %d, want 0", got)
		}
		if got := graph.Rank("pill"); got != 1 {
			t.Errorf("Rank(pill) = %d, want 1", got)
		}
		if got := graph.Rank("vitamin"); got != 2 {
			t.Errorf("Rank(vitamin) = %d, want 2", got)
		}
	})

	t.Run("target names resolve case-insensitively", func(t *testing.T) {
		t.Parallel()
		names := []string{"Breakfast", "Pill"}
		predicates := map[string][]Predicate{
			"Pill": {{Kind: KindAfterEvent, Target: "breakfast"}},
		}

		graph, err := BuildGraph(names, predicates)
		if err != nil {
			t.Fatalf("BuildGraph returned error: %v", err)
		}
		if got := graph.Rank("Pill"); got != 1 {
			t.Errorf("Rank(Pill) = %d, want 1", got)
		}
	})

	t.Run("unknown target fails", func(t *testing.T) {
		t.Parallel()
		_, err := BuildGraph([]string{"pill"}, map[string][]Predicate{
			"pill": {{Kind: KindBeforeEvent, Target: "ghost"}},
		})
		if !errors.Is(err, ErrUnknownEvent) {
			t.Fatalf("BuildGraph = %v, want ErrUnknownEvent", err)
		}
	})

	t.Run("ordering cycle fails", func(t *testing.T) {
		t.Parallel()
		_, err := BuildGraph([]string{"a", "b"}, map[string][]Predicate{
			"a": {{Kind: KindBeforeEvent, Target: "b"}},
			"b": {{Kind: KindBeforeEvent, Target: "a"}},
		})
		if !errors.Is(err, ErrOrderingCycle) {
			t.Fatalf("BuildGraph = %v, want ErrOrderingCycle", err)
		}
	})

	t.Run("with groups are connected components", func(t *testing.T) {
		t.Parallel()
		names := []string{"breakfast", "pill", "vitamin", "dinner"}
		predicates := map[string][]Predicate{
			"pill":    {{Kind: KindWithEvent, Target: "breakfast"}},
			"vitamin": {{Kind: KindWithEvent, Target: "pill"}},
		}

		graph, err := BuildGraph(names, predicates)
		if err != nil {
			t.Fatalf("BuildGraph returned error: %v", err)
		}
		groups := graph.WithGroups()
		if len(groups) != 1 {
			t.Fatalf("WithGroups returned %d groups, want 1", len(groups))
		}
		want := []string{"breakfast", "pill", "vitamin"}
		if len(groups[0]) != len(want) {
			t.Fatalf("group = %v, want %v", groups[0], want)
		}
		for i, name := range want {
			if groups[0][i] != name {
				t.Fatalf("group = %v, want %v", groups[0], want)
			}
		}
	})
}
