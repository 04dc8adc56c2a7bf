package frequency

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		want  Spec
	}{
		{"once daily", "1x daily", Spec{Count: 1}},
		{"twice daily", "2x daily", Spec{Count: 2}},
		{"ten times daily", "10x daily", Spec{Count: 10}},
		{"mixed case", "3X Daily", Spec{Count: 3}},
		{"spaced multiplier", "2 x daily", Spec{Count: 2}},
		{"blank defaults to once daily", "", Spec{Count: 1}},
		{"whitespace defaults to once daily", "   ", Spec{Count: 1}},
		{"every four hours", "every 4h", Spec{IntervalMinutes: 240}},
		{"every six hours long form", "every 6 hours", Spec{IntervalMinutes: 360}},
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

	invalid := []string{"0x daily", "daily", "every h", "every 0h", "twice a day", "1x weekly"}
	for _, input := range invalid {
		if _, err := Parse(input); !errors.Is(err, ErrInvalidFrequency) {
			t.Errorf("Parse(%q) = %v, want ErrInvalidFrequency", input, err)
		}
	}
}

func TestInstances(t *testing.T) {
	t.Parallel()

	// 08:00-22:00 is an 840 minute day.
	cases := []struct {
		name string
		spec Spec
		want int
	}{
		{"fixed count", Spec{Count: 3}, 3},
		{"every 4h", Spec{IntervalMinutes: 240}, 4},
		{"every 6h", Spec{IntervalMinutes: 360}, 3},
		{"every 14h fills the span once", Spec{IntervalMinutes: 840}, 2},
		{"every 24h", Spec{IntervalMinutes: 1440}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.spec.Instances(480, 1320); got != tc.want {
				t.Fatalf("Instances = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSeedTargets(t *testing.T) {
	t.Parallel()

	t.Run("single instance seeds at day start", func(t *testing.T) {
		t.Parallel()
		got := SeedTargets(1, 480, 1320)
		if len(got) != 1 || got[0] != 480 {
			t.Fatalf("SeedTargets(1) = %v, want [480]", got)
		}
	})

	t.Run("multiple instances spread uniformly", func(t *testing.T) {
		t.Parallel()
		got := SeedTargets(3, 480, 1320)
		want := []int{480, 900, 1320}
		if len(got) != len(want) {
			t.Fatalf("SeedTargets(3) = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("SeedTargets(3) = %v, want %v", got, want)
			}
		}
	})

	t.Run("targets are strictly increasing", func(t *testing.T) {
		t.Parallel()
		got := SeedTargets(10, 480, 1320)
		for i := 1; i < len(got); i++ {
			if got[i] <= got[i-1] {
				t.Fatalf("SeedTargets(10)[%d] = %d not above %d", i, got[i], got[i-1])
			}
		}
	})
}
