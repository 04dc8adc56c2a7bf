package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/daily-scheduler/internal/engine"
	"github.com/example/daily-scheduler/internal/rows"
)

func TestClock(t *testing.T) {
	t.Parallel()

	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Errorf("Now = %v, want ReferenceTime", clock.Now())
	}

	updated := clock.Advance(90 * time.Minute)
	if want := ReferenceTime().Add(90 * time.Minute); !updated.Equal(want) {
		t.Errorf("Advance = %v, want %v", updated, want)
	}
}

func TestIDGenerator(t *testing.T) {
	t.Parallel()

	generator := NewIDGenerator("")
	if got := generator.Next(); got != "run-1" {
		t.Errorf("Next = %q, want run-1", got)
	}
	if got := generator.Next(); got != "run-2" {
		t.Errorf("Next = %q, want run-2", got)
	}
}

func TestMedicationTableSchedules(t *testing.T) {
	t.Parallel()

	table := MedicationTable()
	events, err := rows.Decode(table)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	result, err := engine.Schedule(context.Background(), events, engine.DefaultConfig())
	if err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	// The antibiotic's divisor doubles its instance count.
	counts := make(map[string]int)
	for _, instance := range result {
		counts[instance.EntityName]++
	}
	if counts["antibiotic"] != 2 {
		t.Errorf("antibiotic count = %d, want 2", counts["antibiotic"])
	}
	if counts["breakfast"] != 1 || counts["vitamin"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
