// Package constraint lifts free-text constraint strings into the closed set of
// structured predicates understood by the scheduling engine, and normalizes
// them into a directed graph over events.
package constraint

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/example/daily-scheduler/internal/timeutil"
)

// Kind identifies a predicate in the closed grammar.
type Kind int

const (
	// KindApart requires a minimum gap between adjacent instances of the
	// same event.
	KindApart Kind = iota
	// KindApartFrom requires a minimum gap between every instance pair of
	// this event and the target event.
	KindApartFrom
	// KindBeforeTime bounds every instance at or before a clock time.
	KindBeforeTime
	// KindAfterTime bounds every instance at or after a clock time.
	KindAfterTime
	// KindBeforeEvent orders all instances of this event at or before all
	// instances of the target event.
	KindBeforeEvent
	// KindAfterEvent orders all instances of this event at or after all
	// instances of the target event.
	KindAfterEvent
	// KindWithEvent ties instances of this event to instances of the target
	// event at the same moment.
	KindWithEvent
)

// String returns the grammar name of the predicate kind.
func (k Kind) String() string {
	switch k {
	case KindApart:
		return "apart"
	case KindApartFrom:
		return "apart_from"
	case KindBeforeTime:
		return "before_time"
	case KindAfterTime:
		return "after_time"
	case KindBeforeEvent:
		return "before_event"
	case KindAfterEvent:
		return "after_event"
	case KindWithEvent:
		return "with_event"
	default:
		return "unknown"
	}
}

// Predicate is one parsed constraint. Minutes carries the gap for apart
// predicates and the clock time for time predicates; Target names the other
// event for cross-event predicates.
type Predicate struct {
	Kind    Kind
	Minutes int
	Target  string
}

// ErrUnrecognized indicates a constraint string is outside the grammar.
var ErrUnrecognized = errors.New("constraint: unrecognized constraint")

var (
	hoursApartPattern = regexp.MustCompile(`^(?:>=\s*)?(\d+(?:\.\d+)?)\s*(?:h|hr|hrs|hour|hours)\s+apart$`)
	hoursFromPattern  = regexp.MustCompile(`^(?:>=\s*)?(\d+(?:\.\d+)?)\s*(?:h|hr|hrs|hour|hours)\s+from\s+(\S.*)$`)
	beforePattern     = regexp.MustCompile(`^before\s+(\S.*)$`)
	afterPattern      = regexp.MustCompile(`^after\s+(\S.*)$`)
	withPattern       = regexp.MustCompile(`^with\s+(\S.*)$`)
)

// Parse recognizes one constraint string. Matching is case-insensitive and
// whitespace-tolerant; anything outside the grammar fails with ErrUnrecognized.
func Parse(value string) (Predicate, error) {
	normalized := normalize(value)
	if normalized == "" {
		return Predicate{}, fmt.Errorf("%w: %q", ErrUnrecognized, value)
	}

	if m := hoursApartPattern.FindStringSubmatch(normalized); m != nil {
		minutes, err := hoursToMinutes(m[1])
		if err != nil {
			return Predicate{}, fmt.Errorf("%w: %q", ErrUnrecognized, value)
		}
		return Predicate{Kind: KindApart, Minutes: minutes}, nil
	}

	if m := hoursFromPattern.FindStringSubmatch(normalized); m != nil {
		minutes, err := hoursToMinutes(m[1])
		if err != nil {
			return Predicate{}, fmt.Errorf("%w: %q", ErrUnrecognized, value)
		}
		return Predicate{Kind: KindApartFrom, Minutes: minutes, Target: m[2]}, nil
	}

	if m := beforePattern.FindStringSubmatch(normalized); m != nil {
		if clock, err := timeutil.ParseClock(m[1]); err == nil {
			return Predicate{Kind: KindBeforeTime, Minutes: clock}, nil
		}
		return Predicate{Kind: KindBeforeEvent, Target: m[1]}, nil
	}

	if m := afterPattern.FindStringSubmatch(normalized); m != nil {
		if clock, err := timeutil.ParseClock(m[1]); err == nil {
			return Predicate{Kind: KindAfterTime, Minutes: clock}, nil
		}
		return Predicate{Kind: KindAfterEvent, Target: m[1]}, nil
	}

	if m := withPattern.FindStringSubmatch(normalized); m != nil {
		return Predicate{Kind: KindWithEvent, Target: m[1]}, nil
	}

	return Predicate{}, fmt.Errorf("%w: %q", ErrUnrecognized, value)
}

// ParseAll parses each constraint string for an event in order.
func ParseAll(values []string) ([]Predicate, error) {
	if len(values) == 0 {
		return nil, nil
	}
	predicates := make([]Predicate, 0, len(values))
	for _, value := range values {
		predicate, err := Parse(value)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, predicate)
	}
	return predicates, nil
}

// normalize lowers the string, folds unicode comparators to ASCII, and
// collapses internal whitespace so the grammar patterns stay simple.
func normalize(value string) string {
	lowered := strings.ToLower(strings.TrimSpace(value))
	lowered = strings.ReplaceAll(lowered, "≥", ">=")
	return strings.Join(strings.Fields(lowered), " ")
}

func hoursToMinutes(value string) (int, error) {
	hours, err := strconv.ParseFloat(value, 64)
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("constraint: invalid hour count %q", value)
	}
	return int(hours*60 + 0.5), nil
}
