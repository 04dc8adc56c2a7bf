// Package timeutil provides the integer minute-of-day time model used by the
// scheduling engine. All times are minutes since midnight in [0, 1440) and all
// interval arithmetic stays in integers.
package timeutil

import (
	"errors"
	"fmt"
	"strings"
)

// MinutesPerDay bounds the minute-of-day range.
const MinutesPerDay = 24 * 60

// ErrInvalidClock indicates a clock string is not strict "HH:MM".
var ErrInvalidClock = errors.New("timeutil: invalid clock time")

// ErrInvalidWindow indicates a window string is not "HH:MM" or "HH:MM-HH:MM".
var ErrInvalidWindow = errors.New("timeutil: invalid window")

// ParseClock parses a strict "HH:MM" clock string into minutes since midnight.
// The hour must be two digits in 00-23 and the minute two digits in 00-59; any
// other form is rejected.
func ParseClock(value string) (int, error) {
	if len(value) != 5 || value[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	hour, ok := twoDigits(value[0], value[1])
	if !ok || hour > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	minute, ok := twoDigits(value[3], value[4])
	if !ok || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	minutes %= MinutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// Interval is a closed range of minutes [Start, End].
type Interval struct {
	Start int
	End   int
}

// ParseWindow parses a window string. A bare clock time yields the point
// interval [t, t]; "HH:MM-HH:MM" yields the closed interval and fails when the
// end precedes the start.
func ParseWindow(value string) (Interval, error) {
	trimmed := strings.TrimSpace(value)
	if dash := strings.Index(trimmed, "-"); dash >= 0 {
		start, err := ParseClock(strings.TrimSpace(trimmed[:dash]))
		if err != nil {
			return Interval{}, fmt.Errorf("%w: %q", ErrInvalidWindow, value)
		}
		end, err := ParseClock(strings.TrimSpace(trimmed[dash+1:]))
		if err != nil {
			return Interval{}, fmt.Errorf("%w: %q", ErrInvalidWindow, value)
		}
		if end < start {
			return Interval{}, fmt.Errorf("%w: %q ends before it starts", ErrInvalidWindow, value)
		}
		return Interval{Start: start, End: end}, nil
	}

	point, err := ParseClock(trimmed)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: %q", ErrInvalidWindow, value)
	}
	return Interval{Start: point, End: point}, nil
}

// ParseWindows parses each window string in order.
func ParseWindows(values []string) ([]Interval, error) {
	if len(values) == 0 {
		return nil, nil
	}
	intervals := make([]Interval, 0, len(values))
	for _, value := range values {
		interval, err := ParseWindow(value)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, interval)
	}
	return intervals, nil
}

// Dist returns the distance from t to the interval: zero inside, otherwise the
// gap to the nearest endpoint.
func (iv Interval) Dist(t int) int {
	if d := iv.Start - t; d > 0 {
		return d
	}
	if d := t - iv.End; d > 0 {
		return d
	}
	return 0
}

// Contains reports whether t lies within tolerance minutes of the interval.
func (iv Interval) Contains(t, tolerance int) bool {
	return iv.Dist(t) <= tolerance
}

// MinDist returns the smallest distance from t to any of the intervals. When
// intervals is empty the distance is zero: no window constrains t.
func MinDist(t int, intervals []Interval) int {
	if len(intervals) == 0 {
		return 0
	}
	best := intervals[0].Dist(t)
	for _, iv := range intervals[1:] {
		if d := iv.Dist(t); d < best {
			best = d
		}
	}
	return best
}
