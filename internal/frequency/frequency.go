// Package frequency expands frequency strings into daily instance counts and
// the spacing the frequency implies.
package frequency

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultFrequency substitutes for a blank frequency string.
const DefaultFrequency = "1x daily"

// ErrInvalidFrequency indicates a frequency string is outside the grammar.
var ErrInvalidFrequency = errors.New("frequency: invalid frequency")

var (
	timesDailyPattern = regexp.MustCompile(`^(\d+)\s*x\s+daily$`)
	everyHoursPattern = regexp.MustCompile(`^every\s+(\d+)\s*(?:h|hr|hrs|hour|hours)$`)
)

// Spec is a parsed frequency. Count holds the instance count for "Nx daily";
// IntervalMinutes holds the period for "every Nh", where the count depends on
// the day span.
type Spec struct {
	Count           int
	IntervalMinutes int
}

// Parse recognizes "Nx daily" and "every Nh", case-insensitive and
// whitespace-tolerant. A blank string parses as DefaultFrequency.
func Parse(value string) (Spec, error) {
	normalized := strings.Join(strings.Fields(strings.ToLower(value)), " ")
	if normalized == "" {
		normalized = DefaultFrequency
	}

	if m := timesDailyPattern.FindStringSubmatch(normalized); m != nil {
		count, err := strconv.Atoi(m[1])
		if err != nil || count < 1 {
			return Spec{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, value)
		}
		return Spec{Count: count}, nil
	}

	if m := everyHoursPattern.FindStringSubmatch(normalized); m != nil {
		hours, err := strconv.Atoi(m[1])
		if err != nil || hours < 1 {
			return Spec{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, value)
		}
		return Spec{IntervalMinutes: hours * 60}, nil
	}

	return Spec{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, value)
}

// Instances returns the number of daily instances the spec produces within the
// day interval. "every Nh" fits as many period boundaries as the span allows,
// inclusive of the day start.
func (s Spec) Instances(dayStart, dayEnd int) int {
	if s.IntervalMinutes > 0 {
		span := dayEnd - dayStart
		if span < 0 {
			span = 0
		}
		return span/s.IntervalMinutes + 1
	}
	if s.Count < 1 {
		return 1
	}
	return s.Count
}

// ImpliedGap returns the intra-event spacing the frequency itself implies, in
// minutes. Only "every Nh" implies one; "Nx daily" leaves spacing to the
// constraints.
func (s Spec) ImpliedGap() int {
	return s.IntervalMinutes
}

// SeedTargets returns the uniform target times for n instances across the day
// interval. The targets are objective hints, not hard constraints; they exist
// so repeated instances spread over the day instead of crowding one boundary.
func SeedTargets(n, dayStart, dayEnd int) []int {
	if n <= 0 {
		return nil
	}
	targets := make([]int, n)
	if n == 1 {
		targets[0] = dayStart
		return targets
	}
	span := dayEnd - dayStart
	for i := 0; i < n; i++ {
		targets[i] = dayStart + i*span/(n-1)
	}
	return targets
}
