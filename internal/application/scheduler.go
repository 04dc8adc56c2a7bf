package application

import (
	"context"
	"strings"

	"github.com/example/daily-scheduler/internal/engine"
	"github.com/example/daily-scheduler/internal/rows"
)

// Scheduler accumulates an event table row by row and schedules it in one
// call. It is a plain value with no global registration; construct one per
// table.
type Scheduler struct {
	table []rows.Row
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// AddParams carries the columns of one event row. Optional columns are
// pointers; nil constraint and window lists mean none.
type AddParams struct {
	Event       string
	Category    string
	Unit        string
	Amount      *float64
	Divisor     *int64
	Frequency   string
	Constraints []string
	Windows     []string
	Note        *string
}

// Add validates and appends one event row.
func (s *Scheduler) Add(params AddParams) error {
	vErr := &ValidationError{}
	if strings.TrimSpace(params.Event) == "" {
		vErr.add("Event", "event name must not be empty")
	}
	for _, row := range s.table {
		if strings.EqualFold(row.Event, params.Event) {
			vErr.add("Event", "event name already added")
			break
		}
	}
	if params.Amount != nil && *params.Amount < 0 {
		vErr.add("Amount", "amount must not be negative")
	}
	if params.Divisor != nil && *params.Divisor < 1 {
		vErr.add("Divisor", "divisor must be positive")
	}
	if vErr.HasErrors() {
		return vErr
	}

	frequencyValue := params.Frequency
	if strings.TrimSpace(frequencyValue) == "" {
		frequencyValue = "1x daily"
	}

	s.table = append(s.table, rows.Row{
		Event:       strings.TrimSpace(params.Event),
		Category:    params.Category,
		Unit:        params.Unit,
		Amount:      params.Amount,
		Divisor:     params.Divisor,
		Frequency:   frequencyValue,
		Constraints: params.Constraints,
		Windows:     params.Windows,
		Note:        params.Note,
	})
	return nil
}

// Rows returns a copy of the accumulated table.
func (s *Scheduler) Rows() []rows.Row {
	table := make([]rows.Row, len(s.table))
	copy(table, s.table)
	return table
}

// Schedule solves the accumulated table under the configuration and returns
// the solved instances joined back onto their rows, sorted by time.
func (s *Scheduler) Schedule(ctx context.Context, cfg engine.Config) ([]rows.ScheduledRow, error) {
	events, err := rows.Decode(s.table)
	if err != nil {
		return nil, err
	}
	instances, err := engine.Schedule(ctx, events, cfg)
	if err != nil {
		return nil, err
	}
	return rows.Join(s.table, instances), nil
}
