// Package rows marshals the nine-column event table between its boundary
// form and the engine's types, and joins solved instances back onto their
// source rows for presentation.
package rows

import (
	"fmt"
	"math"
	"sort"

	"github.com/example/daily-scheduler/internal/engine"
	"github.com/example/daily-scheduler/internal/timeutil"
)

// Row mirrors the event table schema: one struct per event with the nine
// columns the boundary accepts. Optional columns are pointers, not sentinel
// values.
type Row struct {
	Event       string   `json:"Event" yaml:"Event"`
	Category    string   `json:"Category" yaml:"Category"`
	Unit        string   `json:"Unit" yaml:"Unit"`
	Amount      *float64 `json:"Amount" yaml:"Amount"`
	Divisor     *int64   `json:"Divisor" yaml:"Divisor"`
	Frequency   string   `json:"Frequency" yaml:"Frequency"`
	Constraints []string `json:"Constraints" yaml:"Constraints"`
	Windows     []string `json:"Windows" yaml:"Windows"`
	Note        *string  `json:"Note" yaml:"Note"`
}

// ScheduledRow is one solved instance joined back onto its source row.
type ScheduledRow struct {
	Row
	Instance    int    `json:"instance" yaml:"instance"`
	TimeMinutes int    `json:"time_minutes" yaml:"time_minutes"`
	Time        string `json:"time" yaml:"time"`
}

// Decode validates the table shape and lifts rows into event definitions.
// Violations of the schema fail with the engine's SchemaError; per-string
// parse problems are left to the engine, which names the offending event.
func Decode(table []Row) ([]engine.EventDef, error) {
	if len(table) == 0 {
		return nil, &engine.SchemaError{Reason: "event table is empty"}
	}

	events := make([]engine.EventDef, 0, len(table))
	for i, row := range table {
		if row.Event == "" {
			return nil, &engine.SchemaError{Field: "Event", Reason: fmt.Sprintf("row %d has no event name", i)}
		}
		if row.Amount != nil && (math.IsNaN(*row.Amount) || math.IsInf(*row.Amount, 0) || *row.Amount < 0) {
			return nil, &engine.SchemaError{Field: "Amount", Reason: fmt.Sprintf("event %q: amount must be a non-negative number", row.Event)}
		}
		if row.Divisor != nil && *row.Divisor < 1 {
			return nil, &engine.SchemaError{Field: "Divisor", Reason: fmt.Sprintf("event %q: divisor must be positive", row.Event)}
		}

		events = append(events, engine.EventDef{
			Name:        row.Event,
			Category:    row.Category,
			Unit:        row.Unit,
			Amount:      row.Amount,
			Divisor:     row.Divisor,
			Frequency:   row.Frequency,
			Constraints: row.Constraints,
			Windows:     row.Windows,
			Note:        row.Note,
		})
	}
	return events, nil
}

// Join left-joins solved instances onto their source rows on the event name
// and sorts by time, then event name, then instance index. Instances without
// a matching row keep a bare row carrying only the event name; rows without
// instances do not appear.
func Join(table []Row, instances []engine.ScheduledInstance) []ScheduledRow {
	byName := make(map[string]Row, len(table))
	for _, row := range table {
		byName[row.Event] = row
	}

	joined := make([]ScheduledRow, 0, len(instances))
	for _, instance := range instances {
		row, ok := byName[instance.EntityName]
		if !ok {
			row = Row{Event: instance.EntityName}
		}
		joined = append(joined, ScheduledRow{
			Row:         row,
			Instance:    instance.Instance,
			TimeMinutes: instance.TimeMinutes,
			Time:        timeutil.FormatClock(instance.TimeMinutes),
		})
	}

	sort.Slice(joined, func(i, j int) bool {
		if joined[i].TimeMinutes != joined[j].TimeMinutes {
			return joined[i].TimeMinutes < joined[j].TimeMinutes
		}
		if joined[i].Event != joined[j].Event {
			return joined[i].Event < joined[j].Event
		}
		return joined[i].Instance < joined[j].Instance
	})
	return joined
}
