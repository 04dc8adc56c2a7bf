package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/example/daily-scheduler/internal/engine"
	"github.com/example/daily-scheduler/internal/rows"
)

type solveOptions struct {
	file            string
	strategy        string
	dayStart        string
	dayEnd          string
	windows         []string
	penaltyWeight   float64
	windowTolerance float64
	asJSON          bool
}

func newSolveCommand() *cobra.Command {
	opts := solveOptions{}

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Schedule an event table from a JSON or YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "event table file (.json, .yaml, .yml)")
	cmd.Flags().StringVar(&opts.strategy, "strategy", string(engine.StrategyEarliest), "scheduling strategy: earliest or latest")
	cmd.Flags().StringVar(&opts.dayStart, "day-start", engine.DefaultDayStart, "start of day, HH:MM")
	cmd.Flags().StringVar(&opts.dayEnd, "day-end", engine.DefaultDayEnd, "end of day, HH:MM")
	cmd.Flags().StringSliceVar(&opts.windows, "window", nil, "global time window, HH:MM or HH:MM-HH:MM (repeatable)")
	cmd.Flags().Float64Var(&opts.penaltyWeight, "penalty-weight", engine.DefaultPenaltyWeight, "weight of the soft-window deviation term")
	cmd.Flags().Float64Var(&opts.windowTolerance, "window-tolerance", engine.DefaultWindowTolerance, "minutes an instance may miss a window by")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "emit the timetable as JSON")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSolve(ctx context.Context, out io.Writer, opts solveOptions) error {
	table, err := loadTable(opts.file)
	if err != nil {
		return err
	}

	events, err := rows.Decode(table)
	if err != nil {
		return err
	}

	cfg := engine.Config{
		Strategy:        engine.Strategy(opts.strategy),
		DayStart:        opts.dayStart,
		DayEnd:          opts.dayEnd,
		Windows:         opts.windows,
		PenaltyWeight:   opts.penaltyWeight,
		WindowTolerance: opts.windowTolerance,
	}

	instances, err := engine.Schedule(ctx, events, cfg)
	if err != nil {
		return err
	}

	joined := rows.Join(table, instances)
	if opts.asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(joined)
	}
	return printTimetable(out, joined)
}

// loadTable reads an event table, choosing the codec by file extension.
func loadTable(path string) ([]rows.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event table: %w", err)
	}

	var table []rows.Row
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return table, nil
}

func printTimetable(out io.Writer, joined []rows.ScheduledRow) error {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "TIME\tEVENT\tINSTANCE\tCATEGORY\tNOTE")
	for _, row := range joined {
		note := ""
		if row.Note != nil {
			note = *row.Note
		}
		fmt.Fprintf(writer, "%s\t%s\t%d\t%s\t%s\n", row.Time, row.Event, row.Instance, row.Category, note)
	}
	return writer.Flush()
}
