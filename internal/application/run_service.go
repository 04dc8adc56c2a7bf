package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/daily-scheduler/internal/engine"
	"github.com/example/daily-scheduler/internal/persistence"
	"github.com/example/daily-scheduler/internal/rows"
	"github.com/example/daily-scheduler/internal/timeutil"
)

// RunService schedules event tables and records the solved runs.
type RunService struct {
	runs        persistence.RunRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	// solveTimeout caps one scheduling call; zero disables the deadline.
	solveTimeout time.Duration
}

// NewRunService wires dependencies for run operations.
func NewRunService(runs persistence.RunRepository, idGenerator func() string, now func() time.Time, solveTimeout time.Duration) *RunService {
	return NewRunServiceWithLogger(runs, idGenerator, now, solveTimeout, nil)
}

// NewRunServiceWithLogger wires dependencies and allows specifying a logger.
func NewRunServiceWithLogger(runs persistence.RunRepository, idGenerator func() string, now func() time.Time, solveTimeout time.Duration, logger *slog.Logger) *RunService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RunService{
		runs:         runs,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
		solveTimeout: solveTimeout,
	}
}

func (s *RunService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RunService", operation, attrs...)
}

// RunResult is a solved run together with its presentation rows.
type RunResult struct {
	Run  persistence.Run
	Rows []rows.ScheduledRow
}

// CreateRun schedules the table, persists the result, and returns it.
func (s *RunService) CreateRun(ctx context.Context, table []rows.Row, cfg engine.Config) (result RunResult, err error) {
	if s == nil {
		err = fmt.Errorf("RunService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateRun", "event_count", len(table))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create run", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"run_id", result.Run.ID,
			"instance_count", len(result.Run.Instances),
		).InfoContext(ctx, "run created")
	}()

	events, err := rows.Decode(table)
	if err != nil {
		return
	}

	solveCtx := ctx
	if s.solveTimeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, s.solveTimeout)
		defer cancel()
	}

	instances, err := engine.Schedule(solveCtx, events, cfg)
	if err != nil {
		return
	}

	run := persistence.Run{
		ID:                     s.idGenerator(),
		Strategy:               strategyLabel(cfg.Strategy),
		PenaltyWeight:          cfg.PenaltyWeight,
		WindowToleranceMinutes: cfg.WindowTolerance,
		CreatedAt:              s.now().UTC(),
	}
	run.DayStartMinutes, run.DayEndMinutes = dayBounds(cfg)
	for _, instance := range instances {
		run.Instances = append(run.Instances, persistence.RunInstance{
			EntityName:  instance.EntityName,
			Instance:    instance.Instance,
			TimeMinutes: instance.TimeMinutes,
		})
	}

	if s.runs != nil {
		if err = s.runs.SaveRun(ctx, run); err != nil {
			return
		}
	}

	result = RunResult{Run: run, Rows: rows.Join(table, instances)}
	return
}

// GetRun retrieves a persisted run by ID.
func (s *RunService) GetRun(ctx context.Context, id string) (run persistence.Run, err error) {
	logger := s.loggerWith(ctx, "GetRun", "run_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to get run", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	run, err = s.runs.GetRun(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		err = ErrNotFound
	}
	return
}

// ListRuns lists persisted runs, newest first.
func (s *RunService) ListRuns(ctx context.Context, filter persistence.RunFilter) (runs []persistence.Run, err error) {
	logger := s.loggerWith(ctx, "ListRuns")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list runs", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	return s.runs.ListRuns(ctx, filter)
}

// DeleteRun removes a persisted run by ID.
func (s *RunService) DeleteRun(ctx context.Context, id string) (err error) {
	logger := s.loggerWith(ctx, "DeleteRun", "run_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete run", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "run deleted")
	}()

	err = s.runs.DeleteRun(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		err = ErrNotFound
	}
	return
}

func strategyLabel(strategy engine.Strategy) string {
	if strategy == "" {
		return string(engine.StrategyEarliest)
	}
	return string(strategy)
}

func dayBounds(cfg engine.Config) (int, int) {
	dayStart := cfg.DayStart
	if dayStart == "" {
		dayStart = engine.DefaultDayStart
	}
	dayEnd := cfg.DayEnd
	if dayEnd == "" {
		dayEnd = engine.DefaultDayEnd
	}
	start, err := timeutil.ParseClock(dayStart)
	if err != nil {
		return 0, 0
	}
	end, err := timeutil.ParseClock(dayEnd)
	if err != nil {
		return start, 0
	}
	return start, end
}
