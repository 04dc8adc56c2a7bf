package persistence

import (
	"context"
	"time"
)

// RunRepository stores and retrieves solved scheduling runs.
type RunRepository interface {
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	DeleteRun(ctx context.Context, id string) error
}

// RunFilter narrows ListRuns queries.
type RunFilter struct {
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Limit         int
}
