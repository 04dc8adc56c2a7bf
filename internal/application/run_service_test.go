package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/daily-scheduler/internal/engine"
	"github.com/example/daily-scheduler/internal/persistence"
	"github.com/example/daily-scheduler/internal/rows"
)

type runRepoStub struct {
	saved   []persistence.Run
	run     persistence.Run
	err     error
	deleted []string
}

func (s *runRepoStub) SaveRun(ctx context.Context, run persistence.Run) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, run)
	return nil
}

func (s *runRepoStub) GetRun(ctx context.Context, id string) (persistence.Run, error) {
	if s.err != nil {
		return persistence.Run{}, s.err
	}
	if s.run.ID != id {
		return persistence.Run{}, persistence.ErrNotFound
	}
	return s.run, nil
}

func (s *runRepoStub) ListRuns(ctx context.Context, filter persistence.RunFilter) ([]persistence.Run, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.saved, nil
}

func (s *runRepoStub) DeleteRun(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	if s.run.ID != id {
		return persistence.ErrNotFound
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func fixedNow() time.Time {
	return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
}

func TestRunServiceCreateRun(t *testing.T) {
	t.Parallel()

	repo := &runRepoStub{}
	service := NewRunService(repo, func() string { return "run-1" }, fixedNow, 0)

	table := []rows.Row{{Event: "pill", Frequency: "2x daily", Constraints: []string{"≥8h apart"}}}
	result, err := service.CreateRun(context.Background(), table, engine.DefaultConfig())
	if err != nil {
		t.Fatalf("CreateRun returned error: %v", err)
	}

	if result.Run.ID != "run-1" {
		t.Errorf("run ID = %q, want \"run-1\"", result.Run.ID)
	}
	if result.Run.Strategy != "earliest" {
		t.Errorf("strategy = %q, want \"earliest\"", result.Run.Strategy)
	}
	if result.Run.DayStartMinutes != 480 || result.Run.DayEndMinutes != 1320 {
		t.Errorf("day bounds = %d..%d, want 480..1320", result.Run.DayStartMinutes, result.Run.DayEndMinutes)
	}
	if len(result.Run.Instances) != 2 {
		t.Fatalf("run has %d instances, want 2", len(result.Run.Instances))
	}
	if len(result.Rows) != 2 {
		t.Fatalf("result has %d rows, want 2", len(result.Rows))
	}
	if len(repo.saved) != 1 {
		t.Fatalf("repository saw %d saves, want 1", len(repo.saved))
	}
	if !repo.saved[0].CreatedAt.Equal(fixedNow()) {
		t.Errorf("CreatedAt = %v, want %v", repo.saved[0].CreatedAt, fixedNow())
	}
}

func TestRunServiceCreateRunEngineErrorSkipsPersistence(t *testing.T) {
	t.Parallel()

	repo := &runRepoStub{}
	service := NewRunService(repo, func() string { return "run-1" }, fixedNow, 0)

	table := []rows.Row{
		{Event: "a", Constraints: []string{"before b"}},
		{Event: "b", Constraints: []string{"before a"}},
	}
	_, err := service.CreateRun(context.Background(), table, engine.DefaultConfig())

	var infeasible *engine.InfeasibleError
	if !errors.As(err, &infeasible) {
		t.Fatalf("CreateRun = %v, want InfeasibleError", err)
	}
	if len(repo.saved) != 0 {
		t.Error("infeasible run must not be persisted")
	}
}

func TestRunServiceCreateRunPropagatesRepositoryError(t *testing.T) {
	t.Parallel()

	repo := &runRepoStub{err: persistence.ErrAlreadyExists}
	service := NewRunService(repo, func() string { return "run-1" }, fixedNow, 0)

	table := []rows.Row{{Event: "pill"}}
	_, err := service.CreateRun(context.Background(), table, engine.DefaultConfig())
	if !errors.Is(err, persistence.ErrAlreadyExists) {
		t.Fatalf("CreateRun = %v, want ErrAlreadyExists", err)
	}
}

func TestRunServiceGetRun(t *testing.T) {
	t.Parallel()

	repo := &runRepoStub{run: persistence.Run{ID: "run-1"}}
	service := NewRunService(repo, nil, fixedNow, 0)

	if _, err := service.GetRun(context.Background(), "run-1"); err != nil {
		t.Fatalf("GetRun returned error: %v", err)
	}
	if _, err := service.GetRun(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetRun missing = %v, want ErrNotFound", err)
	}
}

func TestRunServiceDeleteRun(t *testing.T) {
	t.Parallel()

	repo := &runRepoStub{run: persistence.Run{ID: "run-1"}}
	service := NewRunService(repo, nil, fixedNow, 0)

	if err := service.DeleteRun(context.Background(), "run-1"); err != nil {
		t.Fatalf("DeleteRun returned error: %v", err)
	}
	if err := service.DeleteRun(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteRun missing = %v, want ErrNotFound", err)
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"unauthorized", ErrUnauthorized, "unauthorized"},
		{"not found", ErrNotFound, "not_found"},
		{"validation", &ValidationError{FieldErrors: map[string]string{"Event": "required"}}, "validation"},
		{"engine parse", &engine.ParseError{Event: "pill", Input: "x"}, engine.TagParse},
		{"engine infeasible", &engine.InfeasibleError{}, engine.TagInfeasible},
		{"unexpected", errors.New("boom"), "unexpected"},
	}
	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Errorf("ErrorKind(%s) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestVerifyKey(t *testing.T) {
	t.Parallel()

	params := Argon2idParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	digest, err := CreateKeyDigest("main.s3cret", params)
	if err != nil {
		t.Fatalf("CreateKeyDigest returned error: %v", err)
	}

	if err := VerifyKey(digest, "main.s3cret"); err != nil {
		t.Errorf("VerifyKey with correct key = %v", err)
	}
	if err := VerifyKey(digest, "main.wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("VerifyKey with wrong secret = %v, want ErrUnauthorized", err)
	}
	if err := VerifyKey(digest, "other.s3cret"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("VerifyKey with wrong key ID = %v, want ErrUnauthorized", err)
	}
	if err := VerifyKey(digest, "s3cret"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("VerifyKey without a key ID = %v, want ErrUnauthorized", err)
	}
	if err := VerifyKey("not-a-digest", "main.s3cret"); !errors.Is(err, ErrInvalidKeyDigest) {
		t.Errorf("VerifyKey with malformed digest = %v, want ErrInvalidKeyDigest", err)
	}
}

func TestCreateKeyDigest(t *testing.T) {
	t.Parallel()

	params := Argon2idParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

	t.Run("records the key ID", func(t *testing.T) {
		t.Parallel()
		digest, err := CreateKeyDigest("main.s3cret", params)
		if err != nil {
			t.Fatalf("CreateKeyDigest returned error: %v", err)
		}
		id, err := KeyID(digest)
		if err != nil {
			t.Fatalf("KeyID returned error: %v", err)
		}
		if id != "main" {
			t.Errorf("KeyID = %q, want \"main\"", id)
		}
	})

	t.Run("rejects keys without an ID", func(t *testing.T) {
		t.Parallel()
		for _, key := range []string{"s3cret", ".s3cret", "main.", ""} {
			if _, err := CreateKeyDigest(key, params); err == nil {
				t.Errorf("CreateKeyDigest(%q) succeeded, want error", key)
			}
		}
	})
}
