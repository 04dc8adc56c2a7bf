package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/daily-scheduler/internal/application"
	"github.com/example/daily-scheduler/internal/engine"
	"github.com/example/daily-scheduler/internal/persistence"
	"github.com/example/daily-scheduler/internal/rows"
)

// RunHandler serves the /runs resources.
type RunHandler struct {
	service   *application.RunService
	responder responder
}

// NewRunHandler wires the run service into HTTP handlers.
func NewRunHandler(service *application.RunService, logger *slog.Logger) *RunHandler {
	return &RunHandler{service: service, responder: newResponder(logger)}
}

type createRunRequest struct {
	Events []rows.Row      `json:"events"`
	Config json.RawMessage `json:"config"`
}

type runConfigPayload struct {
	Strategy        string   `json:"strategy"`
	DayStart        string   `json:"day_start"`
	DayEnd          string   `json:"day_end"`
	Windows         []string `json:"windows"`
	PenaltyWeight   *float64 `json:"penalty_weight"`
	WindowTolerance *float64 `json:"window_tolerance"`
	Debug           bool     `json:"debug"`
}

type runResponse struct {
	ID              string               `json:"id"`
	Strategy        string               `json:"strategy"`
	DayStartMinutes int                  `json:"day_start_minutes"`
	DayEndMinutes   int                  `json:"day_end_minutes"`
	CreatedAt       time.Time            `json:"created_at"`
	Events          []rows.ScheduledRow  `json:"events,omitempty"`
	Instances       []runInstancePayload `json:"instances,omitempty"`
}

type runInstancePayload struct {
	EntityName  string `json:"entity_name"`
	Instance    int    `json:"instance"`
	TimeMinutes int    `json:"time_minutes"`
}

// Create schedules a posted event table and persists the run.
func (h *RunHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var request createRunRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	cfg, err := decodeConfig(request.Config)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.service.CreateRun(ctx, request.Events, cfg)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusCreated, runResponse{
		ID:              result.Run.ID,
		Strategy:        result.Run.Strategy,
		DayStartMinutes: result.Run.DayStartMinutes,
		DayEndMinutes:   result.Run.DayEndMinutes,
		CreatedAt:       result.Run.CreatedAt,
		Events:          result.Rows,
	})
}

// List returns persisted runs, newest first.
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := persistence.RunFilter{}
	if limit := strings.TrimSpace(r.URL.Query().Get("limit")); limit != "" {
		parsed, err := parsePositiveInt(limit)
		if err != nil {
			h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
			return
		}
		filter.Limit = parsed
	}

	runs, err := h.service.ListRuns(ctx, filter)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}

	payload := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		payload = append(payload, toRunResponse(run))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, payload)
}

// Get returns one persisted run.
func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := RunIDFromContext(ctx)
	if id == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidRunID)
		return
	}

	run, err := h.service.GetRun(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, toRunResponse(run))
}

// Delete removes one persisted run.
func (h *RunHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := RunIDFromContext(ctx)
	if id == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidRunID)
		return
	}

	if err := h.service.DeleteRun(ctx, id); err != nil {
		h.writeServiceError(ctx, w, err)
		return
	}
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

// writeServiceError maps application and engine errors onto HTTP statuses.
func (h *RunHandler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		h.responder.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			Message: "リクエストの内容が正しくありません。",
			Tag:     "validation",
			Fields:  vErr.FieldErrors,
		})
		return
	}

	if errors.Is(err, application.ErrNotFound) {
		h.responder.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "指定された実行が見つかりません。", Tag: "not_found"})
		return
	}

	status := http.StatusInternalServerError
	switch engine.Tag(err) {
	case engine.TagParse, engine.TagSchema, engine.TagConfig:
		status = http.StatusBadRequest
	case engine.TagInfeasible:
		status = http.StatusUnprocessableEntity
	case engine.TagTimeout:
		status = http.StatusGatewayTimeout
	case engine.TagCancelled:
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.responder.writeError(ctx, w, status, nil)
		h.responder.loggerFor(ctx).ErrorContext(ctx, "run operation failed", "error", err, "error_kind", application.ErrorKind(err))
		return
	}

	h.responder.writeJSON(ctx, w, status, errorResponse{Message: err.Error(), Tag: engine.Tag(err)})
}

func decodeConfig(raw json.RawMessage) (engine.Config, error) {
	cfg := engine.DefaultConfig()
	if len(raw) == 0 {
		return cfg, nil
	}

	var payload runConfigPayload
	decoder := json.NewDecoder(strings.NewReader(string(raw)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		return engine.Config{}, err
	}

	if payload.Strategy != "" {
		cfg.Strategy = engine.Strategy(payload.Strategy)
	}
	if payload.DayStart != "" {
		cfg.DayStart = payload.DayStart
	}
	if payload.DayEnd != "" {
		cfg.DayEnd = payload.DayEnd
	}
	cfg.Windows = payload.Windows
	if payload.PenaltyWeight != nil {
		cfg.PenaltyWeight = *payload.PenaltyWeight
	}
	if payload.WindowTolerance != nil {
		cfg.WindowTolerance = *payload.WindowTolerance
	}
	cfg.Debug = payload.Debug
	return cfg, nil
}

func toRunResponse(run persistence.Run) runResponse {
	response := runResponse{
		ID:              run.ID,
		Strategy:        run.Strategy,
		DayStartMinutes: run.DayStartMinutes,
		DayEndMinutes:   run.DayEndMinutes,
		CreatedAt:       run.CreatedAt,
	}
	for _, instance := range run.Instances {
		response.Instances = append(response.Instances, runInstancePayload{
			EntityName:  instance.EntityName,
			Instance:    instance.Instance,
			TimeMinutes: instance.TimeMinutes,
		})
	}
	return response
}

func parsePositiveInt(value string) (int, error) {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0, errBadRequestBody
	}
	return parsed, nil
}
