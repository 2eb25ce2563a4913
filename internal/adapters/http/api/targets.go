package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/peerscore/internal/domain/stats"
	"github.com/okian/peerscore/internal/domain/types"
)

// TargetDependencies defines the interface for per-target reads.
type TargetDependencies interface {
	TargetEvaluations(ctx context.Context, targetID int64) ([]types.TargetEvaluation, error)
	StatsFor(ctx context.Context, targetID int64, includeInactive bool) (map[int64]stats.Stat, error)
}

// TargetsHandler handles per-target requests.
type TargetsHandler struct {
	deps TargetDependencies
}

// NewTargetsHandler creates a new targets handler.
func NewTargetsHandler(deps TargetDependencies) *TargetsHandler {
	return &TargetsHandler{deps: deps}
}

// HandleGetEvaluations handles GET /targets/{id}/evaluations requests.
func (h *TargetsHandler) HandleGetEvaluations(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_target_evaluations"
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	evals, err := h.deps.TargetEvaluations(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, evals)
}

// HandleGetStats handles GET /targets/{id}/stats?include_inactive= requests.
// The response is keyed by criterion id.
func (h *TargetsHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_target_stats"
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	inactive, err := queryBool(r, "include_inactive")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	st, err := h.deps.StatsFor(r.Context(), id, inactive)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	out := make(map[string]stats.Stat, len(st))
	for cid, s := range st {
		out[strconv.FormatInt(cid, 10)] = s
	}
	writeJSON(w, http.StatusOK, out)
}
