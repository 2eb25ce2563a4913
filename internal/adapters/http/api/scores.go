package api

import (
	"context"
	"fmt"
	"net/http"

	service "github.com/okian/peerscore/internal/app"
	"github.com/okian/peerscore/internal/domain/model"
	"github.com/okian/peerscore/internal/domain/types"
)

// ScoreDependencies defines the interface for the score listing and
// corrections.
type ScoreDependencies interface {
	ScoreFlags(ctx context.Context, q service.ScoreFlagQuery) ([]types.ScoreFlag, error)
	PatchScore(ctx context.Context, scoreID int64, value int) (model.Score, error)
	DeleteScore(ctx context.Context, scoreID int64) error
}

// ScoresHandler handles score requests.
type ScoresHandler struct {
	deps ScoreDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoreDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

type scoreRequest struct {
	Score *int `json:"score"`
}

// HandleGetScores handles
// GET /scores?target_id=&rater_id=&criterion_id=&event_id=&anomaly_only=&limit=&offset=
// requests.
func (h *ScoresHandler) HandleGetScores(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_scores"
	var (
		q   service.ScoreFlagQuery
		err error
	)
	ints := []struct {
		name string
		dst  *int64
	}{
		{"target_id", &q.TargetID},
		{"rater_id", &q.RaterID},
		{"criterion_id", &q.CriterionID},
	}
	for _, p := range ints {
		if *p.dst, err = queryInt64(r, p.name, 0); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
	}
	if r.URL.Query().Has("event_id") {
		eventID, err := queryInt64(r, "event_id", 0)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		q.EventID = &eventID
	}
	limit, err := queryInt64(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	offset, err := queryInt64(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	q.Limit, q.Offset = int(limit), int(offset)
	if q.AnomalyOnly, err = queryBool(r, "anomaly_only"); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	flags, err := h.deps.ScoreFlags(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, flags)
}

// HandlePatchScore handles PATCH /scores/{id} requests.
func (h *ScoresHandler) HandlePatchScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.patch_score"
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req scoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.Score == nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: score is required", ErrBadRequest))
		return
	}
	sc, err := h.deps.PatchScore(r.Context(), id, *req.Score)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// HandleDeleteScore handles DELETE /scores/{id} requests.
func (h *ScoresHandler) HandleDeleteScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_score"
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.deps.DeleteScore(r.Context(), id); err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
