package api

import (
	"context"
	"net/http"

	"github.com/okian/peerscore/internal/domain/model"
)

// CriteriaDependencies defines the interface for criteria listings.
type CriteriaDependencies interface {
	Criteria(ctx context.Context, eventID int64, activeOnly bool) ([]model.Criterion, error)
}

// CriteriaHandler handles criteria requests.
type CriteriaHandler struct {
	deps CriteriaDependencies
}

// NewCriteriaHandler creates a new criteria handler.
func NewCriteriaHandler(deps CriteriaDependencies) *CriteriaHandler {
	return &CriteriaHandler{deps: deps}
}

// HandleGetCriteria handles GET /criteria?event_id=&all= requests. Only
// active criteria are listed unless all is set.
func (h *CriteriaHandler) HandleGetCriteria(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_criteria"
	eventID, err := queryInt64(r, "event_id", model.GlobalEvent)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	all, err := queryBool(r, "all")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	criteria, err := h.deps.Criteria(r.Context(), eventID, !all)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, criteria)
}
