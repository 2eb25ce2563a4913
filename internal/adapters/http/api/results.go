package api

import (
	"context"
	"net/http"

	service "github.com/okian/peerscore/internal/app"
	"github.com/okian/peerscore/internal/domain/types"
)

// ResultsDependencies defines the interface for the results table.
type ResultsDependencies interface {
	Results(ctx context.Context, q service.ResultsQuery) ([]types.ResultsRow, error)
}

// ResultsHandler handles results requests.
type ResultsHandler struct {
	deps ResultsDependencies
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps ResultsDependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

// HandleGetResults handles
// GET /results?event_id=&name=&group=&sort=name|overall|anomalies|raters&desc=
// requests.
func (h *ResultsHandler) HandleGetResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_results"
	q := r.URL.Query()
	eventID, err := queryInt64(r, "event_id", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	desc, err := queryBool(r, "desc")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	rows, err := h.deps.Results(r.Context(), service.ResultsQuery{
		EventID: eventID,
		Name:    q.Get("name"),
		Group:   q.Get("group"),
		Sort:    q.Get("sort"),
		Desc:    desc,
	})
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
