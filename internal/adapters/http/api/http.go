// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/peerscore/internal/app"
	"github.com/okian/peerscore/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	EvaluationDependencies
	ResultsDependencies
	TargetDependencies
	ScoreDependencies
	CriteriaDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	evaluationsHandler *EvaluationsHandler
	resultsHandler     *ResultsHandler
	targetsHandler     *TargetsHandler
	scoresHandler      *ScoresHandler
	criteriaHandler    *CriteriaHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		evaluationsHandler: NewEvaluationsHandler(deps),
		resultsHandler:     NewResultsHandler(deps),
		targetsHandler:     NewTargetsHandler(deps),
		scoresHandler:      NewScoresHandler(deps),
		criteriaHandler:    NewCriteriaHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.Handle(pattern, RequestIDMiddleware(MetricsMiddleware(h, endpoint)))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	route("GET /stats", "stats", s.statsHandler.HandleStats)

	route("POST /evaluations", "evaluations", s.evaluationsHandler.HandlePostEvaluation)
	route("DELETE /evaluations", "evaluations", s.evaluationsHandler.HandleDeleteRaterTarget)
	route("PATCH /evaluations/{id}", "evaluation", s.evaluationsHandler.HandlePatchEvaluation)
	route("DELETE /evaluations/{id}", "evaluation", s.evaluationsHandler.HandleDeleteEvaluation)

	route("GET /results", "results", s.resultsHandler.HandleGetResults)
	route("GET /criteria", "criteria", s.criteriaHandler.HandleGetCriteria)

	route("GET /targets/{id}/evaluations", "target_evaluations", s.targetsHandler.HandleGetEvaluations)
	route("GET /targets/{id}/stats", "target_stats", s.targetsHandler.HandleGetStats)

	route("GET /scores", "scores", s.scoresHandler.HandleGetScores)
	route("PATCH /scores/{id}", "score", s.scoresHandler.HandlePatchScore)
	route("DELETE /scores/{id}", "score", s.scoresHandler.HandleDeleteScore)
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg, RequestID: w.Header().Get(requestIDHeader)})
}

// writeServiceError maps the service error kinds to HTTP statuses. Errors of
// no known kind are logged and reported as 500 without their details.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch service.Kind(err) {
	case service.ErrValidation:
		writeError(w, http.StatusBadRequest, "validation_failed", err)
	case service.ErrPrecondition:
		writeError(w, http.StatusPreconditionFailed, "precondition_failed", err)
	case service.ErrNotFound:
		writeError(w, http.StatusNotFound, "not_found", err)
	default:
		logger.Get().Named("api").Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("requestId", requestID(r.Context())),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", errors.New("internal error"))
	}
}
