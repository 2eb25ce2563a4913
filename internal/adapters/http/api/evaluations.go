package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	service "github.com/okian/peerscore/internal/app"
	"github.com/okian/peerscore/internal/domain/model"
	"github.com/okian/peerscore/internal/domain/scoring"
)

// maxBodyBytes bounds request bodies; the largest valid submission is far
// below it.
const maxBodyBytes = 1 << 20

// EvaluationDependencies defines the interface for evaluation writes.
type EvaluationDependencies interface {
	Submit(ctx context.Context, sub service.Submission) (service.SubmitResult, error)
	PatchComment(ctx context.Context, evaluationID int64, comment string) error
	DeleteEvaluation(ctx context.Context, evaluationID int64) error
	DeleteRaterTarget(ctx context.Context, raterID int64, target model.TargetRef) (int, error)
}

// EvaluationsHandler handles evaluation requests.
type EvaluationsHandler struct {
	deps EvaluationDependencies
}

// NewEvaluationsHandler creates a new evaluations handler.
func NewEvaluationsHandler(deps EvaluationDependencies) *EvaluationsHandler {
	return &EvaluationsHandler{deps: deps}
}

// evaluationRequest is the body of POST /evaluations. Exactly one of
// TargetID and TargetName addresses the target.
type evaluationRequest struct {
	TargetID   int64           `json:"target_id"`
	TargetName string          `json:"target_name"`
	EventID    int64           `json:"event_id"`
	Comment    string          `json:"comment"`
	Scores     []scoring.Input `json:"scores"`
}

type commentRequest struct {
	Comment *string `json:"comment"`
}

type deletedResponse struct {
	Deleted int `json:"deleted"`
}

// HandlePostEvaluation handles POST /evaluations requests. The rater is taken
// from the X-Rater-ID header set by the authenticating proxy.
func (h *EvaluationsHandler) HandlePostEvaluation(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_evaluation"
	rater, err := raterID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req evaluationRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	res, err := h.deps.Submit(r.Context(), service.Submission{
		RaterID: rater,
		Target:  model.TargetRef{ID: req.TargetID, Name: req.TargetName},
		EventID: req.EventID,
		Comment: req.Comment,
		Scores:  req.Scores,
	})
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	status := http.StatusCreated
	if res.Updated {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

// HandlePatchEvaluation handles PATCH /evaluations/{id} requests.
func (h *EvaluationsHandler) HandlePatchEvaluation(w http.ResponseWriter, r *http.Request) {
	const op = "api.patch_evaluation"
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req commentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.Comment == nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: comment is required", ErrBadRequest))
		return
	}
	if err := h.deps.PatchComment(r.Context(), id, *req.Comment); err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteEvaluation handles DELETE /evaluations/{id} requests.
func (h *EvaluationsHandler) HandleDeleteEvaluation(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_evaluation"
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.deps.DeleteEvaluation(r.Context(), id); err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteRaterTarget handles
// DELETE /evaluations?rater_id=N&(target_id=M|target_name=...) requests,
// removing every evaluation the rater made of the target.
func (h *EvaluationsHandler) HandleDeleteRaterTarget(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_rater_target"
	rater, err := queryInt64(r, "rater_id", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	target, err := queryInt64(r, "target_id", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	ref := model.TargetRef{ID: target, Name: strings.TrimSpace(r.URL.Query().Get("target_name"))}
	n, err := h.deps.DeleteRaterTarget(r.Context(), rater, ref)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Deleted: n})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
