package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskmint/backend/internal/middleware"
	"github.com/taskmint/backend/internal/models"
)

// SubmissionWriter is the mutation surface of the submission service.
type SubmissionWriter interface {
	Submit(ctx context.Context, workerID, taskID uuid.UUID, details string, attachments []string) (*models.Submission, error)
	Review(ctx context.Context, submissionID, reviewerID uuid.UUID, decision, note string) (*models.Submission, error)
}

// SubmissionReader lists submissions per role.
type SubmissionReader interface {
	ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.Submission, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]*models.Submission, error)
}

type SubmissionHandler struct {
	svc    SubmissionWriter
	reader SubmissionReader
	log    *slog.Logger
}

func NewSubmissionHandler(svc SubmissionWriter, reader SubmissionReader, log *slog.Logger) *SubmissionHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SubmissionHandler{svc: svc, reader: reader, log: log}
}

type submitRequest struct {
	TaskID      string   `json:"task_id"`
	Details     string   `json:"details"`
	Attachments []string `json:"attachments"`
}

// Submit handles POST /api/v1/submissions (worker only).
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task_id")
		return
	}
	if req.Details == "" {
		writeError(w, http.StatusBadRequest, "details are required")
		return
	}
	sub, err := h.svc.Submit(r.Context(), acc.ID, taskID, req.Details, req.Attachments)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.log.Error("submit task", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"submission": sub})
}

// List handles GET /api/v1/submissions. Workers see their own submissions,
// buyers see submissions against their tasks.
func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	var (
		subs []*models.Submission
		err  error
	)
	switch acc.Role {
	case models.RoleWorker:
		subs, err = h.reader.ListByWorker(r.Context(), acc.ID)
	case models.RoleBuyer:
		subs, err = h.reader.ListForBuyer(r.Context(), acc.ID)
	default:
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if err != nil {
		h.log.Error("list submissions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": subs})
}

type reviewRequest struct {
	Decision string `json:"decision"`
	Note     string `json:"note"`
}

// Review handles PATCH /api/v1/submissions/{id}/review (owning buyer only).
func (h *SubmissionHandler) Review(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid submission id")
		return
	}
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	sub, err := h.svc.Review(r.Context(), id, acc.ID, req.Decision, req.Note)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.log.Error("review submission", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submission": sub})
}
