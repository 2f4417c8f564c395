package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/taskmint/backend/internal/middleware"
	"github.com/taskmint/backend/internal/models"
	"github.com/taskmint/backend/internal/repository"
	"github.com/taskmint/backend/internal/services"
)

// TaskWriter is the mutation surface of the task service.
type TaskWriter interface {
	Create(ctx context.Context, buyerID uuid.UUID, p services.CreateTaskParams) (*models.Task, error)
	Edit(ctx context.Context, taskID, buyerID uuid.UUID, p services.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, taskID, requesterID uuid.UUID, asAdmin bool) (int, error)
}

// TaskReader is the query surface the handler needs.
type TaskReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, f repository.ListFilter) ([]*models.Task, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*models.Task, error)
}

type TaskHandler struct {
	svc    TaskWriter
	reader TaskReader
	log    *slog.Logger
}

func NewTaskHandler(svc TaskWriter, reader TaskReader, log *slog.Logger) *TaskHandler {
	if log == nil {
		log = slog.Default()
	}
	return &TaskHandler{svc: svc, reader: reader, log: log}
}

type createTaskRequest struct {
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	SubmissionInfo string    `json:"submission_info"`
	RewardPerUnit  int       `json:"reward_per_unit"`
	RequiredUnits  int       `json:"required_units"`
	Deadline       time.Time `json:"deadline"`
}

// Create handles POST /api/v1/tasks (buyer only).
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	task, err := h.svc.Create(r.Context(), acc.ID, services.CreateTaskParams{
		Title:          req.Title,
		Description:    req.Description,
		SubmissionInfo: req.SubmissionInfo,
		RewardPerUnit:  req.RewardPerUnit,
		RequiredUnits:  req.RequiredUnits,
		Deadline:       req.Deadline,
	})
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.log.Error("create task", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"task": task})
}

// List handles GET /api/v1/tasks. Workers only see claimable tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	f := repository.ListFilter{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
	}
	if acc.Role == models.RoleWorker {
		f.WorkerView = true
	}
	tasks, err := h.reader.List(r.Context(), f)
	if err != nil {
		h.log.Error("list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// MyTasks handles GET /api/v1/tasks/mine (buyer only).
func (h *TaskHandler) MyTasks(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	tasks, err := h.reader.ListByBuyer(r.Context(), acc.ID)
	if err != nil {
		h.log.Error("list buyer tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// Get handles GET /api/v1/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	task, err := h.reader.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": task})
}

type editTaskRequest struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	SubmissionInfo *string    `json:"submission_info"`
	RewardPerUnit  *int       `json:"reward_per_unit"`
	RequiredUnits  *int       `json:"required_units"`
	Deadline       *time.Time `json:"deadline"`
	Status         *string    `json:"status"`
}

// Update handles PATCH /api/v1/tasks/{id} (owning buyer only).
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	var req editTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	task, err := h.svc.Edit(r.Context(), id, acc.ID, services.TaskPatch{
		Title:          req.Title,
		Description:    req.Description,
		SubmissionInfo: req.SubmissionInfo,
		RewardPerUnit:  req.RewardPerUnit,
		RequiredUnits:  req.RequiredUnits,
		Deadline:       req.Deadline,
		Status:         req.Status,
	})
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.log.Error("edit task", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": task})
}

// Delete handles DELETE /api/v1/tasks/{id}. Buyers delete their own tasks and
// are refunded for unclaimed units; admins delete any task without refund.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	refund, err := h.svc.Delete(r.Context(), id, acc.ID, acc.Role == models.RoleAdmin)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.log.Error("delete task", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "task deleted", "refund": refund})
}
