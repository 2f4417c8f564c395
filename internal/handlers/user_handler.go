package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskmint/backend/internal/middleware"
	"github.com/taskmint/backend/internal/models"
	"github.com/taskmint/backend/internal/repository"
)

// AccountAdmin is the account repo surface the admin endpoints need.
type AccountAdmin interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	List(ctx context.Context) ([]*models.Account, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	UpdateRole(ctx context.Context, id uuid.UUID, role string) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByRole(ctx context.Context, role string) (int, error)
	TotalCirculatingCoins(ctx context.Context) (int, error)
}

// NotificationStore is the notification repo surface exposed over HTTP.
type NotificationStore interface {
	ListByAccount(ctx context.Context, accountID uuid.UUID, unreadOnly bool, limit int) ([]*models.Notification, error)
	UnreadCount(ctx context.Context, accountID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, accountID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, accountID uuid.UUID) error
}

// StatsSource aggregates the per-role dashboard numbers.
type StatsSource interface {
	CountTasksByBuyer(ctx context.Context, buyerID uuid.UUID) (total, active int, err error)
	CountSubmissionsByWorker(ctx context.Context, workerID uuid.UUID) (total, pending int, err error)
	TotalApprovedWithdrawalDollars(ctx context.Context) (float64, error)
}

type UserHandler struct {
	accounts      AccountAdmin
	notifications NotificationStore
	stats         StatsSource
	log           *slog.Logger
}

func NewUserHandler(accounts AccountAdmin, notifications NotificationStore, stats StatsSource, log *slog.Logger) *UserHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UserHandler{accounts: accounts, notifications: notifications, stats: stats, log: log}
}

// ListUsers handles GET /api/v1/admin/users.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.accounts.List(r.Context())
	if err != nil {
		h.log.Error("list users", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": list})
}

// DeleteUser handles DELETE /api/v1/admin/users/{id}. Admins cannot delete
// themselves.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if id == acc.ID {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}
	if err := h.accounts.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, repository.ErrAccountInUse):
			writeError(w, http.StatusConflict, "user still has tasks, submissions or transactions")
		default:
			h.log.Error("delete user", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "user deleted"})
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateRole handles PATCH /api/v1/admin/users/{id}/role.
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	switch req.Role {
	case models.RoleWorker, models.RoleBuyer, models.RoleAdmin:
	default:
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}
	if err := h.accounts.UpdateRole(r.Context(), id, req.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.log.Error("update role", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "role updated"})
}

type setActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// SetActive handles PATCH /api/v1/admin/users/{id}/active.
func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.accounts.SetActive(r.Context(), id, req.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.log.Error("set active", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "user updated"})
}

// Notifications handles GET /api/v1/notifications.
func (h *UserHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.notifications.ListByAccount(r.Context(), acc.ID, unreadOnly, limit)
	if err != nil {
		h.log.Error("list notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	unread, err := h.notifications.UnreadCount(r.Context(), acc.ID)
	if err != nil {
		h.log.Error("unread count", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": list, "unread_count": unread})
}

// MarkNotificationRead handles PATCH /api/v1/notifications/{id}/read.
func (h *UserHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := h.notifications.MarkRead(r.Context(), acc.ID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		h.log.Error("mark notification read", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "marked read"})
}

// MarkAllNotificationsRead handles PATCH /api/v1/notifications/read-all.
func (h *UserHandler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if err := h.notifications.MarkAllRead(r.Context(), acc.ID); err != nil {
		h.log.Error("mark all notifications read", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "all marked read"})
}

// Stats handles GET /api/v1/stats. The shape depends on the caller's role:
// admins get platform totals, buyers and workers get their own numbers.
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	ctx := r.Context()
	switch acc.Role {
	case models.RoleAdmin:
		stats, err := h.adminStats(ctx)
		if err != nil {
			h.log.Error("admin stats", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	case models.RoleBuyer:
		total, active, err := h.stats.CountTasksByBuyer(ctx, acc.ID)
		if err != nil {
			h.log.Error("buyer stats", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"balance":       acc.Balance,
			"created_tasks": acc.CreatedTasks,
			"total_spent":   acc.TotalSpent,
			"total_posted":  total,
			"active_tasks":  active,
		})
	default:
		total, pending, err := h.stats.CountSubmissionsByWorker(ctx, acc.ID)
		if err != nil {
			h.log.Error("worker stats", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"balance":             acc.Balance,
			"completed_tasks":     acc.CompletedTasks,
			"total_earnings":      acc.TotalEarnings,
			"total_submissions":   total,
			"pending_submissions": pending,
		})
	}
}

func (h *UserHandler) adminStats(ctx context.Context) (map[string]any, error) {
	workers, err := h.accounts.CountByRole(ctx, models.RoleWorker)
	if err != nil {
		return nil, err
	}
	buyers, err := h.accounts.CountByRole(ctx, models.RoleBuyer)
	if err != nil {
		return nil, err
	}
	coins, err := h.accounts.TotalCirculatingCoins(ctx)
	if err != nil {
		return nil, err
	}
	paidOut, err := h.stats.TotalApprovedWithdrawalDollars(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"total_workers":     workers,
		"total_buyers":      buyers,
		"circulating_coins": coins,
		"paid_out_dollars":  paidOut,
	}, nil
}
