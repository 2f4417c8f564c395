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

// WithdrawalWriter is the mutation surface of the withdrawal service.
type WithdrawalWriter interface {
	Request(ctx context.Context, workerID uuid.UUID, coins int, paymentSystem, accountNumber string) (*models.WithdrawalRequest, error)
	Approve(ctx context.Context, requestID uuid.UUID) (*models.WithdrawalRequest, error)
	Reject(ctx context.Context, requestID uuid.UUID) (*models.WithdrawalRequest, error)
}

// WithdrawalReader lists withdrawal requests.
type WithdrawalReader interface {
	ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.WithdrawalRequest, error)
	List(ctx context.Context, status string) ([]*models.WithdrawalRequest, error)
}

type WithdrawalHandler struct {
	svc    WithdrawalWriter
	reader WithdrawalReader
	log    *slog.Logger
}

func NewWithdrawalHandler(svc WithdrawalWriter, reader WithdrawalReader, log *slog.Logger) *WithdrawalHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WithdrawalHandler{svc: svc, reader: reader, log: log}
}

type withdrawalRequestBody struct {
	CoinAmount    int    `json:"coin_amount"`
	PaymentSystem string `json:"payment_system"`
	AccountNumber string `json:"account_number"`
}

// Create handles POST /api/v1/withdrawals (worker only).
func (h *WithdrawalHandler) Create(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	var req withdrawalRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.PaymentSystem == "" || req.AccountNumber == "" {
		writeError(w, http.StatusBadRequest, "payment_system and account_number are required")
		return
	}
	wr, err := h.svc.Request(r.Context(), acc.ID, req.CoinAmount, req.PaymentSystem, req.AccountNumber)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.log.Error("create withdrawal", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"withdrawal": wr})
}

// Mine handles GET /api/v1/withdrawals/mine (worker only).
func (h *WithdrawalHandler) Mine(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	list, err := h.reader.ListByWorker(r.Context(), acc.ID)
	if err != nil {
		h.log.Error("list worker withdrawals", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"withdrawals": list})
}

// List handles GET /api/v1/withdrawals (admin only).
func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.reader.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.log.Error("list withdrawals", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"withdrawals": list})
}

// Approve handles PATCH /api/v1/withdrawals/{id}/approve (admin only).
func (h *WithdrawalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid withdrawal id")
		return
	}
	wr, err := h.svc.Approve(r.Context(), id)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.log.Error("approve withdrawal", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"withdrawal": wr})
}

// Reject handles PATCH /api/v1/withdrawals/{id}/reject (admin only).
func (h *WithdrawalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid withdrawal id")
		return
	}
	wr, err := h.svc.Reject(r.Context(), id)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.log.Error("reject withdrawal", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"withdrawal": wr})
}
