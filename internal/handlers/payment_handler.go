package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/taskmint/backend/internal/middleware"
	"github.com/taskmint/backend/internal/models"
)

// PaymentSettler is the payment service surface: checkout recording plus the
// single idempotent settle operation both triggers share.
type PaymentSettler interface {
	CreateCheckout(ctx context.Context, buyerID uuid.UUID, sessionID string, coins, priceCents int) (*models.PaymentSession, error)
	Reconcile(ctx context.Context, sessionID string, buyerID uuid.UUID, coins int) (*models.Transaction, bool, error)
	Verify(ctx context.Context, sessionID string) (*models.Transaction, bool, error)
}

// TransactionLister lists an account's ledger entries.
type TransactionLister interface {
	ListByAccount(ctx context.Context, accountID uuid.UUID, kind string, limit int) ([]*models.Transaction, error)
}

type PaymentHandler struct {
	svc           PaymentSettler
	transactions  TransactionLister
	webhookSecret string
	log           *slog.Logger
}

func NewPaymentHandler(svc PaymentSettler, transactions TransactionLister, webhookSecret string, log *slog.Logger) *PaymentHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PaymentHandler{svc: svc, transactions: transactions, webhookSecret: webhookSecret, log: log}
}

type checkoutRequest struct {
	SessionID  string `json:"session_id"`
	Coins      int    `json:"coins"`
	PriceCents int    `json:"price_cents"`
}

// Checkout handles POST /api/v1/payments/checkout (buyer only). It records
// the provider-issued session so the poll path can resolve it later.
func (h *PaymentHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.SessionID == "" || req.Coins < 1 {
		writeError(w, http.StatusBadRequest, "session_id and a positive coin amount are required")
		return
	}
	session, err := h.svc.CreateCheckout(r.Context(), acc.ID, req.SessionID, req.Coins, req.PriceCents)
	if err != nil {
		h.log.Error("create checkout", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"session": session})
}

type webhookEvent struct {
	Type    string `json:"type"`
	Session struct {
		ID       string `json:"id"`
		Metadata struct {
			BuyerID string `json:"buyer_id"`
			Coins   int    `json:"coins"`
		} `json:"metadata"`
	} `json:"session"`
}

// Webhook handles POST /api/webhooks/payments, the provider push trigger.
// Deliveries must carry a valid HMAC signature over the raw body; settlement
// is idempotent, so provider retries and a racing client poll are both safe.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if !validSignature(h.webhookSecret, body, r.Header.Get("X-Webhook-Signature")) {
		writeError(w, http.StatusUnauthorized, "invalid webhook signature")
		return
	}
	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if event.Type != "checkout.session.completed" {
		writeJSON(w, http.StatusOK, map[string]any{"received": true})
		return
	}
	buyerID, err := uuid.Parse(event.Session.Metadata.BuyerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid buyer id in session metadata")
		return
	}
	txn, already, err := h.svc.Reconcile(r.Context(), event.Session.ID, buyerID, event.Session.Metadata.Coins)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.log.Error("reconcile payment", "session_id", event.Session.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"received": true, "already_delivered": already, "transaction": txn})
}

// validSignature checks the HMAC-SHA256 hex digest the provider sends with
// each webhook delivery.
func validSignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(signature))
}

// Verify handles POST /api/v1/payments/verify/{sessionID} — the client-poll
// fallback when the webhook is delayed.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}
	txn, already, err := h.svc.Verify(r.Context(), sessionID)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.log.Error("verify payment", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"already_delivered": already, "transaction": txn})
}

// Transactions handles GET /api/v1/transactions — the caller's own ledger.
func (h *PaymentHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.transactions.ListByAccount(r.Context(), acc.ID, r.URL.Query().Get("kind"), limit)
	if err != nil {
		h.log.Error("list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": list})
}
