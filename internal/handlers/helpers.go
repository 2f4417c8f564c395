package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/taskmint/backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a known domain error to its HTTP status. Returns
// false for unknown errors so the caller can log and respond 500.
func writeDomainError(w http.ResponseWriter, err error) bool {
	var status int
	switch {
	case errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrSubmissionNotFound),
		errors.Is(err, services.ErrWithdrawalNotFound),
		errors.Is(err, services.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrSessionNotPaid):
		status = http.StatusPaymentRequired
	case errors.Is(err, services.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrDuplicateSubmission),
		errors.Is(err, services.ErrAlreadyReviewed),
		errors.Is(err, services.ErrAlreadyProcessed),
		errors.Is(err, services.ErrNoSlots),
		errors.Is(err, services.ErrInsufficientFundsAtApproval):
		status = http.StatusConflict
	case errors.Is(err, services.ErrInvalidReward),
		errors.Is(err, services.ErrInvalidUnits),
		errors.Is(err, services.ErrInvalidDeadline),
		errors.Is(err, services.ErrInvalidShrink),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrTaskNotActive),
		errors.Is(err, services.ErrDeadlinePassed),
		errors.Is(err, services.ErrInvalidDecision),
		errors.Is(err, services.ErrBelowMinimumWithdrawal),
		errors.Is(err, services.ErrInvalidCoinAmount):
		status = http.StatusBadRequest
	default:
		return false
	}
	writeError(w, status, err.Error())
	return true
}
