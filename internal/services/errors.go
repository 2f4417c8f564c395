package services

import "errors"

// Domain errors. Every precondition in the task/submission/withdrawal/payment
// flows maps to one of these; handlers translate them to HTTP status codes.
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrWithdrawalNotFound = errors.New("withdrawal request not found")
	ErrSessionNotFound    = errors.New("payment session not found")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotOwner          = errors.New("not the owning buyer")

	ErrInvalidReward   = errors.New("reward per unit must be at least 1")
	ErrInvalidUnits    = errors.New("required units must be at least 1")
	ErrInvalidDeadline = errors.New("deadline must be in the future")
	ErrInvalidShrink   = errors.New("required units cannot drop below submission count")
	ErrInvalidStatus   = errors.New("illegal status transition")

	ErrTaskNotActive       = errors.New("task is not active")
	ErrNoSlots             = errors.New("no available slots")
	ErrDeadlinePassed      = errors.New("task deadline has passed")
	ErrDuplicateSubmission = errors.New("already submitted to this task")

	ErrAlreadyReviewed = errors.New("submission already reviewed")
	ErrInvalidDecision = errors.New("decision must be approved or rejected")

	ErrBelowMinimumWithdrawal      = errors.New("withdrawal below minimum")
	ErrAlreadyProcessed            = errors.New("withdrawal request already processed")
	ErrInsufficientFundsAtApproval = errors.New("worker balance too low at approval time")

	ErrSessionNotPaid    = errors.New("payment session not paid")
	ErrInvalidCoinAmount = errors.New("coin amount must be at least 1")
)
