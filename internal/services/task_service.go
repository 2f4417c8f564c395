package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskmint/backend/internal/ledger"
	"github.com/taskmint/backend/internal/models"
)

// TaskService owns task creation, edit and deletion: the operations that
// reserve, adjust and release the escrow a buyer pays up front.
type TaskService struct {
	pool     TxBeginner
	tasks    TaskStore
	accounts AccountStore
	ledger   Ledger
}

func NewTaskService(pool TxBeginner, tasks TaskStore, accounts AccountStore, l Ledger) *TaskService {
	return &TaskService{pool: pool, tasks: tasks, accounts: accounts, ledger: l}
}

type CreateTaskParams struct {
	Title          string
	Description    string
	SubmissionInfo string
	RewardPerUnit  int
	RequiredUnits  int
	Deadline       time.Time
}

// Create reserves the full task cost from the buyer before the task becomes
// visible. Nothing mutates when the buyer cannot cover the cost.
func (s *TaskService) Create(ctx context.Context, buyerID uuid.UUID, p CreateTaskParams) (*models.Task, error) {
	if p.RewardPerUnit < 1 {
		return nil, ErrInvalidReward
	}
	if p.RequiredUnits < 1 {
		return nil, ErrInvalidUnits
	}
	if !p.Deadline.After(time.Now()) {
		return nil, ErrInvalidDeadline
	}
	cost := p.RewardPerUnit * p.RequiredUnits

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	buyer, err := s.accounts.GetByIDForUpdate(ctx, tx, buyerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if buyer.Balance < cost {
		return nil, ErrInsufficientFunds
	}

	task := &models.Task{
		ID:             uuid.New(),
		BuyerID:        buyerID,
		Title:          p.Title,
		Description:    p.Description,
		SubmissionInfo: p.SubmissionInfo,
		RewardPerUnit:  p.RewardPerUnit,
		RequiredUnits:  p.RequiredUnits,
		AvailableUnits: p.RequiredUnits,
		Status:         models.TaskStatusActive,
		Deadline:       p.Deadline,
	}
	if err := s.tasks.CreateTx(ctx, tx, task); err != nil {
		return nil, err
	}

	if _, err := s.ledger.Record(ctx, tx, ledger.Entry{
		AccountID:   buyerID,
		Kind:        models.TxKindPayment,
		Amount:      -cost,
		Description: fmt.Sprintf("Escrow for task: %s", task.Title),
		TaskID:      &task.ID,
	}); err != nil {
		return nil, err
	}
	if err := s.accounts.IncrementBuyerStats(ctx, tx, buyerID, 1, cost); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return task, nil
}

// TaskPatch carries optional edits; nil fields are left unchanged.
type TaskPatch struct {
	Title          *string
	Description    *string
	SubmissionInfo *string
	RewardPerUnit  *int
	RequiredUnits  *int
	Deadline       *time.Time
	Status         *string
}

// Edit applies field changes and settles the cost delta against the buyer.
// Growing the task debits the difference up front; shrinking refunds it.
func (s *TaskService) Edit(ctx context.Context, taskID, buyerID uuid.UUID, p TaskPatch) (*models.Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	task, err := s.tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if task.BuyerID != buyerID {
		return nil, ErrNotOwner
	}

	newReward := task.RewardPerUnit
	if p.RewardPerUnit != nil {
		if *p.RewardPerUnit < 1 {
			return nil, ErrInvalidReward
		}
		newReward = *p.RewardPerUnit
	}
	newUnits := task.RequiredUnits
	if p.RequiredUnits != nil {
		if *p.RequiredUnits < 1 {
			return nil, ErrInvalidUnits
		}
		newUnits = *p.RequiredUnits
	}
	if newUnits < task.SubmissionCount {
		return nil, ErrInvalidShrink
	}

	delta := newReward*newUnits - task.Cost()
	if delta != 0 {
		buyer, err := s.accounts.GetByIDForUpdate(ctx, tx, buyerID)
		if err != nil {
			return nil, err
		}
		if delta > 0 && buyer.Balance < delta {
			return nil, ErrInsufficientFunds
		}
		kind := models.TxKindPayment
		if delta < 0 {
			kind = models.TxKindRefund
		}
		if _, err := s.ledger.Record(ctx, tx, ledger.Entry{
			AccountID:   buyerID,
			Kind:        kind,
			Amount:      -delta,
			Description: fmt.Sprintf("Cost adjustment for task: %s", task.Title),
			TaskID:      &task.ID,
		}); err != nil {
			return nil, err
		}
		if err := s.accounts.IncrementBuyerStats(ctx, tx, buyerID, 0, delta); err != nil {
			return nil, err
		}
	}

	if p.Title != nil {
		task.Title = *p.Title
	}
	if p.Description != nil {
		task.Description = *p.Description
	}
	if p.SubmissionInfo != nil {
		task.SubmissionInfo = *p.SubmissionInfo
	}
	if p.Deadline != nil {
		task.Deadline = *p.Deadline
	}
	if p.Status != nil && *p.Status != task.Status {
		if !models.ValidTaskTransition(task.Status, *p.Status) {
			return nil, ErrInvalidStatus
		}
		task.Status = *p.Status
	}
	task.RewardPerUnit = newReward
	task.RequiredUnits = newUnits
	// Rejected submissions already returned their slots; only live claims
	// reduce the pool.
	task.AvailableUnits = newUnits - (task.SubmissionCount - task.RejectedCount)

	if err := s.tasks.UpdateTx(ctx, tx, task); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes the task. The owning buyer is refunded for every unit that
// was never approved; an admin delete is a moderation removal and refunds
// nothing. Returns the refunded amount.
func (s *TaskService) Delete(ctx context.Context, taskID, requesterID uuid.UUID, asAdmin bool) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	task, err := s.tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrTaskNotFound
		}
		return 0, err
	}

	refund := 0
	if asAdmin {
		// Moderation removal: escrow for unclaimed units is forfeited.
	} else {
		if task.BuyerID != requesterID {
			return 0, ErrNotOwner
		}
		refund = task.RefundableAmount()
	}

	if err := s.tasks.DeleteTx(ctx, tx, taskID); err != nil {
		return 0, err
	}
	if refund > 0 {
		if _, err := s.ledger.Record(ctx, tx, ledger.Entry{
			AccountID:   task.BuyerID,
			Kind:        models.TxKindRefund,
			Amount:      refund,
			Description: fmt.Sprintf("Refund for deleted task: %s", task.Title),
			TaskID:      &task.ID,
		}); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return refund, nil
}
