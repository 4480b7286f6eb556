package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fhhwr/backend/internal/models"
	"github.com/fhhwr/backend/internal/notify"
)

// ErrConflict is returned when a transition is attempted on a task that is no
// longer in the required status, e.g. accepting a task a sibling already won.
var ErrConflict = errors.New("task status conflict")

// ErrInvalidRating is returned for ratings outside 0–5.
var ErrInvalidRating = errors.New("rating must be between 0 and 5")

// LifecycleTaskRepo is the task repository interface used by the lifecycle
// service. All mutation happens under a row lock within one transaction.
type LifecycleTaskRepo interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, t *models.Task) error
	VanishSiblingsTx(ctx context.Context, tx pgx.Tx, requestID, excludeID uuid.UUID) error
}

// LifecycleWorkerRepo resolves the accepting worker's profile.
type LifecycleWorkerRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Worker, error)
}

// InsertNotifyTxFunc enqueues a customer notification within the given
// transaction. Provided by main as a closure over river.Client.InsertTx.
type InsertNotifyTxFunc func(ctx context.Context, tx pgx.Tx, args notify.NotifyCustomerArgs) error

// Lifecycle drives the task acceptance state machine:
//
//	requested → in-progress → completed
//	requested → rejected
//
// and flips sibling requested rows of the same request group to vanished the
// moment one is accepted.
type Lifecycle struct {
	Pool         TxBeginner
	TaskRepo     LifecycleTaskRepo
	WorkerRepo   LifecycleWorkerRepo
	InsertNotify InsertNotifyTxFunc
	Logger       *slog.Logger
}

// NewLifecycle returns a new Lifecycle service.
func NewLifecycle(pool TxBeginner, taskRepo LifecycleTaskRepo, workerRepo LifecycleWorkerRepo, insertNotify InsertNotifyTxFunc, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{
		Pool:         pool,
		TaskRepo:     taskRepo,
		WorkerRepo:   workerRepo,
		InsertNotify: insertNotify,
		Logger:       logger,
	}
}

// totalCost is duration × rate computed in decimal, rounded to cents. Rate
// and window come from the task row itself, so the amount is stable however
// the worker's profile changes later.
func totalCost(t *models.Task, rate decimal.Decimal) decimal.Decimal {
	seconds := int64(t.EndTime.Sub(t.StartTime) / time.Second)
	return rate.Mul(decimal.NewFromInt(seconds)).Div(decimal.NewFromInt(3600)).Round(2)
}

// Accept transitions a requested task to in-progress for the given worker:
// binds the worker, freezes their current hourly rate, computes total cost,
// and vanishes every sibling of the request group. The row lock serializes
// concurrent sibling acceptances; the loser observes a non-requested status
// and gets ErrConflict.
func (s *Lifecycle) Accept(ctx context.Context, taskID, workerID uuid.UUID) (*models.Task, error) {
	worker, err := s.WorkerRepo.GetByID(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("get worker: %w", err)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin accept tx: %w", err)
	}
	defer tx.Rollback(ctx)

	task, err := s.TaskRepo.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task.Status != models.TaskStatusRequested {
		return nil, fmt.Errorf("%w: cannot accept task in status %q", ErrConflict, task.Status)
	}

	rate := worker.HourlyRate
	cost := totalCost(task, rate)
	task.WorkerID = &worker.ID
	task.HourlyRate = &rate
	task.TotalCost = &cost
	task.Status = models.TaskStatusInProgress
	if err := s.TaskRepo.UpdateTx(ctx, tx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	if task.RequestID != nil {
		if err := s.TaskRepo.VanishSiblingsTx(ctx, tx, *task.RequestID, task.ID); err != nil {
			return nil, fmt.Errorf("vanish siblings: %w", err)
		}
	}

	if err := s.InsertNotify(ctx, tx, notify.NotifyCustomerArgs{
		TaskID:     task.ID,
		CustomerID: task.CustomerID,
		Message:    fmt.Sprintf("Worker %s has accepted the task %q", worker.Name, task.Title),
	}); err != nil {
		return nil, fmt.Errorf("enqueue notification: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit accept tx: %w", err)
	}

	s.Logger.Info("task accepted", "task_id", task.ID, "worker_id", worker.ID, "total_cost", cost.String())
	return task, nil
}

// Complete transitions an in-progress task to completed. Only the worker the
// task is bound to may complete it.
func (s *Lifecycle) Complete(ctx context.Context, taskID, workerID uuid.UUID) (*models.Task, error) {
	return s.finish(ctx, taskID, workerID, models.TaskStatusInProgress, models.TaskStatusCompleted, "completed")
}

// Reject transitions a requested task to rejected. Only the worker the row
// was dispatched to may reject it.
func (s *Lifecycle) Reject(ctx context.Context, taskID, workerID uuid.UUID) (*models.Task, error) {
	return s.finish(ctx, taskID, workerID, models.TaskStatusRequested, models.TaskStatusRejected, "rejected")
}

func (s *Lifecycle) finish(ctx context.Context, taskID, workerID uuid.UUID, from, to, verb string) (*models.Task, error) {
	worker, err := s.WorkerRepo.GetByID(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("get worker: %w", err)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	task, err := s.TaskRepo.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task.Status != from {
		return nil, fmt.Errorf("%w: cannot move task from %q to %q", ErrConflict, task.Status, to)
	}
	if task.WorkerID == nil || *task.WorkerID != worker.ID {
		return nil, fmt.Errorf("%w: task is not assigned to worker %s", ErrConflict, worker.ID)
	}

	task.Status = to
	if err := s.TaskRepo.UpdateTx(ctx, tx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	if err := s.InsertNotify(ctx, tx, notify.NotifyCustomerArgs{
		TaskID:     task.ID,
		CustomerID: task.CustomerID,
		Message:    fmt.Sprintf("Worker %s has %s the task %q", worker.Name, verb, task.Title),
	}); err != nil {
		return nil, fmt.Errorf("enqueue notification: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.Logger.Info("task "+verb, "task_id", task.ID, "worker_id", worker.ID)
	return task, nil
}

// Rate records the customer's rating and review on a completed task.
func (s *Lifecycle) Rate(ctx context.Context, taskID uuid.UUID, rating int, review string) (*models.Task, error) {
	if rating < 0 || rating > 5 {
		return nil, ErrInvalidRating
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin rate tx: %w", err)
	}
	defer tx.Rollback(ctx)

	task, err := s.TaskRepo.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task.Status != models.TaskStatusCompleted {
		return nil, fmt.Errorf("%w: cannot rate task in status %q", ErrConflict, task.Status)
	}

	task.Rating = &rating
	task.Review = review
	if err := s.TaskRepo.UpdateTx(ctx, tx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit rate tx: %w", err)
	}
	return task, nil
}
