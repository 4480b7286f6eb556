package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fhhwr/backend/internal/models"
)

const taskColumns = "id, request_id, customer_id, worker_id, title, description, start_time, end_time, location, status, rating, review, hourly_rate, total_cost, created_at, updated_at"

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.RequestID, &t.CustomerID, &t.WorkerID, &t.Title, &t.Description, &t.StartTime, &t.EndTime, &t.Location, &t.Status, &t.Rating, &t.Review, &t.HourlyRate, &t.TotalCost, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTasks(rows pgx.Rows) ([]*models.Task, error) {
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// CreateTx inserts the task within the given transaction. The dispatcher
// relies on this so that all sibling rows of a request group commit together.
func (r *TaskRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.Task) error {
	return tx.QueryRow(ctx, `
		INSERT INTO tasks (id, request_id, customer_id, worker_id, title, description, start_time, end_time, location, status, rating, review, hourly_rate, total_cost)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`, t.ID, t.RequestID, t.CustomerID, t.WorkerID, t.Title, t.Description, t.StartTime, t.EndTime, t.Location, t.Status, t.Rating, t.Review, t.HourlyRate, t.TotalCost).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1
	`, id))
}

// GetByIDForUpdate locks the task row for the duration of the transaction.
// Acceptance uses it to serialize sibling transitions per request group.
func (r *TaskRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error) {
	return scanTask(tx.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE
	`, id))
}

func (r *TaskRepo) UpdateTx(ctx context.Context, tx pgx.Tx, t *models.Task) error {
	_, err := tx.Exec(ctx, `
		UPDATE tasks SET request_id = $2, customer_id = $3, worker_id = $4, title = $5, description = $6, start_time = $7, end_time = $8, location = $9, status = $10, rating = $11, review = $12, hourly_rate = $13, total_cost = $14, updated_at = now()
		WHERE id = $1
	`, t.ID, t.RequestID, t.CustomerID, t.WorkerID, t.Title, t.Description, t.StartTime, t.EndTime, t.Location, t.Status, t.Rating, t.Review, t.HourlyRate, t.TotalCost)
	return err
}

// FindConflicting returns in-progress tasks of the given workers whose window
// overlaps [start, end). Windows are half-open: rows touching at an endpoint
// do not overlap.
func (r *TaskRepo) FindConflicting(ctx context.Context, workerIDs []uuid.UUID, start, end time.Time) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE worker_id = ANY($1) AND status = $2 AND start_time < $3 AND end_time > $4
	`, workerIDs, models.TaskStatusInProgress, end, start)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (r *TaskRepo) CompletedByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE worker_id = $1 AND status = $2 ORDER BY created_at DESC
	`, workerID, models.TaskStatusCompleted)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

// VanishSiblingsTx marks every still-requested sibling of the request group as
// vanished, excluding the accepted task itself.
func (r *TaskRepo) VanishSiblingsTx(ctx context.Context, tx pgx.Tx, requestID, excludeID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE tasks SET status = $3, updated_at = now()
		WHERE request_id = $1 AND id <> $2 AND status = $4
	`, requestID, excludeID, models.TaskStatusVanished, models.TaskStatusRequested)
	return err
}

func (r *TaskRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE customer_id = $1 ORDER BY created_at DESC
	`, customerID)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (r *TaskRepo) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE worker_id = $1 ORDER BY created_at DESC
	`, workerID)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}
