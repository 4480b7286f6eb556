package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fhhwr/backend/internal/models"
)

const workerColumns = "id, name, location, skills, hourly_rate, is_available, approved_by_admin, created_at, updated_at"

type WorkerRepo struct {
	pool *pgxpool.Pool
}

func NewWorkerRepo(pool *pgxpool.Pool) *WorkerRepo {
	return &WorkerRepo{pool: pool}
}

func scanWorker(row pgx.Row) (*models.Worker, error) {
	var w models.Worker
	err := row.Scan(&w.ID, &w.Name, &w.Location, &w.Skills, &w.HourlyRate, &w.IsAvailable, &w.ApprovedByAdmin, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WorkerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Worker, error) {
	return scanWorker(r.pool.QueryRow(ctx, `
		SELECT `+workerColumns+` FROM workers WHERE id = $1
	`, id))
}

// FindAvailable returns approved workers currently flagged available, ordered
// by id so candidate iteration is reproducible across calls.
func (r *WorkerRepo) FindAvailable(ctx context.Context) ([]*models.Worker, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+workerColumns+` FROM workers
		WHERE is_available = TRUE AND approved_by_admin = TRUE
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

func (r *WorkerRepo) List(ctx context.Context) ([]*models.Worker, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+workerColumns+` FROM workers ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}
