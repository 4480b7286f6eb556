package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fhhwr/backend/internal/models"
)

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

func (r *NotificationRepo) Create(ctx context.Context, n *models.TaskNotification) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO task_notifications (id, task_id, customer_id, message)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, n.ID, n.TaskID, n.CustomerID, n.Message).Scan(&n.CreatedAt)
}

func (r *NotificationRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.TaskNotification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, task_id, customer_id, message, created_at
		FROM task_notifications WHERE customer_id = $1 ORDER BY created_at DESC
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.TaskNotification
	for rows.Next() {
		var n models.TaskNotification
		if err := rows.Scan(&n.ID, &n.TaskID, &n.CustomerID, &n.Message, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}
