package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/fhhwr/backend/internal/models"
)

// NotifyCustomerArgs is the river job enqueued, inside the same transaction
// as the state change it announces, whenever a task transition should surface
// to the customer.
type NotifyCustomerArgs struct {
	TaskID     uuid.UUID `json:"task_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Message    string    `json:"message"`
}

func (NotifyCustomerArgs) Kind() string { return "notify_customer" }

// NotificationStore persists delivered notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *models.TaskNotification) error
}

// NotifyCustomerWorker delivers customer notifications from the job queue.
type NotifyCustomerWorker struct {
	river.WorkerDefaults[NotifyCustomerArgs]
	store  NotificationStore
	logger *slog.Logger
}

func NewNotifyCustomerWorker(store NotificationStore, logger *slog.Logger) *NotifyCustomerWorker {
	return &NotifyCustomerWorker{store: store, logger: logger}
}

func (w *NotifyCustomerWorker) Work(ctx context.Context, job *river.Job[NotifyCustomerArgs]) error {
	args := job.Args
	n := &models.TaskNotification{
		ID:         uuid.New(),
		TaskID:     args.TaskID,
		CustomerID: args.CustomerID,
		Message:    args.Message,
	}
	if err := w.store.Create(ctx, n); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}
	w.logger.Info("customer notified", "task_id", args.TaskID, "customer_id", args.CustomerID)
	return nil
}
