package notify

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/fhhwr/backend/internal/models"
)

type memStore struct {
	notes []*models.TaskNotification
	err   error
}

func (s *memStore) Create(_ context.Context, n *models.TaskNotification) error {
	if s.err != nil {
		return s.err
	}
	s.notes = append(s.notes, n)
	return nil
}

func TestWorkPersistsNotification(t *testing.T) {
	store := &memStore{}
	w := NewNotifyCustomerWorker(store, slog.New(slog.DiscardHandler))

	args := NotifyCustomerArgs{
		TaskID:     uuid.New(),
		CustomerID: uuid.New(),
		Message:    `Worker alice has accepted the task "cleaning"`,
	}
	if err := w.Work(context.Background(), &river.Job[NotifyCustomerArgs]{Args: args}); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if len(store.notes) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(store.notes))
	}
	n := store.notes[0]
	if n.TaskID != args.TaskID || n.CustomerID != args.CustomerID || n.Message != args.Message {
		t.Fatal("notification fields must be copied from the job args")
	}
}

func TestWorkPropagatesStoreError(t *testing.T) {
	store := &memStore{err: fmt.Errorf("connection refused")}
	w := NewNotifyCustomerWorker(store, slog.New(slog.DiscardHandler))

	err := w.Work(context.Background(), &river.Job[NotifyCustomerArgs]{Args: NotifyCustomerArgs{}})
	if err == nil {
		t.Fatal("expected the store error to fail the job for retry")
	}
}
