package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/fhhwr/backend/internal/models"
	"github.com/fhhwr/backend/internal/notify"
)

// ---------------------------------------------------------------------------
// noopTx satisfies pgx.Tx for test use; only Commit/Rollback are called.
// ---------------------------------------------------------------------------

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

type mockPool struct{}

func (mockPool) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

// ---------------------------------------------------------------------------
// lockingPool serializes whole transactions with a mutex, mirroring the row
// lock the real store takes. Needed for the concurrent acceptance test.
// ---------------------------------------------------------------------------

type lockingTx struct {
	noopTx
	mu   *sync.Mutex
	done bool
}

func (t *lockingTx) Commit(context.Context) error   { t.release(); return nil }
func (t *lockingTx) Rollback(context.Context) error { t.release(); return nil }

func (t *lockingTx) release() {
	if !t.done {
		t.done = true
		t.mu.Unlock()
	}
}

type lockingPool struct {
	mu sync.Mutex
}

func (p *lockingPool) Begin(context.Context) (pgx.Tx, error) {
	p.mu.Lock()
	return &lockingTx{mu: &p.mu}, nil
}

// ---------------------------------------------------------------------------
// In-memory task store implementing LifecycleTaskRepo.
// ---------------------------------------------------------------------------

type memTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*models.Task
}

func newMemTaskStore(tasks ...*models.Task) *memTaskStore {
	s := &memTaskStore{tasks: make(map[uuid.UUID]*models.Task)}
	for _, t := range tasks {
		cp := *t
		s.tasks[t.ID] = &cp
	}
	return s
}

func (s *memTaskStore) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s not found", id)
	}
	cp := *t
	return &cp, nil
}

func (s *memTaskStore) UpdateTx(_ context.Context, _ pgx.Tx, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *memTaskStore) VanishSiblingsTx(_ context.Context, _ pgx.Tx, requestID, excludeID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.RequestID != nil && *t.RequestID == requestID && t.ID != excludeID && t.Status == models.TaskStatusRequested {
			t.Status = models.TaskStatusVanished
		}
	}
	return nil
}

func (s *memTaskStore) status(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[id].Status
}

// ---------------------------------------------------------------------------
// Worker store and notification capture.
// ---------------------------------------------------------------------------

type memWorkerStore struct {
	workers map[uuid.UUID]*models.Worker
}

func newMemWorkerStore(ws ...*models.Worker) *memWorkerStore {
	s := &memWorkerStore{workers: make(map[uuid.UUID]*models.Worker)}
	for _, w := range ws {
		s.workers[w.ID] = w
	}
	return s
}

func (s *memWorkerStore) GetByID(_ context.Context, id uuid.UUID) (*models.Worker, error) {
	w, ok := s.workers[id]
	if !ok {
		return nil, fmt.Errorf("worker %s not found", id)
	}
	return w, nil
}

type notifyCapture struct {
	mu   sync.Mutex
	args []notify.NotifyCustomerArgs
}

func (c *notifyCapture) insert(_ context.Context, _ pgx.Tx, args notify.NotifyCustomerArgs) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.args = append(c.args, args)
	return nil
}

func (c *notifyCapture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.args)
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func requestedTask(customerID, workerID, requestID uuid.UUID, start, end time.Time) *models.Task {
	wid := workerID
	rid := requestID
	rate := decimal.RequireFromString("20.00")
	return &models.Task{
		ID:         uuid.New(),
		RequestID:  &rid,
		CustomerID: customerID,
		WorkerID:   &wid,
		Title:      "cleaning",
		StartTime:  start,
		EndTime:    end,
		Status:     models.TaskStatusRequested,
		HourlyRate: &rate,
	}
}

// ---------------------------------------------------------------------------
// 1. TestAcceptComputesExactCost
// ---------------------------------------------------------------------------

func TestAcceptComputesExactCost(t *testing.T) {
	worker := makeWorker("alice", "cleaning", "20.00")
	requestID := uuid.New()

	// Two hours at 20.00/h.
	task := requestedTask(uuid.New(), worker.ID, requestID, at(8), at(10))
	store := newMemTaskStore(task)
	capture := &notifyCapture{}
	lc := NewLifecycle(mockPool{}, store, newMemWorkerStore(worker), capture.insert, testLogger())

	got, err := lc.Accept(context.Background(), task.ID, worker.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if got.Status != models.TaskStatusInProgress {
		t.Fatalf("status = %q, want in-progress", got.Status)
	}
	if got.TotalCost == nil || !got.TotalCost.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("total_cost = %v, want 40.00 exactly", got.TotalCost)
	}
	if got.WorkerID == nil || *got.WorkerID != worker.ID {
		t.Fatal("accepting worker must be bound to the task")
	}
	if got.HourlyRate == nil || !got.HourlyRate.Equal(worker.HourlyRate) {
		t.Fatal("hourly rate must be frozen from the worker profile")
	}

	// 100 minutes at 20.00/h: 33.333… must land on 33.33, not a float artifact.
	short := requestedTask(uuid.New(), worker.ID, uuid.New(), at(8), at(8).Add(100*time.Minute))
	store = newMemTaskStore(short)
	lc = NewLifecycle(mockPool{}, store, newMemWorkerStore(worker), capture.insert, testLogger())

	got, err = lc.Accept(context.Background(), short.ID, worker.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if got.TotalCost == nil || !got.TotalCost.Equal(decimal.RequireFromString("33.33")) {
		t.Fatalf("total_cost = %v, want 33.33 exactly", got.TotalCost)
	}
}

// ---------------------------------------------------------------------------
// 2. TestAcceptVanishesSiblings
// ---------------------------------------------------------------------------

func TestAcceptVanishesSiblings(t *testing.T) {
	w1 := makeWorker("alice", "cleaning", "20.00")
	w2 := makeWorker("bob", "cleaning", "22.00")
	w3 := makeWorker("carol", "cleaning", "25.00")
	customerID := uuid.New()
	requestID := uuid.New()

	t1 := requestedTask(customerID, w1.ID, requestID, at(8), at(10))
	t2 := requestedTask(customerID, w2.ID, requestID, at(8), at(10))
	t3 := requestedTask(customerID, w3.ID, requestID, at(8), at(10))
	store := newMemTaskStore(t1, t2, t3)
	capture := &notifyCapture{}
	lc := NewLifecycle(mockPool{}, store, newMemWorkerStore(w1, w2, w3), capture.insert, testLogger())

	if _, err := lc.Accept(context.Background(), t2.ID, w2.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if got := store.status(t2.ID); got != models.TaskStatusInProgress {
		t.Fatalf("accepted task status = %q", got)
	}
	if got := store.status(t1.ID); got != models.TaskStatusVanished {
		t.Fatalf("sibling status = %q, want vanished", got)
	}
	if got := store.status(t3.ID); got != models.TaskStatusVanished {
		t.Fatalf("sibling status = %q, want vanished", got)
	}
	if capture.count() != 1 {
		t.Fatalf("expected 1 notification, got %d", capture.count())
	}
	if capture.args[0].CustomerID != customerID {
		t.Fatal("notification must target the task's customer")
	}
}

// ---------------------------------------------------------------------------
// 3. TestAcceptConflict — any non-requested status rejects the transition.
// ---------------------------------------------------------------------------

func TestAcceptConflict(t *testing.T) {
	worker := makeWorker("alice", "cleaning", "20.00")
	task := requestedTask(uuid.New(), worker.ID, uuid.New(), at(8), at(10))
	task.Status = models.TaskStatusVanished
	store := newMemTaskStore(task)
	capture := &notifyCapture{}
	lc := NewLifecycle(mockPool{}, store, newMemWorkerStore(worker), capture.insert, testLogger())

	_, err := lc.Accept(context.Background(), task.ID, worker.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if capture.count() != 0 {
		t.Fatal("no notification on a failed transition")
	}
}

// ---------------------------------------------------------------------------
// 4. TestConcurrentSiblingAcceptance — exactly one of two workers accepting
// siblings of the same request group wins.
// ---------------------------------------------------------------------------

func TestConcurrentSiblingAcceptance(t *testing.T) {
	w1 := makeWorker("alice", "cleaning", "20.00")
	w2 := makeWorker("bob", "cleaning", "22.00")
	requestID := uuid.New()

	t1 := requestedTask(uuid.New(), w1.ID, requestID, at(8), at(10))
	t2 := requestedTask(uuid.New(), w2.ID, requestID, at(8), at(10))
	store := newMemTaskStore(t1, t2)
	capture := &notifyCapture{}
	lc := NewLifecycle(&lockingPool{}, store, newMemWorkerStore(w1, w2), capture.insert, testLogger())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = lc.Accept(context.Background(), t1.ID, w1.ID)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = lc.Accept(context.Background(), t2.ID, w2.ID)
	}()
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else if !errors.Is(err, ErrConflict) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one acceptance to win, got %d", winners)
	}

	statuses := map[string]int{
		store.status(t1.ID): 1,
		store.status(t2.ID): 1,
	}
	if statuses[models.TaskStatusInProgress] != 1 || statuses[models.TaskStatusVanished] != 1 {
		t.Fatalf("expected one in-progress and one vanished sibling, got %v", statuses)
	}
	if capture.count() != 1 {
		t.Fatalf("expected 1 notification, got %d", capture.count())
	}
}

// ---------------------------------------------------------------------------
// 5. TestCompleteAndReject
// ---------------------------------------------------------------------------

func TestCompleteAndReject(t *testing.T) {
	worker := makeWorker("alice", "cleaning", "20.00")
	other := makeWorker("bob", "cleaning", "22.00")

	// requested → completed is not a legal transition.
	task := requestedTask(uuid.New(), worker.ID, uuid.New(), at(8), at(10))
	store := newMemTaskStore(task)
	capture := &notifyCapture{}
	lc := NewLifecycle(mockPool{}, store, newMemWorkerStore(worker, other), capture.insert, testLogger())

	if _, err := lc.Complete(context.Background(), task.ID, worker.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("requested → completed: expected ErrConflict, got %v", err)
	}

	// requested → rejected is.
	got, err := lc.Reject(context.Background(), task.ID, worker.ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if got.Status != models.TaskStatusRejected {
		t.Fatalf("status = %q, want rejected", got.Status)
	}

	// Rejected is terminal.
	if _, err := lc.Reject(context.Background(), task.ID, worker.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("reject twice: expected ErrConflict, got %v", err)
	}

	// in-progress → completed, but only by the bound worker.
	task2 := requestedTask(uuid.New(), worker.ID, uuid.New(), at(8), at(10))
	store2 := newMemTaskStore(task2)
	lc2 := NewLifecycle(mockPool{}, store2, newMemWorkerStore(worker, other), capture.insert, testLogger())
	if _, err := lc2.Accept(context.Background(), task2.ID, worker.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := lc2.Complete(context.Background(), task2.ID, other.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("foreign worker completion: expected ErrConflict, got %v", err)
	}
	got, err = lc2.Complete(context.Background(), task2.ID, worker.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.Status != models.TaskStatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
}

// ---------------------------------------------------------------------------
// 6. TestRate
// ---------------------------------------------------------------------------

func TestRate(t *testing.T) {
	worker := makeWorker("alice", "cleaning", "20.00")
	task := requestedTask(uuid.New(), worker.ID, uuid.New(), at(8), at(10))
	task.Status = models.TaskStatusCompleted
	store := newMemTaskStore(task)
	capture := &notifyCapture{}
	lc := NewLifecycle(mockPool{}, store, newMemWorkerStore(worker), capture.insert, testLogger())

	if _, err := lc.Rate(context.Background(), task.ID, 6, ""); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("rating 6: expected ErrInvalidRating, got %v", err)
	}

	got, err := lc.Rate(context.Background(), task.ID, 5, "spotless")
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if got.Rating == nil || *got.Rating != 5 || got.Review != "spotless" {
		t.Fatal("rating and review must be recorded")
	}

	// Only completed tasks can be rated.
	pending := requestedTask(uuid.New(), worker.ID, uuid.New(), at(8), at(10))
	store2 := newMemTaskStore(pending)
	lc2 := NewLifecycle(mockPool{}, store2, newMemWorkerStore(worker), capture.insert, testLogger())
	if _, err := lc2.Rate(context.Background(), pending.ID, 4, ""); !errors.Is(err, ErrConflict) {
		t.Fatalf("rate pending: expected ErrConflict, got %v", err)
	}
}
