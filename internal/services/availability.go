package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fhhwr/backend/internal/models"
)

// AvailabilityWorkerRepo is the minimal worker repository interface required
// by the availability filter.
type AvailabilityWorkerRepo interface {
	FindAvailable(ctx context.Context) ([]*models.Worker, error)
}

// AvailabilityTaskRepo resolves in-progress tasks that overlap a window.
type AvailabilityTaskRepo interface {
	FindConflicting(ctx context.Context, workerIDs []uuid.UUID, start, end time.Time) ([]*models.Task, error)
}

// AvailabilityFilter computes the set of workers free for a time window:
// workers flagged available minus those with a conflicting in-progress task.
type AvailabilityFilter struct {
	WorkerRepo AvailabilityWorkerRepo
	TaskRepo   AvailabilityTaskRepo
}

// NewAvailabilityFilter returns a new AvailabilityFilter.
func NewAvailabilityFilter(workerRepo AvailabilityWorkerRepo, taskRepo AvailabilityTaskRepo) *AvailabilityFilter {
	return &AvailabilityFilter{WorkerRepo: workerRepo, TaskRepo: taskRepo}
}

// AvailableWorkers returns the workers free for [start, end), preserving the
// repository's iteration order. Windows are half-open: an in-progress task
// ending exactly at start (or starting exactly at end) is not a conflict, and
// a worker whose in-progress tasks all fall outside the window stays eligible.
func (f *AvailabilityFilter) AvailableWorkers(ctx context.Context, start, end time.Time) ([]*models.Worker, error) {
	workers, err := f.WorkerRepo.FindAvailable(ctx)
	if err != nil {
		return nil, err
	}
	if len(workers) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(workers))
	for i, w := range workers {
		ids[i] = w.ID
	}
	conflicting, err := f.TaskRepo.FindConflicting(ctx, ids, start, end)
	if err != nil {
		return nil, err
	}

	busy := make(map[uuid.UUID]bool, len(conflicting))
	for _, t := range conflicting {
		if t.WorkerID != nil {
			busy[*t.WorkerID] = true
		}
	}

	free := make([]*models.Worker, 0, len(workers))
	for _, w := range workers {
		if !busy[w.ID] {
			free = append(free, w)
		}
	}
	return free, nil
}
