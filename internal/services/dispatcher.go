package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fhhwr/backend/internal/models"
)

// TxBeginner abstracts transaction creation so tests don't need a
// pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DispatcherTaskRepo is the task repository interface used by the dispatcher.
type DispatcherTaskRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Task) error
}

// Dispatcher turns one validated task draft into a request group: it selects
// up to five workers and persists one requested task row per worker, all
// sharing a freshly generated request id.
type Dispatcher struct {
	Pool         TxBeginner
	Availability *AvailabilityFilter
	Matcher      *SkillMatcher
	Recommender  *SimilarityRecommender
	TaskRepo     DispatcherTaskRepo
	Logger       *slog.Logger
}

// NewDispatcher returns a new Dispatcher.
func NewDispatcher(pool TxBeginner, availability *AvailabilityFilter, matcher *SkillMatcher, recommender *SimilarityRecommender, taskRepo DispatcherTaskRepo, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		Pool:         pool,
		Availability: availability,
		Matcher:      matcher,
		Recommender:  recommender,
		TaskRepo:     taskRepo,
		Logger:       logger,
	}
}

// DispatchResult reports which workers were notified for a draft. A result
// with no workers is the no-match outcome: no task rows were created.
type DispatchResult struct {
	RequestID uuid.UUID
	Workers   []*models.Worker
	Tasks     []*models.Task
}

// Matched reports whether any worker was notified.
func (r *DispatchResult) Matched() bool { return len(r.Workers) > 0 }

// Dispatch selects candidate workers for the draft and persists their task
// rows. Skill matching runs first; when no skills match, the similarity
// recommender takes over, seeded from the top-ranked available worker. All
// rows commit in a single transaction so readers never observe a partial
// request group.
func (d *Dispatcher) Dispatch(ctx context.Context, draft *models.TaskDraft) (*DispatchResult, error) {
	available, err := d.Availability.AvailableWorkers(ctx, draft.StartTime, draft.EndTime)
	if err != nil {
		return nil, fmt.Errorf("available workers: %w", err)
	}

	candidates, err := d.Matcher.Match(ctx, draft.Title, available)
	if err != nil {
		return nil, fmt.Errorf("skill match: %w", err)
	}
	if len(candidates) == 0 {
		seed, err := d.Recommender.SeedWorker(ctx, available)
		if err != nil {
			return nil, fmt.Errorf("seed worker: %w", err)
		}
		if seed != nil {
			d.Logger.Info("no skill match, falling back to similarity recommender",
				"title", draft.Title, "seed_worker_id", seed.ID)
			candidates, err = d.Recommender.Recommend(ctx, seed, available, maxCandidates)
			if err != nil {
				return nil, fmt.Errorf("recommend: %w", err)
			}
		}
	}

	if len(candidates) == 0 {
		d.Logger.Info("no workers found for task request", "title", draft.Title, "customer_id", draft.CustomerID)
		return &DispatchResult{}, nil
	}

	requestID := uuid.New()

	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin dispatch tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tasks := make([]*models.Task, 0, len(candidates))
	for _, w := range candidates {
		rate := w.HourlyRate
		workerID := w.ID
		task := &models.Task{
			ID:          uuid.New(),
			RequestID:   &requestID,
			CustomerID:  draft.CustomerID,
			WorkerID:    &workerID,
			Title:       draft.Title,
			Description: draft.Description,
			StartTime:   draft.StartTime,
			EndTime:     draft.EndTime,
			Location:    draft.Location,
			Status:      models.TaskStatusRequested,
			HourlyRate:  &rate,
		}
		if err := d.TaskRepo.CreateTx(ctx, tx, task); err != nil {
			return nil, fmt.Errorf("create task row: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit dispatch tx: %w", err)
	}

	d.Logger.Info("task request dispatched",
		"request_id", requestID, "customer_id", draft.CustomerID, "workers_notified", len(candidates))

	return &DispatchResult{RequestID: requestID, Workers: candidates, Tasks: tasks}, nil
}
