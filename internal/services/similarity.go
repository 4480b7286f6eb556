package services

import (
	"context"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/fhhwr/backend/internal/models"
)

// SimilarityRecommender recommends peers of a seed worker by Pearson
// correlation over their rating histories. It is the fallback when no
// worker's skills match the task title.
type SimilarityRecommender struct {
	TaskRepo CompletedTaskSource
}

// NewSimilarityRecommender returns a new SimilarityRecommender.
func NewSimilarityRecommender(taskRepo CompletedTaskSource) *SimilarityRecommender {
	return &SimilarityRecommender{TaskRepo: taskRepo}
}

// ratingHistory maps customer id to the rating that customer gave the worker,
// built from completed rated tasks only. Recomputed on every invocation.
func (r *SimilarityRecommender) ratingHistory(ctx context.Context, workerID uuid.UUID) (map[uuid.UUID]int, error) {
	tasks, err := r.TaskRepo.CompletedByWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	history := make(map[uuid.UUID]int, len(tasks))
	for _, t := range tasks {
		if t.Rating != nil {
			history[t.CustomerID] = *t.Rating
		}
	}
	return history, nil
}

// SeedWorker picks the reference worker for recommendations: the available
// worker with the most completed tasks, ties broken by average rating then id.
// Returns nil when the set is empty.
func (r *SimilarityRecommender) SeedWorker(ctx context.Context, workers []*models.Worker) (*models.Worker, error) {
	var best *rankedCandidate
	for _, w := range workers {
		stats, err := loadStats(ctx, r.TaskRepo, w.ID)
		if err != nil {
			return nil, err
		}
		c := rankedCandidate{worker: w, stats: stats}
		if best == nil || outranks(c, *best) {
			cc := c
			best = &cc
		}
	}
	if best == nil {
		return nil, nil
	}
	return best.worker, nil
}

// similarity computes the correlation between the seed's and the candidate's
// rating histories over customers rated by both.
//
// Both deviation terms deliberately use the candidate's mean rather than each
// side's own mean. Correcting this to textbook Pearson would reorder the
// recommendations existing data produces, so it is kept as a compatibility
// choice. One consequence: the result is not bounded to [-1, 1].
func similarity(seed, candidate map[uuid.UUID]int) float64 {
	if len(candidate) == 0 {
		return 0
	}
	sum := 0
	for _, v := range candidate {
		sum += v
	}
	mean := float64(sum) / float64(len(candidate))

	var numerator, seedSq, candSq float64
	for customerID, seedRating := range seed {
		candRating, ok := candidate[customerID]
		if !ok {
			continue
		}
		ds := float64(seedRating) - mean
		dc := float64(candRating) - mean
		numerator += ds * dc
		seedSq += ds * ds
		candSq += dc * dc
	}
	if seedSq == 0 || candSq == 0 {
		return 0
	}
	return numerator / math.Sqrt(seedSq*candSq)
}

// Recommend returns up to n workers most similar to the seed, in descending
// similarity. Equal similarities keep the iteration order of the available
// set (stable sort).
func (r *SimilarityRecommender) Recommend(ctx context.Context, seed *models.Worker, workers []*models.Worker, n int) ([]*models.Worker, error) {
	if n <= 0 {
		n = maxCandidates
	}
	seedHistory, err := r.ratingHistory(ctx, seed.ID)
	if err != nil {
		return nil, err
	}

	type scored struct {
		worker *models.Worker
		sim    float64
	}
	var candidates []scored
	for _, w := range workers {
		if w.ID == seed.ID {
			continue
		}
		history, err := r.ratingHistory(ctx, w.ID)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, scored{worker: w, sim: similarity(seedHistory, history)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].sim > candidates[j].sim
	})

	if len(candidates) < n {
		n = len(candidates)
	}
	out := make([]*models.Worker, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, candidates[i].worker)
	}
	return out, nil
}
