package services

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/fhhwr/backend/internal/models"
)

// At most this many workers are notified per customer request.
const maxCandidates = 5

// CompletedTaskSource supplies a worker's completed tasks, used for ranking
// and for building rating histories.
type CompletedTaskSource interface {
	CompletedByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.Task, error)
}

// workerStats carries the ranking signals derived from completed tasks.
type workerStats struct {
	completed int
	avgRating *float64 // nil when no completed task carries a rating
}

// loadStats computes completion count and average rating for one worker.
// Unrated completed tasks count toward completion but not toward the average.
func loadStats(ctx context.Context, src CompletedTaskSource, workerID uuid.UUID) (workerStats, error) {
	tasks, err := src.CompletedByWorker(ctx, workerID)
	if err != nil {
		return workerStats{}, err
	}
	stats := workerStats{completed: len(tasks)}
	sum, rated := 0, 0
	for _, t := range tasks {
		if t.Rating != nil {
			sum += *t.Rating
			rated++
		}
	}
	if rated > 0 {
		avg := float64(sum) / float64(rated)
		stats.avgRating = &avg
	}
	return stats, nil
}

// rankedCandidate pairs a worker with its stats for sorting.
type rankedCandidate struct {
	worker *models.Worker
	stats  workerStats
}

// outranks reports whether a should be ranked ahead of b: more completed
// tasks first, then higher average rating (a missing average sorts below any
// value), then worker id ascending so equal candidates order reproducibly.
func outranks(a, b rankedCandidate) bool {
	if a.stats.completed != b.stats.completed {
		return a.stats.completed > b.stats.completed
	}
	switch {
	case a.stats.avgRating == nil && b.stats.avgRating == nil:
	case a.stats.avgRating == nil:
		return false
	case b.stats.avgRating == nil:
		return true
	case *a.stats.avgRating != *b.stats.avgRating:
		return *a.stats.avgRating > *b.stats.avgRating
	}
	return a.worker.ID.String() < b.worker.ID.String()
}

// SkillMatcher ranks available workers by keyword match against the task
// title.
type SkillMatcher struct {
	TaskRepo CompletedTaskSource
}

// NewSkillMatcher returns a new SkillMatcher.
func NewSkillMatcher(taskRepo CompletedTaskSource) *SkillMatcher {
	return &SkillMatcher{TaskRepo: taskRepo}
}

// matchesSkills reports whether a worker's skills relate to the query,
// case-insensitively: either the skills field contains the whole query, or
// one of its comma-separated keywords appears in the query. Titles are free
// text ("need cleaning help"), so containment is checked in both directions.
func matchesSkills(skills, query string) bool {
	s := strings.ToLower(skills)
	q := strings.ToLower(query)
	if strings.Contains(s, q) {
		return true
	}
	for _, kw := range strings.Split(s, ",") {
		kw = strings.TrimSpace(kw)
		if kw != "" && strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// Match selects workers whose skills match the query keyword-wise, ranked by
// completion count then average rating, and returns at most maxCandidates of
// them. An empty result means no skills matched.
func (m *SkillMatcher) Match(ctx context.Context, query string, workers []*models.Worker) ([]*models.Worker, error) {
	var candidates []rankedCandidate
	for _, w := range workers {
		if !matchesSkills(w.Skills, query) {
			continue
		}
		stats, err := loadStats(ctx, m.TaskRepo, w.ID)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, rankedCandidate{worker: w, stats: stats})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return outranks(candidates[i], candidates[j])
	})

	n := maxCandidates
	if len(candidates) < n {
		n = len(candidates)
	}
	out := make([]*models.Worker, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, candidates[i].worker)
	}
	return out, nil
}
