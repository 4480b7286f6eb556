package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fhhwr/backend/internal/models"
	"github.com/fhhwr/backend/internal/services"
)

// TaskRepoForHandler is the subset of the task repository needed by the
// handler's read endpoints.
type TaskRepoForHandler interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.Task, error)
	ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.Task, error)
}

// NotificationRepoForHandler serves the customer notification feed.
type NotificationRepoForHandler interface {
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.TaskNotification, error)
}

// CustomerRepoForHandler resolves the customer a draft is posted for.
type CustomerRepoForHandler interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// WorkerRepoForHandler lists worker profiles.
type WorkerRepoForHandler interface {
	List(ctx context.Context) ([]*models.Worker, error)
}

// TaskDispatcher abstracts worker selection and request-group creation.
type TaskDispatcher interface {
	Dispatch(ctx context.Context, draft *models.TaskDraft) (*services.DispatchResult, error)
}

// TaskLifecycle abstracts the acceptance state machine.
type TaskLifecycle interface {
	Accept(ctx context.Context, taskID, workerID uuid.UUID) (*models.Task, error)
	Complete(ctx context.Context, taskID, workerID uuid.UUID) (*models.Task, error)
	Reject(ctx context.Context, taskID, workerID uuid.UUID) (*models.Task, error)
	Rate(ctx context.Context, taskID uuid.UUID, rating int, review string) (*models.Task, error)
}

// TaskHandler serves /v1/tasks endpoints. Authentication and session handling
// live in the surrounding layer; requests carry explicit actor ids.
type TaskHandler struct {
	Dispatcher    TaskDispatcher
	Lifecycle     TaskLifecycle
	TaskRepo      TaskRepoForHandler
	Customers     CustomerRepoForHandler
	Workers       WorkerRepoForHandler
	Notifications NotificationRepoForHandler
	Logger        *slog.Logger
}

// --- POST /v1/tasks ---

type createTaskRequest struct {
	CustomerID  string    `json:"customer_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Location    string    `json:"location"`
}

type createTaskResponse struct {
	RequestID       string   `json:"request_id,omitempty"`
	WorkersNotified int      `json:"workers_notified"`
	WorkerIDs       []string `json:"worker_ids,omitempty"`
	Message         string   `json:"message,omitempty"`
}

// CreateTask handles POST /v1/tasks: validate the draft, dispatch it to up to
// five workers, and report who was notified.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		http.Error(w, `{"error":"invalid customer_id"}`, http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, `{"error":"title is required"}`, http.StatusBadRequest)
		return
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() || !req.StartTime.Before(req.EndTime) {
		http.Error(w, `{"error":"start_time must be before end_time"}`, http.StatusBadRequest)
		return
	}

	if _, err := h.Customers.GetByID(r.Context(), customerID); err != nil {
		http.Error(w, `{"error":"customer not found"}`, http.StatusNotFound)
		return
	}

	draft := &models.TaskDraft{
		CustomerID:  customerID,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
	}

	result, err := h.Dispatcher.Dispatch(r.Context(), draft)
	if err != nil {
		h.Logger.Error("dispatch failed", "error", err)
		http.Error(w, `{"error":"failed to dispatch task"}`, http.StatusInternalServerError)
		return
	}

	if !result.Matched() {
		writeJSON(w, http.StatusOK, createTaskResponse{
			WorkersNotified: 0,
			Message:         "no matching workers found for the task request",
		})
		return
	}

	ids := make([]string, len(result.Workers))
	for i, worker := range result.Workers {
		ids[i] = worker.ID.String()
	}
	writeJSON(w, http.StatusCreated, createTaskResponse{
		RequestID:       result.RequestID.String(),
		WorkersNotified: len(result.Workers),
		WorkerIDs:       ids,
	})
}

// --- POST /v1/tasks/{id}/accept | /complete | /reject ---

type transitionRequest struct {
	WorkerID string `json:"worker_id"`
}

func (h *TaskHandler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, taskID, workerID uuid.UUID) (*models.Task, error)) {
	taskID, ok := pathTaskID(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	workerID, err := uuid.Parse(req.WorkerID)
	if err != nil {
		http.Error(w, `{"error":"invalid worker_id"}`, http.StatusBadRequest)
		return
	}

	task, err := fn(r.Context(), taskID, workerID)
	if err != nil {
		if errors.Is(err, services.ErrConflict) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		h.Logger.Error("task transition failed", "task_id", taskID, "error", err)
		http.Error(w, `{"error":"failed to update task"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// AcceptTask handles POST /v1/tasks/{id}/accept.
func (h *TaskHandler) AcceptTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.Accept)
}

// CompleteTask handles POST /v1/tasks/{id}/complete.
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.Complete)
}

// RejectTask handles POST /v1/tasks/{id}/reject.
func (h *TaskHandler) RejectTask(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.Reject)
}

// --- POST /v1/tasks/{id}/rating ---

type ratingRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

// RateTask handles POST /v1/tasks/{id}/rating.
func (h *TaskHandler) RateTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathTaskID(w, r)
	if !ok {
		return
	}
	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	task, err := h.Lifecycle.Rate(r.Context(), taskID, req.Rating, req.Review)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRating):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, services.ErrConflict):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			h.Logger.Error("rate task failed", "task_id", taskID, "error", err)
			http.Error(w, `{"error":"failed to rate task"}`, http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- GET /v1/tasks/{id} ---

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathTaskID(w, r)
	if !ok {
		return
	}
	task, err := h.TaskRepo.GetByID(r.Context(), taskID)
	if err != nil {
		http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// --- GET /v1/tasks?customer_id=…|worker_id=… ---

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("customer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, `{"error":"invalid customer_id"}`, http.StatusBadRequest)
			return
		}
		list, err := h.TaskRepo.ListByCustomer(r.Context(), id)
		if err != nil {
			h.Logger.Error("list tasks by customer", "error", err)
			http.Error(w, `{"error":"failed to list tasks"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
		return
	}
	if raw := r.URL.Query().Get("worker_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, `{"error":"invalid worker_id"}`, http.StatusBadRequest)
			return
		}
		list, err := h.TaskRepo.ListByWorker(r.Context(), id)
		if err != nil {
			h.Logger.Error("list tasks by worker", "error", err)
			http.Error(w, `{"error":"failed to list tasks"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
		return
	}
	http.Error(w, `{"error":"customer_id or worker_id is required"}`, http.StatusBadRequest)
}

// --- GET /v1/workers ---

// ListWorkers returns all worker profiles for the customer-facing directory.
func (h *TaskHandler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	list, err := h.Workers.List(r.Context())
	if err != nil {
		h.Logger.Error("list workers", "error", err)
		http.Error(w, `{"error":"failed to list workers"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// --- GET /v1/notifications?customer_id=… ---

func (h *TaskHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("customer_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, `{"error":"invalid customer_id"}`, http.StatusBadRequest)
		return
	}
	list, err := h.Notifications.ListByCustomer(r.Context(), id)
	if err != nil {
		h.Logger.Error("list notifications", "error", err)
		http.Error(w, `{"error":"failed to list notifications"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// --- helpers ---

func pathTaskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
