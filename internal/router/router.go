package router

import (
	"net/http"

	"github.com/fhhwr/backend/internal/handlers"
)

// New returns an http.Handler that serves the task API under /v1.
func New(taskHandler *handlers.TaskHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/tasks", taskHandler.CreateTask)
	mux.HandleFunc("GET /v1/tasks", taskHandler.ListTasks)
	mux.HandleFunc("GET /v1/tasks/{id}", taskHandler.GetTask)
	mux.HandleFunc("POST /v1/tasks/{id}/accept", taskHandler.AcceptTask)
	mux.HandleFunc("POST /v1/tasks/{id}/complete", taskHandler.CompleteTask)
	mux.HandleFunc("POST /v1/tasks/{id}/reject", taskHandler.RejectTask)
	mux.HandleFunc("POST /v1/tasks/{id}/rating", taskHandler.RateTask)
	mux.HandleFunc("GET /v1/workers", taskHandler.ListWorkers)
	mux.HandleFunc("GET /v1/notifications", taskHandler.ListNotifications)

	return mux
}
