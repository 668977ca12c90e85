package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/kazilink/backend/api/handler"
)

type Handlers struct {
	Task        *apiHandler.TaskHandler
	Application *apiHandler.ApplicationHandler
	Health      *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Task lifecycle
	r.GET("/api/v1/tasks", authMiddleware(handlers.Task.ListTasks))
	r.POST("/api/v1/tasks", authMiddleware(handlers.Task.CreateTask))
	r.GET("/api/v1/tasks/{id}", authMiddleware(handlers.Task.GetTask))
	r.PUT("/api/v1/tasks/{id}", authMiddleware(handlers.Task.EditTask))
	r.POST("/api/v1/tasks/{id}/cancel", authMiddleware(handlers.Task.CancelTask))
	r.POST("/api/v1/tasks/{id}/complete", authMiddleware(handlers.Task.CompleteTask))

	// Applications
	r.POST("/api/v1/applications", authMiddleware(handlers.Application.Apply))
	r.GET("/api/v1/applications/mine", authMiddleware(handlers.Application.ListMine))
	r.POST("/api/v1/applications/{id}/accept", authMiddleware(handlers.Application.Accept))
	r.POST("/api/v1/applications/{id}/reject", authMiddleware(handlers.Application.Reject))
	r.GET("/api/v1/tasks/{id}/applications", authMiddleware(handlers.Application.ListByTask))
	r.GET("/api/v1/tasks/{id}/applications/count", authMiddleware(handlers.Application.CountByTask))

	return r
}
