package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/api"
	apiMiddleware "github.com/haninge-digit/digit-camunda-wrapper/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if app.config.Server.Debug {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	// The interface must stay nil, not a nil *Registry, when tasks are off.
	var tasks api.TaskRegistry
	if app.registry != nil {
		tasks = app.registry
	}

	processHandler := api.NewProcessHandler(app.bridge, app.logger)
	taskHandler := api.NewTaskHandler(tasks, app.logger)
	systemHandler := api.NewSystemHandler(app.conn, app.jwtService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService, app.config.Auth.Disabled)

	// Public endpoints
	r.Get("/zeebe-engine", systemHandler.EngineStatus)
	r.Get("/lifecheck", systemHandler.EngineStatus)
	r.Get("/environment", systemHandler.Environment)
	r.Get("/token", systemHandler.Token)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Get("/worker/{name}", processHandler.CallWorker)
		r.Patch("/worker/{name}", processHandler.CallWorker)
		r.Put("/worker/{name}", processHandler.CallWorker)
		r.Post("/worker/{name}", processHandler.CallWorker)
		r.Delete("/worker/{name}", processHandler.CallWorker)

		r.Post("/workflow/{name}", processHandler.StartWorkflow)
		r.Post("/form/{name}", processHandler.SubmitForm)

		r.Get("/process/{name}", processHandler.Process)
		r.Post("/process/{name}", processHandler.Process)

		r.Get("/tasks", taskHandler.ListTasks)
		r.Get("/task", taskHandler.ListTasks)
		r.Post("/task", taskHandler.MissingTaskKey)
		r.Get("/task/{key}", taskHandler.GetTask)
		r.Post("/task/{key}", taskHandler.CompleteTask)
	})

	systemHandler.SetRoutes(r)
	return r
}
