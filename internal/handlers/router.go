package handlers

import (
	"net/http"
	"taskManager/internal/middleware"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	RateLimitRPM   int
	AllowedOrigins []string
	// Registry == nil отключает /metrics и сбор метрик
	Registry *prometheus.Registry
}

func NewRouter(h *TaskHandler, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         300,
		}))
	}
	if cfg.Registry != nil {
		r.Use(middleware.NewMetrics(cfg.Registry).Middleware)
	}
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}
	r.Use(middleware.RateLimit(cfg.RateLimitRPM))

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.ListTasks) // GET /tasks
		r.Post("/", h.PostTask) // POST /tasks

		r.Get("/deleted", h.ListDeleted)                // GET /tasks/deleted
		r.Get("/search", h.Search)                      // GET /tasks/search?keyword=
		r.Get("/due", h.ListDue)                        // GET /tasks/due?from=&to=
		r.Get("/status/{status}", h.ListByStatus)       // GET /tasks/status/{status}
		r.Get("/category/{category}", h.ListByCategory) // GET /tasks/category/{category}

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetTaskByID)          // GET /tasks/{id}
			r.Put("/", h.UpdateTaskByID)       // PUT /tasks/{id}
			r.Delete("/", h.DeleteTaskByID)    // DELETE /tasks/{id}
			r.Put("/restore", h.RestoreTask)   // PUT /tasks/{id}/restore
			r.Get("/subtasks", h.ListSubtasks) // GET /tasks/{id}/subtasks
		})
	})

	r.Get("/health", h.HealthCheck)
	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{Registry: cfg.Registry}))
	}

	return r
}
