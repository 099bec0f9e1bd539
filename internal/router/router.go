package router

import (
	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/taskboard/api/handler"
	"github.com/fastygo/taskboard/internal/middleware"
)

type Handlers struct {
	Board  *apiHandler.BoardHandler
	Task   *apiHandler.TaskHandler
	Health *apiHandler.HealthHandler
}

type Options struct {
	Logger     *zap.Logger
	CORSOrigin string
	// Registry enables /metrics and request metrics when set.
	Registry *prometheus.Registry
}

func New(handlers Handlers, opts Options) *router.Router {
	r := router.New()
	r.SaveMatchedRoutePath = true

	if handlers.Health != nil {
		r.GET("/health", handlers.Health.Check)
	}
	if opts.Registry != nil {
		r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/v1")

	api.GET("/boards", handlers.Board.ListBoards)
	api.POST("/boards", handlers.Board.CreateBoard)
	api.GET("/boards/{id}", handlers.Board.GetBoard)
	api.PATCH("/boards/{id}", handlers.Board.UpdateBoard)
	api.DELETE("/boards/{id}", handlers.Board.DeleteBoard)
	api.GET("/boards/{id}/tasks", handlers.Task.ListBoardTasks)

	api.GET("/tasks", handlers.Task.ListTasks)
	api.POST("/tasks", handlers.Task.CreateTask)
	api.GET("/tasks/{id}", handlers.Task.GetTask)
	api.PATCH("/tasks/{id}", handlers.Task.UpdateTask)
	api.DELETE("/tasks/{id}", handlers.Task.DeleteTask)

	return r
}

// Handler wraps the router with the request middleware chain.
func Handler(r *router.Router, opts Options) fasthttp.RequestHandler {
	h := r.Handler
	if opts.Registry != nil {
		h = middleware.NewMetrics(opts.Registry).Handler(h)
	}
	h = middleware.CORS(opts.CORSOrigin)(h)
	return middleware.RequestLogger(opts.Logger)(h)
}
