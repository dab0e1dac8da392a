package queueapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/tickqueue/pkg/httpserver"
	"github.com/dmitrymomot/tickqueue/pkg/logger"
	"github.com/dmitrymomot/tickqueue/pkg/taskqueue"
)

var (
	ErrInvalidTaskID = errors.New("invalid task id")
	ErrInvalidCount  = errors.New("count must be a non-negative integer")
	ErrInvalidFlag   = errors.New("current must be a boolean")
	ErrNotCancelled  = errors.New("task could not be cancelled")
	ErrJumpRejected  = errors.New("jump target is not queued")
)

// Queue is the part of *taskqueue.Queue the API needs.
type Queue interface {
	Statistics() taskqueue.Statistics
	Progress() taskqueue.Progress
	Tasks() []*taskqueue.Task
	Task(id taskqueue.TaskID) (*taskqueue.Task, bool)
	TasksByCustomID(customID string) []*taskqueue.Task
	Start() error
	Pause() error
	Resume() error
	Stop() error
	Cancel(id taskqueue.TaskID) bool
	SkipNext(count int, includeCurrent bool) int
	JumpTo(id taskqueue.TaskID) bool
	Clear()
	ClearCompleted() int
}

// Option configures the router.
type Option func(*options)

type options struct {
	logger *slog.Logger
	checks []httpserver.Check
}

// WithLogger sets the logger for request logs and handler errors.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHealthChecks turns /healthz into a readiness probe running checks.
func WithHealthChecks(checks ...httpserver.Check) Option {
	return func(o *options) {
		o.checks = append(o.checks, checks...)
	}
}

type api struct {
	q      Queue
	logger *slog.Logger
}

// NewRouter returns the HTTP handler for q.
func NewRouter(q Queue, opts ...Option) chi.Router {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	a := &api{q: q, logger: o.logger.With(logger.Component("queueapi"))}

	r := chi.NewRouter()
	r.Use(middleware.RealIP, withRequestID, middleware.Recoverer, accessLog(a.logger))

	r.Get("/healthz", httpserver.HealthHandler(a.logger, o.checks...))
	r.Get("/stats", a.stats)
	r.Get("/progress", a.progress)

	r.Post("/start", a.lifecycle("start", q.Start))
	r.Post("/pause", a.lifecycle("pause", q.Pause))
	r.Post("/resume", a.lifecycle("resume", q.Resume))
	r.Post("/stop", a.lifecycle("stop", q.Stop))

	r.Post("/skip", a.skip)
	r.Post("/jump/{id}", a.jump)

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", a.listTasks)
		r.Delete("/", a.clear)
		r.Delete("/completed", a.clearCompleted)
		r.Get("/{id}", a.getTask)
		r.Post("/{id}/cancel", a.cancel)
	})

	return r
}

func (a *api) stats(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, r, http.StatusOK, a.q.Statistics())
}

func (a *api) progress(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, r, http.StatusOK, a.q.Progress())
}

type stateResponse struct {
	State taskqueue.State `json:"state"`
}

func (a *api) lifecycle(op string, fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(); err != nil {
			a.writeError(w, r, http.StatusConflict, err)
			return
		}
		a.logger.InfoContext(r.Context(), "queue "+op+" requested")
		a.writeJSON(w, r, http.StatusOK, stateResponse{State: a.q.Statistics().State})
	}
}

func (a *api) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks := a.q.Tasks()
	if customID := r.URL.Query().Get("custom_id"); customID != "" {
		tasks = a.q.TasksByCustomID(customID)
	}
	infos := make([]taskqueue.TaskInfo, 0, len(tasks))
	for _, t := range tasks {
		infos = append(infos, t.Info())
	}
	a.writeJSON(w, r, http.StatusOK, infos)
}

func (a *api) getTask(w http.ResponseWriter, r *http.Request) {
	t, ok := a.lookup(w, r)
	if !ok {
		return
	}
	a.writeJSON(w, r, http.StatusOK, t.Info())
}

type cancelResponse struct {
	Cancelled int `json:"cancelled"`
}

func (a *api) cancel(w http.ResponseWriter, r *http.Request) {
	t, ok := a.lookup(w, r)
	if !ok {
		return
	}
	if !a.q.Cancel(t.ID()) {
		a.writeError(w, r, http.StatusConflict, ErrNotCancelled)
		return
	}
	a.writeJSON(w, r, http.StatusOK, cancelResponse{Cancelled: 1})
}

func (a *api) skip(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	count := 1
	if v := query.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			a.writeError(w, r, http.StatusBadRequest, ErrInvalidCount)
			return
		}
		count = n
	}
	includeCurrent := false
	if v := query.Get("current"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			a.writeError(w, r, http.StatusBadRequest, ErrInvalidFlag)
			return
		}
		includeCurrent = b
	}
	a.writeJSON(w, r, http.StatusOK, cancelResponse{Cancelled: a.q.SkipNext(count, includeCurrent)})
}

func (a *api) jump(w http.ResponseWriter, r *http.Request) {
	t, ok := a.lookup(w, r)
	if !ok {
		return
	}
	if !a.q.JumpTo(t.ID()) {
		a.writeError(w, r, http.StatusConflict, ErrJumpRejected)
		return
	}
	a.writeJSON(w, r, http.StatusOK, t.Info())
}

func (a *api) clear(w http.ResponseWriter, _ *http.Request) {
	a.q.Clear()
	w.WriteHeader(http.StatusNoContent)
}

type removedResponse struct {
	Removed int `json:"removed"`
}

func (a *api) clearCompleted(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, r, http.StatusOK, removedResponse{Removed: a.q.ClearCompleted()})
}

func (a *api) lookup(w http.ResponseWriter, r *http.Request) (*taskqueue.Task, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		a.writeError(w, r, http.StatusBadRequest, ErrInvalidTaskID)
		return nil, false
	}
	t, ok := a.q.Task(taskqueue.TaskID(id))
	if !ok {
		a.writeError(w, r, http.StatusNotFound, taskqueue.ErrTaskNotFound)
		return nil, false
	}
	return t, true
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *api) writeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	a.logger.WarnContext(r.Context(), "request rejected",
		slog.Int("status", code),
		logger.Error(err))
	a.writeJSON(w, r, code, errorResponse{Error: err.Error()})
}

func (a *api) writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.ErrorContext(r.Context(), "failed to encode response", logger.Error(err))
	}
}
