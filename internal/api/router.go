// Package api wires the HTTP surface: routing, middleware ordering, and the
// translation of store and authorization results into status codes.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jstrand/taskgate/internal/auth"
	"github.com/jstrand/taskgate/internal/metrics"
	"github.com/jstrand/taskgate/internal/ratelimit"
	"github.com/jstrand/taskgate/internal/task"
	"github.com/jstrand/taskgate/internal/user"
)

// UserStore is the persistence surface the handlers need for users.
type UserStore interface {
	Create(ctx context.Context, in user.CreateUserInput) (*user.User, error)
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	List(ctx context.Context) ([]*user.User, error)
	UpdateRole(ctx context.Context, id, role string) (*user.User, error)
}

// TaskStore is the persistence surface the handlers need for tasks.
type TaskStore interface {
	List(ctx context.Context, f task.ListFilter, p task.ListParams) ([]*task.Task, int, error)
	GetByID(ctx context.Context, id string) (*task.Task, error)
	Create(ctx context.Context, in task.CreateTaskInput) (*task.Task, error)
	Save(ctx context.Context, t *task.Task) (*task.Task, error)
	Delete(ctx context.Context, id string) error
}

// TokenService signs and verifies both token classes.
type TokenService interface {
	IssueAccess(id auth.Identity) (string, error)
	IssueRefresh(subjectID string) (string, error)
	VerifyAccess(token string) (auth.Identity, error)
	VerifyRefresh(token string) (string, error)
}

// Pinger reports database liveness. Satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps holds everything the router needs. All fields except DB are
// required; a nil DB degrades /health to a process-only check.
type RouterDeps struct {
	Users          UserStore
	Tasks          TaskStore
	Tokens         TokenService
	Limiter        *ratelimit.Limiter
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	Cookie         CookieConfig
	DB             Pinger
}

// NewRouter builds the chi router with the full middleware chain. The rate
// limiter runs before authentication so credential-guessing traffic is
// throttled; metrics observe everything the limiter lets through.
func NewRouter(deps RouterDeps) http.Handler {
	authH := newAuthHandler(deps.Users, deps.Tokens, deps.Cookie)
	tasksH := newTasksHandler(deps.Tasks)
	usersH := newUsersHandler(deps.Users)

	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.Use(ratelimit.Middleware(deps.Limiter, deps.Metrics.RateLimitRejectionsTotal.Inc))
	r.Use(deps.Metrics.Middleware)
	r.Use(requestLogger)

	requireAuth := auth.RequireAuth(deps.Tokens, deps.Metrics.ObserveAuth)

	r.Get("/health", healthHandler(deps.DB))
	r.Get("/metrics", deps.Metrics.Handler().ServeHTTP)
	r.Get("/metrics/prometheus", deps.Metrics.PrometheusHandler().ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authH.Register)
		r.Post("/login", authH.Login)
		r.Post("/refresh", authH.Refresh)
		r.Post("/logout", authH.Logout)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", authH.Me)
		})
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", tasksH.List)
		r.Post("/", tasksH.Create)
		r.Get("/{id}", tasksH.Get)
		r.Put("/{id}", tasksH.Update)
		r.Delete("/{id}", tasksH.Delete)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(auth.RequireRole(auth.RoleAdmin))
		r.Get("/", usersH.List)
		r.Put("/{id}/role", usersH.UpdateRole)
	})

	return r
}

// healthHandler reports service and database liveness.
func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		dbStatus := "skipped"

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				status = "degraded"
				dbStatus = "unreachable"
			} else {
				dbStatus = "ok"
			}
		}

		code := http.StatusOK
		if status != "ok" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]string{
			"status":   status,
			"database": dbStatus,
		})
	}
}

// requestLogger logs each request after it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", ratelimit.ClientIP(r),
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}
