package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jstrand/taskgate/internal/auth"
	"github.com/jstrand/taskgate/internal/authz"
	"github.com/jstrand/taskgate/internal/task"
)

const foreignKeyViolation = "23503"

// tasksHandler groups task HTTP handlers. Authorization decisions are
// delegated to the authz package; this layer only translates them into
// status codes.
type tasksHandler struct {
	tasks TaskStore
}

func newTasksHandler(tasks TaskStore) *tasksHandler {
	return &tasksHandler{tasks: tasks}
}

// listResponse is the paginated list envelope.
type listResponse struct {
	Data  []*task.Task `json:"data"`
	Total int          `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

// List handles GET /tasks.
func (h *tasksHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	q := r.URL.Query()

	page := 1
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "page must be a positive integer")
			return
		}
		page = n
	}

	limit := 10
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	if _, err := task.ParseSort(q.Get("sort")); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	filter := authz.ListScope(id)
	if status := q.Get("status"); status != "" {
		if !task.ValidStatus(status) {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid status filter")
			return
		}
		filter.Status = status
	}

	tasks, total, err := h.tasks.List(r.Context(), filter, task.ListParams{
		Sort:   q.Get("sort"),
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}

	writeJSON(w, http.StatusOK, listResponse{
		Data:  tasks,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// Create handles POST /tasks.
func (h *tasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	var req struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Priority    string     `json:"priority"`
		Status      string     `json:"status"`
		DueDate     *time.Time `json:"dueDate"`
		OwnerID     string     `json:"ownerId"`
		TeamIDs     []string   `json:"teamIds"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if req.Title == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "title is required")
		return
	}
	if req.Priority != "" && !task.ValidPriority(req.Priority) {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "priority must be low, medium or high")
		return
	}
	if req.Status != "" && !task.ValidStatus(req.Status) {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "status must be todo, inprogress or done")
		return
	}

	created, err := h.tasks.Create(r.Context(), task.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		DueDate:     req.DueDate,
		OwnerID:     authz.ResolveOwner(id, req.OwnerID),
		TeamIDs:     req.TeamIDs,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "owner does not exist")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create task")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// Get handles GET /tasks/{id}. A missing record is reported as 404 before
// visibility is evaluated, so clients can't distinguish "hidden" from
// "someone else's" by probing.
func (h *tasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	t, err := h.tasks.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "not_found", "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to get task")
		return
	}

	if !authz.CanView(id, t) {
		writeError(w, http.StatusForbidden, "forbidden", "forbidden")
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// Update handles PUT /tasks/{id}. The patch goes through the role rules
// first: a hard-denied field rejects the whole patch, fields outside a role's
// allow-list are dropped without error. Only the fields that actually applied
// are then value-validated, so a bogus value in an ignored field never fails
// the request.
func (h *tasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	t, err := h.tasks.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "not_found", "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to get task")
		return
	}

	var req struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		Priority    *string    `json:"priority"`
		Status      *string    `json:"status"`
		DueDate     *time.Time `json:"dueDate"`
		OwnerID     *string    `json:"ownerId"`
		TeamIDs     *[]string  `json:"teamIds"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	changed, err := authz.ApplyUpdate(id, t, task.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		DueDate:     req.DueDate,
		OwnerID:     req.OwnerID,
		TeamIDs:     req.TeamIDs,
	})
	if err != nil {
		var denied *authz.Denied
		if errors.As(err, &denied) {
			writeError(w, http.StatusForbidden, "forbidden", denied.Reason)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to update task")
		return
	}

	for _, field := range changed {
		switch field {
		case "title":
			if t.Title == "" {
				writeError(w, http.StatusUnprocessableEntity, "validation_error", "title cannot be empty")
				return
			}
		case "priority":
			if !task.ValidPriority(t.Priority) {
				writeError(w, http.StatusUnprocessableEntity, "validation_error", "priority must be low, medium or high")
				return
			}
		case "status":
			if !task.ValidStatus(t.Status) {
				writeError(w, http.StatusUnprocessableEntity, "validation_error", "status must be todo, inprogress or done")
				return
			}
		}
	}

	saved, err := h.tasks.Save(r.Context(), t)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "owner does not exist")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to update task")
		return
	}

	for _, field := range changed {
		if field == "owner" {
			auditLog(r, "task.reassign", "task", saved.ID, "new_owner", saved.OwnerID)
		}
	}

	writeJSON(w, http.StatusOK, saved)
}

// Delete handles DELETE /tasks/{id}.
func (h *tasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	taskID := chi.URLParam(r, "id")
	t, err := h.tasks.GetByID(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "not_found", "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to get task")
		return
	}

	if !authz.CanDelete(id) {
		writeError(w, http.StatusForbidden, "forbidden", "only admins can delete tasks")
		return
	}

	if err := h.tasks.Delete(r.Context(), t.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete task")
		return
	}

	auditLog(r, "task.delete", "task", t.ID, "title", t.Title)
	w.WriteHeader(http.StatusNoContent)
}
