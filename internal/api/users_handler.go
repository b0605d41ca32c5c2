package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/jstrand/taskgate/internal/auth"
	"github.com/jstrand/taskgate/internal/user"
)

// usersHandler groups admin-only user management handlers. Route-level role
// enforcement happens in the router; these handlers assume an admin caller.
type usersHandler struct {
	users UserStore
}

func newUsersHandler(users UserStore) *usersHandler {
	return &usersHandler{users: users}
}

// List handles GET /users.
func (h *usersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list users")
		return
	}
	if users == nil {
		users = []*user.User{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": users})
}

// UpdateRole handles PUT /users/{id}/role.
func (h *usersHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if !auth.ValidRole(req.Role) {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "role must be admin, manager or user")
		return
	}

	userID := chi.URLParam(r, "id")
	updated, err := h.users.UpdateRole(r.Context(), userID, req.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to update role")
		return
	}

	auditLog(r, "user.role_change", "user", updated.ID, "new_role", updated.Role)
	writeJSON(w, http.StatusOK, updated)
}
