package api

import (
	"net/http"
	"testing"

	"github.com/jstrand/taskgate/internal/auth"
	"github.com/jstrand/taskgate/internal/user"
)

func TestUsersRoutesAreAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	_, managerToken := env.seedUser(t, "Manager", "manager@example.com", auth.RoleManager)
	_, memberToken := env.seedUser(t, "Member", "member@example.com", auth.RoleUser)

	for _, token := range []string{managerToken, memberToken} {
		rr := env.do(t, http.MethodGet, "/users", token, nil)
		if rr.Code != http.StatusForbidden {
			t.Errorf("expected 403 for non-admin, got %d", rr.Code)
		}

		rr = env.do(t, http.MethodPut, "/users/u1/role", token, map[string]string{"role": "admin"})
		if rr.Code != http.StatusForbidden {
			t.Errorf("expected 403 for non-admin role change, got %d", rr.Code)
		}
	}
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.seedUser(t, "Admin", "admin@example.com", auth.RoleAdmin)
	env.seedUser(t, "Member", "member@example.com", auth.RoleUser)

	rr := env.do(t, http.MethodGet, "/users", adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var body struct {
		Data []*user.User `json:"data"`
	}
	decodeBody(t, rr, &body)
	if len(body.Data) != 2 {
		t.Errorf("expected 2 users, got %d", len(body.Data))
	}
}

func TestUpdateRole(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.seedUser(t, "Admin", "admin@example.com", auth.RoleAdmin)
	member, _ := env.seedUser(t, "Member", "member@example.com", auth.RoleUser)

	rr := env.do(t, http.MethodPut, "/users/"+member.ID+"/role", adminToken, map[string]string{
		"role": "manager",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", rr.Code, rr.Body.String())
	}

	var updated user.User
	decodeBody(t, rr, &updated)
	if updated.Role != auth.RoleManager {
		t.Errorf("expected role manager, got %q", updated.Role)
	}
}

func TestUpdateRoleValidation(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.seedUser(t, "Admin", "admin@example.com", auth.RoleAdmin)
	member, _ := env.seedUser(t, "Member", "member@example.com", auth.RoleUser)

	t.Run("unknown role", func(t *testing.T) {
		rr := env.do(t, http.MethodPut, "/users/"+member.ID+"/role", adminToken, map[string]string{
			"role": "superuser",
		})
		assertErrorCode(t, rr, http.StatusUnprocessableEntity, "validation_error")
	})

	t.Run("unknown user", func(t *testing.T) {
		rr := env.do(t, http.MethodPut, "/users/missing/role", adminToken, map[string]string{
			"role": "manager",
		})
		assertErrorCode(t, rr, http.StatusNotFound, "not_found")
	})
}
