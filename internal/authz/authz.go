// Package authz holds the pure authorization rules for tasks: which records
// a caller may see and which fields a caller may change. It performs no I/O;
// handlers fetch the record first (missing records are a 404 concern, decided
// before any rule here runs) and persist afterwards.
package authz

import (
	"github.com/jstrand/taskgate/internal/auth"
	"github.com/jstrand/taskgate/internal/task"
)

// Denied is returned when an operation is not permitted for the caller.
// The reason is safe to surface to the client.
type Denied struct {
	Reason string
}

func (d *Denied) Error() string { return d.Reason }

func deny(reason string) *Denied { return &Denied{Reason: reason} }

// ListScope narrows a task list query to what the identity may see:
// admins see everything, managers see owned-or-team tasks, users see owned
// tasks only. Unknown roles see nothing.
func ListScope(id auth.Identity) task.ListFilter {
	switch id.Role {
	case auth.RoleAdmin:
		return task.ListFilter{}
	case auth.RoleManager:
		return task.ListFilter{Viewer: id.SubjectID, IncludeTeam: true}
	default:
		return task.ListFilter{Viewer: id.SubjectID}
	}
}

// CanView evaluates the same visibility predicate as ListScope against a
// fetched record.
func CanView(id auth.Identity, t *task.Task) bool {
	switch id.Role {
	case auth.RoleAdmin:
		return true
	case auth.RoleManager:
		return t.IsOwner(id.SubjectID) || t.InTeam(id.SubjectID)
	case auth.RoleUser:
		return t.IsOwner(id.SubjectID)
	}
	return false
}

// ResolveOwner decides the owner of a task being created. Only admins may
// assign ownership; for everyone else a client-supplied owner is ignored and
// the task is self-owned. An admin who supplies no owner gets self.
func ResolveOwner(id auth.Identity, requested string) string {
	if id.Role == auth.RoleAdmin && requested != "" {
		return requested
	}
	return id.SubjectID
}

// CanDelete reports whether the identity may delete tasks. Admin only.
func CanDelete(id auth.Identity) bool {
	return id.Role == auth.RoleAdmin
}

// ApplyUpdate applies the permitted subset of the patch to the task in place
// and returns the names of the fields that changed.
//
// Per role:
//   - admin: every field.
//   - manager: must be owner or team member; description, priority, status,
//     dueDate and teamIds are writable, but a patch naming title or owner is
//     rejected outright rather than partially applied.
//   - user: must be owner; only status is read from the patch, anything else
//     present is silently ignored.
//   - any other role: rejected.
//
// Fields absent from the patch are always left unchanged.
func ApplyUpdate(id auth.Identity, t *task.Task, patch task.UpdateTaskInput) ([]string, error) {
	switch id.Role {
	case auth.RoleAdmin:
		return applyFields(t, patch, true), nil

	case auth.RoleManager:
		if !t.IsOwner(id.SubjectID) && !t.InTeam(id.SubjectID) {
			return nil, deny("forbidden")
		}
		if patch.Title != nil {
			return nil, deny("managers cannot change title")
		}
		if patch.OwnerID != nil {
			return nil, deny("managers cannot change assignee")
		}
		return applyFields(t, patch, false), nil

	case auth.RoleUser:
		if !t.IsOwner(id.SubjectID) {
			return nil, deny("forbidden")
		}
		var changed []string
		if patch.Status != nil {
			t.Status = *patch.Status
			changed = append(changed, "status")
		}
		return changed, nil
	}

	return nil, deny("forbidden")
}

// applyFields writes the present patch fields onto the task. Title and owner
// are only applied when full is true; the manager path has already rejected
// patches naming them.
func applyFields(t *task.Task, patch task.UpdateTaskInput, full bool) []string {
	var changed []string

	if full && patch.Title != nil {
		t.Title = *patch.Title
		changed = append(changed, "title")
	}
	if full && patch.OwnerID != nil {
		t.OwnerID = *patch.OwnerID
		changed = append(changed, "owner")
	}
	if patch.Description != nil {
		t.Description = *patch.Description
		changed = append(changed, "description")
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
		changed = append(changed, "priority")
	}
	if patch.Status != nil {
		t.Status = *patch.Status
		changed = append(changed, "status")
	}
	if patch.DueDate != nil {
		t.DueDate = patch.DueDate
		changed = append(changed, "dueDate")
	}
	if patch.TeamIDs != nil {
		t.TeamIDs = *patch.TeamIDs
		changed = append(changed, "teamIds")
	}

	return changed
}
