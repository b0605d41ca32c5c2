package api

import (
	"log/slog"
	"net/http"

	"github.com/jstrand/taskgate/internal/auth"
	"github.com/jstrand/taskgate/internal/ratelimit"
)

// auditLog emits a structured audit log entry for a privileged mutation
// (role change, delete, owner reassignment). Log-only: entries are not
// persisted beyond the log stream.
func auditLog(r *http.Request, action string, resourceType string, resourceID string, detail ...any) {
	attrs := []any{
		"action", action,
		"resource_type", resourceType,
		"resource_id", resourceID,
		"ip", ratelimit.ClientIP(r),
		"request_id", RequestIDFromContext(r.Context()),
	}

	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		attrs = append(attrs, "subject_id", id.SubjectID, "subject_email", id.Email, "subject_role", id.Role)
	}

	attrs = append(attrs, detail...)
	slog.Info("audit", attrs...)
}
