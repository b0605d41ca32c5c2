package task

import "time"

// Priority values.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Status values.
const (
	StatusTodo       = "todo"
	StatusInProgress = "inprogress"
	StatusDone       = "done"
)

// ValidPriority reports whether p is a recognized priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ValidStatus reports whether s is a recognized status.
func ValidStatus(s string) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Task is a unit of work owned by a user. TeamIDs is a set of user ids used
// for manager visibility only; membership grants no write rights beyond the
// field-level update rules.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	OwnerID     string     `json:"ownerId"`
	TeamIDs     []string   `json:"teamIds"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// IsOwner returns true if the given subject owns the task.
func (t *Task) IsOwner(subjectID string) bool {
	return t.OwnerID == subjectID
}

// InTeam returns true if the given subject is in the task's team set.
func (t *Task) InTeam(subjectID string) bool {
	for _, id := range t.TeamIDs {
		if id == subjectID {
			return true
		}
	}
	return false
}

// CreateTaskInput holds the fields for creating a task. OwnerID is resolved
// by the authorization layer before it reaches the store.
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    string
	Status      string
	DueDate     *time.Time
	OwnerID     string
	TeamIDs     []string
}

// UpdateTaskInput is a partial update: nil fields are left unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Priority    *string
	Status      *string
	DueDate     *time.Time
	OwnerID     *string
	TeamIDs     *[]string
}

// ListFilter narrows a list query to the caller's visibility. An empty
// Viewer means unrestricted; IncludeTeam additionally admits tasks whose
// team set contains the viewer.
type ListFilter struct {
	Viewer      string
	IncludeTeam bool
	Status      string
}

// ListParams controls ordering and pagination of a list query.
type ListParams struct {
	Sort   string // e.g. "-createdAt"; empty means default ordering
	Offset int
	Limit  int
}
