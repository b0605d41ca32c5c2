package task

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, title, description, priority, status, due_date, owner_id, team_ids, created_at, updated_at`

// sortColumns maps API sort keys to table columns. Anything else is rejected
// so the sort parameter can never inject SQL.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"dueDate":   "due_date",
	"priority":  "priority",
	"status":    "status",
	"title":     "title",
}

// ParseSort translates an API sort key (optionally prefixed with '-' for
// descending) into an ORDER BY clause. Empty input sorts by newest first.
func ParseSort(sort string) (string, error) {
	if sort == "" {
		sort = "-createdAt"
	}

	dir := "ASC"
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
		sort = sort[1:]
	}

	col, ok := sortColumns[sort]
	if !ok {
		return "", fmt.Errorf("unsupported sort field %q", sort)
	}
	return col + " " + dir, nil
}

// Store provides database operations for tasks.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new task store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanTask(scan func(dest ...any) error) (*Task, error) {
	t := &Task{}
	err := scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Status,
		&t.DueDate, &t.OwnerID, &t.TeamIDs, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if t.TeamIDs == nil {
		t.TeamIDs = []string{}
	}
	return t, nil
}

// buildWhere renders the filter into a WHERE clause and its arguments.
func buildWhere(f ListFilter) (string, []any) {
	var conds []string
	var args []any

	if f.Viewer != "" {
		args = append(args, f.Viewer)
		if f.IncludeTeam {
			conds = append(conds, fmt.Sprintf("(owner_id = $%d OR $%d = ANY(team_ids))", len(args), len(args)))
		} else {
			conds = append(conds, fmt.Sprintf("owner_id = $%d", len(args)))
		}
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns a page of tasks matching the filter plus the total match
// count, so callers can paginate with offset/limit.
func (s *Store) List(ctx context.Context, f ListFilter, p ListParams) ([]*Task, int, error) {
	orderBy, err := ParseSort(p.Sort)
	if err != nil {
		return nil, 0, err
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 10
	}

	where, args := buildWhere(f)

	query := fmt.Sprintf(`SELECT %s FROM tasks%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		taskColumns, where, orderBy, len(args)+1, len(args)+2)

	rows, err := s.pool.Query(ctx, query, append(args, limit, p.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating task rows: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM tasks" + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting tasks: %w", err)
	}

	return tasks, total, nil
}

// GetByID retrieves a task by primary key.
func (s *Store) GetByID(ctx context.Context, id string) (*Task, error) {
	t, err := scanTask(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("getting task by id: %w", err)
	}
	return t, nil
}

// Create inserts a new task and returns the created record.
func (s *Store) Create(ctx context.Context, in CreateTaskInput) (*Task, error) {
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	status := in.Status
	if status == "" {
		status = StatusTodo
	}
	teamIDs := in.TeamIDs
	if teamIDs == nil {
		teamIDs = []string{}
	}

	t, err := scanTask(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO tasks (id, title, description, priority, status, due_date, owner_id, team_ids)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING `+taskColumns,
			uuid.NewString(), in.Title, in.Description, priority, status, in.DueDate, in.OwnerID, teamIDs,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return t, nil
}

// Save writes all mutable fields of the task back and bumps updated_at.
// Last write wins; concurrent saves of the same task are not serialized here.
func (s *Store) Save(ctx context.Context, t *Task) (*Task, error) {
	teamIDs := t.TeamIDs
	if teamIDs == nil {
		teamIDs = []string{}
	}

	saved, err := scanTask(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`UPDATE tasks
			 SET title = $1, description = $2, priority = $3, status = $4,
			     due_date = $5, owner_id = $6, team_ids = $7, updated_at = now()
			 WHERE id = $8
			 RETURNING `+taskColumns,
			t.Title, t.Description, t.Priority, t.Status, t.DueDate, t.OwnerID, teamIDs, t.ID,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("saving task: %w", err)
	}
	return saved, nil
}

// Delete removes a task by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return nil
}
