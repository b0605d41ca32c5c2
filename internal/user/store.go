package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/jstrand/taskgate/internal/auth"
)

// ErrDuplicateEmail is returned when a create collides with an existing
// email. The unique index is the arbiter, so concurrent registrations of the
// same address resolve to exactly one winner.
var ErrDuplicateEmail = errors.New("email already registered")

const uniqueViolation = "23505"

const userColumns = `id, name, email, password_hash, role, created_at`

// NormalizeEmail lowercases and trims an email address so lookups and the
// unique index agree on a single canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Store provides database operations for users.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new user store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanUser(scan func(dest ...any) error) (*User, error) {
	u := &User{}
	err := scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user with a bcrypt-hashed password.
func (s *Store) Create(ctx context.Context, in CreateUserInput) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	role := in.Role
	if role == "" {
		role = auth.RoleUser
	}

	u, err := scanUser(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO users (id, name, email, password_hash, role)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING `+userColumns,
			uuid.NewString(), in.Name, NormalizeEmail(in.Email), string(hash), role,
		).Scan(dest...)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by primary key.
func (s *Store) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("getting user by id: %w", err)
	}
	return u, nil
}

// GetByEmail retrieves a user by case-normalized email address.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`, NormalizeEmail(email),
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// List returns all users ordered by created_at DESC.
func (s *Store) List(ctx context.Context) ([]*User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateRole sets the role of the user with the given id and returns the
// updated record. Role validity is the caller's concern.
func (s *Store) UpdateRole(ctx context.Context, id, role string) (*User, error) {
	u, err := scanUser(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`UPDATE users SET role = $1 WHERE id = $2 RETURNING `+userColumns,
			role, id,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("updating user role: %w", err)
	}
	return u, nil
}

// CheckPassword verifies a plaintext password against the user's stored
// hash. bcrypt's comparison is constant-time with respect to the hash.
func CheckPassword(u *User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
