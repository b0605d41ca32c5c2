package user

import "time"

// User is an account record. The password hash never leaves the service:
// it is excluded from JSON and password checks go through CheckPassword.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CreateUserInput holds the fields for creating a user. The password is
// hashed by the store; Role defaults to "user" when empty.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}
