package entity

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleSales   Role = "sales"
	RoleSupport Role = "support"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSales || r == RoleSupport
}

func ParseRole(v string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(v)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, v)
	}
	return r, nil
}

type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	PasswordHash string     `json:"-"`
	Salt         string     `json:"-"`
	Role         Role       `json:"role"`
	FullName     string     `json:"full_name"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

func NewUser(username, email, fullName string, role Role, now time.Time) *User {
	return &User{
		ID:        uuid.New().String(),
		Username:  strings.TrimSpace(username),
		Email:     strings.TrimSpace(email),
		FullName:  strings.TrimSpace(fullName),
		Role:      role,
		Active:    true,
		CreatedAt: now,
	}
}

func (u *User) Principal() Principal {
	return Principal{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		FullName: u.FullName,
	}
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	FullName string `json:"full_name"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p Principal) HasAnyRole(roles ...Role) bool {
	return slices.Contains(roles, p.Role)
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id, hash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
}
