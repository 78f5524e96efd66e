package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

const userSelect = `
	SELECT id, username, email, COALESCE(phone, ''), password_hash, COALESCE(salt, ''),
	       role, full_name, active, created_at, last_login
	FROM users`

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	query := `
		INSERT INTO users (id, username, email, phone, password_hash, salt, role, full_name, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.DB.ExecContext(ctx, query,
		u.ID, u.Username, u.Email, nullString(u.Phone), u.PasswordHash, nullString(u.Salt),
		string(u.Role), u.FullName, u.Active, u.CreatedAt,
	)
	return mapError("create user", err)
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	query := `
		UPDATE users SET email = $2, full_name = $3, phone = $4, role = $5, active = $6
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, query, u.ID, u.Email, u.FullName, nullString(u.Phone), string(u.Role), u.Active)
	return mustAffect("update user", res, err)
}

// UpdatePassword stores a bcrypt hash; the legacy salt is dropped.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET password_hash = $2, salt = NULL WHERE id = $1`, id, hash)
	return mustAffect("update password", res, err)
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	return mustAffect("touch last_login", res, err)
}

// Delete removes the user; owned institutions and assigned tasks keep
// existing without an owner.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return mustAffect("delete user", res, err)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, userSelect+` WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("find user", err)
	}
	return u, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, userSelect+` WHERE LOWER(username) = LOWER($1)`, username))
	if err != nil {
		return nil, mapError("find user", err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]entity.User, error) {
	rows, err := r.DB.QueryContext(ctx, userSelect+` ORDER BY username`)
	if err != nil {
		return nil, mapError("list users", err)
	}
	defer rows.Close()

	out := []entity.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapError("scan user", err)
		}
		out = append(out, *u)
	}
	return out, mapError("list users", rows.Err())
}

func scanUser(s rowScanner) (*entity.User, error) {
	var (
		u         entity.User
		role      string
		lastLogin sql.NullTime
	)
	err := s.Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.PasswordHash, &u.Salt,
		&role, &u.FullName, &u.Active, &u.CreatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	u.Role = entity.Role(role)
	u.LastLogin = timePtr(lastLogin)
	return &u, nil
}
