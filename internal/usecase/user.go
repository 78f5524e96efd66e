package usecase

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

// UserUseCase is the admin user management.
type UserUseCase struct {
	Repo   entity.UserRepository
	Hasher PasswordHasher
	Clock  Clock
	Log    *zap.Logger
}

func NewUserUseCase(repo entity.UserRepository, hasher PasswordHasher, clock Clock, log *zap.Logger) *UserUseCase {
	return &UserUseCase{Repo: repo, Hasher: hasher, Clock: clock, Log: log}
}

func (uc *UserUseCase) List(ctx context.Context, p entity.Principal) ([]entity.User, error) {
	if err := authorize(p, entity.RoleAdmin); err != nil {
		return nil, err
	}
	users, err := uc.Repo.List(ctx)
	if err != nil {
		return nil, repoError("list users", "usuario", err)
	}
	if users == nil {
		users = []entity.User{}
	}
	return users, nil
}

func (uc *UserUseCase) Create(ctx context.Context, p entity.Principal, in CreateUserInput) (*entity.User, error) {
	if err := authorize(p, entity.RoleAdmin); err != nil {
		return nil, err
	}
	if errs := validateStruct(in); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	role, _ := entity.ParseRole(in.Role)
	u, err := createUser(ctx, uc.Repo, uc.Hasher, uc.Clock, in.Username, in.Email, in.FullName, in.Phone, in.Password, role)
	if err != nil {
		return nil, err
	}
	uc.Log.Info("user created", zap.String("username", u.Username), zap.String("by", p.Username))
	return u, nil
}

func (uc *UserUseCase) Update(ctx context.Context, p entity.Principal, id string, in UpdateUserInput) (*entity.User, error) {
	if err := authorize(p, entity.RoleAdmin); err != nil {
		return nil, err
	}
	if errs := validateStruct(in); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	u, err := uc.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, repoError("load user", "usuario", err)
	}
	role, _ := entity.ParseRole(in.Role)
	if u.ID == p.UserID && role != entity.RoleAdmin {
		return nil, validationFailed([]ValidationError{{Field: "role", Message: "cannot remove your own admin role"}})
	}

	u.Email = strings.ToLower(strings.TrimSpace(in.Email))
	u.FullName = cleanText(in.FullName)
	u.Phone = strings.TrimSpace(in.Phone)
	u.Role = role
	if in.Active != nil {
		if !*in.Active && u.ID == p.UserID {
			return nil, validationFailed([]ValidationError{{Field: "active", Message: "cannot deactivate yourself"}})
		}
		u.Active = *in.Active
	}
	if err := uc.Repo.Update(ctx, u); err != nil {
		return nil, repoError("update user", "usuario", err)
	}

	if in.Password != "" {
		hash, err := uc.Hasher.Hash(in.Password)
		if err != nil {
			return nil, &TechnicalError{Code: CodeDatabase, Message: "failed to hash password", Err: err}
		}
		if err := uc.Repo.UpdatePassword(ctx, u.ID, hash); err != nil {
			return nil, repoError("update password", "usuario", err)
		}
		u.PasswordHash, u.Salt = hash, ""
	}

	uc.Log.Info("user updated",
		zap.String("user_id", u.ID),
		zap.Bool("password_changed", in.Password != ""),
		zap.String("by", p.Username))
	return u, nil
}

// SetActive is the soft deactivation: the account stays but cannot log in.
func (uc *UserUseCase) SetActive(ctx context.Context, p entity.Principal, id string, active bool) (*entity.User, error) {
	if err := authorize(p, entity.RoleAdmin); err != nil {
		return nil, err
	}
	if !active && id == p.UserID {
		return nil, validationFailed([]ValidationError{{Field: "active", Message: "cannot deactivate yourself"}})
	}
	u, err := uc.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, repoError("load user", "usuario", err)
	}
	u.Active = active
	if err := uc.Repo.Update(ctx, u); err != nil {
		return nil, repoError("update user", "usuario", err)
	}
	uc.Log.Info("user activation changed", zap.String("user_id", id), zap.Bool("active", active), zap.String("by", p.Username))
	return u, nil
}

func (uc *UserUseCase) Delete(ctx context.Context, p entity.Principal, id string) error {
	if err := authorize(p, entity.RoleAdmin); err != nil {
		return err
	}
	if id == p.UserID {
		return validationFailed([]ValidationError{{Field: "id", Message: "cannot delete yourself"}})
	}
	if err := uc.Repo.Delete(ctx, id); err != nil {
		return repoError("delete user", "usuario", err)
	}
	uc.Log.Warn("user deleted", zap.String("user_id", id), zap.String("by", p.Username))
	return nil
}

func (uc *UserUseCase) Metrics(ctx context.Context, p entity.Principal) (*UserMetrics, error) {
	users, err := uc.List(ctx, p)
	if err != nil {
		return nil, err
	}
	m := &UserMetrics{Total: len(users), ByRole: map[entity.Role]int{}}
	for _, u := range users {
		if u.Active {
			m.Active++
		}
		m.ByRole[u.Role]++
	}
	return m, nil
}

// Assignable lists the active users tasks and institutions can be assigned to.
func (uc *UserUseCase) Assignable(ctx context.Context) ([]entity.User, error) {
	users, err := uc.Repo.List(ctx)
	if err != nil {
		return nil, repoError("list users", "usuario", err)
	}
	out := make([]entity.User, 0, len(users))
	for i := range users {
		if assignable(&users[i]) {
			out = append(out, users[i])
		}
	}
	return out, nil
}

// SeedDefaults creates the seed accounts that do not exist yet. Existing
// accounts are left untouched.
func (uc *UserUseCase) SeedDefaults(ctx context.Context, seeds []SeedUser) (*SeedReport, error) {
	report := &SeedReport{Created: []string{}, Existing: []string{}}
	for _, s := range seeds {
		_, err := uc.Repo.FindByUsername(ctx, s.Username)
		if err == nil {
			report.Existing = append(report.Existing, s.Username)
			continue
		}
		if !errors.Is(err, entity.ErrNotFound) {
			return nil, repoError("load user", "usuario", err)
		}
		if s.Password == "" {
			return nil, validationFailed([]ValidationError{{Field: s.Username, Message: "seed password is empty"}})
		}
		if _, err := createUser(ctx, uc.Repo, uc.Hasher, uc.Clock, s.Username, s.Email, s.FullName, "", s.Password, s.Role); err != nil {
			return nil, err
		}
		report.Created = append(report.Created, s.Username)
		uc.Log.Info("seed user created", zap.String("username", s.Username), zap.String("role", string(s.Role)))
	}
	return report, nil
}
