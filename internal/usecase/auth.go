package usecase

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/entity"
	"github.com/xavierca1/muyu-crm/internal/infra/auth"
)

type AuthUseCase struct {
	Users  entity.UserRepository
	Hasher PasswordHasher
	Tokens TokenService
	Clock  Clock
	Log    *zap.Logger
}

func NewAuthUseCase(users entity.UserRepository, hasher PasswordHasher, tokens TokenService, clock Clock, log *zap.Logger) *AuthUseCase {
	return &AuthUseCase{Users: users, Hasher: hasher, Tokens: tokens, Clock: clock, Log: log}
}

var errInvalidCredentials = &DomainError{Code: CodeInvalidCredentials, Message: "usuario o contraseña incorrectos"}

// Login verifies the credentials of an active user and issues a session
// token. A legacy SHA-256 hash, or a bcrypt hash below the current cost, is
// replaced on success.
func (uc *AuthUseCase) Login(ctx context.Context, in LoginInput) (*LoginOutput, error) {
	if errs := validateStruct(in); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	u, err := uc.Users.FindByUsername(ctx, strings.TrimSpace(in.Username))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, repoError("load user", "usuario", err)
	}
	if !u.Active {
		return nil, errInvalidCredentials
	}

	ok, upgrade := uc.Hasher.Verify(in.Password, u.PasswordHash, u.Salt)
	if !ok {
		uc.Log.Info("login rejected", zap.String("username", u.Username))
		return nil, errInvalidCredentials
	}

	if upgrade {
		if hash, err := uc.Hasher.Hash(in.Password); err == nil {
			if err := uc.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
				uc.Log.Warn("password upgrade failed", zap.String("user_id", u.ID), zap.Error(err))
			} else {
				u.PasswordHash, u.Salt = hash, ""
				uc.Log.Info("password hash upgraded", zap.String("user_id", u.ID))
			}
		}
	}

	now := uc.Clock.now()
	if err := uc.Users.TouchLastLogin(ctx, u.ID, now); err != nil {
		uc.Log.Warn("failed to record last login", zap.String("user_id", u.ID), zap.Error(err))
	} else {
		u.LastLogin = &now
	}

	token, exp, err := uc.Tokens.Issue(u.Principal())
	if err != nil {
		return nil, &TechnicalError{Code: CodeInvalidToken, Message: "failed to issue token", Err: err}
	}

	uc.Log.Info("user logged in", zap.String("username", u.Username), zap.String("role", string(u.Role)))
	return &LoginOutput{Token: token, ExpiresAt: exp, User: u}, nil
}

// Register creates a sales or support account from the public signup form.
func (uc *AuthUseCase) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	if errs := validateStruct(in); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	role, _ := entity.ParseRole(in.Role)
	u, err := createUser(ctx, uc.Users, uc.Hasher, uc.Clock, in.Username, in.Email, in.FullName, in.Phone, in.Password, role)
	if err != nil {
		return nil, err
	}
	uc.Log.Info("user registered", zap.String("username", u.Username), zap.String("role", string(u.Role)))
	return u, nil
}

// Authenticate turns a session token into the request principal.
func (uc *AuthUseCase) Authenticate(raw string) (entity.Principal, error) {
	if strings.TrimSpace(raw) == "" {
		return entity.Principal{}, &DomainError{Code: CodeSessionExpired, Message: "sesión no iniciada"}
	}
	p, err := uc.Tokens.Parse(raw)
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, auth.ErrTokenExpired):
		return entity.Principal{}, &DomainError{Code: CodeSessionExpired, Message: "la sesión expiró"}
	default:
		return entity.Principal{}, &DomainError{Code: CodeInvalidToken, Message: "token inválido"}
	}
}

func createUser(ctx context.Context, users entity.UserRepository, hasher PasswordHasher, clock Clock, username, email, fullName, phone, password string, role entity.Role) (*entity.User, error) {
	hash, err := hasher.Hash(password)
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "failed to hash password", Err: err}
	}
	u := entity.NewUser(username, strings.ToLower(strings.TrimSpace(email)), cleanText(fullName), role, clock.now())
	u.Phone = strings.TrimSpace(phone)
	u.PasswordHash = hash

	if err := users.Create(ctx, u); err != nil {
		return nil, repoError("create user", "usuario", err)
	}
	return u, nil
}
