package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

var (
	ErrTokenExpired = errors.New("session expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// TokenManager signs and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	expiry time.Duration
	Now    func() time.Time
}

func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		expiry: expiry,
		Now:    time.Now,
	}
}

func (m *TokenManager) Issue(p entity.Principal) (string, time.Time, error) {
	now := m.Now()
	exp := now.Add(m.expiry)
	claims := jwt.MapClaims{
		"user_id":   p.UserID,
		"username":  p.Username,
		"email":     p.Email,
		"role":      string(p.Role),
		"full_name": p.FullName,
		"iat":       now.Unix(),
		"exp":       exp.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (m *TokenManager) Parse(raw string) (entity.Principal, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.Now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return entity.Principal{}, ErrTokenExpired
		}
		return entity.Principal{}, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return entity.Principal{}, ErrTokenInvalid
	}

	p := entity.Principal{
		UserID:   claimString(claims, "user_id"),
		Username: claimString(claims, "username"),
		Email:    claimString(claims, "email"),
		Role:     entity.Role(claimString(claims, "role")),
		FullName: claimString(claims, "full_name"),
	}
	if p.UserID == "" || !p.Role.Valid() {
		return entity.Principal{}, ErrTokenInvalid
	}
	return p, nil
}

func claimString(c jwt.MapClaims, key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}
