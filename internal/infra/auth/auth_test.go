package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

func testPrincipal() entity.Principal {
	return entity.Principal{
		UserID:   "u-1",
		Username: "ventas1",
		Email:    "ventas1@muyu.com",
		Role:     entity.RoleSales,
		FullName: "Vendedor Uno",
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", 24*time.Hour)
	token, exp, err := m.Issue(testPrincipal())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), exp, time.Minute)

	p, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, testPrincipal(), p)
}

func TestTokenExpired(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	issuedAt := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	m.Now = func() time.Time { return issuedAt }
	token, _, err := m.Issue(testPrincipal())
	require.NoError(t, err)

	m.Now = func() time.Time { return issuedAt.Add(2 * time.Hour) }
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret", time.Hour).Issue(testPrincipal())
	require.NoError(t, err)

	_, err = NewTokenManager("other", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = NewTokenManager("secret", time.Hour).Parse("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestHasherBcrypt(t *testing.T) {
	h := &Hasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("muyu2024")
	require.NoError(t, err)

	ok, upgrade := h.Verify("muyu2024", hash, "")
	assert.True(t, ok)
	assert.False(t, upgrade)

	ok, _ = h.Verify("wrong", hash, "")
	assert.False(t, ok)
}

// TestHasherUpgradesLowCostBcrypt - a hash below the configured cost asks for a rehash
func TestHasherUpgradesLowCostBcrypt(t *testing.T) {
	weak := &Hasher{Cost: bcrypt.MinCost}
	hash, err := weak.Hash("muyu2024")
	require.NoError(t, err)

	strong := &Hasher{Cost: bcrypt.MinCost + 1}
	ok, upgrade := strong.Verify("muyu2024", hash, "")
	assert.True(t, ok)
	assert.True(t, upgrade)

	ok, upgrade = strong.Verify("wrong", hash, "")
	assert.False(t, ok)
	assert.False(t, upgrade)
}

func TestHasherLegacySHA256(t *testing.T) {
	salt := "a1b2c3"
	sum := sha256.Sum256([]byte("admin123" + salt))
	legacy := hex.EncodeToString(sum[:])

	h := &Hasher{Cost: bcrypt.MinCost}
	ok, upgrade := h.Verify("admin123", legacy, salt)
	assert.True(t, ok)
	assert.True(t, upgrade)

	ok, upgrade = h.Verify("admin124", legacy, salt)
	assert.False(t, ok)
	assert.False(t, upgrade)
}

func TestCookieStoreSaveAndClear(t *testing.T) {
	store, err := NewCookieStore("0123456789abcdef0123456789abcdef", false, time.Hour, zap.NewNop())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	require.NoError(t, store.Save(w, r, "tok-123"))

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	r2 := httptest.NewRequest(http.MethodGet, "/institutions", nil)
	for _, c := range cookies {
		r2.AddCookie(c)
	}
	got, err := store.Token(r2)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", got)

	r3 := httptest.NewRequest(http.MethodGet, "/institutions", nil)
	r3.AddCookie(&http.Cookie{Name: SessionName, Value: "garbage"})
	_, err = store.Token(r3)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestCookieStoreRequiresKey(t *testing.T) {
	_, err := NewCookieStore("", false, time.Hour, zap.NewNop())
	assert.Error(t, err)
}
