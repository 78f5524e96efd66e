package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xavierca1/muyu-crm/internal/entity"
	"github.com/xavierca1/muyu-crm/internal/infra/auth"
	"github.com/xavierca1/muyu-crm/internal/testutil"
)

func newAuth(t *testing.T) (*AuthUseCase, *testutil.Store, *auth.TokenManager) {
	t.Helper()
	store := testutil.NewStore()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	tokens.Now = func() time.Time { return testNow }
	uc := NewAuthUseCase(store.Users(), &auth.Hasher{Cost: bcrypt.MinCost}, tokens, fixedClock(), zap.NewNop())
	return uc, store, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	uc, _, tokens := newAuth(t)
	ctx := context.Background()

	u, err := uc.Register(ctx, RegisterInput{
		Username:        "ventas3",
		Email:           "Ventas3@Muyu.com",
		FullName:        "Ventas Tres",
		Password:        "secreto1",
		ConfirmPassword: "secreto1",
		Role:            "sales",
	})
	require.NoError(t, err)
	assert.Equal(t, "ventas3@muyu.com", u.Email)
	assert.True(t, u.Active)

	out, err := uc.Login(ctx, LoginInput{Username: "ventas3", Password: "secreto1"})
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(time.Hour), out.ExpiresAt)
	require.NotNil(t, out.User.LastLogin)

	p, err := tokens.Parse(out.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)
	assert.Equal(t, entity.RoleSales, p.Role)
}

func TestRegisterValidation(t *testing.T) {
	uc, _, _ := newAuth(t)

	_, err := uc.Register(context.Background(), RegisterInput{
		Username:        "x1",
		Email:           "bad",
		FullName:        "X",
		Password:        "12345",
		ConfirmPassword: "54321",
		Role:            "admin",
	})

	var de *DomainError
	require.ErrorAs(t, err, &de)
	fields := map[string]bool{}
	for _, f := range de.Fields {
		fields[f.Field] = true
	}
	for _, f := range []string{"username", "email", "password", "confirm_password", "role"} {
		assert.True(t, fields[f], f)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	uc, _, _ := newAuth(t)
	in := RegisterInput{Username: "ventas3", Email: "a@muyu.com", FullName: "A", Password: "secreto1", ConfirmPassword: "secreto1", Role: "support"}
	_, err := uc.Register(context.Background(), in)
	require.NoError(t, err)

	in.Email = "b@muyu.com"
	_, err = uc.Register(context.Background(), in)

	assert.Equal(t, CodeConflict, domainCode(err))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	uc, store, _ := newAuth(t)
	ctx := context.Background()
	_, err := uc.Register(ctx, RegisterInput{Username: "ventas3", Email: "a@muyu.com", FullName: "A", Password: "secreto1", ConfirmPassword: "secreto1", Role: "sales"})
	require.NoError(t, err)

	_, err = uc.Login(ctx, LoginInput{Username: "ventas3", Password: "otra"})
	assert.Equal(t, CodeInvalidCredentials, domainCode(err))

	_, err = uc.Login(ctx, LoginInput{Username: "nadie", Password: "secreto1"})
	assert.Equal(t, CodeInvalidCredentials, domainCode(err))

	u, _ := store.Users().FindByUsername(ctx, "ventas3")
	u.Active = false
	require.NoError(t, store.Users().Update(ctx, u))
	_, err = uc.Login(ctx, LoginInput{Username: "ventas3", Password: "secreto1"})
	assert.Equal(t, CodeInvalidCredentials, domainCode(err))
}

// TestLoginUpgradesLegacyHash - salted SHA-256 rows are rehashed with bcrypt
func TestLoginUpgradesLegacyHash(t *testing.T) {
	uc, store, _ := newAuth(t)
	ctx := context.Background()

	salt := "a1b2c3"
	sum := sha256.Sum256([]byte("clave123" + salt))
	u := entity.NewUser("soporte2", "s2@muyu.com", "Soporte Dos", entity.RoleSupport, testNow)
	u.PasswordHash = hex.EncodeToString(sum[:])
	u.Salt = salt
	require.NoError(t, store.Users().Create(ctx, u))

	_, err := uc.Login(ctx, LoginInput{Username: "soporte2", Password: "clave123"})
	require.NoError(t, err)

	stored, err := store.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Salt)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("clave123")))

	_, err = uc.Login(ctx, LoginInput{Username: "soporte2", Password: "clave123"})
	assert.NoError(t, err)
}

// TestLoginRehashesLowCostBcrypt - bcrypt rows below the current cost are rehashed
func TestLoginRehashesLowCostBcrypt(t *testing.T) {
	store := testutil.NewStore()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	tokens.Now = func() time.Time { return testNow }
	uc := NewAuthUseCase(store.Users(), &auth.Hasher{Cost: bcrypt.MinCost + 1}, tokens, fixedClock(), zap.NewNop())
	ctx := context.Background()

	weak, err := bcrypt.GenerateFromPassword([]byte("clave123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := entity.NewUser("ventas2", "v2@muyu.com", "Ventas Dos", entity.RoleSales, testNow)
	u.PasswordHash = string(weak)
	require.NoError(t, store.Users().Create(ctx, u))

	_, err = uc.Login(ctx, LoginInput{Username: "ventas2", Password: "clave123"})
	require.NoError(t, err)

	stored, err := store.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)
}

func TestAuthenticate(t *testing.T) {
	uc, _, tokens := newAuth(t)

	raw, _, err := tokens.Issue(salesP)
	require.NoError(t, err)
	p, err := uc.Authenticate(raw)
	require.NoError(t, err)
	assert.Equal(t, salesP.UserID, p.UserID)

	_, err = uc.Authenticate("")
	assert.Equal(t, CodeSessionExpired, domainCode(err))

	_, err = uc.Authenticate("not-a-token")
	assert.Equal(t, CodeInvalidToken, domainCode(err))

	tokens.Now = func() time.Time { return testNow.Add(2 * time.Hour) }
	_, err = uc.Authenticate(raw)
	assert.Equal(t, CodeSessionExpired, domainCode(err))
}
