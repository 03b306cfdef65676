package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/tripbook/internal/model"
	"github.com/iliyamo/tripbook/internal/repository/memstore"
	"github.com/iliyamo/tripbook/internal/utils"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type authFixture struct {
	svc    *AuthService
	store  *memstore.Store
	tokens *utils.TokenManager
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	store := memstore.New()
	tokens := utils.NewTokenManager("test-secret", time.Hour)
	svc := NewAuthService(store, utils.NewPasswordHasher(bcrypt.MinCost), tokens, discardLogger())
	return authFixture{svc: svc, store: store, tokens: tokens}
}

func TestRegister_TokenResolvesToSameEmail(t *testing.T) {
	f := newAuthFixture(t)

	res, err := f.svc.Register(context.Background(), "Ann", "ann@x.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.User.ID)
	assert.Equal(t, "Ann", res.User.Name)
	assert.Equal(t, "ann@x.com", res.User.Email)

	id, err := f.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id.UserID)
	assert.Equal(t, "ann@x.com", id.Email)
}

func TestRegister_StoresHashNotPlaintext(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Register(context.Background(), "Ann", "ann@x.com", "secret1")
	require.NoError(t, err)

	u, err := f.store.FindByEmail(context.Background(), "ann@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.True(t, strings.HasPrefix(u.PasswordHash, "$2"))
	assert.False(t, u.CreatedAt.IsZero())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	first, err := f.svc.Register(ctx, "Ann", "ann@x.com", "secret1")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "Other", "ann@x.com", "different")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	u, err := f.store.FindByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, u.ID, "original account untouched")
}

func TestRegister_EmailIsNormalized(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, "Ann", "  Ann@X.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", res.User.Email)

	_, err = f.svc.Register(ctx, "Ann again", "ANN@x.com", "secret1")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = f.svc.Login(ctx, "ANN@X.COM", "secret1")
	assert.NoError(t, err)
}

func TestRegister_Validation(t *testing.T) {
	f := newAuthFixture(t)

	cases := []struct {
		name, email, password string
	}{
		{"", "a@x.com", "pw"},
		{"   ", "a@x.com", "pw"},
		{"A", "", "pw"},
		{"A", "a@x.com", ""},
		{"A", "not-an-email", "pw"},
		{"A", "a@", "pw"},
		{"A", "a@x.com", strings.Repeat("p", 73)},
	}
	for _, tc := range cases {
		_, err := f.svc.Register(context.Background(), tc.name, tc.email, tc.password)
		require.Error(t, err, "%+v", tc)
		assert.ErrorIs(t, err, ErrValidation, "%+v", tc)
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
		assert.NotEmpty(t, ve.Msg)
	}
}

func TestLogin_SuccessAndFailuresShareKind(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, "Ann", "ann@x.com", "secret1")
	require.NoError(t, err)

	res, err := f.svc.Login(ctx, "ann@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, reg.User, res.User)
	id, err := f.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, id.UserID)

	_, wrongPw := f.svc.Login(ctx, "ann@x.com", "nope")
	_, unknown := f.svc.Login(ctx, "ghost@x.com", "secret1")
	assert.ErrorIs(t, wrongPw, ErrInvalidCredentials)
	assert.ErrorIs(t, unknown, ErrInvalidCredentials)
	assert.Equal(t, wrongPw.Error(), unknown.Error())
}

func TestLogin_MissingFields(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), "", "x")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Login(context.Background(), "a@x.com", "")
	assert.ErrorIs(t, err, ErrValidation)
}

type failingUsers struct{ err error }

func (f failingUsers) FindByEmail(context.Context, string) (*model.User, error) { return nil, f.err }
func (f failingUsers) Insert(context.Context, *model.User) error               { return f.err }

func TestAuth_StoreFailureIsUnavailable(t *testing.T) {
	svc := NewAuthService(failingUsers{err: errors.New("connection refused")},
		utils.NewPasswordHasher(bcrypt.MinCost), utils.NewTokenManager("s", time.Hour), discardLogger())

	_, err := svc.Register(context.Background(), "Ann", "ann@x.com", "secret1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = svc.Login(context.Background(), "ann@x.com", "secret1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
