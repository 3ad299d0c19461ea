package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myrestaurants/internal/adapters/auth"
	"myrestaurants/internal/domain"
)

type fakeUsers struct{ byName map[string]domain.User }

func (f *fakeUsers) Get(ctx context.Context, id int64) (domain.User, error) {
	for _, u := range f.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}
func (f *fakeUsers) ByUsername(ctx context.Context, name string) (domain.User, error) {
	u, ok := f.byName[name]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}
func (f *fakeUsers) Create(ctx context.Context, u domain.User) (domain.User, error) { return u, nil }
func (f *fakeUsers) Upsert(ctx context.Context, u domain.User) error                { return nil }

func TestTokens_IssueVerify(t *testing.T) {
	tk := auth.NewTokens([]byte("s3cret"), time.Hour)
	tok, err := tk.Issue(domain.User{ID: 7, Username: "ana"})
	require.NoError(t, err)

	actor, err := tk.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{ID: 7, Username: "ana"}, actor)

	_, err = auth.NewTokens([]byte("other"), time.Hour).Verify(tok)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = tk.Verify("garbage")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokens_ExpiredAndWrongAlg(t *testing.T) {
	expired := auth.NewTokens([]byte("s3cret"), -time.Minute)
	tok, err := expired.Issue(domain.User{ID: 1, Username: "x"})
	require.NoError(t, err)
	actor, err := expired.Verify(tok)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
	assert.False(t, actor.Authenticated())

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{UserID: 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.NewTokens([]byte("s3cret"), time.Hour).Verify(none)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestPasswords(t *testing.T) {
	h, err := auth.HashPassword("hunter2")
	require.NoError(t, err)
	assert.True(t, auth.IsHashed(h))
	assert.False(t, auth.IsHashed("hunter2"))
	assert.True(t, auth.CheckPassword(h, "hunter2"))
	assert.False(t, auth.CheckPassword(h, "hunter3"))

	_, err = auth.HashPassword("")
	assert.Error(t, err)
}

func TestAuthenticator_Login(t *testing.T) {
	h, err := auth.HashPassword("pw")
	require.NoError(t, err)
	users := &fakeUsers{byName: map[string]domain.User{"ana": {ID: 3, Username: "ana", PasswordHash: h}}}
	a := auth.NewAuthenticator(users, auth.NewTokens([]byte("k"), time.Hour))
	ctx := context.Background()

	u, tok, err := a.Login(ctx, " ana ", "pw")
	require.NoError(t, err)
	assert.EqualValues(t, 3, u.ID)
	assert.Equal(t, domain.Actor{ID: 3, Username: "ana"}, a.Actor(tok))

	_, _, err = a.Login(ctx, "ana", "nope")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, _, err = a.Login(ctx, "bob", "pw")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	assert.False(t, a.Actor("").Authenticated())
	assert.False(t, a.Actor("not-a-token").Authenticated())
}
