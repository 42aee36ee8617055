package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authsvc "kloset/internal/app/services/auth"
	domainauth "kloset/internal/domain/auth"
	domainuser "kloset/internal/domain/user"
	"kloset/internal/infra/security"
	"kloset/internal/infra/storage/memory"
)

func newService() *authsvc.Service {
	factory := memory.NewFactory()
	return &authsvc.Service{
		Users:      factory.UsersRepo,
		Sessions:   memory.NewSessionStore(),
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: time.Hour,
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	res, err := svc.Register(ctx, authsvc.RegisterParams{
		Email:    "Amina@Example.com",
		Name:     "Amina",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	// email is stored normalized
	assert.Equal(t, "amina@example.com", res.User.Email)
	assert.True(t, res.User.HasRole(domainuser.RoleMember))
	assert.NotEqual(t, "correct horse", res.User.PasswordHash)

	login, err := svc.Login(ctx, authsvc.LoginParams{Email: "amina@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	_, err = svc.Login(ctx, authsvc.LoginParams{Email: "amina@example.com", Password: "wrong horse"})
	assert.ErrorIs(t, err, authsvc.ErrInvalidCredentials)

	_, err = svc.Login(ctx, authsvc.LoginParams{Email: "nobody@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, authsvc.ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Register(ctx, authsvc.RegisterParams{Email: "a@b.com", Name: "A", Password: "short"})
	assert.ErrorIs(t, err, authsvc.ErrPasswordTooShort)

	_, err = svc.Register(ctx, authsvc.RegisterParams{Name: "A", Password: "long enough"})
	assert.ErrorIs(t, err, domainuser.ErrEmailRequired)

	_, err = svc.Register(ctx, authsvc.RegisterParams{Email: "a@b.com", Name: "A", Password: "long enough"})
	require.NoError(t, err)

	// same address, different case
	_, err = svc.Register(ctx, authsvc.RegisterParams{Email: "A@B.com", Name: "A2", Password: "long enough"})
	assert.ErrorIs(t, err, domainuser.ErrEmailAlreadyUsed)
}

func TestResolveAndLogout(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	res, err := svc.Register(ctx, authsvc.RegisterParams{Email: "a@b.com", Name: "A", Password: "long enough"})
	require.NoError(t, err)

	resolved, err := svc.ResolveToken(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, resolved.User.ID)

	require.NoError(t, svc.Logout(ctx, res.Token))
	_, err = svc.ResolveToken(ctx, res.Token)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)

	_, err = svc.ResolveToken(ctx, "  ")
	assert.ErrorIs(t, err, domainauth.ErrTokenRequired)
}

func TestExpiredSessionIsRejected(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	res, err := svc.Register(ctx, authsvc.RegisterParams{Email: "a@b.com", Name: "A", Password: "long enough"})
	require.NoError(t, err)

	stale, err := domainauth.NewSession(domainauth.CreateSessionParams{
		Token:  "stale-token",
		UserID: res.User.ID,
		TTL:    time.Minute,
		Now:    time.Now().Add(-2 * time.Minute),
	})
	require.NoError(t, err)
	require.NoError(t, svc.Sessions.Save(ctx, stale))

	_, err = svc.ResolveToken(ctx, "stale-token")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)

	// the expired session is pruned on the failed resolve
	_, err = svc.Sessions.ByToken(ctx, "stale-token")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}
