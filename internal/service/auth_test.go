package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/shops_api/internal/models"
	"github.com/Skotchmaster/shops_api/internal/repo"
	"github.com/Skotchmaster/shops_api/internal/testenv"
	"github.com/Skotchmaster/shops_api/pkg/apperr"
	"github.com/Skotchmaster/shops_api/pkg/events"
	"github.com/Skotchmaster/shops_api/pkg/revocation"
	"github.com/Skotchmaster/shops_api/pkg/tokens"
)

func newTestAuthService(t *testing.T) (*AuthService, *repo.GormRepo, *events.Recorder) {
	t.Helper()
	r := repo.New(testenv.InitTestDB(t))
	rec := &events.Recorder{}
	return &AuthService{
		Users:   r,
		Tokens:  tokens.NewIssuer([]byte("test-jwt-secret"), tokens.WithAdminPolicy(tokens.AnyAdmin(tokens.NewStaticAdmins(1), tokens.AdminPolicyFunc(r.IsAdmin)))),
		Revoked: revocation.NewMemory(),
		Events:  rec,
	}, r, rec
}

func TestAuthService_Register(t *testing.T) {
	svc, _, rec := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "secret123")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.Equal(t, models.RoleUser, user.Role)

	_, err = svc.Register(ctx, "alice", "other")
	require.ErrorIs(t, err, apperr.ErrDuplicateUsername)

	assert.Equal(t, []string{"user_registered"}, rec.Types())
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "empty username", username: "", password: "secret"},
		{name: "blank username", username: "   ", password: "secret"},
		{name: "empty password", username: "user", password: ""},
		{name: "password over 72 bytes", username: "user", password: strings.Repeat("é", 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.password)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "secret123")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice", "wrongpass")
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", "secret123")
	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	res, err := svc.Login(ctx, "alice", "secret123")
	require.NoError(t, err)

	access, err := svc.Tokens.Verify(res.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, tokens.TypeAccess, access.Type)
	assert.True(t, access.Fresh)
	assert.True(t, access.IsAdmin, "first user is in the static admin set")

	refresh, err := svc.Tokens.Verify(res.Refresh.Token)
	require.NoError(t, err)
	assert.Equal(t, tokens.TypeRefresh, refresh.Type)
	assert.Equal(t, access.Subject, refresh.Subject)
}

func TestAuthService_Login_RoleGrantsAdmin(t *testing.T) {
	svc, r, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "first", "pw")
	require.NoError(t, err)
	bob, err := svc.Register(ctx, "bob", "pw")
	require.NoError(t, err)

	res, err := svc.Login(ctx, "bob", "pw")
	require.NoError(t, err)
	claims, err := svc.Tokens.Verify(res.Access.Token)
	require.NoError(t, err)
	assert.False(t, claims.IsAdmin)

	require.NoError(t, r.SetRole(ctx, bob.ID, models.RoleAdmin))

	res, err = svc.Login(ctx, "bob", "pw")
	require.NoError(t, err)
	claims, err = svc.Tokens.Verify(res.Access.Token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
}

func TestAuthService_RefreshAndLogOut(t *testing.T) {
	svc, _, rec := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "secret123")
	require.NoError(t, err)
	res, err := svc.Login(ctx, "alice", "secret123")
	require.NoError(t, err)

	accessClaims, err := svc.Tokens.Verify(res.Access.Token)
	require.NoError(t, err)
	refreshClaims, err := svc.Tokens.Verify(res.Refresh.Token)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, accessClaims)
	require.ErrorIs(t, err, apperr.ErrWrongTokenType)

	require.NoError(t, svc.LogOut(ctx, accessClaims))
	revoked, err := svc.Revoked.IsRevoked(ctx, accessClaims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = svc.Revoked.IsRevoked(ctx, refreshClaims.ID)
	require.NoError(t, err)
	assert.False(t, revoked)

	issued, err := svc.Refresh(ctx, refreshClaims)
	require.NoError(t, err)
	fresh, err := svc.Tokens.Verify(issued.Token)
	require.NoError(t, err)
	assert.False(t, fresh.Fresh)
	assert.Equal(t, refreshClaims.Subject, fresh.Subject)
	assert.NotEqual(t, accessClaims.ID, fresh.ID)

	assert.Equal(t, []string{"user_registered", "user_logged_in", "user_logged_out"}, rec.Types())
}

func TestAuthService_GetAndDeleteUser(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "carol", "pw")
	require.NoError(t, err)

	got, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", got.Username)

	require.NoError(t, svc.DeleteUser(ctx, 1, user.ID))

	_, err = svc.GetUser(ctx, user.ID)
	require.ErrorIs(t, err, ErrNotFound)

	err = svc.DeleteUser(ctx, 1, user.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

type brokenStore struct{}

func (brokenStore) FindUserByUsername(context.Context, string) (*models.User, error) {
	return nil, errors.New("connection refused")
}
func (brokenStore) FindUserByID(context.Context, uint) (*models.User, error) {
	return nil, errors.New("connection refused")
}
func (brokenStore) CreateUser(context.Context, *models.User) error {
	return errors.New("connection refused")
}
func (brokenStore) DeleteUser(context.Context, uint) error { return errors.New("connection refused") }

func TestAuthService_StorageErrors(t *testing.T) {
	svc := &AuthService{
		Users:   brokenStore{},
		Tokens:  tokens.NewIssuer([]byte("s")),
		Revoked: revocation.NewMemory(),
	}
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "pw")
	assert.ErrorIs(t, err, apperr.ErrStorage)

	_, err = svc.Login(ctx, "alice", "pw")
	assert.ErrorIs(t, err, apperr.ErrStorage)

	_, err = svc.GetUser(ctx, 1)
	assert.ErrorIs(t, err, apperr.ErrStorage)
}

func TestAuthService_PublishFailureIsIgnored(t *testing.T) {
	svc, _, rec := newTestAuthService(t)
	rec.Err = errors.New("broker down")

	_, err := svc.Register(context.Background(), "dave", "pw")
	require.NoError(t, err)
}
