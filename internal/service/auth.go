package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/shops_api/internal/models"
	"github.com/Skotchmaster/shops_api/internal/repo"
	"github.com/Skotchmaster/shops_api/pkg/apperr"
	"github.com/Skotchmaster/shops_api/pkg/events"
	pkg_hash "github.com/Skotchmaster/shops_api/pkg/hash"
	"github.com/Skotchmaster/shops_api/pkg/logging"
	"github.com/Skotchmaster/shops_api/pkg/revocation"
	"github.com/Skotchmaster/shops_api/pkg/tokens"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)

// CredentialStore is the persistence the auth flows depend on.
type CredentialStore interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id uint) error
}

type AuthService struct {
	Users   CredentialStore
	Tokens  *tokens.Issuer
	Revoked revocation.Store
	Events  events.Publisher
}

type LoginResult struct {
	User    *models.User
	Access  tokens.Issued
	Refresh tokens.Issued
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", apperr.ErrStorage, err)
}

func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	if len(password) > pkg_hash.MaxPasswordBytes {
		l.Warn("register_error", "status", 400, "reason", "password too long")
		return nil, fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, pkg_hash.MaxPasswordBytes)
	}

	pwHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		if errors.Is(err, pkg_hash.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 409, "reason", "user already exist")
			return nil, apperr.ErrDuplicateUsername
		}
		l.Error("register_error", "status", 500, "reason", "cannot create user", "error", err)
		return nil, storageErr(err)
	}

	publish(ctx, s.Events, events.TopicUsers, "user_registered", user.ID, user.ID, map[string]any{"username": user.Username})
	l.Info("register_success", "user_id", user.ID)
	return user, nil
}

// Login fails with the same error for an unknown user and a wrong password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	user, err := s.Users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return nil, storageErr(err)
	}
	if user == nil || !pkg_hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "invalid username or password")
		return nil, apperr.ErrInvalidCredentials
	}

	access, err := s.Tokens.IssueAccess(ctx, user.ID, true)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot issue access token", "error", err)
		return nil, storageErr(err)
	}
	refresh, err := s.Tokens.IssueRefresh(ctx, user.ID)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot issue refresh token", "error", err)
		return nil, storageErr(err)
	}

	publish(ctx, s.Events, events.TopicUsers, "user_logged_in", user.ID, user.ID, nil)
	l.Info("login_success", "user_id", user.ID)
	return &LoginResult{User: user, Access: access, Refresh: refresh}, nil
}

// Refresh mints a non-fresh access token for the refresh token's subject. The
// refresh token itself stays valid.
func (s *AuthService) Refresh(ctx context.Context, claims *tokens.Claims) (*tokens.Issued, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if claims == nil || claims.Type != tokens.TypeRefresh {
		return nil, apperr.ErrWrongTokenType
	}
	uid, err := claims.UserID()
	if err != nil {
		return nil, apperr.ErrInvalidToken
	}

	access, err := s.Tokens.IssueAccess(ctx, uid, false)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, storageErr(err)
	}

	l.Info("refresh_success", "user_id", uid)
	return &access, nil
}

// LogOut revokes the presented access token only.
func (s *AuthService) LogOut(ctx context.Context, claims *tokens.Claims) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	if claims == nil || claims.ID == "" {
		return apperr.ErrInvalidToken
	}
	if err := s.Revoked.Revoke(ctx, claims.ID, claims.Expiry()); err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot revoke token", "error", err)
		return storageErr(err)
	}

	uid, _ := claims.UserID()
	publish(ctx, s.Events, events.TopicUsers, "user_logged_out", uid, uid, nil)
	l.Info("logout_success", "jti", claims.ID)
	return nil
}

func (s *AuthService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.Users.FindUserByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *AuthService) DeleteUser(ctx context.Context, actor, id uint) error {
	l := logging.FromContext(ctx).With("svc", "auth.delete_user")

	if err := s.Users.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		l.Error("delete_user_failed", "status", 500, "error", err)
		return storageErr(err)
	}

	publish(ctx, s.Events, events.TopicUsers, "user_deleted", id, actor, nil)
	l.Info("delete_user_success", "user_id", id)
	return nil
}
