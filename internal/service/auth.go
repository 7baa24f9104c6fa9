package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-catalog/internal/model"
	"github.com/iliyamo/movie-catalog/internal/repository"
	"github.com/iliyamo/movie-catalog/internal/utils"
)

// Client-facing messages.  Login uses one message for unknown email and
// wrong password; refresh uses one message for every verification failure.
const (
	msgUserExists          = "User already exists"
	msgInvalidCredentials  = "Invalid credentials"
	msgInvalidRefreshToken = "Invalid refresh token"
)

// UserStore is the credential store the session issuer depends on.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	SetRefreshTokenHash(ctx context.Context, id string, hash *string) error
}

// AuthConfig is injected at startup.  Secret signs both token types.
type AuthConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

// PublicUser is the part of a user that may be returned to clients.
type PublicUser struct {
	ID    string
	Email string
}

// Session is the result of Register and Login.
type Session struct {
	Access  utils.IssuedToken
	Refresh utils.IssuedToken
	User    PublicUser
}

// AuthService issues, validates and refreshes sessions.  Each user has at
// most one valid refresh token: every Register or Login replaces the stored
// digest, so earlier refresh tokens stop working.
type AuthService struct {
	users UserStore
	cfg   AuthConfig
	log   *zap.Logger
	now   func() time.Time
}

func NewAuthService(users UserStore, cfg AuthConfig, log *zap.Logger) *AuthService {
	return &AuthService{users: users, cfg: cfg, log: log, now: time.Now}
}

// Register creates a user and starts its first session.
func (s *AuthService) Register(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, newError(ErrInvalidArgument, "email and password are required", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return Session{}, newError(ErrConflict, msgUserExists, nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return Session{}, newError(ErrInvalidArgument, "password must be at most 72 bytes", err)
		}
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Session{}, fmt.Errorf("generate user id: %w", err)
	}
	now := s.now().UTC().Truncate(time.Microsecond)
	u := &model.User{ID: id.String(), Email: email, PasswordHash: hash, CreatedAt: now, UpdatedAt: now}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return Session{}, newError(ErrConflict, msgUserExists, nil)
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", zap.String("user_id", u.ID))
	return s.startSession(ctx, u)
}

// Login verifies credentials and starts a new session generation.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, newError(ErrInvalidArgument, "email and password are required", nil)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, newError(ErrUnauthorized, msgInvalidCredentials, nil)
		}
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, newError(ErrUnauthorized, msgInvalidCredentials, nil)
	}
	return s.startSession(ctx, u)
}

func (s *AuthService) startSession(ctx context.Context, u *model.User) (Session, error) {
	access, err := utils.NewAccessToken(s.cfg.Secret, u.ID, u.Email, s.cfg.AccessTTL)
	if err != nil {
		return Session{}, err
	}
	refresh, err := utils.NewRefreshToken(s.cfg.Secret, u.ID, u.Email, s.cfg.RefreshTTL)
	if err != nil {
		return Session{}, err
	}
	digest := utils.HashRefreshRaw(refresh.Token)
	if err := s.users.SetRefreshTokenHash(ctx, u.ID, &digest); err != nil {
		return Session{}, fmt.Errorf("save refresh token: %w", err)
	}
	return Session{
		Access:  access,
		Refresh: refresh,
		User:    PublicUser{ID: u.ID, Email: u.Email},
	}, nil
}

// RefreshAccessToken exchanges the user's current refresh token for a new
// access token.  The refresh token itself is not rotated.
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (utils.IssuedToken, error) {
	u, err := s.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return utils.IssuedToken{}, err
	}
	return utils.NewAccessToken(s.cfg.Secret, u.ID, u.Email, s.cfg.AccessTTL)
}

// Logout ends the session the refresh token belongs to.  Afterwards no
// refresh token of the user is valid until the next login.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	u, err := s.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	if err := s.users.SetRefreshTokenHash(ctx, u.ID, nil); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// verifyRefresh checks signature, expiry and type, then that the token is
// the user's current one.  Every verification failure yields the same
// Unauthorized error; store failures are returned as they are.
func (s *AuthService) verifyRefresh(ctx context.Context, raw string) (*model.User, error) {
	invalid := func(cause error) error {
		return newError(ErrUnauthorized, msgInvalidRefreshToken, cause)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, invalid(nil)
	}
	claims, err := utils.ParseToken(s.cfg.Secret, raw, utils.TokenTypeRefresh)
	if err != nil {
		return nil, invalid(err)
	}
	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid(err)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u.RefreshTokenHash == nil || !utils.EqualDigest(*u.RefreshTokenHash, utils.HashRefreshRaw(raw)) {
		s.log.Warn("superseded refresh token presented", zap.String("user_id", u.ID))
		return nil, invalid(errors.New("refresh token does not match current session"))
	}
	return u, nil
}

// Me returns the public info of an authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (PublicUser, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return PublicUser{}, newError(ErrUnauthorized, "unknown user", err)
		}
		return PublicUser{}, fmt.Errorf("lookup user: %w", err)
	}
	return PublicUser{ID: u.ID, Email: u.Email}, nil
}
