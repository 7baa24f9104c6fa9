package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-catalog/internal/middleware"
	"github.com/iliyamo/movie-catalog/internal/service"
	"github.com/iliyamo/movie-catalog/internal/utils"
)

// Authenticator is the session issuer the auth endpoints call.
type Authenticator interface {
	Register(ctx context.Context, email, password string) (service.Session, error)
	Login(ctx context.Context, email, password string) (service.Session, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (utils.IssuedToken, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID string) (service.PublicUser, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth    Authenticator
	Timeout time.Duration
	Log     *zap.Logger
}

func NewAuthHandler(auth Authenticator, timeout time.Duration, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Timeout: timeout, Log: log}
}

// ----- DTOs -----

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type userPart struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
type authResp struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	User         userPart `json:"user"`
}
type accessResp struct {
	AccessToken string `json:"accessToken"`
}

func sessionResp(s service.Session) authResp {
	return authResp{
		AccessToken:  s.Access.Token,
		RefreshToken: s.Refresh.Token, // raw back to client; only the digest is stored
		User:         userPart{ID: s.User.ID, Email: s.User.Email},
	}
}

func (h *AuthHandler) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), h.Timeout)
}

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, codeBadRequest, "invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	s, err := h.Auth.Register(ctx, req.Email, req.Password)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, sessionResp(s))
}

// Login: verify and return a new pair; the previous refresh token stops working.
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, codeBadRequest, "invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	s, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, sessionResp(s))
}

// Refresh: exchange the current refresh token for a new access token.  The
// refresh token is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, codeBadRequest, "invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	access, err := h.Auth.RefreshAccessToken(ctx, req.RefreshToken)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, accessResp{AccessToken: access.Token})
}

// Logout: invalidate the session the refresh token belongs to.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, codeBadRequest, "invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, req.RefreshToken); err != nil {
		return respond(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me: simple protected endpoint.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	u, err := h.Auth.Me(ctx, middleware.UserID(c))
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, userPart{ID: u.ID, Email: u.Email})
}
