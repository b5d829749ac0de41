package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/staybook/staybook/internal/config"
	"github.com/staybook/staybook/internal/middleware"
	"github.com/staybook/staybook/internal/model"
	"github.com/staybook/staybook/internal/repository"
	"github.com/staybook/staybook/internal/utils"
)

// AuthHandler serves password login, registration, logout and credential
// checks.  Phone and OAuth logins live in their own handlers and share
// issueCredential.
type AuthHandler struct {
	Cfg   config.Config
	Users UserStore
}

func NewAuthHandler(cfg config.Config, users UserStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users}
}

type registerReq struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=guest host"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResp struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

// issueCredential signs a credential for u, stores it in the httpOnly
// cookie and also returns it in the body for non-browser clients.
func issueCredential(c echo.Context, cfg config.Config, u *model.User, status int) error {
	cred, err := utils.NewCredential(cfg.JWTSecret, u.ID, u.Role, cfg.CredentialTTL)
	if err != nil {
		return serverError(c, "issue credential failed", err)
	}
	c.SetCookie(&http.Cookie{
		Name:     cfg.CookieName,
		Value:    cred.Token,
		Path:     "/",
		Expires:  cred.Exp,
		MaxAge:   int(cfg.CredentialTTL / time.Second),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(status, authResp{Token: cred.Token, ExpiresAt: cred.Exp, User: u})
}

// Register creates a password account and logs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return serverError(c, "hash password failed", err)
	}
	role := req.Role
	if role == "" {
		role = model.RoleGuest
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := h.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return serverError(c, "create user failed", err)
	}
	return issueCredential(c, h.Cfg, u, http.StatusCreated)
}

// Login verifies email and password.  Unknown email and wrong password get
// the same answer.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return serverError(c, "query failed", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	return issueCredential(c, h.Cfg, u, http.StatusOK)
}

// Logout expires the credential cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     h.Cfg.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.NoContent(http.StatusNoContent)
}

// Check reports whether the request carries a valid credential.
func (h *AuthHandler) Check(c echo.Context) error {
	id, err := middleware.CheckCredential(c, h.Cfg.JWTSecret, h.Cfg.CookieName)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"authenticated": true, "userId": id})
	case middleware.IsMissingCredential(err):
		return c.JSON(http.StatusUnauthorized, echo.Map{"authenticated": false})
	default:
		return c.JSON(http.StatusForbidden, echo.Map{"authenticated": false})
	}
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return serverError(c, "query failed", err)
	}
	return c.JSON(http.StatusOK, u)
}
