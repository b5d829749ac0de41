package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/staybook/staybook/internal/config"
	"github.com/staybook/staybook/internal/model"
	"github.com/staybook/staybook/internal/oauth"
	"github.com/staybook/staybook/internal/repository"
)

// OAuthHandler logs users in with a Google, Facebook or Apple token.
type OAuthHandler struct {
	Cfg       config.Config
	Users     UserStore
	Verifiers map[string]oauth.Verifier
}

func NewOAuthHandler(cfg config.Config, users UserStore, verifiers map[string]oauth.Verifier) *OAuthHandler {
	return &OAuthHandler{Cfg: cfg, Users: users, Verifiers: verifiers}
}

// Google and Facebook send an access token, Apple sends an identity token
// and, on first sign-in only, the user's name.
type oauthReq struct {
	AccessToken   string `json:"accessToken"`
	IdentityToken string `json:"identityToken"`
	Name          string `json:"name"`
}

// Login returns the handler for one provider.
func (h *OAuthHandler) Login(provider string) echo.HandlerFunc {
	return func(c echo.Context) error {
		verifier, ok := h.Verifiers[provider]
		if !ok {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown provider"})
		}
		var req oauthReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
		}
		token := strings.TrimSpace(req.AccessToken)
		if token == "" {
			token = strings.TrimSpace(req.IdentityToken)
		}
		if token == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
		}

		ctx, cancel := dbContext(c)
		defer cancel()

		id, err := verifier.Verify(ctx, token)
		if err != nil {
			if errors.Is(err, oauth.ErrInvalidToken) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Logger().Errorf("oauth %s: %v", provider, err)
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "provider unavailable"})
		}
		if id.Name == "" {
			id.Name = strings.TrimSpace(req.Name)
		}

		u, err := h.upsert(c, id)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return c.JSON(http.StatusConflict, echo.Map{"error": "account already linked"})
			}
			return serverError(c, "load user failed", err)
		}
		return issueCredential(c, h.Cfg, u, http.StatusOK)
	}
}

// upsert finds the user linked to the identity, links an existing account
// with the same verified email, or creates a new guest.
func (h *OAuthHandler) upsert(c echo.Context, id oauth.Identity) (*model.User, error) {
	ctx, cancel := dbContext(c)
	defer cancel()

	u, err := h.Users.GetByProvider(ctx, id.Provider, id.Subject)
	if err == nil || !errors.Is(err, repository.ErrUserNotFound) {
		return u, err
	}
	// Unverified addresses neither link nor get stored, otherwise a
	// provider account could claim someone else's email.
	email := ""
	if id.EmailVerified {
		email = id.Email
	}
	if email != "" {
		u, err = h.Users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			if err := h.Users.LinkProvider(ctx, u.ID, id.Provider, id.Subject); err != nil {
				return nil, err
			}
			setProvider(u, id.Provider, id.Subject)
			return u, nil
		case !errors.Is(err, repository.ErrUserNotFound):
			return nil, err
		}
	}

	u = &model.User{Name: displayName(id), Email: email, Avatar: id.Avatar, Role: model.RoleGuest}
	setProvider(u, id.Provider, id.Subject)
	if err := h.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func setProvider(u *model.User, provider, subject string) {
	switch provider {
	case oauth.ProviderGoogle:
		u.GoogleID = subject
	case oauth.ProviderFacebook:
		u.FacebookID = subject
	case oauth.ProviderApple:
		u.AppleID = subject
	}
}

func displayName(id oauth.Identity) string {
	if id.Name != "" {
		return id.Name
	}
	if at := strings.IndexByte(id.Email, '@'); at > 0 {
		return id.Email[:at]
	}
	return "Guest"
}
