package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/staybook/staybook/internal/utils"
)

// Context keys set by the auth middleware.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

var errNoCredential = errors.New("no credential")

// credentialFrom returns the raw credential from the named cookie or, when
// the cookie is absent, from an "Authorization: Bearer" header.
func credentialFrom(c echo.Context, cookieName string) (string, error) {
	if ck, err := c.Cookie(cookieName); err == nil && ck.Value != "" {
		return ck.Value, nil
	}
	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		if raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")); raw != "" {
			return raw, nil
		}
	}
	return "", errNoCredential
}

// Authenticate verifies the caller's credential and injects user_id (uint64)
// and role (string) into the context.  A missing credential answers 401, a
// credential that fails verification or has expired answers 403.
func Authenticate(secret, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := credentialFrom(c, cookieName)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			claims, err := utils.ParseCredential(secret, raw)
			if err != nil {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid or expired credential"})
			}
			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxRole, claims.Role)
			return next(c)
		}
	}
}

// CheckCredential reports the state of the caller's credential without
// touching the context: (0, errNoCredential) when absent, an error wrapping
// utils.ErrInvalidCredential when it does not verify.
func CheckCredential(c echo.Context, secret, cookieName string) (uint64, error) {
	raw, err := credentialFrom(c, cookieName)
	if err != nil {
		return 0, err
	}
	claims, err := utils.ParseCredential(secret, raw)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// IsMissingCredential reports whether err came from an absent credential.
func IsMissingCredential(err error) bool { return errors.Is(err, errNoCredential) }
