package handler

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/labstack/echo/v4"

	"github.com/staybook/staybook/internal/middleware"
	"github.com/staybook/staybook/internal/repository"
)

const dbTimeout = 5 * time.Second

var errNoUser = errors.New("no authenticated user in context")

// getUserID returns the caller id placed in the context by the auth
// middleware.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := middleware.UserID(c); ok {
		return id, nil
	}
	return 0, errNoUser
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func dbContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// serverError logs err with the request id and answers 500 with msg.
func serverError(c echo.Context, msg string, err error) error {
	c.Logger().Errorf("%s %s: %s: %v", c.Request().Method, c.Path(), msg, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}

var notFoundErrors = []error{
	repository.ErrUserNotFound,
	repository.ErrListingNotFound,
	repository.ErrBookingNotFound,
	repository.ErrConversationNotFound,
}

// storeError maps repository sentinels to 404 or 403 and anything else to
// a logged 500 with msg.
func storeError(c echo.Context, msg string, err error) error {
	for _, nf := range notFoundErrors {
		if errors.Is(err, nf) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": nf.Error()})
		}
	}
	if errors.Is(err, repository.ErrForbidden) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return serverError(c, msg, err)
}

// Validator adapts go-playground/validator to echo's Validator interface.
// Field errors are reported under their JSON names.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// notblank rejects strings that are empty once whitespace is trimmed.
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return &Validator{v: v}
}

func (cv *Validator) Validate(i interface{}) error { return cv.v.Struct(i) }

// bindAndValidate decodes the request body into req and runs struct tag
// validation.  The returned message is suitable for a 400 body.
func bindAndValidate(c echo.Context, req interface{}) (string, bool) {
	if err := c.Bind(req); err != nil {
		return "invalid request body", false
	}
	if err := c.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Tag() == "required" || fe.Tag() == "notblank" {
				return fe.Field() + " is required", false
			}
			return fe.Field() + " is invalid", false
		}
		return "invalid request body", false
	}
	return "", true
}
