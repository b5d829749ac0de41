package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/staybook/staybook/internal/config"
	"github.com/staybook/staybook/internal/model"
	"github.com/staybook/staybook/internal/repository"
	"github.com/staybook/staybook/internal/sms"
	"github.com/staybook/staybook/internal/utils"
)

// PhoneHandler implements SMS one-time-code login.
type PhoneHandler struct {
	Cfg   config.Config
	Users UserStore
	OTP   OTPStore
	SMS   sms.Sender
}

func NewPhoneHandler(cfg config.Config, users UserStore, otp OTPStore, sender sms.Sender) *PhoneHandler {
	return &PhoneHandler{Cfg: cfg, Users: users, OTP: otp, SMS: sender}
}

type otpReq struct {
	Phone string `json:"phone" validate:"required"`
}

type phoneLoginReq struct {
	Phone string `json:"phone" validate:"required"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
	Name  string `json:"name" validate:"max=100"`
}

// RequestCode generates a code for the phone number, stores its digest and
// texts it to the number.
func (h *PhoneHandler) RequestCode(c echo.Context) error {
	var req otpReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	phone, err := utils.NormalizePhone(req.Phone)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid phone number"})
	}
	code, err := utils.NewOTP()
	if err != nil {
		return serverError(c, "generate code failed", err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := h.OTP.Save(ctx, phone, code); err != nil {
		if errors.Is(err, repository.ErrOTPUnavailable) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "phone login unavailable"})
		}
		return serverError(c, "store code failed", err)
	}
	if err := h.SMS.Send(ctx, phone, "Your Staybook code is "+code); err != nil {
		c.Logger().Errorf("sms to %s: %v", phone, err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "could not send code"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"sent":      true,
		"expiresIn": int(h.OTP.TTL().Seconds()),
	})
}

// Verify consumes a code and logs the phone's user in, creating a guest
// account on first login.
func (h *PhoneHandler) Verify(c echo.Context) error {
	var req phoneLoginReq
	if msg, ok := bindAndValidate(c, &req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	phone, err := utils.NormalizePhone(req.Phone)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid phone number"})
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	if err := h.OTP.Verify(ctx, phone, req.Code); err != nil {
		switch {
		case errors.Is(err, repository.ErrOTPUnavailable):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "phone login unavailable"})
		case errors.Is(err, repository.ErrOTPMismatch),
			errors.Is(err, repository.ErrOTPNotFound),
			errors.Is(err, repository.ErrOTPAttempts):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired code"})
		}
		return serverError(c, "verify code failed", err)
	}

	u, err := h.Users.GetByPhone(ctx, phone)
	if errors.Is(err, repository.ErrUserNotFound) {
		name := strings.TrimSpace(req.Name)
		if name == "" {
			name = "Guest"
		}
		u = &model.User{Name: name, Phone: phone, Role: model.RoleGuest}
		err = h.Users.Create(ctx, u)
	}
	if err != nil {
		return serverError(c, "load user failed", err)
	}
	return issueCredential(c, h.Cfg, u, http.StatusOK)
}
