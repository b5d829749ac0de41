package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"

	"github.com/staybook/staybook/internal/config"
	"github.com/staybook/staybook/internal/database"
	"github.com/staybook/staybook/internal/handler"
	"github.com/staybook/staybook/internal/oauth"
	"github.com/staybook/staybook/internal/repository"
	"github.com/staybook/staybook/internal/router"
	"github.com/staybook/staybook/internal/service"
	"github.com/staybook/staybook/internal/sms"
)

var applySchema bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&applySchema, "init-schema", false, "Create missing tables before serving")
}

func runServe() error {
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()

	if applySchema {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.EnsureSchema(ctx, db)
		cancel()
		if err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable: caching, rate limiting and phone login disabled")
	} else {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	listings := repository.NewListingRepo(db)
	bookings := repository.NewBookingRepo(db)
	reviews := repository.NewReviewRepo(db)
	convs := repository.NewConversationRepo(db)
	otp := repository.NewOTPStore(rdb, cfg.OTP.TTL, cfg.OTP.MaxAttempts)

	pub := service.NewPublisher(cfg.AMQPURL)
	defer pub.Close()
	messenger := handler.NewMessenger(convs, pub, cfg.AutoReply.Enabled)

	verifiers := map[string]oauth.Verifier{
		oauth.ProviderGoogle:   oauth.NewGoogle(cfg.OAuth.GoogleTokenInfoURL, cfg.OAuth.GoogleUserInfoURL, cfg.OAuth.GoogleClientID),
		oauth.ProviderFacebook: oauth.NewFacebook(cfg.OAuth.FacebookMeURL),
		oauth.ProviderApple:    oauth.NewApple(cfg.OAuth.AppleKeysURL, cfg.OAuth.AppleClientID),
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(log.INFO)
	if cfg.Env == "dev" {
		e.Logger.SetLevel(log.DEBUG)
	}
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			c.Logger().Infof("%s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))

	router.RegisterRoutes(e, router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, users),
		Phone:         handler.NewPhoneHandler(cfg, users, otp, sms.New(cfg.OTP.SMSURL, cfg.OTP.SMSAPIKey, cfg.OTP.SMSSender)),
		OAuth:         handler.NewOAuthHandler(cfg, users, verifiers),
		Listings:      handler.NewListingHandler(listings, reviews, users, bookings),
		Bookings:      handler.NewBookingHandler(listings, bookings, convs, messenger, pub),
		Reviews:       handler.NewReviewHandler(reviews, listings, users),
		Conversations: handler.NewConversationHandler(convs, listings, users, messenger),
	}, router.Options{
		JWTSecret:  cfg.JWTSecret,
		CookieName: cfg.CookieName,
		Cache:      config.LoadCacheConfig(),
		RateLimit:  config.LoadRateLimitConfig(),
		Redis:      rdb,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	go func() {
		e.Logger.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Errorf("server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
