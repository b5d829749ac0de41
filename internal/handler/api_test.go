package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/staybook/staybook/internal/config"
	"github.com/staybook/staybook/internal/handler"
	"github.com/staybook/staybook/internal/model"
	"github.com/staybook/staybook/internal/oauth"
	"github.com/staybook/staybook/internal/repository"
	"github.com/staybook/staybook/internal/router"
	"github.com/staybook/staybook/internal/utils"
)

// testAPI is the full route table backed by in-memory stores.
type testAPI struct {
	e        *echo.Echo
	cfg      config.Config
	users    *fakeUsers
	listings *fakeListings
	bookings *fakeBookings
	reviews  *fakeReviews
	convs    *fakeConversations
	events   *fakeEvents
	sms      *fakeSMS
	verifier fakeVerifier
}

type apiOption func(*apiSetup)

type apiSetup struct {
	rdb       *redis.Client
	autoReply bool
}

func withRedis(t *testing.T) apiOption {
	return func(s *apiSetup) {
		mr := miniredis.RunT(t)
		s.rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = s.rdb.Close() })
	}
}

func withAutoReply() apiOption { return func(s *apiSetup) { s.autoReply = true } }

func newTestAPI(t *testing.T, opts ...apiOption) *testAPI {
	t.Helper()
	var setup apiSetup
	for _, o := range opts {
		o(&setup)
	}
	cfg := config.Config{
		JWTSecret:     "test-secret",
		CredentialTTL: 30 * 24 * time.Hour,
		CookieName:    "token",
		BcryptCost:    4,
	}
	users := newFakeUsers()
	a := &testAPI{
		cfg:      cfg,
		users:    users,
		listings: newFakeListings(),
		bookings: &fakeBookings{},
		reviews:  &fakeReviews{users: users},
		convs:    &fakeConversations{},
		events:   &fakeEvents{},
		sms:      &fakeSMS{},
		verifier: fakeVerifier{tokens: map[string]oauth.Identity{}},
	}
	otp := repository.NewOTPStore(setup.rdb, 5*time.Minute, 3)
	messenger := handler.NewMessenger(a.convs, a.events, setup.autoReply)
	verifiers := map[string]oauth.Verifier{
		oauth.ProviderGoogle:   a.verifier,
		oauth.ProviderFacebook: a.verifier,
		oauth.ProviderApple:    a.verifier,
	}

	e := echo.New()
	e.Validator = handler.NewValidator()
	router.RegisterRoutes(e, router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, users),
		Phone:         handler.NewPhoneHandler(cfg, users, otp, a.sms),
		OAuth:         handler.NewOAuthHandler(cfg, users, verifiers),
		Listings:      handler.NewListingHandler(a.listings, a.reviews, users, a.bookings),
		Bookings:      handler.NewBookingHandler(a.listings, a.bookings, a.convs, messenger, a.events),
		Reviews:       handler.NewReviewHandler(a.reviews, a.listings, users),
		Conversations: handler.NewConversationHandler(a.convs, a.listings, users, messenger),
	}, router.Options{JWTSecret: cfg.JWTSecret, CookieName: cfg.CookieName})
	a.e = e
	return a
}

// token returns a bearer credential for u.
func (a *testAPI) token(t *testing.T, u *model.User) string {
	t.Helper()
	cred, err := utils.NewCredential(a.cfg.JWTSecret, u.ID, u.Role, time.Hour)
	require.NoError(t, err)
	return cred.Token
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

// seed creates a host, a guest and one listing owned by the host.
func (a *testAPI) seed() (host, guest *model.User, listing *model.Listing) {
	host = a.users.add(model.User{Name: "Hana", Email: "hana@example.com", Role: model.RoleHost})
	guest = a.users.add(model.User{Name: "Gus", Email: "gus@example.com", Role: model.RoleGuest})
	listing = &model.Listing{
		HostID:    host.ID,
		Name:      "Harbour loft",
		Location:  "Lisbon, Portugal",
		Price:     120,
		MaxGuests: 3,
		Images:    []string{"https://img.example.com/1.jpg"},
	}
	_ = a.listings.Create(context.Background(), listing)
	return host, guest, listing
}

func day(offset int) string {
	return time.Now().UTC().AddDate(0, 0, offset).Format(model.DateLayout)
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, rec, &body)
	return body.Error
}
