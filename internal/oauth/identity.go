// Package oauth verifies third-party identity tokens and turns them into a
// provider-neutral Identity.  Each provider is reached over HTTPS with a
// bounded client; only the JSON contract of the provider is relied on.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider names, also used as keys for the user id columns.
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
	ProviderApple    = "apple"
)

// ErrInvalidToken is returned when the provider rejects the token or the
// token does not carry a subject.
var ErrInvalidToken = errors.New("invalid identity token")

// Identity is what a provider tells us about the person logging in.
// EmailVerified is true only when the provider vouches for Email.
type Identity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Avatar        string
}

// Verifier checks a provider token and returns the identity behind it.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

func defaultClient() *http.Client { return &http.Client{Timeout: 10 * time.Second} }

// getJSON performs req and decodes a 200 JSON body into out.  401/403 from
// the provider map to ErrInvalidToken.
func getJSON(client *http.Client, req *http.Request, out interface{}) error {
	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("provider request: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("provider body: %w", err)
	}
	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden || res.StatusCode == http.StatusBadRequest:
		return ErrInvalidToken
	case res.StatusCode != http.StatusOK:
		return fmt.Errorf("provider status %d", res.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("provider json: %w", err)
	}
	return nil
}
