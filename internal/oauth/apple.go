package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const appleIssuer = "https://appleid.apple.com"

// Apple verifies Sign in with Apple identity tokens against Apple's
// published JWKS.  The key set is fetched per verification; logins are rare
// enough that caching is not worth the staleness handling.
type Apple struct {
	KeysURL  string
	ClientID string
	Client   *http.Client
}

func NewApple(keysURL, clientID string) *Apple {
	return &Apple{KeysURL: keysURL, ClientID: clientID, Client: defaultClient()}
}

func (a *Apple) Verify(ctx context.Context, token string) (Identity, error) {
	if a.ClientID == "" {
		return Identity{}, errors.New("apple: client id not configured")
	}
	kf, err := a.keys(ctx)
	if err != nil {
		return Identity{}, err
	}
	opts := []jwt.ParserOption{
		jwt.WithIssuer(appleIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(a.ClientID),
	}
	tok, err := jwt.Parse(token, kf.Keyfunc, opts...)
	if err != nil || !tok.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	sub, _ := claims.GetSubject()
	if sub == "" {
		return Identity{}, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	return Identity{Provider: ProviderApple, Subject: sub, Email: email, EmailVerified: claimTrue(claims["email_verified"])}, nil
}

// claimTrue reads a boolean claim Apple may send as true or "true".
func claimTrue(v interface{}) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x == "true"
	}
	return false
}

func (a *Apple) keys(ctx context.Context) (keyfunc.Keyfunc, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.KeysURL, nil)
	if err != nil {
		return nil, err
	}
	res, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch apple keys: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch apple keys: status %d", res.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read apple keys: %w", err)
	}
	return keyfunc.NewJWKSetJSON(json.RawMessage(body))
}
