package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Google resolves an OAuth access token.  The tokeninfo endpoint tells which
// client the token was issued to; only tokens minted for ClientID are
// accepted.  The profile then comes from the userinfo endpoint.
type Google struct {
	TokenInfoURL string
	UserInfoURL  string
	ClientID     string
	Client       *http.Client
}

func NewGoogle(tokenInfoURL, userInfoURL, clientID string) *Google {
	return &Google{TokenInfoURL: tokenInfoURL, UserInfoURL: userInfoURL, ClientID: clientID, Client: defaultClient()}
}

type googleTokenInfo struct {
	Aud string `json:"aud"`
	Azp string `json:"azp"`
	Sub string `json:"sub"`
}

type googleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (g *Google) Verify(ctx context.Context, token string) (Identity, error) {
	if g.ClientID == "" {
		return Identity{}, errors.New("google: client id not configured")
	}
	info, err := g.tokenInfo(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	if info.Aud != g.ClientID && info.Azp != g.ClientID {
		return Identity{}, fmt.Errorf("%w: issued to another client", ErrInvalidToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.UserInfoURL, nil)
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	var u googleUser
	if err := getJSON(g.Client, req, &u); err != nil {
		return Identity{}, err
	}
	if u.ID == "" || (info.Sub != "" && info.Sub != u.ID) {
		return Identity{}, ErrInvalidToken
	}
	return Identity{
		Provider:      ProviderGoogle,
		Subject:       u.ID,
		Email:         u.Email,
		EmailVerified: u.VerifiedEmail,
		Name:          u.Name,
		Avatar:        u.Picture,
	}, nil
}

func (g *Google) tokenInfo(ctx context.Context, token string) (googleTokenInfo, error) {
	var info googleTokenInfo
	u, err := url.Parse(g.TokenInfoURL)
	if err != nil {
		return info, err
	}
	q := u.Query()
	q.Set("access_token", token)
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return info, err
	}
	err = getJSON(g.Client, req, &info)
	return info, err
}
