package oauth

import (
	"context"
	"net/http"
	"net/url"
)

// Facebook resolves a user access token through the Graph API /me node.
// Graph reports no verification state, so its emails are never trusted
// for account linking.
type Facebook struct {
	MeURL  string
	Client *http.Client
}

func NewFacebook(meURL string) *Facebook {
	return &Facebook{MeURL: meURL, Client: defaultClient()}
}

type facebookUser struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func (f *Facebook) Verify(ctx context.Context, token string) (Identity, error) {
	u, err := url.Parse(f.MeURL)
	if err != nil {
		return Identity{}, err
	}
	q := u.Query()
	q.Set("fields", "id,name,email,picture")
	q.Set("access_token", token)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Identity{}, err
	}
	var fu facebookUser
	if err := getJSON(f.Client, req, &fu); err != nil {
		return Identity{}, err
	}
	if fu.ID == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{Provider: ProviderFacebook, Subject: fu.ID, Email: fu.Email, Name: fu.Name, Avatar: fu.Picture.Data.URL}, nil
}
