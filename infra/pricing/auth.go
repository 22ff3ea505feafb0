package pricing

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Credentials configures the client-credentials grant used by market
// APIs that sit behind an OAuth2 gateway.
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	TokenURL     string `json:"token_url"`
}

func (c Credentials) empty() bool {
	return c.ClientID == "" && c.ClientSecret == "" && c.TokenURL == ""
}

// TokenSource caches an access token and refreshes it when it expires.
type TokenSource struct {
	conf  clientcredentials.Config
	token *oauth2.Token
}

// NewTokenSource builds a TokenSource from the credentials.
func NewTokenSource(creds Credentials) *TokenSource {
	return &TokenSource{conf: clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     creds.TokenURL,
	}}
}

// Authorize sets the Authorization header, fetching a fresh token first
// when the cached one is missing or expired.
func (t *TokenSource) Authorize(ctx context.Context, req *http.Request) error {
	if t.token == nil || !t.token.Valid() {
		tok, err := t.conf.Token(ctx)
		if err != nil {
			return fmt.Errorf("pricing: token request: %w", err)
		}
		t.token = tok
	}
	t.token.SetAuthHeader(req)
	return nil
}
