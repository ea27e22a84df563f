package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scopes needed to create spreadsheets and append rows to them.
// drive.file limits Drive access to files this app created.
const (
	ScopeSpreadsheets = "https://www.googleapis.com/auth/spreadsheets"
	ScopeDriveFile    = "https://www.googleapis.com/auth/drive.file"
)

// GoogleConfig holds the OAuth client registration.
//
// AuthURL and TokenURL override Google's endpoints; tests point them at an
// httptest server. Leave them empty in production.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL  string
	TokenURL string
}

// GoogleProvider wraps golang.org/x/oauth2 for Google's Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW (as used here):
//  1. The operator's browser opens AuthURL in a popup.
//  2. The operator grants spreadsheet access on Google's consent screen.
//  3. Google redirects the popup to RedirectURL with a short-lived "code".
//  4. The server exchanges the code for an access + refresh token.
//  5. The token is stored and used for every later Sheets call, refreshed
//     automatically by oauth2 when the access token expires.
//
// The account linked is the site operator's, never a guest's.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a GoogleProvider with the given client registration.
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{ScopeSpreadsheets, ScopeDriveFile},
			Endpoint:     endpoint,
		},
	}
}

// AuthURL returns the consent URL for the given state.
//
// access_type=offline asks for a refresh token; prompt=consent forces the
// consent screen every time so that re-linking always yields a fresh
// refresh token (Google only issues one on first consent otherwise).
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token (server-to-server,
// authenticated with the client secret).
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("auth: token endpoint returned an empty access token")
	}
	return tok, nil
}

// TokenSource returns a source that refreshes tok through Google's token
// endpoint when it expires.
func (p *GoogleProvider) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return p.config.TokenSource(ctx, tok)
}
