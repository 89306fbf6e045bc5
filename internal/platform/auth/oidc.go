package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/cdf-tools/streamlit-deploy/internal/domain"
)

// ClientCredentials issues access tokens for a service principal. The token
// endpoint is discovered from the issuer's OIDC metadata.
type ClientCredentials struct {
	oauth2 clientcredentials.Config
}

func NewClientCredentials(ctx context.Context, cfg Config) (*ClientCredentials, error) {
	if err := cfg.Validate(); err != nil {
		return nil, domain.ConfigError("oidc client credentials", err)
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, domain.RemoteError("oidc discovery", fmt.Errorf("oidc provider: %w", err))
	}

	return &ClientCredentials{
		oauth2: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     provider.Endpoint().TokenURL,
			Scopes:       cfg.Scopes,
		},
	}, nil
}

// TokenURL is the discovered token endpoint.
func (c *ClientCredentials) TokenURL() string {
	return c.oauth2.TokenURL
}

func (c *ClientCredentials) Token(ctx context.Context) (*oauth2.Token, error) {
	tok, err := c.oauth2.Token(ctx)
	if err != nil {
		return nil, domain.RemoteError("acquire token", err)
	}
	return tok, nil
}

// HTTPClient returns a client that attaches a bearer token to every request.
// base, when non-nil, is used both for token requests and API calls.
func (c *ClientCredentials) HTTPClient(ctx context.Context, base *http.Client) *http.Client {
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	return c.oauth2.Client(ctx)
}
