package auth

import (
	"errors"
	"strings"
)

// Config describes an OAuth2 client-credentials grant against an OIDC issuer.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.IssuerURL) == "" {
		return errors.New("issuer url is required")
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return errors.New("client id is required")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		return errors.New("client secret is required")
	}
	if len(c.Scopes) == 0 {
		return errors.New("at least one scope is required")
	}
	return nil
}
