package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/cdf-tools/streamlit-deploy/internal/domain"
	"github.com/cdf-tools/streamlit-deploy/internal/platform/env"
)

type Target string

const (
	TargetCDF Target = "cdf"
	TargetS3  Target = "s3"
)

// Settings tune the tool itself and are read unprefixed.
type Settings struct {
	Target              Target
	CDFBaseURL          string
	OIDCIssuerURL       string
	OIDCScopes          []string
	Timeout             time.Duration
	VerifyProjectAccess bool
	PushgatewayURL      string
	LogLevel            slog.Level
}

func SettingsFromEnv(lookup env.LookupFunc) (Settings, error) {
	timeout, err := lookup.Duration("DEPLOY_TIMEOUT", 5*time.Minute)
	if err != nil {
		return Settings{}, err
	}
	verify, err := lookup.Bool("VERIFY_PROJECT_ACCESS", false)
	if err != nil {
		return Settings{}, err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(lookup.String("LOG_LEVEL", "info"))); err != nil {
		return Settings{}, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}

	s := Settings{
		Target:              Target(strings.ToLower(strings.TrimSpace(lookup.String("DEPLOY_TARGET", string(TargetCDF))))),
		CDFBaseURL:          strings.TrimRight(strings.TrimSpace(lookup.String("CDF_BASE_URL", "")), "/"),
		OIDCIssuerURL:       strings.TrimSpace(lookup.String("OIDC_ISSUER_URL", "")),
		OIDCScopes:          strings.Fields(lookup.String("OIDC_SCOPES", "")),
		Timeout:             timeout,
		VerifyProjectAccess: verify,
		PushgatewayURL:      strings.TrimSpace(lookup.String("PROMETHEUS_PUSHGATEWAY_URL", "")),
		LogLevel:            level,
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	switch s.Target {
	case TargetCDF, TargetS3:
	default:
		return fmt.Errorf("DEPLOY_TARGET must be one of: cdf, s3 (got %q)", s.Target)
	}
	if s.Timeout <= 0 {
		return errors.New("DEPLOY_TIMEOUT must be positive")
	}
	for name, raw := range map[string]string{
		"CDF_BASE_URL":               s.CDFBaseURL,
		"OIDC_ISSUER_URL":            s.OIDCIssuerURL,
		"PROMETHEUS_PUSHGATEWAY_URL": s.PushgatewayURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL (got %q)", name, raw)
		}
	}
	return nil
}

// BaseURL returns the CDF API root for the credentials' cluster.
func (s Settings) BaseURL(creds domain.Credentials) string {
	if s.CDFBaseURL != "" {
		return s.CDFBaseURL
	}
	return fmt.Sprintf("https://%s.cognitedata.com", creds.Cluster)
}

// IssuerURL returns the OIDC issuer for the credentials' tenant.
func (s Settings) IssuerURL(creds domain.Credentials) string {
	if s.OIDCIssuerURL != "" {
		return s.OIDCIssuerURL
	}
	return fmt.Sprintf("https://login.microsoftonline.com/%s/v2.0", creds.TenantID)
}

// Scopes returns the token scopes, defaulting to the cluster's .default scope.
func (s Settings) Scopes(creds domain.Credentials) []string {
	if len(s.OIDCScopes) > 0 {
		return s.OIDCScopes
	}
	return []string{s.BaseURL(creds) + "/.default"}
}
