package objectstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cdf-tools/streamlit-deploy/internal/platform/env"
)

type Config struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Region       string
	UseSSL       bool
	Bucket       string
	CreateBucket bool
}

func ConfigFromEnv(lookup env.LookupFunc) (Config, error) {
	useSSL, err := lookup.Bool("DEPLOY_S3_USE_SSL", true)
	if err != nil {
		return Config{}, err
	}
	createBucket, err := lookup.Bool("DEPLOY_S3_CREATE_BUCKET", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:     lookup.String("DEPLOY_S3_ENDPOINT", ""),
		AccessKey:    lookup.String("DEPLOY_S3_ACCESS_KEY", ""),
		SecretKey:    lookup.String("DEPLOY_S3_SECRET_KEY", ""),
		Region:       lookup.String("DEPLOY_S3_REGION", "us-east-1"),
		UseSSL:       useSSL,
		Bucket:       lookup.String("DEPLOY_S3_BUCKET", "streamlit-apps"),
		CreateBucket: createBucket,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("DEPLOY_S3_ENDPOINT is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("DEPLOY_S3_ACCESS_KEY is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("DEPLOY_S3_SECRET_KEY is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("DEPLOY_S3_REGION is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("DEPLOY_S3_BUCKET is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("DEPLOY_S3_ENDPOINT must not include scheme: %q", c.Endpoint)
	}
	return nil
}
