package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cdf-tools/streamlit-deploy/internal/cdf"
	"github.com/cdf-tools/streamlit-deploy/internal/config"
	"github.com/cdf-tools/streamlit-deploy/internal/deploy"
	"github.com/cdf-tools/streamlit-deploy/internal/domain"
	"github.com/cdf-tools/streamlit-deploy/internal/platform/auth"
	"github.com/cdf-tools/streamlit-deploy/internal/platform/ci"
	"github.com/cdf-tools/streamlit-deploy/internal/platform/env"
	"github.com/cdf-tools/streamlit-deploy/internal/platform/logging"
	"github.com/cdf-tools/streamlit-deploy/internal/platform/metrics"
	"github.com/cdf-tools/streamlit-deploy/internal/platform/objectstore"
)

const service = "streamlit-deploy"

func main() {
	logger := logging.New(os.Stdout, service, slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, logger, os.LookupEnv, os.Stdout)
	stop()
	if err != nil {
		logger.Error("deployment failed", "error", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if kind, ok := domain.KindOf(err); ok && kind == domain.KindConfig {
		return 2
	}
	return 1
}

// run executes one deployment. The CI environment is resolved before any
// file is touched.
func run(ctx context.Context, logger *slog.Logger, lookup env.LookupFunc, stdout io.Writer) error {
	runner, err := ci.Detect(lookup)
	if err != nil {
		return err
	}
	logger.Info("inferred runtime environment", "environment", runner.String())

	settings, err := config.SettingsFromEnv(lookup)
	if err != nil {
		return domain.ConfigError("load settings", err)
	}
	if settings.LogLevel != slog.LevelInfo {
		logger = logging.New(os.Stdout, service, settings.LogLevel)
	}

	cfg, err := config.Load(runner, lookup)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, settings.Timeout)
	defer cancel()

	uploader, err := newUploader(ctx, logger, lookup, settings, cfg.Credentials)
	if err != nil {
		return err
	}

	r := deploy.Runner{
		Logger:      logger,
		Environment: runner,
		Uploader:    uploader,
		Stdout:      stdout,
		Lookup:      lookup,
	}
	if settings.PushgatewayURL != "" {
		pusher, err := metrics.NewPusher(settings.PushgatewayURL, nil)
		if err != nil {
			return domain.ConfigError("metrics pusher", err)
		}
		r.Metrics = pusher
	}

	_, err = r.Run(ctx, cfg)
	return err
}

func newUploader(ctx context.Context, logger *slog.Logger, lookup env.LookupFunc, settings config.Settings, creds domain.Credentials) (deploy.FileUploader, error) {
	switch settings.Target {
	case config.TargetS3:
		storeCfg, err := objectstore.ConfigFromEnv(lookup)
		if err != nil {
			return nil, domain.ConfigError("object store config", err)
		}
		client, err := objectstore.NewMinIOClient(storeCfg)
		if err != nil {
			return nil, domain.ConfigError("object store client", err)
		}
		if err := objectstore.EnsureBucket(ctx, client, storeCfg); err != nil {
			return nil, domain.RemoteError("object store bucket", err)
		}
		store, err := objectstore.NewMinioStoreWithClient(client, storeCfg.Bucket)
		if err != nil {
			return nil, domain.ConfigError("object store", err)
		}
		logger.Info("deploy target", "target", settings.Target, "bucket", storeCfg.Bucket)
		return deploy.ObjectStoreUploader{Store: store}, nil
	default:
		tokens, err := auth.NewClientCredentials(ctx, auth.Config{
			IssuerURL:    settings.IssuerURL(creds),
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Scopes:       settings.Scopes(creds),
		})
		if err != nil {
			return nil, err
		}
		httpClient := &http.Client{Timeout: 2 * time.Minute}
		client, err := cdf.NewClient(
			cdf.Config{BaseURL: settings.BaseURL(creds), Project: creds.Project},
			tokens.HTTPClient(ctx, httpClient),
			httpClient,
		)
		if err != nil {
			return nil, domain.ConfigError("cdf client", err)
		}
		if settings.VerifyProjectAccess {
			if err := client.VerifyProjectAccess(ctx); err != nil {
				return nil, err
			}
		}
		logger.Info("deploy target", "target", config.TargetCDF, "project", creds.Project, "base_url", settings.BaseURL(creds))
		return deploy.CDFUploader{Client: client}, nil
	}
}
