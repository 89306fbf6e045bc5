// Package deploy runs the build-and-upload pipeline for one app.
package deploy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cdf-tools/streamlit-deploy/internal/bundle"
	"github.com/cdf-tools/streamlit-deploy/internal/domain"
	"github.com/cdf-tools/streamlit-deploy/internal/platform/ci"
	"github.com/cdf-tools/streamlit-deploy/internal/platform/env"
	"github.com/cdf-tools/streamlit-deploy/internal/platform/metrics"
)

// OutputKey names the step output carrying the uploaded app's external id.
const OutputKey = "app_external_id"

type MetricsPusher interface {
	Push(ctx context.Context, run metrics.Run) error
}

type Runner struct {
	Logger      *slog.Logger
	Environment ci.Environment
	Uploader    FileUploader
	// Metrics is optional.
	Metrics MetricsPusher
	Stdout  io.Writer
	Lookup  env.LookupFunc
	Now     func() time.Time
}

// Run builds the bundle for cfg.App, uploads it once and publishes the
// returned external id. Nothing is published unless every stage succeeds.
func (r Runner) Run(ctx context.Context, cfg domain.RunConfig) (string, error) {
	if r.Uploader == nil {
		return "", errors.New("uploader is required")
	}
	now := r.Now
	if now == nil {
		now = time.Now
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	logger = logger.With("run_id", uuid.NewString(), "app", cfg.App.ExternalID)

	started := now()
	run := metrics.Run{App: ExternalIDPrefix + cfg.App.ExternalID}
	externalID, err := r.run(ctx, logger, cfg, &run)
	run.Success = err == nil
	run.FinishedAt = now()
	run.Duration = run.FinishedAt.Sub(started)
	r.pushMetrics(ctx, logger, run)
	if err != nil {
		return "", err
	}
	logger.Info("app deployed", "external_id", externalID, "duration", run.Duration.String())
	return externalID, nil
}

func (r Runner) run(ctx context.Context, logger *slog.Logger, cfg domain.RunConfig, run *metrics.Run) (string, error) {
	b, err := bundle.Build(cfg.App)
	if err != nil {
		return "", err
	}
	content, err := bundle.Encode(b)
	if err != nil {
		return "", err
	}
	stats := bundle.StatsOf(b, content)
	run.Files, run.Requirements, run.BundleBytes = stats.Files, stats.Requirements, stats.Bytes
	logger.Info("bundle built", "files", stats.Files, "requirements", stats.Requirements, "bytes", stats.Bytes)

	req := NewRequest(cfg.App)
	externalID, err := r.Uploader.UploadFile(ctx, req, content)
	if err != nil {
		return "", err
	}
	if externalID != req.ExternalID {
		logger.Warn("platform returned a different external id", "requested", req.ExternalID, "returned", externalID)
	}

	if err := r.Environment.WriteOutput(r.Stdout, r.Lookup, OutputKey, externalID); err != nil {
		return "", err
	}
	return externalID, nil
}

func (r Runner) pushMetrics(ctx context.Context, logger *slog.Logger, run metrics.Run) {
	if r.Metrics == nil {
		return
	}
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.Metrics.Push(pushCtx, run); err != nil {
		logger.Warn("metrics push failed", "error", err)
	}
}
