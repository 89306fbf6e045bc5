// Package metrics pushes per-run deployment metrics to a Prometheus Pushgateway.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	namespace = "streamlit"
	subsystem = "deploy"
	job       = "streamlit_deploy"
)

// Run summarises one deployment.
type Run struct {
	App          string
	Files        int
	Requirements int
	BundleBytes  int
	Duration     time.Duration
	Success      bool
	FinishedAt   time.Time
}

type Pusher struct {
	url    string
	client *http.Client

	registry     *prometheus.Registry
	files        prometheus.Gauge
	requirements prometheus.Gauge
	bundleBytes  prometheus.Gauge
	duration     prometheus.Gauge
	success      prometheus.Gauge
	lastSuccess  prometheus.Gauge
}

func NewPusher(url string, client *http.Client) (*Pusher, error) {
	if url == "" {
		return nil, errors.New("pushgateway url is required")
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}
	p := &Pusher{
		url:          url,
		client:       client,
		registry:     prometheus.NewRegistry(),
		files:        gauge("bundle_files", "Source files in the uploaded bundle"),
		requirements: gauge("bundle_requirements", "Requirement lines in the uploaded bundle"),
		bundleBytes:  gauge("bundle_bytes", "Size of the encoded bundle"),
		duration:     gauge("duration_seconds", "Wall time of the deployment run"),
		success:      gauge("success", "1 if the last run succeeded, 0 otherwise"),
		lastSuccess:  gauge("last_success_timestamp_seconds", "Unix time of the last successful run"),
	}
	collectors := []prometheus.Collector{p.files, p.requirements, p.bundleBytes, p.duration, p.success}
	for _, c := range collectors {
		if err := p.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Push records run and sends it, grouped by app. The last-success timestamp
// is only pushed for successful runs so a failure does not reset it.
func (p *Pusher) Push(ctx context.Context, run Run) error {
	p.files.Set(float64(run.Files))
	p.requirements.Set(float64(run.Requirements))
	p.bundleBytes.Set(float64(run.BundleBytes))
	p.duration.Set(run.Duration.Seconds())

	gatherers := prometheus.Gatherers{p.registry}
	if run.Success {
		p.success.Set(1)
		p.lastSuccess.Set(float64(run.FinishedAt.Unix()))
		extra := prometheus.NewRegistry()
		if err := extra.Register(p.lastSuccess); err != nil {
			return err
		}
		gatherers = append(gatherers, extra)
	} else {
		p.success.Set(0)
	}

	pusher := push.New(p.url, job).Gatherer(gatherers)
	if run.App != "" {
		pusher = pusher.Grouping("app", run.App)
	}
	if p.client != nil {
		pusher = pusher.Client(p.client)
	}
	// Add keeps metrics not in this push, such as a previous success timestamp.
	return pusher.AddContext(ctx)
}
