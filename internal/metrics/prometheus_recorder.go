package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration     *prom.HistogramVec
	buildDuration     *prom.HistogramVec
	buildOutcome      *prom.CounterVec
	pagesProcessed    prom.Counter
	assetsCopied      prom.Counter
	fileErrors        prom.Counter
	liveReloadClients prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "sitegen",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "sitegen",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}, []string{"mode"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitegen",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		pagesProcessed: prom.NewCounter(prom.CounterOpts{
			Namespace: "sitegen",
			Name:      "pages_processed_total",
			Help:      "Pages processed across all builds",
		}),
		assetsCopied: prom.NewCounter(prom.CounterOpts{
			Namespace: "sitegen",
			Name:      "assets_copied_total",
			Help:      "Assets copied across all builds",
		}),
		fileErrors: prom.NewCounter(prom.CounterOpts{
			Namespace: "sitegen",
			Name:      "file_errors_total",
			Help:      "Per-file build errors",
		}),
		liveReloadClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: "sitegen",
			Name:      "livereload_clients",
			Help:      "Currently connected live-reload clients",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.buildOutcome,
		pr.pagesProcessed, pr.assetsCopied, pr.fileErrors, pr.liveReloadClients)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration, incremental bool) {
	if p == nil || p.buildDuration == nil {
		return
	}
	mode := "full"
	if incremental {
		mode = "incremental"
	}
	p.buildDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome OutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddPagesProcessed(n int) {
	if p == nil || p.pagesProcessed == nil {
		return
	}
	p.pagesProcessed.Add(float64(n))
}

func (p *PrometheusRecorder) AddAssetsCopied(n int) {
	if p == nil || p.assetsCopied == nil {
		return
	}
	p.assetsCopied.Add(float64(n))
}

func (p *PrometheusRecorder) AddFileErrors(n int) {
	if p == nil || p.fileErrors == nil {
		return
	}
	p.fileErrors.Add(float64(n))
}

func (p *PrometheusRecorder) SetLiveReloadClients(n int) {
	if p == nil || p.liveReloadClients == nil {
		return
	}
	p.liveReloadClients.Set(float64(n))
}
