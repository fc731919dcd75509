package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixed to every metric name.
const namespace = "cruxpkg"

// Recorder backed by Prometheus collectors.
type PrometheusRecorder struct {
	stageDuration *prom.HistogramVec
	stageResults  *prom.CounterVec
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
	packagesBuilt *prom.CounterVec
	fetchResults  *prom.CounterVec
}

// Creates a recorder and registers its collectors on reg. A nil reg gets a
// fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.ExponentialBuckets(0.1, 4, 8),
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage results by outcome",
		}, []string{"stage", "result"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of a whole recipe build",
			Buckets:   prom.ExponentialBuckets(1, 4, 8),
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Recipe builds by final status",
		}, []string{"result"}),
		packagesBuilt: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "packages_built_total",
			Help:      "Package archives written, by architecture",
		}, []string{"arch"}),
		fetchResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_results_total",
			Help:      "Package lookups against the store and the remote mirror",
		}, []string{"result"}),
	}

	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.buildDuration, pr.buildOutcome, pr.packagesBuilt, pr.fetchResults)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(result ResultLabel) {
	p.buildOutcome.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncPackagesBuilt(arch string) {
	p.packagesBuilt.WithLabelValues(arch).Inc()
}

func (p *PrometheusRecorder) IncFetchResult(result FetchLabel) {
	p.fetchResults.WithLabelValues(string(result)).Inc()
}

// Writes every metric gathered from g to path in the text exposition format.
// The file is replaced atomically.
func WriteTextfile(g prom.Gatherer, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: %w", ErrExport, err)
	}
	if err := prom.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("%w: %w", ErrExport, err)
	}
	return nil
}
