package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "podwatch"

// runMetrics holds the gauges describing the most recent run. Each run gets a
// fresh registry because the textfile describes one run, not a process.
type runMetrics struct {
	registry *prometheus.Registry

	episodes        *prometheus.GaugeVec
	feedFailures    prometheus.Gauge
	failures        *prometheus.GaugeVec
	analysesBySrc   *prometheus.GaugeVec
	duration        prometheus.Gauge
	lastCompletion  prometheus.Gauge
	partialFailure  prometheus.Gauge
	podcastsWatched prometheus.Gauge
}

func newRunMetrics() *runMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &runMetrics{
		registry: reg,
		episodes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "run_episodes",
				Help:      "Episodes handled by the last run, by outcome",
			},
			[]string{"outcome"},
		),
		feedFailures: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "run_feed_failures",
				Help:      "Feeds that could not be fetched or parsed in the last run",
			},
		),
		failures: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "run_failures",
				Help:      "Failures recorded by the last run, by category",
			},
			[]string{"category"},
		),
		analysesBySrc: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "run_analyses",
				Help:      "Analyses written by the last run, by source kind",
			},
			[]string{"source_kind"},
		),
		duration: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "run_duration_seconds",
				Help:      "Wall-clock duration of the last run",
			},
		),
		lastCompletion: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "run_last_completion_timestamp_seconds",
				Help:      "Unix time the last run completed",
			},
		),
		partialFailure: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "run_partial_failure",
				Help:      "Whether the last run recorded any failure (1 = yes)",
			},
		),
		podcastsWatched: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "roster_podcasts",
				Help:      "Podcasts in the roster during the last run",
			},
		),
	}
}

func (m *runMetrics) record(s *Summary) {
	outcomes := map[string]int{
		"discovered":       s.Discovered,
		"new":              s.New,
		"queued":           s.Queued,
		"analyzed":         s.Analyzed,
		"skipped":          s.Skipped,
		"in_flight":        s.InFlight,
		"already_analyzed": s.AlreadyAnalyzed,
		"failed":           s.Failed,
	}
	for outcome, count := range outcomes {
		m.episodes.WithLabelValues(outcome).Set(float64(count))
	}
	m.feedFailures.Set(float64(len(s.FeedFailures)))
	for category, count := range s.Failures {
		m.failures.WithLabelValues(string(category)).Set(float64(count))
	}
	for kind, count := range s.BySource {
		m.analysesBySrc.WithLabelValues(string(kind)).Set(float64(count))
	}
	m.duration.Set(s.Duration().Seconds())
	m.lastCompletion.Set(float64(s.FinishedAt.Unix()))
	if s.PartialFailure {
		m.partialFailure.Set(1)
	}
	m.podcastsWatched.Set(float64(s.Podcasts))
}

// WriteMetrics writes the summary as a Prometheus textfile. The file is
// replaced atomically so the node_exporter collector never reads a partial
// exposition.
func WriteMetrics(path string, s *Summary) error {
	if path == "" || s == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	m := newRunMetrics()
	m.record(s)
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
