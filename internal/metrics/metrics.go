package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ArticlesIngested      int64
	DuplicatesSkipped     int64
	ImagesRejected        int64
	SourceErrors          int64
	DiscoveryRequests     int64
	PipelineRuns          int64
	PipelineFailures      int64
	TranslationsPrimary   int64
	TranslationsSecondary int64
	TranslationsFailed    int64
	BreakerOpens          int64

	// Timings
	LastCycleTime    time.Duration
	AverageCycleTime time.Duration
	TotalCycleTime   time.Duration
	CycleCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool

	registry     *prometheus.Registry
	ingested     *prometheus.CounterVec
	skipped      *prometheus.CounterVec
	sourceErrors *prometheus.CounterVec
	cycleSeconds prometheus.Histogram
	discovery    *prometheus.CounterVec
	pipeline     *prometheus.CounterVec
	stageSeconds *prometheus.HistogramVec
	translations *prometheus.CounterVec
	breakerOpens prometheus.Counter
}

var Global = New()

// New builds a Metrics value with its own Prometheus registry.
func New() *Metrics {
	m := &Metrics{
		IsHealthy: true,
		registry:  prometheus.NewRegistry(),
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geonews_articles_ingested_total",
			Help: "Articles stored by the feed scheduler.",
		}, []string{"source"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geonews_articles_skipped_total",
			Help: "Feed entries not stored, by reason.",
		}, []string{"reason"}),
		sourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geonews_source_errors_total",
			Help: "Feed sources that failed during a cycle.",
		}, []string{"source"}),
		cycleSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "geonews_ingest_cycle_seconds",
			Help:    "Duration of scheduler cycles.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		discovery: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geonews_discovery_requests_total",
			Help: "Discovery requests by resolved scope.",
		}, []string{"scope"}),
		pipeline: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geonews_pipeline_runs_total",
			Help: "Pipeline orchestrator calls by outcome.",
		}, []string{"outcome"}),
		stageSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geonews_pipeline_stage_seconds",
			Help:    "Duration of individual pipeline stages.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geonews_translations_total",
			Help: "Translated chunks by engine.",
		}, []string{"engine"}),
		breakerOpens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geonews_translation_breaker_opens_total",
			Help: "Times the primary translation engine breaker opened.",
		}),
	}

	m.registry.MustRegister(
		m.ingested, m.skipped, m.sourceErrors, m.cycleSeconds,
		m.discovery, m.pipeline, m.stageSeconds, m.translations, m.breakerOpens,
	)
	return m
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) IncrementArticlesIngested(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesIngested++
	m.ingested.WithLabelValues(source).Inc()
}

func (m *Metrics) IncrementDuplicatesSkipped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesSkipped++
	m.skipped.WithLabelValues("duplicate").Inc()
}

func (m *Metrics) IncrementImagesRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ImagesRejected++
	m.skipped.WithLabelValues("no_image").Inc()
}

func (m *Metrics) IncrementSourceErrors(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourceErrors++
	m.sourceErrors.WithLabelValues(source).Inc()
}

func (m *Metrics) IncrementDiscovery(scope string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DiscoveryRequests++
	m.discovery.WithLabelValues(scope).Inc()
}

func (m *Metrics) RecordPipeline(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PipelineRuns++
	outcome := "success"
	if !success {
		m.PipelineFailures++
		outcome = "failure"
	}
	m.pipeline.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// IncrementTranslation counts one chunk by the engine that produced it:
// "primary", "secondary" or "failed".
func (m *Metrics) IncrementTranslation(engine string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch engine {
	case "primary":
		m.TranslationsPrimary++
	case "secondary":
		m.TranslationsSecondary++
	default:
		m.TranslationsFailed++
	}
	m.translations.WithLabelValues(engine).Inc()
}

func (m *Metrics) IncrementBreakerOpens() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BreakerOpens++
	m.breakerOpens.Inc()
}

func (m *Metrics) RecordCycleTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastCycleTime = duration
	m.TotalCycleTime += duration
	m.CycleCount++

	if m.CycleCount > 0 {
		m.AverageCycleTime = m.TotalCycleTime / time.Duration(m.CycleCount)
	}
	m.cycleSeconds.Observe(duration.Seconds())
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"articles_ingested":      m.ArticlesIngested,
		"duplicates_skipped":     m.DuplicatesSkipped,
		"images_rejected":        m.ImagesRejected,
		"source_errors":          m.SourceErrors,
		"discovery_requests":     m.DiscoveryRequests,
		"pipeline_runs":          m.PipelineRuns,
		"pipeline_failures":      m.PipelineFailures,
		"translations_primary":   m.TranslationsPrimary,
		"translations_secondary": m.TranslationsSecondary,
		"translations_failed":    m.TranslationsFailed,
		"breaker_opens":          m.BreakerOpens,
		"last_cycle_time_ms":     m.LastCycleTime.Milliseconds(),
		"average_cycle_time_ms":  m.AverageCycleTime.Milliseconds(),
		"last_run_time":          m.LastRunTime.Format(time.RFC3339),
		"last_error_time":        m.LastErrorTime.Format(time.RFC3339),
		"last_error":             m.LastError,
		"is_healthy":             m.IsHealthy,
	}
}
