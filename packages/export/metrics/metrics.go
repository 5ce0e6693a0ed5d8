// Package metrics collects request pipeline metrics and exports them as a
// Prometheus textfile or a JSON summary.
package metrics

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/abdul-hamid-achik/fetchform/packages/http"
)

// Request outcomes used for the outcome label.
const (
	OutcomeSuccess         = "success"
	OutcomeHTTPError       = "http_error"
	OutcomeTimeout         = "timeout"
	OutcomeTransportError  = "transport_error"
	OutcomeResolutionError = "resolution_error"
)

// Summary aggregates everything a Collector has observed.
type Summary struct {
	TotalRequests    int64            `json:"total_requests"`
	SuccessCount     int64            `json:"success_count"`
	FailureCount     int64            `json:"failure_count"`
	TotalDurationMs  float64          `json:"total_duration_ms"`
	MinDurationMs    float64          `json:"min_duration_ms"`
	MaxDurationMs    float64          `json:"max_duration_ms"`
	AvgDurationMs    float64          `json:"avg_duration_ms"`
	P50DurationMs    float64          `json:"p50_duration_ms"`
	P95DurationMs    float64          `json:"p95_duration_ms"`
	P99DurationMs    float64          `json:"p99_duration_ms"`
	StatusCodes      map[int]int64    `json:"status_codes"`
	Outcomes         map[string]int64 `json:"outcomes"`
	FetchesOK        int64            `json:"fetches_ok"`
	FetchesRejected  int64            `json:"fetches_rejected"`
	ArtifactsRemoved int64            `json:"artifacts_removed"`
	ArtifactsFailed  int64            `json:"artifacts_failed"`
}

// Collector implements http.Observer. Every collector owns its registry so
// several can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	responses        *prometheus.CounterVec
	duration         prometheus.Histogram
	fetches          *prometheus.CounterVec
	artifactsRemoved prometheus.Counter
	artifactsFailed  prometheus.Counter

	mu      sync.Mutex
	summary Summary
	latency *hdrhistogram.Histogram // microseconds
}

// maxLatencyUs is the largest latency the percentile histogram tracks.
const maxLatencyUs = 60 * 60 * 1_000_000

var _ http.Observer = (*Collector)(nil)

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fetchform_requests_total",
			Help: "Total number of outbound requests",
		}, []string{"method", "outcome"}),
		responses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fetchform_responses_total",
			Help: "Responses by HTTP status code",
		}, []string{"status"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fetchform_request_duration_seconds",
			Help:    "Duration of outbound requests including field resolution",
			Buckets: prometheus.DefBuckets,
		}),
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fetchform_fetches_total",
			Help: "Remote field downloads",
		}, []string{"result"}), // result: ok, rejected
		artifactsRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "fetchform_artifacts_removed_total",
			Help: "Temporary files removed after a request",
		}),
		artifactsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "fetchform_artifacts_failed_total",
			Help: "Temporary files that could not be removed",
		}),
		summary: Summary{
			StatusCodes: make(map[int]int64),
			Outcomes:    make(map[string]int64),
		},
		latency: hdrhistogram.New(1, maxLatencyUs, 3),
	}
}

// Registry exposes the collector's registry, e.g. for promhttp.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Outcome classifies a finished request.
func Outcome(statusCode int, err error) string {
	var resErr *http.ResolutionError
	switch {
	case errors.As(err, &resErr):
		return OutcomeResolutionError
	case http.IsTimeout(err):
		return OutcomeTimeout
	case err != nil:
		return OutcomeTransportError
	case statusCode >= 400:
		return OutcomeHTTPError
	default:
		return OutcomeSuccess
	}
}

func (c *Collector) RequestFinished(method string, statusCode int, err error, d time.Duration) {
	outcome := Outcome(statusCode, err)
	c.requests.WithLabelValues(method, outcome).Inc()
	c.duration.Observe(d.Seconds())
	if statusCode > 0 {
		c.responses.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	}

	ms := float64(d) / float64(time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	s := &c.summary
	s.TotalRequests++
	s.TotalDurationMs += ms
	if outcome == OutcomeSuccess {
		s.SuccessCount++
	} else {
		s.FailureCount++
	}
	if s.TotalRequests == 1 {
		s.MinDurationMs = ms
		s.MaxDurationMs = ms
	} else {
		if ms < s.MinDurationMs {
			s.MinDurationMs = ms
		}
		if ms > s.MaxDurationMs {
			s.MaxDurationMs = ms
		}
	}
	s.AvgDurationMs = s.TotalDurationMs / float64(s.TotalRequests)
	_ = c.latency.RecordValue(min(max(d.Microseconds(), 1), maxLatencyUs))
	if statusCode > 0 {
		s.StatusCodes[statusCode]++
	}
	s.Outcomes[outcome]++
}

func (c *Collector) FetchFinished(result http.FetchResult) {
	label := "rejected"
	if result.OK() {
		label = "ok"
	}
	c.fetches.WithLabelValues(label).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	if result.OK() {
		c.summary.FetchesOK++
	} else {
		c.summary.FetchesRejected++
	}
}

func (c *Collector) ArtifactsCleaned(report http.CleanupReport) {
	c.artifactsRemoved.Add(float64(report.Removed))
	c.artifactsFailed.Add(float64(report.Failed))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary.ArtifactsRemoved += int64(report.Removed)
	c.summary.ArtifactsFailed += int64(report.Failed)
}

// Summary returns a copy of the aggregate.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.summary
	s.StatusCodes = make(map[int]int64, len(c.summary.StatusCodes))
	for k, v := range c.summary.StatusCodes {
		s.StatusCodes[k] = v
	}
	s.Outcomes = make(map[string]int64, len(c.summary.Outcomes))
	for k, v := range c.summary.Outcomes {
		s.Outcomes[k] = v
	}
	if s.TotalRequests > 0 {
		s.P50DurationMs = quantileMs(c.latency, 50)
		s.P95DurationMs = quantileMs(c.latency, 95)
		s.P99DurationMs = quantileMs(c.latency, 99)
	}
	return s
}

func quantileMs(h *hdrhistogram.Histogram, q float64) float64 {
	return float64(h.ValueAtQuantile(q)) / 1000
}
