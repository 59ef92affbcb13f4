package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ReportsCreated *prometheus.CounterVec
	ReportFailures *prometheus.CounterVec
	AuthAttempts   *prometheus.CounterVec
	requestDur     *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.ReportsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "straysaver",
		Name:      "reports_created_total",
		Help:      "Reports persisted, by storage backend",
	}, []string{"backend"})
	m.ReportFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "straysaver",
		Name:      "report_failures_total",
		Help:      "Rejected or failed submissions, by stage",
	}, []string{"stage"})
	m.AuthAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "straysaver",
		Name:      "auth_attempts_total",
		Help:      "Signup and login attempts, by outcome",
	}, []string{"action", "outcome"})
	m.requestDur = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "straysaver",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	m.registry.MustRegister(
		m.ReportsCreated,
		m.ReportFailures,
		m.AuthAttempts,
		m.requestDur,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware observes request latency labelled by the matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestDur.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
