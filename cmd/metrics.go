package cmd

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zalepa/crashmap/stats"
)

// serverMetrics holds the Prometheus collectors of the serve command.
type serverMetrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	recomputeTime   prometheus.Histogram
	recomputes      prometheus.Counter
	selected        prometheus.Gauge
	version         prometheus.Gauge
	unmatched       prometheus.Gauge
}

func newServerMetrics() *serverMetrics {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	recomputeTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "crashmap_recompute_duration_seconds",
		Help:    "Duration of aggregation passes",
		Buckets: prometheus.DefBuckets,
	})

	recomputes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crashmap_recomputes_total",
		Help: "Total aggregation passes",
	})

	selected := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "crashmap_selected_records",
		Help: "Records that passed the filters in the latest snapshot",
	})

	version := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "crashmap_snapshot_version",
		Help: "Version of the latest published snapshot",
	})

	unmatched := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "crashmap_unmatched_area_names",
		Help: "Area names in selected records that match no boundary",
	})

	registry.MustRegister(requestDuration, requestTotal, recomputeTime, recomputes, selected, version, unmatched)

	return &serverMetrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		recomputeTime:   recomputeTime,
		recomputes:      recomputes,
		selected:        selected,
		version:         version,
		unmatched:       unmatched,
	}
}

// observeRecompute is registered as a stats.Store observer.
func (m *serverMetrics) observeRecompute(res *stats.Result, elapsed time.Duration) {
	m.recomputeTime.Observe(elapsed.Seconds())
	m.recomputes.Inc()
	m.selected.Set(float64(res.Selected))
	m.version.Set(float64(res.Version))
	m.unmatched.Set(float64(len(res.Unmatched)))
}

// middleware captures request metrics.
func (m *serverMetrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		m.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
