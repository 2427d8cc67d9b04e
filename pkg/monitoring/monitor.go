package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	MockExamCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mock_exam_created_total",
			Help: "Total number of mock exam instances created",
		},
		[]string{"mode"}, // create / quick_start
	)

	MockExamSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mock_exam_submissions_total",
			Help: "Total number of mock exam score submissions by outcome",
		},
		[]string{"outcome"},
	)

	FallbackQuestions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mock_exam_fallback_questions_total",
			Help: "Questions drawn by the fallback extractor to cover rule shortfalls",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(MockExamCreated)
	prometheus.MustRegister(MockExamSubmissions)
	prometheus.MustRegister(FallbackQuestions)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
