package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GamesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trivia_games_created_total",
			Help: "Games created, by kind",
		},
		[]string{"kind"},
	)

	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trivia_transitions_total",
			Help: "Applied game transitions, by transition",
		},
		[]string{"transition"},
	)

	Answers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trivia_answers_total",
			Help: "Answer submissions, by result (correct, incorrect, duplicate)",
		},
		[]string{"result"},
	)

	Conflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trivia_store_conflicts_total",
			Help: "Atomic updates that lost a race and were retried",
		},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trivia_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Middleware records request latency by matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
