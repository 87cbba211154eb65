package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Outcome string

const (
	Success Outcome = "success"
	Error   Outcome = "error"
)

func (o Outcome) String() string {
	return string(o)
}

var defaultHistogramBucketsSeconds = []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5}

var (
	once sync.Once

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vesting_http_request_duration_seconds",
			Help:    "Histogram of API request durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"method", "route", "status"},
	)

	// claims by outcome code, "OK" for successful ones
	claimCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vesting_claims_total",
			Help: "The total number of claim attempts by result code",
		},
		[]string{"code"},
	)

	claimedTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vesting_claimed_tokens_total",
			Help: "Base units paid out by claims, per company",
		},
		[]string{"company"},
	)

	poolsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vesting_pools_created_total",
			Help: "Number of vesting pools created",
		},
	)

	grantsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vesting_grants_created_total",
			Help: "Number of beneficiary grants created",
		},
	)

	claimEventDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vesting_claim_event_processing_duration_seconds",
			Help:    "Claim event processing duration in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"status"},
	)

	wsClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vesting_claim_stream_clients",
			Help: "Connected claim stream websocket clients",
		},
	)
)

// Init registers the metrics with the default registry. It is safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			claimCounter,
			claimedTokens,
			poolsCreated,
			grantsCreated,
			claimEventDuration,
			wsClients,
		)
	})
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// Middleware records the duration of every request under its route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func RecordClaim(company, code string, amount uint64) {
	claimCounter.WithLabelValues(code).Inc()
	if amount > 0 {
		claimedTokens.WithLabelValues(company).Add(float64(amount))
	}
}

func RecordPoolCreated() {
	poolsCreated.Inc()
}

func RecordGrantCreated() {
	grantsCreated.Inc()
}

func RecordClaimEvent(d time.Duration, failure bool) {
	status := Success
	if failure {
		status = Error
	}
	claimEventDuration.WithLabelValues(status.String()).Observe(d.Seconds())
}

func StreamClientConnected() {
	wsClients.Inc()
}

func StreamClientDisconnected() {
	wsClients.Dec()
}
