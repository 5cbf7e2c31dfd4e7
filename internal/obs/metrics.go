package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"osryn.bank/internal/ledger"
)

// HTTP metrics
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Ledger metrics
var (
	ledgerOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger operations by outcome.",
		},
		[]string{"op", "result"},
	)

	ledgerAccounts = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_accounts",
		Help: "Number of registered accounts.",
	})
)

var initOnce sync.Once

// Init registers metrics in the default registry. Safe to call repeatedly.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			ledgerOperations, ledgerAccounts,
		)
	})
}

// Handler serves the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveLedger counts one ledger operation, labelled by its outcome.
func ObserveLedger(op string, err error) {
	ledgerOperations.WithLabelValues(op, LedgerResult(err)).Inc()
}

// SetAccounts records the current number of accounts.
func SetAccounts(n int) {
	ledgerAccounts.Set(float64(n))
}

// LedgerResult maps a ledger error to a low-cardinality label value.
func LedgerResult(err error) string {
	if err == nil {
		return "ok"
	}
	return ledger.ErrorCode(err)
}

// Instrument measures RPS, latency and in-flight requests.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// knownPaths are served verbatim; anything else collapses to "other" so
// scanners cannot blow up label cardinality.
var knownPaths = map[string]bool{
	"/":                      true,
	"/healthz":               true,
	"/metrics":               true,
	"/v1/info":               true,
	"/v1/billers":            true,
	"/v1/accounts":           true,
	"/v1/auth/login":         true,
	"/v1/events":             true,
	"/v1/me":                 true,
	"/v1/me/profile":         true,
	"/v1/me/secret":          true,
	"/v1/me/deposits":        true,
	"/v1/me/withdrawals":     true,
	"/v1/me/transfers":       true,
	"/v1/me/bill-payments":   true,
	"/v1/me/transactions":    true,
	"/v1/me/balance-history": true,
	"/v1/me/statement":       true,
}

// CanonicalPath normalises a request path into a metrics label.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	if knownPaths[p] {
		return p
	}
	return "other"
}

// statusWriter keeps the response code for labelling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers work through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
