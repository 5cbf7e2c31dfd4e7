package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"osryn.bank/internal/ledger"
	"osryn.bank/internal/obs"
	"osryn.bank/internal/stream"
)

const serviceName = "osryn-bank-api"

// Options tunes the HTTP front-end. Zero values fall back to defaults.
type Options struct {
	RateBurst     int
	RatePerSecond int
	MaxBodyBytes  int64
	// Heartbeat is the SSE keep-alive interval.
	Heartbeat time.Duration
}

func (o Options) withDefaults() Options {
	if o.RateBurst <= 0 {
		o.RateBurst = 20
	}
	if o.RatePerSecond <= 0 {
		o.RatePerSecond = 10
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 1 << 20
	}
	if o.Heartbeat <= 0 {
		o.Heartbeat = 15 * time.Second
	}
	return o
}

// API is the HTTP layer over a ledger.
type API struct {
	mux     *http.ServeMux
	ledger  ledger.Service
	stream  *stream.Stream
	version string
	opts    Options
}

func New(svc ledger.Service, st *stream.Stream, version string, opts Options) *API {
	a := &API{
		mux:     http.NewServeMux(),
		ledger:  svc,
		stream:  st,
		version: version,
		opts:    opts.withDefaults(),
	}

	// ops
	a.mux.HandleFunc("/healthz", only(http.MethodGet, a.Healthz))
	a.mux.HandleFunc("/v1/info", only(http.MethodGet, a.Info))
	a.mux.Handle("/metrics", obs.Handler())

	// public
	a.mux.HandleFunc("/v1/billers", only(http.MethodGet, a.listBillers))
	a.mux.HandleFunc("/v1/accounts", only(http.MethodPost, a.createAccount))
	a.mux.HandleFunc("/v1/auth/login", only(http.MethodPost, a.login))

	// authenticated
	a.mux.Handle("/v1/me", a.withAccount(only(http.MethodGet, a.getMe)))
	a.mux.Handle("/v1/me/profile", a.withAccount(only(http.MethodPatch, a.updateProfile)))
	a.mux.Handle("/v1/me/secret", a.withAccount(only(http.MethodPut, a.changeSecret)))
	a.mux.Handle("/v1/me/deposits", a.withAccount(only(http.MethodPost, a.deposit)))
	a.mux.Handle("/v1/me/withdrawals", a.withAccount(only(http.MethodPost, a.withdraw)))
	a.mux.Handle("/v1/me/transfers", a.withAccount(only(http.MethodPost, a.transfer)))
	a.mux.Handle("/v1/me/bill-payments", a.withAccount(only(http.MethodPost, a.payBill)))
	a.mux.Handle("/v1/me/transactions", a.withAccount(only(http.MethodGet, a.listTransactions)))
	a.mux.Handle("/v1/me/balance-history", a.withAccount(only(http.MethodGet, a.balanceHistory)))
	a.mux.Handle("/v1/me/statement", a.withAccount(only(http.MethodGet, a.statement)))
	a.mux.Handle("/v1/events", a.withAccount(only(http.MethodGet, a.Stream)))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not_found", "resource not found")
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = obs.Instrument(a.mux)
	h = MaxBodyBytes(h, a.opts.MaxBodyBytes)
	h = RateLimit(h, a.opts.RateBurst, a.opts.RatePerSecond)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	return RequestID(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":             serviceName,
		"time":             time.Now().UTC().Format(time.RFC3339),
		"version":          a.version,
		"history_capacity": ledger.HistoryCapacity,
	})
}

// --- helpers ---

func only(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			methodNotAllowed(w, r, method)
			return
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	payload := map[string]any{
		"error": msg,
		"code":  code,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, status, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}
