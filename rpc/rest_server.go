package rpc

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/metric"
)

const (
	headerContentType = "Content-Type"
	applicationJson   = "application/json"

	metricsScopeRESTAPI = "rest_api"

	// DefaultMaxBodySize is the request body limit used when the server is
	// configured with non-positive limit.
	DefaultMaxBodySize int64 = 1 << 20
)

var allowedCORSHeaders = []string{"Accept", "Accept-Language", "Content-Language", "Origin", headerContentType}

type (
	// Registrar registers new HTTP handlers for given router.
	Registrar interface {
		Register(r *mux.Router)
	}

	// RegistrarFunc type is an adapter to allow the use of ordinary function as Registrar.
	RegistrarFunc func(r *mux.Router)

	Observability interface {
		Meter(name string, opts ...metric.MeterOption) metric.Meter
	}
)

/*
NewRESTServer returns server with all the registrars mounted under "/api/v1".
Every endpoint is instrumented with call count and duration metrics.
*/
func NewRESTServer(addr string, maxBodySize int64, obs Observability, log *slog.Logger, registrars ...Registrar) *http.Server {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	mtr := obs.Meter(metricsScopeRESTAPI)

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(http.NotFound)
	apiV1Router := r.PathPrefix("/api/v1").Subrouter()
	apiV1Router.Use(handlers.CORS(handlers.AllowedHeaders(allowedCORSHeaders)), instrumentHTTP(mtr, log))

	for _, registrar := range registrars {
		registrar.Register(apiV1Router)
	}

	return &http.Server{
		Addr:              addr,
		ReadTimeout:       3 * time.Second,
		ReadHeaderTimeout: time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       30 * time.Second,
		Handler:           http.MaxBytesHandler(r, maxBodySize),
	}
}

func (f RegistrarFunc) Register(r *mux.Router) {
	f(r)
}

/*
MetricsEndpoints exposes the metrics handler as "/metrics", nothing is
registered when the handler is nil (ie Prometheus exporter is not in use).
*/
func MetricsEndpoints(h http.Handler) RegistrarFunc {
	return func(r *mux.Router) {
		if h == nil {
			return
		}
		r.Handle("/metrics", h).Methods(http.MethodGet)
	}
}
