/*
Package observability sets up metrics collection for the application.
*/
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexp "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/alphabill-org/econsec/logger"
)

const (
	ExporterStdout     = "stdout"
	ExporterPrometheus = "prometheus"
)

/*
New creates observability with the "metrics" exporter, empty string means
metrics are not collected. The logger is made available to the components
through the Logger method.
*/
func New(metrics, version string, log *slog.Logger) (*Observability, error) {
	o := &Observability{mp: noop.NewMeterProvider(), log: logger.OrNOP(log)}
	if metrics == "" {
		return o, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName("econsec"),
			semconv.ServiceVersion(version),
		))
	if err != nil {
		return nil, fmt.Errorf("creating OTEL resource: %w", err)
	}

	mp, err := o.initMeterProvider(metrics, res)
	if err != nil {
		return nil, fmt.Errorf("initialize meter provider: %w", err)
	}
	o.mp = mp
	o.shutdownFuncs = append(o.shutdownFuncs, mp.Shutdown)
	return o, nil
}

type Observability struct {
	mp  metric.MeterProvider
	pr  prometheus.Registerer
	log *slog.Logger

	shutdownFuncs []func(context.Context) error
}

func (o *Observability) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for _, fn := range o.shutdownFuncs {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("observability shutdown: %w", errors.Join(errs...))
	}
	return nil
}

func (o *Observability) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	return o.mp.Meter(name, opts...)
}

func (o *Observability) Logger() *slog.Logger { return o.log }

/*
MetricsHandler returns handler serving the Prometheus registry, nil when
Prometheus exporter is not in use.
*/
func (o *Observability) MetricsHandler() http.Handler {
	if o.pr == nil {
		return nil
	}
	return promhttp.HandlerFor(o.pr.(prometheus.Gatherer), promhttp.HandlerOpts{MaxRequestsInFlight: 1})
}

func (o *Observability) PrometheusRegisterer() prometheus.Registerer {
	return o.pr
}

func (o *Observability) initMeterProvider(exporter string, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	var reader sdkmetric.Reader
	switch exporter {
	case ExporterStdout:
		me, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("creating stdout exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(me)
	case ExporterPrometheus:
		var err error
		o.pr = prometheus.NewRegistry()
		if reader, err = promexp.New(promexp.WithRegisterer(o.pr), promexp.WithNamespace("econsec")); err != nil {
			return nil, fmt.Errorf("creating Prometheus exporter: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported exporter %q", exporter)
	}

	μs := time.Microsecond.Seconds()
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithView(
			sdkmetric.NewView(
				sdkmetric.Instrument{
					Name:  "duration",
					Scope: instrumentation.Scope{Name: "rest_api"},
				},
				sdkmetric.Stream{
					Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
						Boundaries: []float64{100 * μs, 200 * μs, 400 * μs, 800 * μs, 0.0016, 0.01, 0.05, 0.1},
					},
				},
			),
			sdkmetric.NewView(
				sdkmetric.Instrument{
					Name:  "risk.score",
					Scope: instrumentation.Scope{Name: "engine"},
				},
				sdkmetric.Stream{
					Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
						Boundaries: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
					},
				},
			),
		),
	), nil
}

type (
	// Provider is the observability API used by the application components.
	Provider interface {
		Meter(name string, opts ...metric.MeterOption) metric.Meter
		Logger() *slog.Logger
		MetricsHandler() http.Handler
		Shutdown() error
	}

	// Factory builds logger and observability for the CLI commands.
	Factory interface {
		Logger(cfg *logger.LogConfiguration) (*slog.Logger, error)
		Observability(metrics string, log *slog.Logger) (Provider, error)
	}

	defaultFactory struct {
		version string
	}
)

/*
DefaultFactory returns Factory which creates logger according to the
configuration and Observability with real exporters.
*/
func DefaultFactory(version string) Factory {
	return defaultFactory{version: version}
}

func (defaultFactory) Logger(cfg *logger.LogConfiguration) (*slog.Logger, error) {
	return logger.New(cfg)
}

func (f defaultFactory) Observability(metrics string, log *slog.Logger) (Provider, error) {
	o, err := New(metrics, f.version, log)
	if err != nil {
		return nil, err
	}
	return o, nil
}
