package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	testlogr "github.com/alphabill-org/econsec/internal/testutils/logger"
	"github.com/alphabill-org/econsec/logger"
	"github.com/alphabill-org/econsec/observability"
)

/*
NOPObservability creates observability implementation where everything is no-op.
Use it for tests for which it absolutely doesn't make sense to create any logs or metrics.
*/
func NOPObservability() *Observability {
	return &Observability{
		mp:   noop.NewMeterProvider(),
		logF: func(*logger.LogConfiguration) (*slog.Logger, error) { return testlogr.NOP(), nil },
	}
}

/*
Default creates observability with test logger and in-memory metrics, use
Collect or Counter to inspect the recorded measurements.
*/
func Default(t *testing.T) *Observability {
	return New(t, testlogr.LoggerBuilder(t))
}

func New(t *testing.T, logBuilder func(*logger.LogConfiguration) (*slog.Logger, error)) *Observability {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			t.Logf("shutting down meter provider: %v", err)
		}
	})
	return &Observability{mp: mp, reader: reader, logF: logBuilder}
}

type Observability struct {
	logF   func(*logger.LogConfiguration) (*slog.Logger, error)
	mp     metric.MeterProvider
	reader *sdkmetric.ManualReader
}

func (o *Observability) Logger() *slog.Logger {
	log, err := o.logF(nil)
	if err != nil {
		panic(fmt.Errorf("unexpectedly log builder returned error: %w", err))
	}
	return log
}

func (o *Observability) Meter(name string, options ...metric.MeterOption) metric.Meter {
	return o.mp.Meter(name, options...)
}

func (o *Observability) MetricsHandler() http.Handler { return nil }

func (o *Observability) Shutdown() error { return nil }

/*
Factory returns observability.Factory which always returns "o" and the test
logger, regardless of the configuration.
*/
func (o *Observability) Factory() Factory {
	return Factory{logF: o.logF, obs: o}
}

/*
Collect returns all the metrics recorded so far. Fails the test when "o"
was not created with in-memory reader.
*/
func (o *Observability) Collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	if o.reader == nil {
		t.Fatal("observability has no metric reader")
	}
	var rm metricdata.ResourceMetrics
	if err := o.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collecting metrics: %v", err)
	}
	return rm
}

/*
Counter returns the sum recorded by int64 counter "name" of meter "scope"
for data points which have all the "attrs". Zero is returned when nothing
has been recorded.
*/
func (o *Observability) Counter(t *testing.T, scope, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	rm := o.Collect(t)
	var total int64
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != scope {
			continue
		}
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s/%s is %T, expected int64 sum", scope, name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				if hasAll(dp.Attributes, attrs) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func hasAll(set attribute.Set, attrs []attribute.KeyValue) bool {
	for _, a := range attrs {
		if v, ok := set.Value(a.Key); !ok || v != a.Value {
			return false
		}
	}
	return true
}

/*
Factory implements observability.Factory for tests.
*/
type Factory struct {
	logF func(*logger.LogConfiguration) (*slog.Logger, error)
	obs  *Observability
}

/*
NewFactory returns factory which creates test logger and observability
with in-memory metrics.
*/
func NewFactory(t *testing.T) Factory {
	return Default(t).Factory()
}

func (f Factory) Logger(cfg *logger.LogConfiguration) (*slog.Logger, error) {
	return f.logF(cfg)
}

func (f Factory) Observability(metrics string, log *slog.Logger) (observability.Provider, error) {
	return f.obs, nil
}
