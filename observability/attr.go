package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	CategoryKey attribute.Key = "risk.category"
	KindKey     attribute.Key = "violation.kind"
	SeverityKey attribute.Key = "correlation.severity"
	FlowKey     attribute.Key = "moneyflow.flow"
)

func Category(c string) attribute.KeyValue {
	return CategoryKey.String(c)
}

func Kind(kind string) attribute.KeyValue {
	return KindKey.String(kind)
}

func Severity(s string) attribute.KeyValue {
	return SeverityKey.String(s)
}

func Flow(flow string) attribute.KeyValue {
	return FlowKey.String(flow)
}

/*
ErrStatus returns attribute named "status" with value "ok" if the param
err is nil and "err" when it is not.
*/
func ErrStatus(err error) attribute.KeyValue {
	status := "ok"
	if err != nil {
		status = "err"
	}
	return attribute.String("status", status)
}

// Attrs is shorthand for creating measurement option out of attributes.
func Attrs(attrs ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributeSet(attribute.NewSet(attrs...))
}
