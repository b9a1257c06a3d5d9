package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for data operations.
type Observer interface {
	RecordOperation(op string, duration time.Duration, err error)
	RecordUpload(duration time.Duration, sizeBytes int64, err error)
}

// PrometheusObserver exports data service metrics to Prometheus.
type PrometheusObserver struct {
	duration    *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
	uploadBytes prometheus.Counter
}

// NewPrometheusObserver registers the operation metrics on reg. Collectors
// that are already registered are reused.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "dropzone"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Latency of data operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operation_errors_total",
		Help:      "Count of failed data operations.",
	}, []string{"operation"})
	uploadBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploaded_bytes_total",
		Help:      "Cumulative size of stored file content.",
	})

	o := &PrometheusObserver{}
	var err error
	if o.duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if o.errorsTotal, err = register(reg, errorsTotal); err != nil {
		return nil, err
	}
	if o.uploadBytes, err = register(reg, uploadBytes); err != nil {
		return nil, err
	}
	return o, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

func (o *PrometheusObserver) RecordOperation(op string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil {
		o.errorsTotal.WithLabelValues(op).Inc()
	}
}

func (o *PrometheusObserver) RecordUpload(duration time.Duration, sizeBytes int64, err error) {
	if o == nil {
		return
	}
	o.RecordOperation("upload", duration, err)
	if err == nil {
		o.uploadBytes.Add(float64(sizeBytes))
	}
}

type nopObserver struct{}

func (nopObserver) RecordOperation(string, time.Duration, error) {}

func (nopObserver) RecordUpload(time.Duration, int64, error) {}
