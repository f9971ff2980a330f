package metrics

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
	"go.opentelemetry.io/otel/metric/instrument"
	"go.opentelemetry.io/otel/metric/unit"
)

const meterName = "natours-meter"

// config is used to configure the metric middleware.
type config struct {
	MeterProvider metric.MeterProvider
}

// Option specifies instrumentation configuration options.
type Option func(*config)

// WithMeterProvider option sets metric provider. If none is specified, the global provider is used.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *config) {
		cfg.MeterProvider = provider
	}
}

var (
	codeLabel   = attribute.Key("code")
	methodLabel = attribute.Key("method")
	hostLabel   = attribute.Key("host")
	urlLabel    = attribute.Key("url")
)

// Middleware records request count, latency and payload sizes for every
// route, partitioned by status code, method, host and url
func Middleware(opts ...Option) echo.MiddlewareFunc {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = global.MeterProvider()
	}

	meter := cfg.MeterProvider.Meter(
		meterName,
		metric.WithInstrumentationVersion(contrib.SemVersion()),
	)

	requests, errCnt := meter.SyncInt64().Counter(
		"requests_total",
		instrument.WithDescription("How many HTTP requests processed, partitioned by status code and HTTP method."),
		instrument.WithUnit(unit.Dimensionless),
	)
	latency, errDur := meter.SyncFloat64().Histogram(
		"request_duration_milliseconds",
		instrument.WithDescription("The HTTP request latencies in milliseconds."),
		instrument.WithUnit(unit.Milliseconds),
	)
	responseSize, errRes := meter.SyncInt64().Histogram(
		"response_size_bytes",
		instrument.WithDescription("The HTTP response sizes in bytes."),
		instrument.WithUnit(unit.Bytes),
	)
	requestSize, errReq := meter.SyncInt64().Histogram(
		"request_size_bytes",
		instrument.WithDescription("The HTTP request sizes in bytes."),
		instrument.WithUnit(unit.Bytes),
	)
	ready := errCnt == nil && errDur == nil && errRes == nil && errReq == nil

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !ready {
				return next(c)
			}

			start := time.Now()
			reqSz := computeApproximateRequestSize(c.Request())

			if err := next(c); err != nil {
				c.Error(err)
			}

			ctx := c.Request().Context()
			elapsed := float64(time.Since(start)) / float64(time.Millisecond)

			lbl := []attribute.KeyValue{
				codeLabel.Int(c.Response().Status),
				methodLabel.String(c.Request().Method),
				hostLabel.String(c.Request().Host),
				urlLabel.String(c.Path()),
			}

			requests.Add(ctx, 1, lbl...)
			latency.Record(ctx, elapsed, lbl...)
			responseSize.Record(ctx, c.Response().Size, lbl...)
			requestSize.Record(ctx, reqSz, lbl...)

			return nil
		}
	}
}

func computeApproximateRequestSize(r *http.Request) int64 {
	s := 0
	if r.URL != nil {
		s = len(r.URL.Path)
	}

	s += len(r.Method)
	s += len(r.Proto)
	for name, values := range r.Header {
		s += len(name)
		for _, value := range values {
			s += len(value)
		}
	}
	s += len(r.Host)

	if r.ContentLength != -1 {
		s += int(r.ContentLength)
	}
	return int64(s)
}
