package otel

import (
	"context"
	stderrors "errors"

	runtimeotel "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/imtaco/stream-dashboard/internal/errors"
	"github.com/imtaco/stream-dashboard/internal/log"
)

const ErrTelemetry errors.Code = "telemetry_init"

// ShutdownFunc flushes and stops the exporters started by Init.
type ShutdownFunc func(context.Context) error

// Init installs the global tracer and meter providers. With both signals
// disabled the otel no-op globals stay in place and shutdown does nothing.
func Init(ctx context.Context, config *Config, logger *log.Logger) (ShutdownFunc, error) {
	logger.Info("OTEL configuration",
		log.Bool("tracing_enabled", config.TracingEnabled),
		log.Bool("metrics_enabled", config.MetricsEnabled),
		log.Bool("go_metrics_enabled", config.RuntimeMetricsEnabled),
		log.String("endpoint", config.Endpoint),
		log.String("service_name", config.ServiceName))

	if !config.TracingEnabled && !config.MetricsEnabled {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(config.ServiceName)),
		resource.WithFromEnv(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, errors.Wrap(ErrTelemetry, err, "create resource")
	}

	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdowns {
			errs = append(errs, fn(ctx))
		}
		return stderrors.Join(errs...)
	}

	if config.TracingEnabled {
		tp, err := initTracing(ctx, config, res)
		if err != nil {
			return nil, err
		}
		shutdowns = append(shutdowns, tp.Shutdown)
	}

	if config.MetricsEnabled {
		mp, err := initMetrics(ctx, config, res)
		if err != nil {
			_ = shutdown(ctx)
			return nil, err
		}
		shutdowns = append(shutdowns, mp.Shutdown)

		if config.RuntimeMetricsEnabled {
			if err := runtimeotel.Start(runtimeotel.WithMeterProvider(mp)); err != nil {
				_ = shutdown(ctx)
				return nil, errors.Wrap(ErrTelemetry, err, "start runtime metrics")
			}
		}
	}

	return shutdown, nil
}

func dialOption(config *Config) []grpc.DialOption {
	if !config.Insecure {
		return nil
	}
	return []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

func initTracing(ctx context.Context, config *Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(config.Endpoint),
		otlptracegrpc.WithTimeout(config.Timeout),
	}
	if config.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	for _, o := range dialOption(config) {
		opts = append(opts, otlptracegrpc.WithDialOption(o))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(ErrTelemetry, err, "create OTLP trace exporter")
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(config.SamplingRate)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return provider, nil
}

func initMetrics(ctx context.Context, config *Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(config.Endpoint),
		otlpmetricgrpc.WithTimeout(config.Timeout),
	}
	if config.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	for _, o := range dialOption(config) {
		opts = append(opts, otlpmetricgrpc.WithDialOption(o))
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(ErrTelemetry, err, "create OTLP metric exporter")
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
			exporter,
			sdkmetric.WithInterval(config.MetricsExportInterval),
		)),
	)
	// instruments created in package init() delegate to this provider
	otel.SetMeterProvider(provider)
	return provider, nil
}
