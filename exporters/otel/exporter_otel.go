// Package otel exports corecaller spans to an OTLP collector over gRPC.
package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials"

	"github.com/InjectiveLabs/corecaller"
)

var _ corecaller.ExporterInitFn = InitExporter

// InitExporter installs a batching trace provider that sends to
// cfg.CollectorDSN. Failures are logged and leave tracing on the
// previous provider.
func InitExporter(cfg *corecaller.Config) corecaller.ExporterShutdownFn {
	logger := cfg.Logger

	exporter, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(clientOptions(cfg)...))
	if err != nil {
		logger.Warn("corecaller: otel exporter: failed to create exporter", "error", err)
		return emptyShutdownFn
	}

	attributes := make([]attribute.KeyValue, 0, 4)
	for k, v := range cfg.GlobalTagsMap() {
		attributes = append(attributes, attribute.String(k, v))
	}

	resources, err := resource.New(
		context.Background(),
		resource.WithAttributes(attributes...),
	)
	if err != nil {
		logger.Warn("corecaller: otel exporter: could not set resources", "error", err)
		return emptyShutdownFn
	}

	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resources),
	)

	otel.SetTracerProvider(traceProvider)

	return func(ctx context.Context) error {
		if err := traceProvider.ForceFlush(ctx); err != nil {
			logger.Warn("corecaller: otel exporter: failed to force flush traces", "error", err)
		}

		return traceProvider.Shutdown(ctx)
	}
}

func clientOptions(cfg *corecaller.Config) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.CollectorDSN),
	}

	if cfg.CollectorSecureSSL {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	} else {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	if len(cfg.CollectorHeaders) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.CollectorHeaders))
	}

	return opts
}

func emptyShutdownFn(context.Context) error {
	return nil
}
