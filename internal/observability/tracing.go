package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.25.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// InitTracing wires the OTLP gRPC exporter and installs the global tracer
// provider. The returned function flushes and shuts the provider down.
// When otlpAddr is empty, tracing stays on the default no-op provider.
func InitTracing(ctx context.Context, serviceName, otlpAddr string) (func(context.Context) error, error) {
	if otlpAddr == "" {
		log.Printf("tracing disabled: empty otlp address")
		return func(context.Context) error { return nil }, nil
	}

	conn, err := grpc.NewClient(otlpAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	log.Printf("tracing enabled exporter=%s", otlpAddr)
	return func(ctx context.Context) error {
		defer conn.Close()
		return provider.Shutdown(ctx)
	}, nil
}
