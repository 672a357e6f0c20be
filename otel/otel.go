// Package otel bootstraps the [OpenTelemetry] tracing pipeline of the
// router. The proxy creates its spans with the global tracer provider
// and propagates the trace context to the store and the compute backend
// with the global propagator, both set by [Init].
//
// [OpenTelemetry]: https://opentelemetry.io/
package otel

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/bombsimon/logrusr/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/exporters/autoexport"
	"go.opentelemetry.io/contrib/propagators/autoprop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

// DebugExporter writes the finished spans into the debug log of the
// router, OTEL_TRACES_EXPORTER=edgerouter-debug.
const DebugExporter = "edgerouter-debug"

// DefaultServiceName is used when neither the options nor the
// environment set the service name.
const DefaultServiceName = "edgerouter"

var (
	log                 = logrus.WithField("package", "otel")
	registerDebugExport sync.Once
)

// Options of the tracing pipeline. The exporter, the propagators and the
// batching are configured with the standard OTEL_* environment
// variables.
type Options struct {

	// When set, the pipeline was initialized by the embedding program,
	// and Init does nothing.
	Initialized bool `yaml:"initialized"`

	// ServiceName is reported as the service.name resource attribute,
	// unless OTEL_SERVICE_NAME is set.
	ServiceName string `yaml:"service-name"`
}

type writerFunc func([]byte) (int, error)

func (wf writerFunc) Write(p []byte) (int, error) { return wf(p) }

func serviceResource(o *Options) (*resource.Resource, error) {
	name := o.ServiceName
	if name == "" {
		name = DefaultServiceName
	}

	if env := os.Getenv("OTEL_SERVICE_NAME"); env != "" {
		name = env
	}

	return resource.Merge(
		resource.Environment(),
		resource.NewSchemaless(attribute.String("service.name", name)),
	)
}

// Init sets the global tracer provider and propagator from the
// environment:
//
//   - OTEL_TRACES_EXPORTER, e.g. otlp, console, none or edgerouter-debug
//   - OTEL_EXPORTER_OTLP_PROTOCOL, OTEL_EXPORTER_OTLP_ENDPOINT,
//     OTEL_EXPORTER_OTLP_HEADERS
//   - OTEL_RESOURCE_ATTRIBUTES, OTEL_SERVICE_NAME
//   - OTEL_PROPAGATORS, e.g. tracecontext,baggage,xray
//   - OTEL_BSP_* for the batching of the exported spans
//
// The returned shutdown flushes and stops the exporters. It must be
// called when err is nil.
func Init(ctx context.Context, o *Options) (shutdown func(context.Context) error, err error) {
	if o == nil {
		o = &Options{}
	}

	if o.Initialized {
		log.Debug("OpenTelemetry pipeline initialized externally")
		return func(context.Context) error { return nil }, nil
	}

	// the registry of the exporters is global
	registerDebugExport.Do(func() {
		autoexport.RegisterSpanExporter(DebugExporter, func(context.Context) (trace.SpanExporter, error) {
			return stdouttrace.New(stdouttrace.WithWriter(writerFunc(func(p []byte) (int, error) {
				log.Debugf("Span: %s", p)
				return len(p), nil
			})))
		})
	})

	exporter, err := autoexport.NewSpanExporter(ctx)
	if err != nil {
		return nil, err
	}

	res, err := serviceResource(o)
	if err != nil {
		return nil, errors.Join(err, exporter.Shutdown(ctx))
	}

	// shutting down the provider flushes and stops the exporter
	provider := trace.NewTracerProvider(trace.WithBatcher(exporter), trace.WithResource(res))
	shutdown = provider.Shutdown

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(autoprop.NewTextMapPropagator())
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) { log.Error(err) }))
	otel.SetLogger(logrusr.New(log))

	return shutdown, nil
}
