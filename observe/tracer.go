package observe

import (
	"context"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Operations reported in CallMeta.Op.
const (
	OpEnqueue = "enqueue"
	OpExecute = "execute"
	OpRefresh = "refresh"
	OpRemove  = "remove"
	OpNetwork = "network"
)

// CallMeta contains metadata about a cached call for telemetry purposes.
type CallMeta struct {
	ID     string // Per-call identifier
	Op     string // enqueue|execute|refresh|remove|network
	Method string // HTTP method
	URL    string // Request URL without query or credentials
	Key    string // Cache key (empty when the call is not cacheable)
}

// MetaFromRequest builds CallMeta for req. The query string and userinfo
// are dropped so telemetry never records credentials or personal data.
func MetaFromRequest(op string, req *http.Request) CallMeta {
	meta := CallMeta{Op: op}
	if req == nil {
		return meta
	}
	meta.Method = req.Method
	if meta.Method == "" {
		meta.Method = http.MethodGet
	}
	if req.URL != nil {
		u := url.URL{Scheme: req.URL.Scheme, Host: req.URL.Host, Path: req.URL.Path}
		meta.URL = u.String()
	}
	return meta
}

// SpanName returns the deterministic span name for this call.
// Format: callcache.<op> <METHOD>
func (m CallMeta) SpanName() string {
	op := m.Op
	if op == "" {
		op = "call"
	}
	if m.Method == "" {
		return "callcache." + op
	}
	return "callcache." + op + " " + m.Method
}

func (m CallMeta) attributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 5)
	if m.ID != "" {
		attrs = append(attrs, attribute.String("call.id", m.ID))
	}
	if m.Op != "" {
		attrs = append(attrs, attribute.String("call.op", m.Op))
	}
	if m.Method != "" {
		attrs = append(attrs, attribute.String("http.request.method", m.Method))
	}
	if m.URL != "" {
		attrs = append(attrs, attribute.String("url.full", m.URL))
	}
	if m.Key != "" {
		attrs = append(attrs, attribute.String("cache.key", m.Key))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with call-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a call operation.
	StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return NewNoopTracer()
	}
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with call metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	kind := trace.SpanKindInternal
	if meta.Op == OpNetwork {
		kind = trace.SpanKindClient
	}
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(meta.attributes()...),
		trace.WithSpanKind(kind),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

// NewNoopTracer creates a tracer that records nothing.
func NewNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
