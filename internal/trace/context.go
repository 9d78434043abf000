package trace

import "context"

type ctxKey struct{}

// FromContext returns the Tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(ctxKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches t to ctx. A nil t attaches Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, ctxKey{}, t)
}

type spanKey struct{}

// SpanFromContext returns the ID of the span that encloses ctx, or 0.
func SpanFromContext(ctx context.Context) uint64 {
	if ctx == nil {
		return 0
	}
	id, _ := ctx.Value(spanKey{}).(uint64)
	return id
}

// WithSpan makes s the parent of spans started under the returned context.
func WithSpan(ctx context.Context, s *Span) context.Context {
	if s == nil || s.id == 0 {
		return ctx
	}
	return context.WithValue(ctx, spanKey{}, s.id)
}

// Start begins a span under the tracer and parent span carried by ctx and
// returns a context carrying the new span.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	s := Begin(FromContext(ctx), scope, name, SpanFromContext(ctx))
	return WithSpan(ctx, s), s
}
