package trace

import "context"

// ctxKey carries a ctxValue: the tracer and the span new spans nest under.
type ctxKey struct{}

type ctxValue struct {
	tracer Tracer
	parent uint64
}

func valueOf(ctx context.Context) ctxValue {
	if ctx != nil {
		if v, ok := ctx.Value(ctxKey{}).(ctxValue); ok {
			return v
		}
	}
	return ctxValue{tracer: Nop}
}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	return valueOf(ctx).tracer
}

// WithTracer attaches t to ctx. The parent span is reset.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, ctxKey{}, ctxValue{tracer: t})
}

// ParentSpan is the span id spans begun under ctx should use as parent;
// 0 at the top level.
func ParentSpan(ctx context.Context) uint64 {
	return valueOf(ctx).parent
}

// WithParent makes span id the parent for work started under the returned
// context. The tracer is kept.
func WithParent(ctx context.Context, id uint64) context.Context {
	v := valueOf(ctx)
	v.parent = id
	return context.WithValue(ctx, ctxKey{}, v)
}
