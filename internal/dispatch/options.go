package dispatch

import (
	"warden/internal/diag"
	"warden/internal/trace"
)

type options struct {
	tracer        trace.Tracer
	parallelRules int
	severity      map[string]diag.Severity
}

type Option func(*options)

// WithTracer routes fault and per-rule events to t.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithParallelRules lets up to n rules interested in the same node run
// concurrently. n <= 1 keeps dispatch sequential.
func WithParallelRules(n int) Option {
	return func(o *options) { o.parallelRules = n }
}

// WithSeverity overrides the default severity of the named rules.
func WithSeverity(overrides map[string]diag.Severity) Option {
	return func(o *options) {
		for k, v := range overrides {
			o.severity[k] = v
		}
	}
}
