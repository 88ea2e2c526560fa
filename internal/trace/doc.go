// Package trace is the logging layer of warden.
//
// The analyzer has no free-form log output: everything it wants to say about
// its own execution (scan boundaries, per-unit work, rule callbacks, recovered
// rule faults) goes through a Tracer as structured events.
//
// # Usage
//
//	warden scan --trace=- --trace-level=phase ./units
//	warden scan --trace=scan.ndjson --trace-mode=both ./units
//
// # Implementations
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: writes to stderr directly, buffered to files
//   - RingTracer: circular buffer, dumped when the process crashes
//   - MultiTracer: stream + ring
//
// # Levels
//
//   - LevelOff: nothing
//   - LevelError: only KindError events (rule faults, unit failures)
//   - LevelPhase: driver and unit boundaries
//   - LevelDetail: rule callbacks
//   - LevelDebug: everything including node visits
//
// Error events bypass the scope filter: a rule fault is recorded at
// LevelError even though ScopeRule would otherwise need LevelDetail.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeDriver, "scan", trace.ParentSpan(ctx))
//	defer span.End("")
//	ctx = trace.WithParent(ctx, span.ID()) // units nest under the scan span
package trace
