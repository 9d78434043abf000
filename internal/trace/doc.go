// Package trace records what pytrace itself is doing: run phases, frames
// entered and recorded line steps. It is unrelated to the execution traces
// pytrace produces for scripts; those live in package record.
//
// Enable it from the command line:
//
//	pytrace run --trace=- --trace-level=phase script.py
//
// Tracers travel through the pipeline in a context.Context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "parse", 0)
//	defer span.End("")
//
// Levels map onto scopes: phase emits run and phase spans, detail adds
// frame events, debug adds one point per recorded step.
package trace
