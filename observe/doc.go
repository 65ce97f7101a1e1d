// Package observe provides the logging, tracing and metrics primitives used
// across the badge pipeline.
//
// Badge requests and upstream calls are both described by an Operation and
// run through a Middleware, which opens a span, records duration and outcome
// metrics, and writes one structured log line per call.
package observe
