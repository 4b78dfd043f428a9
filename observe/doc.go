// Package observe provides observability primitives for cached calls.
//
// It is a pure instrumentation library: structured logging, OpenTelemetry
// metrics for store operations and callback deliveries, and spans around
// enqueue/execute/refresh and network round-trips. Consumers wire the
// observer into call.Factory and httpcall.Client.
package observe
