// Package health reports whether the caching stack can serve traffic.
//
// Checkers cover the pieces a cached call depends on: the response store
// (StoreChecker), the upstream circuit breaker (CircuitChecker), the
// delivery queue (QueueChecker) and process memory, which an in-process
// store without eviction grows (MemoryChecker). An Aggregator runs them concurrently and
// folds the results into one status, and the HTTP handlers expose that
// status as liveness, readiness and detailed JSON endpoints.
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewStoreChecker(store))
//	agg.Register(health.NewCircuitChecker("upstream", breaker))
//	health.RegisterHandlers(mux, agg)
package health
