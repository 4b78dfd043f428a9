// Package call implements the cached call decorator.
//
// A CachedCall wraps one underlying asynchronous call. Enqueue serves a
// stored response first (if any), always issues the network request,
// stores a successful result and delivers it as the terminal response:
//
//	cache hit:  OnResponse(cached) -> OnResponse(network)
//	cache miss: OnResponse(network) | OnFailure(err)
//
// Execute is the synchronous variant and returns a cached value without
// touching the network. Refresh skips the cache read. Remove invalidates
// the stored entry. Deliveries go through a dispatch.Dispatcher, and the
// cache delivery is always observed before the network delivery.
//
// Calls are one-shot: obtain a fresh call (Clone, or Adapter.Call) for
// every invocation. Store, key and codec failures never reach callbacks;
// they disable caching for the affected call and are logged.
package call
