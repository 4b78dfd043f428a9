// Package cache provides the storage side of cached calls.
//
// It defines the Store capability (get/put/remove over opaque byte entries)
// with memory, Redis and memcached implementations, and the Keyer that
// derives a deterministic key from an outgoing *http.Request. Entries carry
// no freshness metadata: an entry is valid until it is removed or
// overwritten.
package cache
