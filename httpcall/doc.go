// Package httpcall provides call.Call implementations backed by net/http.
//
// A Client decodes 2xx response bodies with a codec and reports every other
// status as a *StatusError. It can run each request through a
// resilience.Executor, an observe.Middleware and otelhttp transport
// instrumentation. Client implements call.Caller, so it plugs straight into
// call.NewAdapter:
//
//	client, _ := httpcall.New[string](codec.String{})
//	adapter, _ := call.NewAdapter[string](factory, client, codec.String{})
//	c := adapter.Call(req)
//	_ = c.Enqueue(ctx, cb)
package httpcall
