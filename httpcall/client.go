package httpcall

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jonwraymond/callcache/call"
	"github.com/jonwraymond/callcache/codec"
	"github.com/jonwraymond/callcache/observe"
	"github.com/jonwraymond/callcache/resilience"
)

// DefaultMaxBodyBytes bounds response bodies read by a Client.
const DefaultMaxBodyBytes int64 = 10 << 20

type options struct {
	client     *http.Client
	executor   *resilience.Executor
	middleware *observe.Middleware
	otelOpts   []otelhttp.Option
	instrument bool
	maxBody    int64
}

// Option configures a Client.
type Option func(*options)

// WithHTTPClient sets the underlying client. Defaults to a client with a
// 30s timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.client = c
		}
	}
}

// WithExecutor runs every request through e (retry, breaker, timeout).
func WithExecutor(e *resilience.Executor) Option {
	return func(o *options) {
		o.executor = e
	}
}

// WithMiddleware records a span, metrics and a log line per attempt.
func WithMiddleware(m *observe.Middleware) Option {
	return func(o *options) {
		o.middleware = m
	}
}

// WithInstrumentation wraps the transport with otelhttp, propagating trace
// context to the server.
func WithInstrumentation(opts ...otelhttp.Option) Option {
	return func(o *options) {
		o.instrument = true
		o.otelOpts = opts
	}
}

// WithMaxBodyBytes bounds response bodies. Non-positive values keep the
// default.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBody = n
		}
	}
}

// Client creates HTTP calls whose 2xx bodies decode to T.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: non-2xx responses fail with *StatusError.
type Client[T any] struct {
	http       *http.Client
	codec      codec.Codec[T]
	executor   *resilience.Executor
	middleware *observe.Middleware
	maxBody    int64
	now        func() time.Time
}

var _ call.Caller[string] = (*Client[string])(nil)

// New creates a Client decoding responses with c.
func New[T any](c codec.Codec[T], opts ...Option) (*Client[T], error) {
	if c == nil {
		return nil, ErrNilCodec
	}
	o := options{
		client:  &http.Client{Timeout: 30 * time.Second},
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(&o)
	}

	hc := o.client
	if o.instrument {
		base := hc.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		wrapped := *hc
		wrapped.Transport = otelhttp.NewTransport(base, o.otelOpts...)
		hc = &wrapped
	}

	return &Client[T]{
		http:       hc,
		codec:      c,
		executor:   o.executor,
		middleware: o.middleware,
		maxBody:    o.maxBody,
		now:        time.Now,
	}, nil
}

// NewCall creates a one-shot call for req.
func (c *Client[T]) NewCall(req *http.Request) call.Call[T] {
	return &httpCall[T]{client: c, req: req}
}

// do performs req, applying the executor and middleware when configured.
func (c *Client[T]) do(ctx context.Context, req *http.Request) (call.Response[T], error) {
	var out call.Response[T]
	attempt := 0

	roundTrip := func(ctx context.Context) error {
		attempt++
		r, err := prepare(ctx, req, attempt)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(r)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
		if err != nil {
			return err
		}
		if int64(len(body)) > c.maxBody {
			return ErrBodyTooLarge
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return newStatusError(resp, body, c.now())
		}
		v, err := c.codec.Decode(body)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDecode, err)
		}
		out = call.Response[T]{
			Value:      v,
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Source:     call.SourceNetwork,
		}
		return nil
	}

	op := roundTrip
	if c.middleware != nil {
		meta := observe.MetaFromRequest(observe.OpNetwork, req)
		wrapped := c.middleware.Wrap(func(ctx context.Context, _ observe.CallMeta) error {
			return roundTrip(ctx)
		})
		op = func(ctx context.Context) error { return wrapped(ctx, meta) }
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, op)
	} else {
		err = op(ctx)
	}
	if err != nil {
		return call.Response[T]{}, err
	}
	return out, nil
}

// prepare binds req to ctx and rewinds its body for retries.
func prepare(ctx context.Context, req *http.Request, attempt int) (*http.Request, error) {
	r := req.WithContext(ctx)
	if attempt == 1 || req.Body == nil || req.Body == http.NoBody {
		return r, nil
	}
	if req.GetBody == nil {
		return nil, ErrBodyNotReplayable
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	r.Body = body
	return r, nil
}
