package httpcall

import (
	"context"
	"net/http"
	"sync"

	"github.com/jonwraymond/callcache/call"
)

// httpCall is a one-shot call.Call over a Client.
type httpCall[T any] struct {
	client *Client[T]
	req    *http.Request

	mu       sync.Mutex
	executed bool
	canceled bool
	cancel   context.CancelFunc
}

func (c *httpCall[T]) Enqueue(ctx context.Context, cb call.Callback[T]) error {
	if cb == nil {
		return call.ErrNilCallback
	}
	ctx, done, err := c.begin(ctx)
	if err != nil {
		return err
	}
	go func() {
		defer done()
		resp, err := c.client.do(ctx, c.req)
		if err != nil {
			cb.OnFailure(c, err)
			return
		}
		cb.OnResponse(c, resp)
	}()
	return nil
}

func (c *httpCall[T]) Execute(ctx context.Context) (call.Response[T], error) {
	ctx, done, err := c.begin(ctx)
	if err != nil {
		return call.Response[T]{}, err
	}
	defer done()
	return c.client.do(ctx, c.req)
}

// begin claims the call and derives its cancelable context.
func (c *httpCall[T]) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.canceled {
		return nil, nil, call.ErrCanceled
	}
	if c.executed {
		return nil, nil, call.ErrAlreadyExecuted
	}
	c.executed = true
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	return ctx, cancel, nil
}

func (c *httpCall[T]) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canceled = true
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *httpCall[T]) IsCanceled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canceled
}

func (c *httpCall[T]) IsExecuted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.executed
}

func (c *httpCall[T]) Request() *http.Request {
	return c.req
}

// Clone returns an unexecuted call for a copy of the request. Bodies are
// re-created through GetBody when available.
func (c *httpCall[T]) Clone() call.Call[T] {
	req := c.req.Clone(c.req.Context())
	if c.req.GetBody != nil {
		if body, err := c.req.GetBody(); err == nil {
			req.Body = body
		}
	}
	return c.client.NewCall(req)
}
