package call

import "errors"

// Sentinel errors for call operations.
var (
	// ErrNilCallback indicates Enqueue or Refresh was given a nil callback.
	ErrNilCallback = errors.New("call: callback is nil")

	// ErrAlreadyExecuted indicates a one-shot call was invoked twice.
	ErrAlreadyExecuted = errors.New("call: already executed")

	// ErrCanceled indicates the call was canceled.
	ErrCanceled = errors.New("call: canceled")

	// ErrInvalidTransition indicates a state change outside the transition
	// table, such as a delivery racing a Cancel.
	ErrInvalidTransition = errors.New("call: invalid state transition")

	// ErrNilDispatcher indicates NewFactory was given a nil dispatcher.
	ErrNilDispatcher = errors.New("call: dispatcher is nil")

	// ErrNilFactory indicates an adapter was built without a factory.
	ErrNilFactory = errors.New("call: factory is nil")

	// ErrNilCaller indicates an adapter was built without a caller.
	ErrNilCaller = errors.New("call: caller is nil")

	// ErrNilCodec indicates an adapter was built without a codec.
	ErrNilCodec = errors.New("call: codec is nil")
)
