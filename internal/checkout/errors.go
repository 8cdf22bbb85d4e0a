package checkout

import "errors"

// Error taxonomy of the orchestrator. Every failure crossing the
// service boundary wraps exactly one of these sentinels; the HTTP
// layer maps them to stable status codes and no lower-layer error
// (driver, gateway transport) ever reaches a response body.
var (
	// ErrValidation — malformed or inconsistent input; the caller must
	// correct the request before retrying.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound — the order/product/cart item does not exist or is not
	// owned by the caller. Ownership failures fold into not-found so the
	// response never leaks whether the resource exists for another user.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientStock — a requested line cannot be fulfilled.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrUpstream — the payment gateway errored or timed out; the write
	// is safely retryable.
	ErrUpstream = errors.New("payment gateway unavailable")

	// ErrSignature — cryptographic verification of a payment failed.
	// Never retried automatically; requires a fresh payment attempt.
	ErrSignature = errors.New("payment signature verification failed")

	// ErrInvalidTransition — the requested status change is not reachable
	// from the current state.
	ErrInvalidTransition = errors.New("illegal order status transition")
)
