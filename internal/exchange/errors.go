package exchange

import "errors"

// Fetch failures are classified so the scheduler can log transport problems,
// timeouts and malformed payloads separately. All of them abort the current
// refresh and leave the registry untouched.
var (
	// ErrUpstreamHTTP marks a non-2xx response from a venue API.
	ErrUpstreamHTTP = errors.New("upstream http error")

	// ErrUpstreamIO marks a transport-level failure (DNS, connect, reset).
	ErrUpstreamIO = errors.New("upstream request failed")

	// ErrUpstreamTimeout marks a request that exceeded its deadline.
	ErrUpstreamTimeout = errors.New("upstream request timed out")

	// ErrBadResponseShape marks a payload that did not match the expected
	// schema for the venue.
	ErrBadResponseShape = errors.New("unexpected upstream response shape")

	// ErrUnknownPair is returned for pairs outside {BTCUSD, ETHUSD}.
	ErrUnknownPair = errors.New("invalid pair")
)
