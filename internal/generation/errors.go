package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrProviderFailure is returned when the research provider call fails
	// (timeout, rate limit, auth error).
	ErrProviderFailure = errors.New("research provider call failed")

	// ErrNoTextContent is returned when the provider response contains no
	// text-typed content block. This is a provider-contract violation, not
	// a transient failure.
	ErrNoTextContent = errors.New("provider response contains no text content")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
