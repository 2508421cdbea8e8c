package models

import "fmt"

// ProviderError reports a transport, auth or quota failure for one provider.
// It is absorbed by the fallback manager and only surfaced if it belongs to
// the last candidate.
type ProviderError struct {
	Provider ProviderIdentity
	Message  string
	Details  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("provider %s: %s: %s", e.Provider, e.Message, e.Details)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// MalformedResponseError reports vendor output that could not be parsed as
// structured data. Not transient, so it triggers fallback rather than retry.
type MalformedResponseError struct {
	Provider ProviderIdentity
	Reason   string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %s", e.Provider, e.Reason)
}

// ValidationError reports a schema violation: either a bad analysis request
// field, or parseable but schema-violating vendor output. The latter is
// logged distinctly from malformed output since it may indicate drift
// between the prompt schema and what the model returns.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}

// NoProvidersAvailableError means no candidate provider could be selected,
// or every candidate was exhausted. LastErr carries the final underlying
// failure for diagnostics.
type NoProvidersAvailableError struct {
	LastErr error
}

func (e *NoProvidersAvailableError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("no providers available (last error: %v)", e.LastErr)
	}
	return "no providers available"
}

func (e *NoProvidersAvailableError) Unwrap() error { return e.LastErr }

// TimeoutError means the overall request deadline was exceeded, covering
// the full fallback sequence rather than a single attempt.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string { return "analysis timed out" }

func (e *TimeoutError) Unwrap() error { return e.Err }
