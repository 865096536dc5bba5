package domain

import (
	"errors"
	"fmt"
)

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrTaskCompleted = errors.New("task already completed")
	ErrInvalidQuery  = errors.New("query is required")
)

// ProviderError is a source discovery failure (network, auth, decode).
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("search provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// FetchError is a per-source extraction failure. It never aborts a task.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SynthesisError is an LLM failure while building the report summary.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// UpstreamError is a failed call to an external service on the request path,
// whether the service answered with an error or could not be reached.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ConfigError marks a missing or invalid setting detected at startup or call time.
type ConfigError struct {
	Key string
	Msg string
}

func (e *ConfigError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("config %s is not set", e.Key)
	}
	return fmt.Sprintf("config %s: %s", e.Key, e.Msg)
}
