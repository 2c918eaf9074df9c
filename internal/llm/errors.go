// ABOUTME: Provider error taxonomy with classification and display text
// ABOUTME: Sentinels wrap with %w; ProviderError carries the provider message

package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCredentialsMissing indicates no API key is configured for the provider.
	ErrCredentialsMissing = errors.New("credentials missing")

	// ErrInvalidModel indicates the model id is not served by any provider.
	ErrInvalidModel = errors.New("invalid model")

	// ErrNetwork indicates a transport failure.
	ErrNetwork = errors.New("network error")

	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidResponse indicates an unparseable provider payload.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrStreaming indicates a failure after fragments were delivered.
	ErrStreaming = errors.New("streaming error")
)

// ProviderError is a failure reported by the provider itself.
type ProviderError struct {
	Provider string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Kind classifies errors for display and reporting.
type Kind string

const (
	KindUnknown            Kind = "unknown"
	KindCredentialsMissing Kind = "credentials_missing"
	KindInvalidModel       Kind = "invalid_model"
	KindNetwork            Kind = "network"
	KindRateLimited        Kind = "rate_limited"
	KindProvider           Kind = "provider"
	KindInvalidResponse    Kind = "invalid_response"
	KindStreaming          Kind = "streaming"
	KindCancelled          Kind = "cancelled"
)

// Classify maps err onto the taxonomy.
func Classify(err error) Kind {
	var perr *ProviderError
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrCredentialsMissing):
		return KindCredentialsMissing
	case errors.Is(err, ErrInvalidModel):
		return KindInvalidModel
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrInvalidResponse):
		return KindInvalidResponse
	case errors.As(err, &perr):
		return KindProvider
	case errors.Is(err, ErrStreaming):
		return KindStreaming
	case errors.Is(err, context.Canceled):
		return KindCancelled
	default:
		return KindUnknown
	}
}

// Describe returns a short human-readable explanation of err.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var perr *ProviderError
	switch Classify(err) {
	case KindCredentialsMissing:
		return "No API key is configured for this provider."
	case KindInvalidModel:
		return "The selected model is not available."
	case KindNetwork:
		return "Network error: the connection to the provider failed."
	case KindRateLimited:
		return "Rate limited: the provider is throttling requests, try again shortly."
	case KindProvider:
		errors.As(err, &perr)
		return fmt.Sprintf("%s reported an error: %s", perr.Provider, perr.Message)
	case KindInvalidResponse:
		return "The provider sent a response that could not be read."
	case KindStreaming:
		return "The response stream was interrupted."
	case KindCancelled:
		return "The request was cancelled."
	default:
		return err.Error()
	}
}
