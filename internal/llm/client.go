// ABOUTME: Client and Provider interfaces plus the model-routing client
// ABOUTME: Router fails synchronously on unknown models or missing credentials

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Client sends a request and returns its fragment stream.
type Client interface {
	Send(ctx context.Context, req *Request) (<-chan Fragment, error)
}

// Provider is a concrete backend registered with a Router.
type Provider interface {
	Client
	// Name identifies the provider (e.g. "anthropic") for credentials and errors.
	Name() string
	// Serves reports whether the provider handles modelID.
	Serves(modelID string) bool
	// NeedsKey reports whether the provider requires an API key.
	NeedsKey() bool
}

// Credentials looks up API keys by provider name.
type Credentials interface {
	APIKey(provider string) (string, bool)
}

// StaticCredentials is a Credentials backed by a map.
type StaticCredentials map[string]string

// APIKey returns the non-empty key for provider.
func (c StaticCredentials) APIKey(provider string) (string, bool) {
	key, ok := c[provider]
	return key, ok && key != ""
}

// Router dispatches requests to the first provider serving the model.
type Router struct {
	providers []Provider
	creds     Credentials
	logger    *slog.Logger
}

// NewRouter creates a Router. Providers are tried in order.
func NewRouter(creds Credentials, logger *slog.Logger, providers ...Provider) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if creds == nil {
		creds = StaticCredentials{}
	}
	return &Router{
		providers: providers,
		creds:     creds,
		logger:    logger.With("component", "llm"),
	}
}

// Send validates the model and credentials, then delegates to the provider.
func (r *Router) Send(ctx context.Context, req *Request) (<-chan Fragment, error) {
	if strings.TrimSpace(req.ModelID) == "" {
		return nil, fmt.Errorf("%w: empty model id", ErrInvalidModel)
	}

	p := r.providerFor(req.ModelID)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidModel, req.ModelID)
	}
	if p.NeedsKey() {
		if _, ok := r.creds.APIKey(p.Name()); !ok {
			return nil, fmt.Errorf("%w: %s", ErrCredentialsMissing, p.Name())
		}
	}

	r.logger.Debug("routing request",
		"provider", p.Name(),
		"model", req.ModelID,
		"persona", req.PersonaID,
		"history", len(req.History))

	return p.Send(ctx, req)
}

func (r *Router) providerFor(modelID string) Provider {
	for _, p := range r.providers {
		if p.Serves(modelID) {
			return p
		}
	}
	return nil
}

// IsAnthropicModel reports whether modelID names an Anthropic-class model.
func IsAnthropicModel(modelID string) bool {
	return strings.HasPrefix(strings.ToLower(modelID), "claude")
}
