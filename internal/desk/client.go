// ABOUTME: Builds the provider router from configuration
// ABOUTME: Local stand-ins serve each provider's model family

package desk

import (
	"log/slog"

	"github.com/2389/coven-desk/internal/config"
	"github.com/2389/coven-desk/internal/llm"
)

// NewClient returns a Router over the configured providers. The anthropic
// and openai entries are local echo stand-ins that enforce the same
// credential checks a network provider would.
func NewClient(cfg *config.Config, logger *slog.Logger) *llm.Router {
	delay := cfg.Providers.Echo.Delay
	providers := []llm.Provider{
		llm.NewEcho(llm.EchoOptions{
			Name:          "anthropic",
			ModelPrefixes: []string{"claude"},
			Delay:         delay,
			RequireKey:    true,
		}),
		llm.NewEcho(llm.EchoOptions{
			Name:          "openai",
			ModelPrefixes: []string{"gpt", "o1", "o3", "o4"},
			Delay:         delay,
			RequireKey:    true,
		}),
	}
	if cfg.Providers.Echo.Enabled {
		providers = append(providers, llm.NewEcho(llm.EchoOptions{Delay: delay}))
	}
	return llm.NewRouter(cfg.Providers, logger, providers...)
}
