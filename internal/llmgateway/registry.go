package llmgateway

import (
	"github.com/r3e-network/governance-core/internal/config"
	"github.com/r3e-network/governance-core/internal/logger"
)

// BuildProviders turns the configured provider list into concrete,
// HTTP-backed Provider values in declared order.
func BuildProviders(cfgs []config.ProviderConfig) []Provider {
	providers := make([]Provider, 0, len(cfgs))
	for _, c := range cfgs {
		providers = append(providers, NewHTTPProvider(c.Name, c.Kind, c.Priority, c.Endpoint, c.DefaultModel))
	}
	return providers
}

// NewFromConfig builds a Gateway wired directly from config.LLMConfig, the
// shape cmd/governd's construction root works with.
func NewFromConfig(cfg config.LLMConfig, defaultModel string, log *logger.Logger) *Gateway {
	return New(cfg, BuildProviders(cfg.Providers), cfg.ModelMappings, defaultModel, log)
}
