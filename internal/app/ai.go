package app

import (
	"context"

	"github.com/deusflow/geonews/internal/claude"
	"github.com/deusflow/geonews/internal/config"
	"github.com/deusflow/geonews/internal/gemini"
	"github.com/deusflow/geonews/internal/llm"
	"github.com/deusflow/geonews/internal/logger"
	"github.com/deusflow/geonews/internal/nlp"
	"github.com/deusflow/geonews/internal/openaiclient"
	"github.com/deusflow/geonews/internal/ratelimit"
)

// aiPerSecond smooths bursts against provider rate limits.
const aiPerSecond = 1

// newAssistant picks Gemini, then OpenAI, then Anthropic, by configured
// key. It returns nil when no key is set; the caller then keeps the
// built-in engines.
func newAssistant(ctx context.Context, cfg *config.Config, limiter *ratelimit.AIRateLimiter) (*llm.Assistant, func()) {
	fallback := llm.WithFallback(nlp.NewExtractive())

	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, gemini.DefaultModel)
		if err == nil {
			limiter.Register(gemini.ProviderName, cfg.MaxGeminiRequests, aiPerSecond)
			logger.Info("AI provider enabled", "provider", gemini.ProviderName, "daily_limit", cfg.MaxGeminiRequests)
			return llm.NewAssistant(client, limiter, fallback), client.Close
		}
		logger.Error("Gemini client failed, trying next provider", "error", err)
	}

	if cfg.OpenAIAPIKey != "" {
		client := openaiclient.NewClient(cfg.OpenAIAPIKey, "")
		limiter.Register(openaiclient.ProviderName, cfg.MaxOpenAIRequests, aiPerSecond)
		logger.Info("AI provider enabled", "provider", openaiclient.ProviderName, "daily_limit", cfg.MaxOpenAIRequests)
		return llm.NewAssistant(client, limiter, fallback), func() {}
	}

	if cfg.AnthropicAPIKey != "" {
		client := claude.NewClient(cfg.AnthropicAPIKey, "")
		limiter.Register(claude.ProviderName, cfg.MaxAnthropicRequests, aiPerSecond)
		logger.Info("AI provider enabled", "provider", claude.ProviderName, "daily_limit", cfg.MaxAnthropicRequests)
		return llm.NewAssistant(client, limiter, fallback), func() {}
	}

	logger.Info("no AI provider configured, using built-in summarizer")
	return nil, func() {}
}
