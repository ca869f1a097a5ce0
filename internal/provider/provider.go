// Package provider adapts hosted multimodal model clients to invoice.Asker.
package provider

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"invoice-extractor/internal/config"
	"invoice-extractor/internal/gemini"
	"invoice-extractor/internal/invoice"
)

// New returns the Asker selected by cfg.Provider.
func New(cfg config.Config, httpClient *http.Client, logger *slog.Logger) (invoice.Asker, error) {
	switch cfg.Provider {
	case config.ProviderGemini, "":
		return NewGemini(gemini.New(gemini.Options{
			APIKey:     cfg.GeminiAPIKey,
			BaseURL:    cfg.GeminiBaseURL,
			APIVersion: cfg.GeminiAPIVersion,
			Model:      cfg.GeminiModel,
			HTTPClient: httpClient,
			Logger:     logger,
		})), nil
	case config.ProviderOpenAI:
		return NewOpenAI(OpenAIOptions{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			BaseURL:    cfg.OpenAIBaseURL,
			HTTPClient: httpClient,
		}), nil
	case config.ProviderAnthropic:
		return NewAnthropic(AnthropicOptions{
			APIKey:     cfg.AnthropicAPIKey,
			Model:      cfg.AnthropicModel,
			MaxTokens:  cfg.AnthropicMaxTokens,
			BaseURL:    cfg.AnthropicBaseURL,
			HTTPClient: httpClient,
		}), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

// wireMimeType maps the non-standard image/jpg to image/jpeg, which is the
// only JPEG spelling the hosted APIs document.
func wireMimeType(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "image/jpg" {
		return "image/jpeg"
	}
	return mimeType
}

func statusError(provider string, status int, err error) *invoice.ServiceError {
	kind := invoice.KindStatus
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		kind = invoice.KindAuth
	}
	return &invoice.ServiceError{Provider: provider, Kind: kind, Status: status, Err: err}
}
