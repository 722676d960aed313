// Package inference builds the chat model that talks to the inference server.
package inference

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-tavern/nlp/internal/config"
)

// New returns the chat model selected by cfg.Provider together with the
// model identifier it will use.
func New(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (model.BaseChatModel, string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Provider {
	case config.ProviderOllama, "":
		m, err := newOllamaChatModel(ctx, cfg)
		if err != nil {
			return nil, "", err
		}
		logger.Info("inference provider ready", zap.String("provider", "ollama"),
			zap.String("url", cfg.OllamaURL), zap.String("model", cfg.OllamaModel))
		return m, cfg.OllamaModel, nil

	case config.ProviderOpenAI:
		m, err := NewOpenAIChatModel(OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
		if err != nil {
			return nil, "", err
		}
		logger.Info("inference provider ready", zap.String("provider", "openai"),
			zap.String("url", cfg.OpenAIBaseURL), zap.String("model", cfg.OpenAIModel))
		return m, cfg.OpenAIModel, nil

	case config.ProviderArk:
		m, err := newArkChatModel(ctx, cfg)
		if err != nil {
			return nil, "", err
		}
		logger.Info("inference provider ready", zap.String("provider", "ark"),
			zap.String("region", cfg.ArkRegion), zap.String("model", cfg.ArkModel))
		return m, cfg.ArkModel, nil

	default:
		return nil, "", fmt.Errorf("unknown inference provider: %s", cfg.Provider)
	}
}

func newArkChatModel(ctx context.Context, cfg config.AIConfig) (model.BaseChatModel, error) {
	if !cfg.ArkEnabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if cfg.Temperature != nil {
		val := float32(*cfg.Temperature)
		temperature = &val
	}

	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     cfg.ArkBaseURL,
		Region:      cfg.ArkRegion,
		APIKey:      cfg.ArkAPIKey,
		AccessKey:   cfg.ArkAccessKey,
		SecretKey:   cfg.ArkSecretKey,
		Model:       cfg.ArkModel,
		MaxTokens:   cfg.MaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ark chat model: %w", err)
	}
	return chatModel, nil
}
