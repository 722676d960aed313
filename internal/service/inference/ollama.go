package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/z-tavern/nlp/internal/config"
)

// newOllamaChatModel 构建调用 Ollama 原生 /api/chat 的模型。
func newOllamaChatModel(ctx context.Context, cfg config.AIConfig) (model.BaseChatModel, error) {
	if strings.TrimSpace(cfg.OllamaURL) == "" {
		return nil, errors.New("ollama base url is required")
	}
	if strings.TrimSpace(cfg.OllamaModel) == "" {
		return nil, errors.New("ollama model is required")
	}

	chatModel, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
		BaseURL: strings.TrimRight(strings.TrimSpace(cfg.OllamaURL), "/"),
		Model:   cfg.OllamaModel,
		Timeout: cfg.GenerationTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama chat model: %w", err)
	}

	return withDefaultOptions(chatModel, commonOptions(cfg)...), nil
}

// commonOptions maps the optional sampling settings onto eino call options.
func commonOptions(cfg config.AIConfig) []model.Option {
	var opts []model.Option
	if cfg.Temperature != nil {
		opts = append(opts, model.WithTemperature(float32(*cfg.Temperature)))
	}
	if cfg.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*cfg.MaxTokens))
	}
	return opts
}

// defaultOptionsModel prepends configured options to every call; options
// passed by the caller still win.
type defaultOptionsModel struct {
	model.BaseChatModel
	defaults []model.Option
}

func withDefaultOptions(m model.BaseChatModel, defaults ...model.Option) model.BaseChatModel {
	if len(defaults) == 0 {
		return m
	}
	return &defaultOptionsModel{BaseChatModel: m, defaults: defaults}
}

func (m *defaultOptionsModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return m.BaseChatModel.Generate(ctx, input, m.merge(opts)...)
}

func (m *defaultOptionsModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return m.BaseChatModel.Stream(ctx, input, m.merge(opts)...)
}

func (m *defaultOptionsModel) merge(opts []model.Option) []model.Option {
	merged := make([]model.Option, 0, len(m.defaults)+len(opts))
	merged = append(merged, m.defaults...)
	return append(merged, opts...)
}
