package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// Provider 标识推理后端。
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
	ProviderArk    Provider = "ark"
)

// DefaultMemoryLimit 是每轮注入记忆条数的上限，非正值也回退到它。
const DefaultMemoryLimit = 10

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	AI      AIConfig
	Storage StorageConfig
	Session SessionConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	server, err := loadServerConfig(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server = server

	if cfg.AI.Provider == "" {
		cfg.AI.Provider = ProviderOllama
	}
	if err := cfg.AI.loadOptional(); err != nil {
		return nil, err
	}
	if err := cfg.AI.validate(); err != nil {
		return nil, err
	}

	if cfg.AI.MemoryLimit <= 0 || cfg.AI.MemoryLimit > DefaultMemoryLimit {
		cfg.AI.MemoryLimit = DefaultMemoryLimit
	}

	return cfg, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig(raw string) (ServerConfig, error) {
	port := strings.TrimSpace(raw)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Port: port, Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Port: port, Addr: ":" + port}, nil
}

// LogConfig 控制 zap 日志输出。
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// AIConfig 描述推理后端与记忆注入相关配置。
type AIConfig struct {
	Provider Provider `env:"INFERENCE_PROVIDER" envDefault:"ollama"`

	OllamaURL   string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OllamaModel string `env:"OLLAMA_MODEL" envDefault:"yi:9b-chat"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"http://localhost:11434/v1"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"yi:9b-chat"`

	ArkAPIKey    string `env:"ARK_API_KEY"`
	ArkAccessKey string `env:"ARK_ACCESS_KEY"`
	ArkSecretKey string `env:"ARK_SECRET_KEY"`
	ArkModel     string `env:"Model"`
	ArkBaseURL   string `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	ArkRegion    string `env:"ARK_REGION" envDefault:"cn-beijing"`

	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"60s"`
	MemoryTimeout     time.Duration `env:"MEMORY_TIMEOUT" envDefault:"5s"`
	MemoryLimit       int           `env:"MEMORY_LIMIT" envDefault:"10"`

	Temperature *float64
	MaxTokens   *int
}

// ArkEnabled 表示是否提供了 Ark 必需的密钥。
func (c AIConfig) ArkEnabled() bool {
	return c.ArkModel != "" && (c.ArkAPIKey != "" || (c.ArkAccessKey != "" && c.ArkSecretKey != ""))
}

func (c *AIConfig) loadOptional() error {
	temperature, err := parseOptionalFloatEnv("INFERENCE_TEMPERATURE")
	if err != nil {
		return err
	}
	maxTokens, err := parseOptionalIntEnv("INFERENCE_MAX_TOKENS")
	if err != nil {
		return err
	}
	c.Temperature = temperature
	c.MaxTokens = maxTokens
	return nil
}

func (c AIConfig) validate() error {
	switch c.Provider {
	case ProviderOllama, ProviderOpenAI:
		return nil
	case ProviderArk:
		if !c.ArkEnabled() {
			return fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
		}
		return nil
	default:
		return fmt.Errorf("invalid INFERENCE_PROVIDER value: %q", c.Provider)
	}
}

// StorageConfig 描述 SQLite 存储位置。
type StorageConfig struct {
	ChatHistoryDBPath string `env:"CHAT_HISTORY_DB_PATH" envDefault:"data/chat_history.db"`
}

// SessionConfig 描述启动时保证存在的默认会话。
type SessionConfig struct {
	DefaultSessionID string `env:"DEFAULT_SESSION_ID" envDefault:"session-gentle-1"`
	DefaultPersonaID string `env:"DEFAULT_PERSONA_ID" envDefault:"gentle"`
	DefaultTitle     string `env:"DEFAULT_SESSION_TITLE" envDefault:"默认温柔AI"`
	DefaultUserID    string `env:"DEFAULT_USER_ID" envDefault:"guest"`
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
