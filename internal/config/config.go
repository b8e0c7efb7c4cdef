package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

// 支持的生成服务提供方。
const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Session SessionConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Session: session}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// SessionConfig 控制问答流程的节奏。
type SessionConfig struct {
	PromptDelay time.Duration
}

func loadSessionConfig() (SessionConfig, error) {
	delay, err := parseOptionalIntEnv("PROMPT_DELAY_MS")
	if err != nil {
		return SessionConfig{}, err
	}

	delayMillis := 600
	if delay != nil {
		if *delay < 0 {
			return SessionConfig{}, fmt.Errorf("invalid PROMPT_DELAY_MS value %d: must not be negative", *delay)
		}
		delayMillis = *delay
	}

	return SessionConfig{PromptDelay: time.Duration(delayMillis) * time.Millisecond}, nil
}

// AIConfig 描述文档生成服务的配置。
type AIConfig struct {
	Provider string
	Timeout  time.Duration

	GeminiAPIKey   string
	GeminiModel    string
	GeminiBaseURL  string
	ThinkingBudget int32

	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled 表示所选提供方是否具备必需的密钥。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderGemini:
		return c.GeminiAPIKey != "" && c.GeminiModel != ""
	case ProviderArk:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	default:
		return false
	}
}

// ModelName 返回当前提供方使用的模型标识。
func (c AIConfig) ModelName() string {
	if c.Provider == ProviderArk {
		return c.Model
	}
	return c.GeminiModel
}

// GenAIClientConfig 生成 Gemini 客户端配置。
func (c AIConfig) GenAIClientConfig() *genai.ClientConfig {
	cfg := &genai.ClientConfig{
		APIKey:  c.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.GeminiBaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.GeminiBaseURL}
	}
	return cfg
}

// NewChatModel 使用 Ark 配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if c.Model == "" || (c.APIKey == "" && (c.AccessKey == "" || c.SecretKey == "")) {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + ARK_MODEL 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderGemini))
	if provider != ProviderGemini && provider != ProviderArk {
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", provider)
	}

	budget, err := parseOptionalIntEnv("GEMINI_THINKING_BUDGET")
	if err != nil {
		return AIConfig{}, err
	}
	thinkingBudget := int32(32768)
	if budget != nil {
		if *budget < 0 || *budget > math.MaxInt32 {
			return AIConfig{}, fmt.Errorf("invalid GEMINI_THINKING_BUDGET value %d: must be between 0 and %d", *budget, math.MaxInt32)
		}
		thinkingBudget = int32(*budget)
	}

	timeout, err := parseOptionalIntEnv("AI_TIMEOUT_SECONDS")
	if err != nil {
		return AIConfig{}, err
	}
	var timeoutDuration time.Duration
	if timeout != nil && *timeout > 0 {
		timeoutDuration = time.Duration(*timeout) * time.Second
	}

	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	geminiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if geminiKey == "" {
		geminiKey = strings.TrimSpace(os.Getenv("API_KEY"))
	}

	return AIConfig{
		Provider:       provider,
		Timeout:        timeoutDuration,
		GeminiAPIKey:   geminiKey,
		GeminiModel:    getEnvOrDefault("GEMINI_MODEL", "gemini-3-pro-preview"),
		GeminiBaseURL:  getEnvOrDefault("GEMINI_BASE_URL", ""),
		ThinkingBudget: thinkingBudget,
		APIKey:         strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:          strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:        getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:         getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:    temperature,
		TopP:           topP,
		MaxTokens:      maxTokens,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
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
