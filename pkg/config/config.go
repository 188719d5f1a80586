package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	// Try []interface{} to handle mixed types
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Chat      ChatConfig      `json:"chat"`
	Providers ProvidersConfig `json:"providers"`
	Routing   RoutingConfig   `json:"routing"`
	Budgets   BudgetsConfig   `json:"budgets"`
	Tools     ToolsConfig     `json:"tools"`
	Channels  ChannelsConfig  `json:"channels"`
	Gateway   GatewayConfig   `json:"gateway"`
	Storage   StorageConfig   `json:"storage"`
	Heartbeat HeartbeatConfig `json:"heartbeat"`
	mu        sync.RWMutex
}

type ChatConfig struct {
	AssistantName   string  `json:"assistant_name" env:"DOTCHAT_CHAT_ASSISTANT_NAME"`
	SystemPrompt    string  `json:"system_prompt" env:"DOTCHAT_CHAT_SYSTEM_PROMPT"`
	Temperature     float64 `json:"temperature" env:"DOTCHAT_CHAT_TEMPERATURE"`
	MaxTokens       int     `json:"max_tokens" env:"DOTCHAT_CHAT_MAX_TOKENS"`
	ToolTimeoutSec  int     `json:"tool_timeout_sec" env:"DOTCHAT_CHAT_TOOL_TIMEOUT_SEC"`
	ContextTurns    int     `json:"context_turns" env:"DOTCHAT_CHAT_CONTEXT_TURNS"`
	FollowUpsCount  int     `json:"followups_count" env:"DOTCHAT_CHAT_FOLLOWUPS_COUNT"`
	DefaultLanguage string  `json:"default_language" env:"DOTCHAT_CHAT_DEFAULT_LANGUAGE"`
}

type ProvidersConfig struct {
	Groq   ProviderConfig `json:"groq" envPrefix:"DOTCHAT_PROVIDERS_GROQ_"`
	Gemini ProviderConfig `json:"gemini" envPrefix:"DOTCHAT_PROVIDERS_GEMINI_"`
	OpenAI ProviderConfig `json:"openai" envPrefix:"DOTCHAT_PROVIDERS_OPENAI_"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key" env:"API_KEY"`
	APIBase string `json:"api_base" env:"API_BASE"`
	Model   string `json:"model" env:"MODEL"`
	Proxy   string `json:"proxy,omitempty" env:"PROXY"`
}

// RoutingConfig picks providers per role. Provider names must match
// keys of ProvidersConfig.
type RoutingConfig struct {
	DefaultProvider      string              `json:"default_provider" env:"DOTCHAT_ROUTING_DEFAULT_PROVIDER"`
	FastProvider         string              `json:"fast_provider" env:"DOTCHAT_ROUTING_FAST_PROVIDER"`
	ContextProvider      string              `json:"context_provider" env:"DOTCHAT_ROUTING_CONTEXT_PROVIDER"`
	MultilingualProvider string              `json:"multilingual_provider" env:"DOTCHAT_ROUTING_MULTILINGUAL_PROVIDER"`
	MultilingualLangs    FlexibleStringSlice `json:"multilingual_langs" env:"DOTCHAT_ROUTING_MULTILINGUAL_LANGS"`
}

// TokenBudget bounds what a single provider call may carry.
type TokenBudget struct {
	MaxTotalTokens     int `json:"max_total_tokens"`
	MaxHistoryMessages int `json:"max_history_messages"`
}

type BudgetsConfig struct {
	Providers map[string]TokenBudget `json:"providers"`
}

// Budget returns the configured budget for a provider, or a
// conservative default for unknown names.
func (b BudgetsConfig) Budget(provider string) TokenBudget {
	if budget, ok := b.Providers[provider]; ok {
		return budget
	}
	return TokenBudget{MaxTotalTokens: 6000, MaxHistoryMessages: 15}
}

type BraveConfig struct {
	Enabled    bool   `json:"enabled" env:"DOTCHAT_TOOLS_WEB_BRAVE_ENABLED"`
	APIKey     string `json:"api_key" env:"DOTCHAT_TOOLS_WEB_BRAVE_API_KEY"`
	MaxResults int    `json:"max_results" env:"DOTCHAT_TOOLS_WEB_BRAVE_MAX_RESULTS"`
}

type DuckDuckGoConfig struct {
	Enabled    bool `json:"enabled" env:"DOTCHAT_TOOLS_WEB_DUCKDUCKGO_ENABLED"`
	MaxResults int  `json:"max_results" env:"DOTCHAT_TOOLS_WEB_DUCKDUCKGO_MAX_RESULTS"`
}

type WebToolsConfig struct {
	Brave      BraveConfig      `json:"brave"`
	DuckDuckGo DuckDuckGoConfig `json:"duckduckgo"`
}

type WeatherToolConfig struct {
	Enabled     bool   `json:"enabled" env:"DOTCHAT_TOOLS_WEATHER_ENABLED"`
	DefaultCity string `json:"default_city" env:"DOTCHAT_TOOLS_WEATHER_DEFAULT_CITY"`
}

type FileSearchToolConfig struct {
	Enabled bool   `json:"enabled" env:"DOTCHAT_TOOLS_FILE_SEARCH_ENABLED"`
	Root    string `json:"root" env:"DOTCHAT_TOOLS_FILE_SEARCH_ROOT"`
	MaxHits int    `json:"max_hits" env:"DOTCHAT_TOOLS_FILE_SEARCH_MAX_HITS"`
}

type ToolsConfig struct {
	Web        WebToolsConfig       `json:"web"`
	Weather    WeatherToolConfig    `json:"weather"`
	FileSearch FileSearchToolConfig `json:"file_search"`
	SystemInfo bool                 `json:"system_info" env:"DOTCHAT_TOOLS_SYSTEM_INFO"`
}

type ChannelsConfig struct {
	Discord DiscordConfig `json:"discord"`
}

type DiscordConfig struct {
	Token     string              `json:"token" env:"DOTCHAT_CHANNELS_DISCORD_TOKEN"`
	AllowFrom FlexibleStringSlice `json:"allow_from" env:"DOTCHAT_CHANNELS_DISCORD_ALLOW_FROM"`
}

type GatewayConfig struct {
	Host string `json:"host" env:"DOTCHAT_GATEWAY_HOST"`
	Port int    `json:"port" env:"DOTCHAT_GATEWAY_PORT"`
}

type StorageConfig struct {
	Path string `json:"path" env:"DOTCHAT_STORAGE_PATH"`
}

type HeartbeatConfig struct {
	Enabled       bool   `json:"enabled" env:"DOTCHAT_HEARTBEAT_ENABLED"`
	Schedule      string `json:"schedule" env:"DOTCHAT_HEARTBEAT_SCHEDULE"` // cron expression
	RetentionDays int    `json:"retention_days" env:"DOTCHAT_HEARTBEAT_RETENTION_DAYS"`
}

func DefaultConfig() *Config {
	return &Config{
		Chat: ChatConfig{
			AssistantName:   "Aria",
			SystemPrompt:    "You are a helpful, concise assistant.",
			Temperature:     0.7,
			MaxTokens:       2048,
			ToolTimeoutSec:  10,
			ContextTurns:    6,
			FollowUpsCount:  3,
			DefaultLanguage: "en-US",
		},
		Providers: ProvidersConfig{
			Groq: ProviderConfig{
				APIBase: "https://api.groq.com/openai/v1",
				Model:   "llama-3.3-70b-versatile",
			},
			Gemini: ProviderConfig{
				APIBase: "https://generativelanguage.googleapis.com/v1beta/openai",
				Model:   "gemini-2.0-flash",
			},
			OpenAI: ProviderConfig{
				APIBase: "https://api.openai.com/v1",
				Model:   "gpt-4o-mini",
			},
		},
		Routing: RoutingConfig{
			DefaultProvider:      "groq",
			FastProvider:         "groq",
			ContextProvider:      "gemini",
			MultilingualProvider: "gemini",
			MultilingualLangs:    FlexibleStringSlice{"hi-IN", "ne-NP"},
		},
		Budgets: BudgetsConfig{
			Providers: map[string]TokenBudget{
				"groq":   {MaxTotalTokens: 6000, MaxHistoryMessages: 15},
				"gemini": {MaxTotalTokens: 24000, MaxHistoryMessages: 30},
				"openai": {MaxTotalTokens: 14000, MaxHistoryMessages: 20},
				"claude": {MaxTotalTokens: 90000, MaxHistoryMessages: 40},
			},
		},
		Tools: ToolsConfig{
			Web: WebToolsConfig{
				Brave: BraveConfig{
					Enabled:    false,
					APIKey:     "",
					MaxResults: 5,
				},
				DuckDuckGo: DuckDuckGoConfig{
					Enabled:    true,
					MaxResults: 5,
				},
			},
			Weather: WeatherToolConfig{
				Enabled:     true,
				DefaultCity: "Bangalore",
			},
			FileSearch: FileSearchToolConfig{
				Enabled: true,
				Root:    "~/",
				MaxHits: 25,
			},
			SystemInfo: true,
		},
		Channels: ChannelsConfig{
			Discord: DiscordConfig{
				Token:     "",
				AllowFrom: FlexibleStringSlice{},
			},
		},
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 18820,
		},
		Storage: StorageConfig{
			Path: "~/.dotchat/conversations.db",
		},
		Heartbeat: HeartbeatConfig{
			Enabled:       true,
			Schedule:      "*/30 * * * *",
			RetentionDays: 0, // 0 = keep everything
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Provider looks up a provider block by name. The second return is
// false for unknown names.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	switch name {
	case "groq":
		return c.Providers.Groq, true
	case "gemini":
		return c.Providers.Gemini, true
	case "openai":
		return c.Providers.OpenAI, true
	default:
		return ProviderConfig{}, false
	}
}

// ConfiguredProviders returns names of providers with credentials set,
// in routing-stable order.
func (c *Config) ConfiguredProviders() []string {
	names := []string{}
	for _, name := range []string{"groq", "gemini", "openai"} {
		if pc, ok := c.Provider(name); ok && pc.APIKey != "" {
			names = append(names, name)
		}
	}
	return names
}

func (c *Config) StoragePath() string {
	return expandHome(c.Storage.Path)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
