package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultModel            = "llama-3.3-70b-versatile"
	DefaultBaseURL          = "https://api.groq.com/openai/v1"
	DefaultTemperature      = 0.7
	DefaultSynthTemperature = 0.3
	DefaultMaxTokens        = 512
	DefaultHost             = "0.0.0.0"
	DefaultPort             = 18620
	DefaultBufSize          = 100
	DefaultFinnhubEndpoint  = "https://finnhub.io/api/v1"
	DefaultSearchEndpoint   = "https://www.googleapis.com/customsearch/v1"
	DefaultHTTPTimeout      = 10
)

type Config struct {
	Provider  ProviderConfig   `json:"provider"`
	Agent     AgentConfig      `json:"agent"`
	Gateway   GatewayConfig    `json:"gateway"`
	Tools     ToolsConfig      `json:"tools"`
	Channels  ChannelsConfig   `json:"channels"`
	Schedules []ScheduleConfig `json:"schedules,omitempty"`
}

type ProviderConfig struct {
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseUrl,omitempty"`
	Model   string `json:"model"`
}

type AgentConfig struct {
	Temperature      float64 `json:"temperature"`
	SynthTemperature float64 `json:"synthesisTemperature"`
	MaxTokens        int     `json:"maxTokens"`
}

type GatewayConfig struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	BufSize int    `json:"bufSize,omitempty"`
}

type ToolsConfig struct {
	FinnhubAPIKey   string `json:"finnhubApiKey,omitempty"`
	FinnhubEndpoint string `json:"finnhubEndpoint,omitempty"`
	GoogleAPIKey    string `json:"googleApiKey,omitempty"`
	GoogleCSEID     string `json:"googleCseId,omitempty"`
	HTTPTimeout     int    `json:"httpTimeout"`
}

type ChannelsConfig struct {
	WebUI    WebUIConfig    `json:"webui"`
	Telegram TelegramConfig `json:"telegram"`
}

type WebUIConfig struct {
	Enabled   bool     `json:"enabled"`
	AllowFrom []string `json:"allowFrom,omitempty"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom,omitempty"`
	Proxy     string   `json:"proxy,omitempty"`
}

// ScheduleConfig declares a prompt to run on a cron schedule. The cron
// expression uses the six-field form with seconds. When Channel is set the
// result is delivered there, otherwise it is only logged.
type ScheduleConfig struct {
	Name    string `json:"name"`
	Spec    string `json:"spec"`
	Prompt  string `json:"prompt"`
	Channel string `json:"channel,omitempty"`
	ChatID  string `json:"chatId,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL: DefaultBaseURL,
			Model:   DefaultModel,
		},
		Agent: AgentConfig{
			Temperature:      DefaultTemperature,
			SynthTemperature: DefaultSynthTemperature,
			MaxTokens:        DefaultMaxTokens,
		},
		Gateway: GatewayConfig{
			Host:    DefaultHost,
			Port:    DefaultPort,
			BufSize: DefaultBufSize,
		},
		Tools: ToolsConfig{
			FinnhubEndpoint: DefaultFinnhubEndpoint,
			HTTPTimeout:     DefaultHTTPTimeout,
		},
		Channels: ChannelsConfig{
			WebUI: WebUIConfig{Enabled: true},
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".finquill")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if key := os.Getenv("FINQUILL_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("GROQ_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if url := os.Getenv("FINQUILL_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if model := os.Getenv("FINQUILL_MODEL"); model != "" {
		cfg.Provider.Model = model
	}
	if key := os.Getenv("FINNHUB_API_KEY"); key != "" {
		cfg.Tools.FinnhubAPIKey = key
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		cfg.Tools.GoogleAPIKey = key
	}
	if id := os.Getenv("GOOGLE_CSE_ID"); id != "" {
		cfg.Tools.GoogleCSEID = id
	}
	if token := os.Getenv("FINQUILL_TELEGRAM_TOKEN"); token != "" {
		cfg.Channels.Telegram.Token = token
	}

	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = DefaultBaseURL
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = DefaultModel
	}
	if cfg.Agent.MaxTokens <= 0 {
		cfg.Agent.MaxTokens = DefaultMaxTokens
	}
	if cfg.Tools.FinnhubEndpoint == "" {
		cfg.Tools.FinnhubEndpoint = DefaultFinnhubEndpoint
	}
	if cfg.Tools.HTTPTimeout <= 0 {
		cfg.Tools.HTTPTimeout = DefaultHTTPTimeout
	}
	if cfg.Gateway.BufSize <= 0 {
		cfg.Gateway.BufSize = DefaultBufSize
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
