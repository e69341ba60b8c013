package config

import (
	"time"

	"golang-trading-ensemble/pkg/config"
)

// Ollama holds the configuration for the Ollama inference runtime.
type Ollama struct {
	BaseURL             string `mapstructure:"base_url"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
}

// Gemini holds the configuration for the Gemini API.
type Gemini struct {
	APIKey              string `mapstructure:"api_key"`
	BaseURL             string `mapstructure:"base_url"`
	Model               string `mapstructure:"model"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
}

// AI selects the inference provider.
type AI struct {
	Provider string `mapstructure:"provider"`
}

// Model holds the settings of one specialized model.
type Model struct {
	Model       string        `mapstructure:"model"`
	Weight      float64       `mapstructure:"weight"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Models maps each analysis dimension to its specialized model.
type Models struct {
	Technical Model `mapstructure:"technical"`
	Risk      Model `mapstructure:"risk"`
	Sentiment Model `mapstructure:"sentiment"`
	Strategy  Model `mapstructure:"strategy"`
}

// Warmup holds the model pre-warming settings.
type Warmup struct {
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Ensemble holds the decision aggregation settings.
type Ensemble struct {
	DecisionThreshold     float64       `mapstructure:"decision_threshold"`
	AgreementBoost        float64       `mapstructure:"agreement_boost"`
	AgreementMinResponses int           `mapstructure:"agreement_min_responses"`
	MaxConfidence         float64       `mapstructure:"max_confidence"`
	OverallTimeout        time.Duration `mapstructure:"overall_timeout"`
	CacheTTL              time.Duration `mapstructure:"cache_ttl"`
	Warmup                Warmup        `mapstructure:"warmup"`
}

// Batch holds the batch analysis settings.
type Batch struct {
	MaxSymbols    int `mapstructure:"max_symbols"`
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// Watchlist holds the periodic watchlist analysis settings.
type Watchlist struct {
	Enabled             bool     `mapstructure:"enabled"`
	Cron                string   `mapstructure:"cron"`
	Symbols             []string `mapstructure:"symbols"`
	NotifyMinConfidence float64  `mapstructure:"notify_min_confidence"`
}

// Alpaca holds the configuration for the Alpaca market data API.
type Alpaca struct {
	BaseURL   string `mapstructure:"base_url"`
	KeyID     string `mapstructure:"key_id"`
	SecretKey string `mapstructure:"secret_key"`
}

// News holds the configuration for the sentiment news context feed.
type News struct {
	Enabled      bool   `mapstructure:"enabled"`
	FeedURL      string `mapstructure:"feed_url"`
	MaxHeadlines int    `mapstructure:"max_headlines"`
}

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Config holds the full configuration for the engine service.
type Config struct {
	App       config.App      `mapstructure:"app"`
	Logger    config.Logger   `mapstructure:"logger"`
	API       config.API      `mapstructure:"api"`
	Database  config.Database `mapstructure:"database"`
	Redis     config.Redis    `mapstructure:"redis"`
	AI        AI              `mapstructure:"ai"`
	Ollama    Ollama          `mapstructure:"ollama"`
	Gemini    Gemini          `mapstructure:"gemini"`
	Models    Models          `mapstructure:"models"`
	Ensemble  Ensemble        `mapstructure:"ensemble"`
	Batch     Batch           `mapstructure:"batch"`
	Watchlist Watchlist       `mapstructure:"watchlist"`
	Alpaca    Alpaca          `mapstructure:"alpaca"`
	News      News            `mapstructure:"news"`
	Telegram  Telegram        `mapstructure:"telegram"`
}

// Load loads the engine configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills the tuning knobs the config file may omit. The source
// variants of this engine disagreed on thresholds and boosts, so all of them
// stay configurable with one consistent set of defaults.
func (c *Config) applyDefaults() {
	if c.Ensemble.DecisionThreshold == 0 {
		c.Ensemble.DecisionThreshold = 0.35
	}
	if c.Ensemble.AgreementBoost == 0 {
		c.Ensemble.AgreementBoost = 1.2
	}
	if c.Ensemble.AgreementMinResponses == 0 {
		c.Ensemble.AgreementMinResponses = 3
	}
	if c.Ensemble.MaxConfidence == 0 {
		c.Ensemble.MaxConfidence = 0.95
	}
	if c.Ensemble.OverallTimeout == 0 {
		c.Ensemble.OverallTimeout = 90 * time.Second
	}
	if c.Ensemble.CacheTTL == 0 {
		c.Ensemble.CacheTTL = time.Minute
	}
	if c.Ensemble.Warmup.Timeout == 0 {
		c.Ensemble.Warmup.Timeout = 2 * time.Second
	}
	if c.Batch.MaxSymbols == 0 {
		c.Batch.MaxSymbols = 20
	}
	if c.Batch.MaxConcurrent == 0 {
		c.Batch.MaxConcurrent = 5
	}
	if c.News.MaxHeadlines == 0 {
		c.News.MaxHeadlines = 5
	}
	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = "http://localhost:11434"
	}

	defaults := map[*Model]Model{
		&c.Models.Technical: {Model: "llama3.1:8b", Weight: 0.35, Temperature: 0.1, MaxTokens: 50, Timeout: 60 * time.Second},
		&c.Models.Risk:      {Model: "mistral:7b", Weight: 0.25, Temperature: 0.1, MaxTokens: 40, Timeout: 60 * time.Second},
		&c.Models.Sentiment: {Model: "phi3:mini", Weight: 0.20, Temperature: 0.2, MaxTokens: 30, Timeout: 30 * time.Second},
		&c.Models.Strategy:  {Model: "codellama:13b", Weight: 0.20, Temperature: 0.1, MaxTokens: 60, Timeout: 90 * time.Second},
	}
	for m, d := range defaults {
		if m.Model == "" {
			m.Model = d.Model
		}
		if m.Weight == 0 {
			m.Weight = d.Weight
		}
		if m.Temperature == 0 {
			m.Temperature = d.Temperature
		}
		if m.MaxTokens == 0 {
			m.MaxTokens = d.MaxTokens
		}
		if m.Timeout == 0 {
			m.Timeout = d.Timeout
		}
	}
}
