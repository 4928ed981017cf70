package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Duration is a time.Duration that reads and writes as "30m" style text
// in both TOML and JSON.
type Duration time.Duration

func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

type Config struct {
	ProjectDir string `json:"project_dir" toml:"project_dir"`
	DataDir    string `json:"data_dir" toml:"data_dir"`
	LogLevel   string `json:"log_level" toml:"log_level"`
	LogFile    string `json:"log_file" toml:"log_file"`

	// Oracle
	LLMProvider        string  `json:"llm_provider" toml:"llm_provider"`
	LLMModel           string  `json:"llm_model" toml:"llm_model"`
	LLMBaseURL         string  `json:"llm_base_url" toml:"llm_base_url"`
	ScoringTemperature float32 `json:"scoring_temperature" toml:"scoring_temperature"`
	SummaryTemperature float32 `json:"summary_temperature" toml:"summary_temperature"`
	MaxTokens          int     `json:"max_tokens" toml:"max_tokens"`

	// Sources and storage
	QuoteProvider string `json:"quote_provider" toml:"quote_provider"`
	NewsProvider  string `json:"news_provider" toml:"news_provider"`
	StoreBackend  string `json:"store_backend" toml:"store_backend"`
	DBPath        string `json:"db_path" toml:"db_path"`
	BadgerDir     string `json:"badger_dir" toml:"badger_dir"`

	// Pipeline tuning
	MarketIndices         []string `json:"market_indices" toml:"market_indices"`
	NewsCount             int      `json:"news_count" toml:"news_count"`
	PeerLimit             int      `json:"peer_limit" toml:"peer_limit"`
	BatchSize             int      `json:"batch_size" toml:"batch_size"`
	SignificanceThreshold float64  `json:"significance_threshold" toml:"significance_threshold"`
	FreshnessWindow       Duration `json:"freshness_window" toml:"freshness_window"`
	CallTimeout           Duration `json:"call_timeout" toml:"call_timeout"`
	ExtractTimeout        Duration `json:"extract_timeout" toml:"extract_timeout"`
	JobTTL                Duration `json:"job_ttl" toml:"job_ttl"`
	ExtractFullText       bool     `json:"extract_full_text" toml:"extract_full_text"`

	// Tickers seeds the reference catalog on startup.
	Tickers []string `json:"tickers" toml:"tickers"`

	// Eino Debug configuration
	EinoDebugEnabled bool `json:"eino_debug_enabled" toml:"eino_debug_enabled"`
	EinoDebugPort    int  `json:"eino_debug_port" toml:"eino_debug_port"`

	// Longport API Configuration
	LongportAppKey      string `json:"longport_app_key" toml:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret" toml:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token" toml:"longport_access_token"`

	// AI Model API Keys
	DeepSeekAPIKey  string `json:"deepseek_api_key" toml:"deepseek_api_key"`
	OpenAIAPIKey    string `json:"openai_api_key" toml:"openai_api_key"`
	AnthropicAPIKey string `json:"anthropic_api_key" toml:"anthropic_api_key"`
	GeminiAPIKey    string `json:"gemini_api_key" toml:"gemini_api_key"`

	// Market data API keys
	FMPAPIKey     string `json:"fmp_api_key" toml:"fmp_api_key"`
	FinnhubAPIKey string `json:"finnhub_api_key" toml:"finnhub_api_key"`
}

var defaultTickers = []string{
	"AAPL", "MSFT", "NVDA", "AMZN", "GOOGL", "META", "TSLA", "AMD", "INTC", "AVGO",
	"NFLX", "ORCL", "CRM", "ADBE", "QCOM", "JPM", "BAC", "WMT", "KO", "PEP",
	"XOM", "CVX", "DIS", "NKE", "AFRM", "PLTR", "UBER", "SHOP", "COIN", "SNOW",
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()
	cfg := DefaultConfigWithRoot(currentDir)

	// Load environment variables from .env file
	_ = godotenv.Load()

	// Override with environment variables if they exist
	cfg.loadFromEnv()
	return cfg
}

// DefaultConfigWithRoot returns defaults with every path under root. It
// does not read the environment.
func DefaultConfigWithRoot(root string) *Config {
	dataDir := filepath.Join(root, "data")
	return &Config{
		ProjectDir: root,
		DataDir:    dataDir,
		LogLevel:   "info",

		LLMProvider:        "deepseek",
		ScoringTemperature: 0.2,
		SummaryTemperature: 0.3,
		MaxTokens:          4096,

		QuoteProvider: "yahoo",
		NewsProvider:  "yahoo",
		StoreBackend:  "sqlite",
		DBPath:        filepath.Join(dataDir, "pricemove.db"),
		BadgerDir:     filepath.Join(dataDir, "badger"),

		MarketIndices:         []string{"^GSPC", "^DJI", "^IXIC"},
		NewsCount:             10,
		PeerLimit:             3,
		BatchSize:             5,
		SignificanceThreshold: 0.5,
		FreshnessWindow:       Duration(30 * time.Minute),
		CallTimeout:           Duration(45 * time.Second),
		ExtractTimeout:        Duration(15 * time.Second),
		JobTTL:                Duration(time.Hour),
		ExtractFullText:       true,

		Tickers: append([]string(nil), defaultTickers...),

		EinoDebugEnabled: false,
		EinoDebugPort:    52538,
	}
}

// WithEnv returns a copy of c with environment overrides applied. Secrets
// usually arrive this way and are never written back to the config file.
func (c Config) WithEnv() Config {
	_ = godotenv.Load()
	c.MarketIndices = append([]string(nil), c.MarketIndices...)
	c.Tickers = append([]string(nil), c.Tickers...)
	c.loadFromEnv()
	return c
}

func (c *Config) loadFromEnv() {
	str := func(key string, dst *string) {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			*dst = val
		}
	}
	integer := func(key string, dst *int) {
		if val := os.Getenv(key); val != "" {
			if v, err := strconv.Atoi(val); err == nil {
				*dst = v
			}
		}
	}
	boolean := func(key string, dst *bool) {
		if val := os.Getenv(key); val != "" {
			if v, err := strconv.ParseBool(val); err == nil {
				*dst = v
			}
		}
	}
	duration := func(key string, dst *Duration) {
		if val := os.Getenv(key); val != "" {
			if v, err := time.ParseDuration(val); err == nil {
				*dst = Duration(v)
			}
		}
	}
	list := func(key string, dst *[]string) {
		if val := os.Getenv(key); val != "" {
			var out []string
			for _, part := range strings.Split(val, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
			if len(out) > 0 {
				*dst = out
			}
		}
	}

	str("PROJECT_DIR", &c.ProjectDir)
	str("DATA_DIR", &c.DataDir)
	str("PRICEMOVE_LOG_LEVEL", &c.LogLevel)
	str("PRICEMOVE_LOG_FILE", &c.LogFile)

	str("LLM_PROVIDER", &c.LLMProvider)
	str("LLM_MODEL", &c.LLMModel)
	str("LLM_BASE_URL", &c.LLMBaseURL)
	integer("PRICEMOVE_MAX_TOKENS", &c.MaxTokens)

	str("PRICEMOVE_QUOTE_PROVIDER", &c.QuoteProvider)
	str("PRICEMOVE_NEWS_PROVIDER", &c.NewsProvider)
	str("PRICEMOVE_STORE_BACKEND", &c.StoreBackend)
	str("PRICEMOVE_DB_PATH", &c.DBPath)
	str("PRICEMOVE_BADGER_DIR", &c.BadgerDir)

	list("PRICEMOVE_MARKET_INDICES", &c.MarketIndices)
	integer("PRICEMOVE_NEWS_COUNT", &c.NewsCount)
	integer("PRICEMOVE_PEER_LIMIT", &c.PeerLimit)
	integer("PRICEMOVE_BATCH_SIZE", &c.BatchSize)
	if val := os.Getenv("PRICEMOVE_SIGNIFICANCE_THRESHOLD"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.SignificanceThreshold = v
		}
	}
	duration("PRICEMOVE_FRESHNESS_WINDOW", &c.FreshnessWindow)
	duration("PRICEMOVE_CALL_TIMEOUT", &c.CallTimeout)
	duration("PRICEMOVE_EXTRACT_TIMEOUT", &c.ExtractTimeout)
	duration("PRICEMOVE_JOB_TTL", &c.JobTTL)
	boolean("PRICEMOVE_EXTRACT_FULL_TEXT", &c.ExtractFullText)
	list("PRICEMOVE_TICKERS", &c.Tickers)

	boolean("EINO_DEBUG_ENABLED", &c.EinoDebugEnabled)
	integer("EINO_DEBUG_PORT", &c.EinoDebugPort)

	str("LONGPORT_APP_KEY", &c.LongportAppKey)
	str("LONGPORT_APP_SECRET", &c.LongportAppSecret)
	str("LONGPORT_ACCESS_TOKEN", &c.LongportAccessToken)

	str("DEEPSEEK_API_KEY", &c.DeepSeekAPIKey)
	str("OPENAI_API_KEY", &c.OpenAIAPIKey)
	str("ANTHROPIC_API_KEY", &c.AnthropicAPIKey)
	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	str("FMP_API_KEY", &c.FMPAPIKey)
	str("FINNHUB_API_KEY", &c.FinnhubAPIKey)
}

// LLMAPIKey returns the key for the selected provider.
func (c *Config) LLMAPIKey() string {
	switch strings.ToLower(c.LLMProvider) {
	case "deepseek":
		return c.DeepSeekAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic", "claude":
		return c.AnthropicAPIKey
	case "gemini", "google":
		return c.GeminiAPIKey
	}
	return ""
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return nil
		}
	}
	return fmt.Errorf("%s %q is not one of %s", field, value, strings.Join(allowed, ", "))
}

func (c *Config) Validate() error {
	if err := oneOf("llm_provider", c.LLMProvider, "deepseek", "openai", "anthropic", "claude", "gemini", "google"); err != nil {
		return err
	}
	if err := oneOf("quote_provider", c.QuoteProvider, "yahoo", "longport"); err != nil {
		return err
	}
	if err := oneOf("news_provider", c.NewsProvider, "yahoo", "finnhub"); err != nil {
		return err
	}
	if err := oneOf("store_backend", c.StoreBackend, "sqlite", "badger", "memory"); err != nil {
		return err
	}
	switch {
	case c.BatchSize <= 0:
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	case c.NewsCount <= 0:
		return fmt.Errorf("news_count must be positive, got %d", c.NewsCount)
	case c.PeerLimit < 0:
		return fmt.Errorf("peer_limit must not be negative, got %d", c.PeerLimit)
	case c.SignificanceThreshold < 0 || c.SignificanceThreshold > 1:
		return fmt.Errorf("significance_threshold must be within [0,1], got %v", c.SignificanceThreshold)
	case c.FreshnessWindow <= 0:
		return fmt.Errorf("freshness_window must be positive")
	case c.CallTimeout <= 0:
		return fmt.Errorf("call_timeout must be positive")
	case c.JobTTL < 0:
		return fmt.Errorf("job_ttl must not be negative")
	case len(c.MarketIndices) == 0:
		return fmt.Errorf("market_indices must not be empty")
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.DataDir}
	if c.DBPath != "" {
		dirs = append(dirs, filepath.Dir(c.DBPath))
	}
	if c.LogFile != "" {
		dirs = append(dirs, filepath.Dir(c.LogFile))
	}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
