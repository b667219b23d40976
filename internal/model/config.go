package model

import "time"

// Config is the complete newsintel configuration
type Config struct {
	API          APIConfig          `yaml:"api" mapstructure:"api"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Admin        AdminConfig        `yaml:"admin" mapstructure:"admin"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// APIConfig locates the News Intelligence Hub backend
type APIConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	AdminPrefix string `yaml:"admin_prefix" mapstructure:"admin_prefix"`
	Language    string `yaml:"language" mapstructure:"language"`
}

// HTTPConfig controls the transport
type HTTPConfig struct {
	Timeout      time.Duration     `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string            `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64             `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS  bool              `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	Headers      map[string]string `yaml:"headers,omitempty" mapstructure:"headers"`
	Retries      int               `yaml:"retries" mapstructure:"retries"` // caller-level retries for reads
	HTTPProxy    string            `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string            `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string            `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitingConfig throttles outgoing requests per host (0 disables)
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// PersistMode selects the persistent response store behind the cache
type PersistMode string

const (
	PersistNone    PersistMode = "none"
	PersistMemory  PersistMode = "memory"
	PersistDisk    PersistMode = "disk"
	PersistSQLite  PersistMode = "sqlite"
	PersistLayered PersistMode = "layered"
)

// CacheConfig controls the resource cache
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL        time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MaxEntries int           `yaml:"max_entries" mapstructure:"max_entries"`
	Persist    PersistMode   `yaml:"persist" mapstructure:"persist"`
	Dir        string        `yaml:"dir" mapstructure:"dir"`
	PersistTTL time.Duration `yaml:"persist_ttl" mapstructure:"persist_ttl"`
}

// ConcurrencyConfig bounds parallel fan-out
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// AdminConfig holds admin credentials (prefer NEWSINTEL_ADMIN_PASSWORD)
type AdminConfig struct {
	Username string `yaml:"username,omitempty" mapstructure:"username"`
	Password string `yaml:"password,omitempty" mapstructure:"password"`
}

// LLMConfig configures the optional comparison digest
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"`
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Format  string `yaml:"format" mapstructure:"format"` // text, json, yaml
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:     "http://localhost:8000",
			AdminPrefix: "/api/admin",
			Language:    string(LanguageEN),
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "newsintel/0.1 (+https://github.com/ppiankov/newsintel)",
			MaxBodyBytes: 10_000_000,
			Retries:      1,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 0,
			BurstSize:         5,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 500,
			Persist:    PersistNone,
			Dir:        "",
			PersistTTL: 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		LLM: LLMConfig{
			Provider:  "",
			Model:     "gpt-4o-mini",
			Timeout:   30,
			MaxTokens: 600,
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}
