package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the tool reads
const EnvPrefix = "IMGPROBE_"

// Config holds all configuration options for imgprobe
type Config struct {
	// Marketplace product pages
	Marketplace MarketplaceConfig `yaml:"marketplace" json:"marketplace"`

	// Authenticated catalog API
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`

	// Token data store used to resolve catalog bearer tokens
	TokenStore TokenStoreConfig `yaml:"token_store" json:"token_store"`

	// Manufacturer product feed
	Manufacturer ManufacturerConfig `yaml:"manufacturer" json:"manufacturer"`

	HTTP      HTTPConfig      `yaml:"http" json:"http"`
	Retry     RetryConfig     `yaml:"retry" json:"retry"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// MarketplaceConfig holds settings for product page lookups
type MarketplaceConfig struct {
	BaseURL    string `yaml:"base_url" json:"base_url"`
	ImageHost  string `yaml:"image_host" json:"image_host"`
	ImageLimit int    `yaml:"image_limit" json:"image_limit"`
	Profile    string `yaml:"profile" json:"profile"`
}

// CatalogConfig holds settings for the catalog REST API
type CatalogConfig struct {
	BaseURL  string `yaml:"base_url" json:"base_url"`
	APIKey   string `yaml:"api_key" json:"api_key"`
	PageSize int    `yaml:"page_size" json:"page_size"`
}

// TokenStoreConfig describes where bearer tokens are read from
type TokenStoreConfig struct {
	BaseURL    string        `yaml:"base_url" json:"base_url"`
	ServiceKey string        `yaml:"service_key" json:"service_key"`
	Table      string        `yaml:"table" json:"table"`
	Field      string        `yaml:"field" json:"field"`
	Order      string        `yaml:"order" json:"order"`
	CacheTTL   time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

// ManufacturerConfig holds settings for the manufacturer feed API
type ManufacturerConfig struct {
	BaseURL     string `yaml:"base_url" json:"base_url"`
	ChannelID   string `yaml:"channel_id" json:"channel_id"`
	Marketplace string `yaml:"marketplace" json:"marketplace"`
	Language    string `yaml:"language" json:"language"`
	Country     string `yaml:"country" json:"country"`
	AnonymousID string `yaml:"anonymous_id" json:"anonymous_id"`
	CallerID    string `yaml:"caller_id" json:"caller_id"`
}

// HTTPConfig holds settings shared by every outbound request
type HTTPConfig struct {
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
	CloudflareBypass bool          `yaml:"cloudflare_bypass" json:"cloudflare_bypass"`
}

// RetryConfig controls how many times a request is attempted
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	Strategy     string        `yaml:"strategy" json:"strategy"`
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
}

// RateLimitConfig paces multi-request sweeps
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Format  string `yaml:"format" json:"format"`
	DumpDir string `yaml:"dump_dir" json:"dump_dir"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
	Quiet   bool   `yaml:"quiet" json:"quiet"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
	NoColor    bool   `yaml:"no_color" json:"no_color"`
}

// DefaultConfig returns a Config instance with sensible defaults.
// Secrets are never defaulted.
func DefaultConfig() *Config {
	return &Config{
		Marketplace: MarketplaceConfig{
			BaseURL:    "https://stockx.com",
			ImageHost:  "https://images.stockx.com/images/",
			ImageLimit: 5,
			Profile:    "browser",
		},
		Catalog: CatalogConfig{
			BaseURL:  "https://api.stockx.com",
			PageSize: 50,
		},
		TokenStore: TokenStoreConfig{
			Table:    "stockx_tokens",
			Field:    "access_token",
			CacheTTL: 5 * time.Minute,
		},
		Manufacturer: ManufacturerConfig{
			BaseURL:     "https://api.nike.com",
			ChannelID:   "d9a5bc42-4b9c-4976-858a-f159cf99c647",
			Marketplace: "US",
			Language:    "en",
			Country:     "us",
			AnonymousID: "test",
			CallerID:    "nike:dotcom:snkrs.web",
		},
		HTTP: HTTPConfig{
			Timeout: 10 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:  1,
			Strategy:     "exponential",
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         1,
		},
		Output: OutputConfig{
			Format: "text",
		},
		Logging: LoggingConfig{
			Level:      "warn",
			Format:     "console",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// LoadFromEnv loads configuration from IMGPROBE_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString(&c.Marketplace.BaseURL, "MARKETPLACE_BASE_URL")
	setString(&c.Marketplace.ImageHost, "MARKETPLACE_IMAGE_HOST")
	setString(&c.Marketplace.Profile, "PROFILE")
	setString(&c.Catalog.BaseURL, "CATALOG_BASE_URL")
	setString(&c.Catalog.APIKey, "CATALOG_API_KEY")
	setString(&c.TokenStore.BaseURL, "TOKEN_STORE_URL")
	setString(&c.TokenStore.ServiceKey, "TOKEN_STORE_KEY")
	setString(&c.TokenStore.Table, "TOKEN_STORE_TABLE")
	setString(&c.Manufacturer.BaseURL, "MANUFACTURER_BASE_URL")
	setString(&c.Manufacturer.ChannelID, "MANUFACTURER_CHANNEL_ID")
	setString(&c.Output.Format, "OUTPUT_FORMAT")
	setString(&c.Output.DumpDir, "DUMP_DIR")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.File, "LOG_FILE")

	if v := getenv("IMAGE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sIMAGE_LIMIT: %w", EnvPrefix, err))
		} else {
			c.Marketplace.ImageLimit = n
		}
	}
	if v := getenv("RETRY_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRETRY_MAX_ATTEMPTS: %w", EnvPrefix, err))
		} else {
			c.Retry.MaxAttempts = n
		}
	}
	if v := getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sHTTP_TIMEOUT: %w", EnvPrefix, err))
		} else {
			c.HTTP.Timeout = d
		}
	}
	if v := getenv("CLOUDFLARE_BYPASS"); v != "" {
		c.HTTP.CloudflareBypass = strings.EqualFold(v, "true") || v == "1"
	}
	if v := getenv("NO_COLOR"); v != "" {
		c.Output.NoColor = strings.EqualFold(v, "true") || v == "1"
	}

	return errors.Join(errs...)
}

func getenv(name string) string {
	return os.Getenv(EnvPrefix + name)
}

func setString(dst *string, name string) {
	if v := getenv(name); v != "" {
		*dst = v
	}
}

// LoadFromFile loads configuration from a YAML or JSON5 file. A sibling
// file named <name>.local.<ext> is merged on top when present.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	if err := decodeFile(path, c); err != nil {
		return err
	}

	local := localPath(path)
	if _, err := os.Stat(local); err != nil {
		return nil
	}
	var override Config
	if err := decodeFile(local, &override); err != nil {
		return err
	}
	if err := mergo.Merge(c, override, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to merge %s: %w", local, err)
	}
	return nil
}

func decodeFile(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".json5":
		// json5 documents are re-encoded as yaml so durations like "10s"
		// decode the same way in both formats.
		var raw map[string]interface{}
		if err := json5.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		data, err = yaml.Marshal(raw)
		if err != nil {
			return fmt.Errorf("failed to normalise config file %s: %w", path, err)
		}
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// localPath turns config.yaml into config.local.yaml
func localPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// findConfigFile searches for a config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".imgprobe.yaml",
		".imgprobe.yml",
		".imgprobe.json5",
		filepath.Join(home, ".config", "imgprobe", "config.yaml"),
		filepath.Join(home, ".config", "imgprobe", "config.json5"),
		filepath.Join(home, ".imgprobe.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// DefaultPath is where `config init` writes a fresh file
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "imgprobe", "config.yaml")
}

// Validate checks if the configuration is valid. Secrets are not required
// here since only catalog and token commands need them.
func (c *Config) Validate() error {
	var errs []error

	urls := []struct{ name, value string }{
		{"marketplace.base_url", c.Marketplace.BaseURL},
		{"catalog.base_url", c.Catalog.BaseURL},
		{"manufacturer.base_url", c.Manufacturer.BaseURL},
	}
	for _, u := range urls {
		name := u.name
		if u.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		} else if !strings.HasPrefix(u.value, "http://") && !strings.HasPrefix(u.value, "https://") {
			errs = append(errs, fmt.Errorf("%s must be an http(s) URL", name))
		}
	}
	if c.Marketplace.ImageHost == "" {
		errs = append(errs, errors.New("marketplace.image_host is required"))
	}
	if c.TokenStore.Table == "" || c.TokenStore.Field == "" {
		errs = append(errs, errors.New("token_store.table and token_store.field are required"))
	}
	if c.TokenStore.CacheTTL < 0 {
		errs = append(errs, errors.New("token_store.cache_ttl cannot be negative"))
	}

	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("http.timeout must be positive"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}
	switch strings.ToLower(c.Retry.Strategy) {
	case "exponential", "linear", "constant":
	default:
		errs = append(errs, fmt.Errorf("invalid retry strategy %q", c.Retry.Strategy))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	switch strings.ToLower(c.Output.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid output format %q", c.Output.Format))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Masked returns a copy of the configuration with secrets obscured
func (c *Config) Masked() *Config {
	out := *c
	out.Catalog.APIKey = MaskSecret(c.Catalog.APIKey)
	out.TokenStore.ServiceKey = MaskSecret(c.TokenStore.ServiceKey)
	return &out
}

// MaskSecret keeps the first and last four characters of long values
func MaskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return strings.Repeat("*", len(s))
	default:
		return s[:4] + strings.Repeat("*", 8) + s[len(s)-4:]
	}
}

// Save saves the configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only flags that were explicitly set should be present in the map.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.Format = v
	}
	if v, ok := flags["dump-dir"].(string); ok && v != "" {
		c.Output.DumpDir = v
	}
	if v, ok := flags["no-color"].(bool); ok && v {
		c.Output.NoColor = true
		c.Logging.NoColor = true
	}
	if v, ok := flags["quiet"].(bool); ok && v {
		c.Output.Quiet = true
	}
	if v, ok := flags["timeout"].(time.Duration); ok && v > 0 {
		c.HTTP.Timeout = v
	}
	if v, ok := flags["attempts"].(int); ok && v > 0 {
		c.Retry.MaxAttempts = v
	}
	if v, ok := flags["cloudflare-bypass"].(bool); ok && v {
		c.HTTP.CloudflareBypass = true
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment > .env file > local override > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".imgprobe.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
