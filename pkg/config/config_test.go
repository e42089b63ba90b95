package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://stockx.com", cfg.Marketplace.BaseURL)
	assert.Equal(t, "https://images.stockx.com/images/", cfg.Marketplace.ImageHost)
	assert.Equal(t, 5, cfg.Marketplace.ImageLimit)
	assert.Equal(t, "stockx_tokens", cfg.TokenStore.Table)
	assert.Equal(t, "access_token", cfg.TokenStore.Field)
	assert.Equal(t, 5*time.Minute, cfg.TokenStore.CacheTTL)
	assert.Equal(t, 1, cfg.Retry.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.HTTP.Timeout)
	assert.Empty(t, cfg.Catalog.APIKey)
	assert.Empty(t, cfg.TokenStore.ServiceKey)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IMGPROBE_CATALOG_API_KEY", "catalog-key")
	t.Setenv("IMGPROBE_TOKEN_STORE_URL", "https://tokens.example.com")
	t.Setenv("IMGPROBE_TOKEN_STORE_KEY", "service-key")
	t.Setenv("IMGPROBE_IMAGE_LIMIT", "10")
	t.Setenv("IMGPROBE_HTTP_TIMEOUT", "3s")
	t.Setenv("IMGPROBE_CLOUDFLARE_BYPASS", "true")
	t.Setenv("IMGPROBE_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "catalog-key", cfg.Catalog.APIKey)
	assert.Equal(t, "https://tokens.example.com", cfg.TokenStore.BaseURL)
	assert.Equal(t, "service-key", cfg.TokenStore.ServiceKey)
	assert.Equal(t, 10, cfg.Marketplace.ImageLimit)
	assert.Equal(t, 3*time.Second, cfg.HTTP.Timeout)
	assert.True(t, cfg.HTTP.CloudflareBypass)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	t.Setenv("IMGPROBE_IMAGE_LIMIT", "lots")
	t.Setenv("IMGPROBE_HTTP_TIMEOUT", "soon")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IMGPROBE_IMAGE_LIMIT")
	assert.Contains(t, err.Error(), "IMGPROBE_HTTP_TIMEOUT")
	assert.Equal(t, 5, cfg.Marketplace.ImageLimit)
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
marketplace:
  image_limit: 10
  profile: googlebot
http:
  timeout: 30s
retry:
  max_attempts: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, 10, cfg.Marketplace.ImageLimit)
	assert.Equal(t, "googlebot", cfg.Marketplace.Profile)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	// untouched sections keep their defaults
	assert.Equal(t, "https://stockx.com", cfg.Marketplace.BaseURL)
}

func TestLoadFromJSON5File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	content := `{
  // comments and trailing commas are allowed
  token_store: {
    base_url: "https://tokens.example.com",
    cache_ttl: "1m",
  },
  output: { format: "json" },
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "https://tokens.example.com", cfg.TokenStore.BaseURL)
	assert.Equal(t, time.Minute, cfg.TokenStore.CacheTTL)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "stockx_tokens", cfg.TokenStore.Table)
}

func TestLocalOverrideIsMerged(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "config.yaml")
	local := filepath.Join(dir, "config.local.yaml")

	require.NoError(t, os.WriteFile(base, []byte("catalog:\n  base_url: https://api.example.com\n  page_size: 20\n"), 0644))
	require.NoError(t, os.WriteFile(local, []byte("catalog:\n  api_key: local-key\n"), 0600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(base))

	assert.Equal(t, "https://api.example.com", cfg.Catalog.BaseURL)
	assert.Equal(t, 20, cfg.Catalog.PageSize)
	assert.Equal(t, "local-key", cfg.Catalog.APIKey)
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	assert.Error(t, cfg.LoadFromFile(bad))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"empty marketplace url", func(c *Config) { c.Marketplace.BaseURL = "" }, "marketplace.base_url is required"},
		{"non http catalog url", func(c *Config) { c.Catalog.BaseURL = "ftp://x" }, "catalog.base_url must be an http(s) URL"},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "retry.max_attempts"},
		{"bad strategy", func(c *Config) { c.Retry.Strategy = "random" }, "invalid retry strategy"},
		{"bad output format", func(c *Config) { c.Output.Format = "xml" }, "invalid output format"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"negative cache ttl", func(c *Config) { c.TokenStore.CacheTTL = -time.Second }, "cache_ttl"},
		{"zero timeout", func(c *Config) { c.HTTP.Timeout = 0 }, "http.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"log-level": "debug",
		"output":    "json",
		"dump-dir":  "/tmp/dumps",
		"no-color":  true,
		"attempts":  2,
	})

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "/tmp/dumps", cfg.Output.DumpDir)
	assert.True(t, cfg.Output.NoColor)
	assert.True(t, cfg.Logging.NoColor)
	assert.Equal(t, 2, cfg.Retry.MaxAttempts)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: info\noutput:\n  format: json\n"), 0644))
	t.Setenv("IMGPROBE_LOG_LEVEL", "error")

	cfg, err := Load(path, map[string]interface{}{"output": "text"})
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level, "env beats file")
	assert.Equal(t, "text", cfg.Output.Format, "flags beat file")
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry:\n  strategy: random\n"), 0644))

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Marketplace.ImageLimit = 7
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, 7, loaded.Marketplace.ImageLimit)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "*****", MaskSecret("short"))
	assert.Equal(t, "abcd********wxyz", MaskSecret("abcdefghijklmnopqrstuvwxyz"))

	cfg := DefaultConfig()
	cfg.Catalog.APIKey = "abcdefghijklmnop"
	masked := cfg.Masked()
	assert.Equal(t, "abcd********mnop", masked.Catalog.APIKey)
	assert.Equal(t, "abcdefghijklmnop", cfg.Catalog.APIKey)
}
