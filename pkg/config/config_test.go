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

	assert.Equal(t, "https://www.maynoothuniversity.ie", cfg.Portal.BaseURL)
	assert.Equal(t, "/library/exam-papers", cfg.Portal.ExamPapersPath)
	assert.Equal(t, 3, cfg.Download.ConcurrentDownloads)
	assert.Equal(t, 60, cfg.RateLimit.RequestsPerMinute)
	assert.True(t, cfg.Retry.Enabled)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.LessOrEqual(t, cfg.Papers.YearFrom, cfg.Papers.YearTo)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
portal:
  base_url: https://portal.example.edu
  request_timeout: 10s
papers:
  year_from: 2019
  year_to: 2024
download:
  concurrent_downloads: 2
  download_timeout: 45s
output:
  base_directory: /tmp/papers
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "https://portal.example.edu", cfg.Portal.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Portal.RequestTimeout)
	assert.Equal(t, 2019, cfg.Papers.YearFrom)
	assert.Equal(t, 2024, cfg.Papers.YearTo)
	assert.Equal(t, 2, cfg.Download.ConcurrentDownloads)
	assert.Equal(t, "/tmp/papers", cfg.Output.BaseDirectory)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromFileMissingIsNotAnError(t *testing.T) {
	cfg := DefaultConfig()
	// Empty path with no config file in standard locations
	err := cfg.LoadFromFile("")
	assert.NoError(t, err)
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("portal: [not a map"), 0600))

	cfg := DefaultConfig()
	err := cfg.LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("EXAMSCRAPER_PORTAL_URL", "https://env.example.edu")
	t.Setenv("EXAMSCRAPER_OUTPUT_DIR", "/env/papers")
	t.Setenv("EXAMSCRAPER_CONCURRENT_DOWNLOADS", "4")
	t.Setenv("EXAMSCRAPER_YEAR_FROM", "2018")
	t.Setenv("EXAMSCRAPER_LOG_LEVEL", "warn")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "https://env.example.edu", cfg.Portal.BaseURL)
	assert.Equal(t, "/env/papers", cfg.Output.BaseDirectory)
	assert.Equal(t, 4, cfg.Download.ConcurrentDownloads)
	assert.Equal(t, 2018, cfg.Papers.YearFrom)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"output":     "/flag/papers",
		"concurrent": 2,
		"rate-limit": 30,
		"year-to":    2023,
	})

	assert.Equal(t, "/flag/papers", cfg.Output.BaseDirectory)
	assert.Equal(t, 2, cfg.Download.ConcurrentDownloads)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 2023, cfg.Papers.YearTo)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing base URL",
			mutate:  func(c *Config) { c.Portal.BaseURL = "" },
			wantErr: "portal base URL is required",
		},
		{
			name:    "non-http base URL",
			mutate:  func(c *Config) { c.Portal.BaseURL = "ftp://example.com" },
			wantErr: "must be an http(s) URL",
		},
		{
			name:    "inverted year window",
			mutate:  func(c *Config) { c.Papers.YearFrom = 2025; c.Papers.YearTo = 2020 },
			wantErr: "year_from must not be after year_to",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Download.ConcurrentDownloads = 0 },
			wantErr: "concurrent downloads must be positive",
		},
		{
			name:    "excessive concurrency",
			mutate:  func(c *Config) { c.Download.ConcurrentDownloads = 20 },
			wantErr: "concurrent downloads should not exceed 8",
		},
		{
			name:    "empty output directory",
			mutate:  func(c *Config) { c.Output.BaseDirectory = "" },
			wantErr: "output directory is required",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Output.BaseDirectory = "/saved/papers"
	require.NoError(t, cfg.Save(path))

	reloaded := DefaultConfig()
	require.NoError(t, reloaded.LoadFromFile(path))
	assert.Equal(t, "/saved/papers", reloaded.Output.BaseDirectory)
}
