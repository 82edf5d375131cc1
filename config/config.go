// Package config loads runtime settings from a JSON config file, a .env
// file and environment variable overrides, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ProjectDir   string `json:"project_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`
	DBPath       string `json:"db_path"`

	// DeepSeek model configuration
	DeepSeekAPIKey  string `json:"deepseek_api_key"`
	DeepSeekBaseURL string `json:"deepseek_base_url"`
	DeepSeekModel   string `json:"deepseek_model"`

	// Longport API configuration (港股行情)
	LongportAppKey      string `json:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token"`

	// Analysis tuning
	KlineDays          int `json:"kline_days"`
	AnalystTimeoutSec  int `json:"analyst_timeout_sec"`
	BatchWorkers       int `json:"batch_workers"`
	BatchTimeoutSec    int `json:"batch_timeout_sec"`

	CacheEnabled bool `json:"cache_enabled"`
	Debug        bool `json:"debug"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()
	cfg := DefaultConfigWithRoot(currentDir)
	ApplyEnvOverrides(cfg)
	return cfg
}

// ApplyEnvOverrides layers .env file values and process environment
// variables on top of cfg. Environment always wins over the config file.
func ApplyEnvOverrides(cfg *Config) {
	_ = godotenv.Load()
	cfg.loadFromEnv()
}

func DefaultConfigWithRoot(root string) *Config {
	return &Config{
		ProjectDir:   root,
		DataDir:      filepath.Join(root, "data"),
		DataCacheDir: filepath.Join(root, "data", "cache"),
		DBPath:       filepath.Join(root, "data", "analysis.db"),

		DeepSeekBaseURL: "https://api.deepseek.com/v1",
		DeepSeekModel:   "deepseek-chat",

		KlineDays:         250,
		AnalystTimeoutSec: 300,
		BatchWorkers:      3,
		BatchTimeoutSec:   600,

		CacheEnabled: true,
		Debug:        false,
	}
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}
	if val := os.Getenv("DB_PATH"); val != "" {
		c.DBPath = val
	}

	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}
	if val := os.Getenv("DEEPSEEK_BASE_URL"); val != "" {
		c.DeepSeekBaseURL = val
	}
	if val := os.Getenv("DEEPSEEK_MODEL"); val != "" {
		c.DeepSeekModel = val
	}

	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("KLINE_DAYS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.KlineDays = v
		}
	}
	if val := os.Getenv("ANALYST_TIMEOUT_SEC"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.AnalystTimeoutSec = v
		}
	}
	if val := os.Getenv("BATCH_WORKERS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.BatchWorkers = v
		}
	}
	if val := os.Getenv("BATCH_TIMEOUT_SEC"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.BatchTimeoutSec = v
		}
	}

	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = enabled
		}
	}
	if val := os.Getenv("STOCK_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
}

func (c *Config) Validate() error {
	if c.KlineDays <= 0 {
		return fmt.Errorf("kline_days must be positive, got %d", c.KlineDays)
	}
	if c.AnalystTimeoutSec <= 0 {
		return fmt.Errorf("analyst_timeout_sec must be positive, got %d", c.AnalystTimeoutSec)
	}
	if c.BatchWorkers <= 0 {
		return fmt.Errorf("batch_workers must be positive, got %d", c.BatchWorkers)
	}
	if c.BatchTimeoutSec <= 0 {
		return fmt.Errorf("batch_timeout_sec must be positive, got %d", c.BatchTimeoutSec)
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.DataDir, c.DataCacheDir, filepath.Dir(c.DBPath)}
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
