package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	API      APIConfig
	Storage  StorageConfig
	Security SecurityConfig
	UI       UIConfig
	Log      LogConfig
	MCP      MCPConfig
	DevMode  bool
}

type APIConfig struct {
	Origin   string
	Timeout  time.Duration
	ViewsURL string
}

type StorageConfig struct {
	DataDir string
}

type SecurityConfig struct {
	EncryptionKeyEnv string
}

type UIConfig struct {
	SpinnerMin    time.Duration
	SpinnerMax    time.Duration
	ToastDuration time.Duration
	WideWidth     int
}

type LogConfig struct {
	Level    string
	Encoding string
	File     string
}

type MCPConfig struct {
	Host string
	Port string
}

// fileConfig is the on-disk TOML shape. Durations are strings ("800ms").
type fileConfig struct {
	API struct {
		URL      string `toml:"url"`
		Timeout  string `toml:"timeout"`
		ViewsURL string `toml:"views_url"`
	} `toml:"api"`
	Storage struct {
		DataDir string `toml:"data_dir"`
	} `toml:"storage"`
	UI struct {
		SpinnerMin    string `toml:"spinner_min"`
		SpinnerMax    string `toml:"spinner_max"`
		ToastDuration string `toml:"toast_duration"`
		WideWidth     int    `toml:"wide_width"`
	} `toml:"ui"`
	Log struct {
		Level    string `toml:"level"`
		Encoding string `toml:"encoding"`
		File     string `toml:"file"`
	} `toml:"log"`
	Dev *bool `toml:"dev"`
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	config := &Config{
		API: APIConfig{
			Origin:  "http://localhost:8080",
			Timeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
		Security: SecurityConfig{
			EncryptionKeyEnv: "KAIRO_ENCRYPTION_KEY",
		},
		UI: UIConfig{
			SpinnerMin:    800 * time.Millisecond,
			SpinnerMax:    4 * time.Second,
			ToastDuration: 2200 * time.Millisecond,
			WideWidth:     100,
		},
		Log: LogConfig{
			Level:    "debug",
			Encoding: "console",
		},
		MCP: MCPConfig{
			Host: "0.0.0.0",
			Port: "8090",
		},
	}

	if path := configFilePath(); path != "" {
		if err := config.applyFile(path); err != nil {
			return nil, err
		}
	}

	config.applyEnv()

	if config.Log.File == "" {
		config.Log.File = filepath.Join(config.Storage.DataDir, "kairo.log")
	}

	return config, nil
}

func configFilePath() string {
	if path := os.Getenv("KAIRO_CONFIG"); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, "kairo", "config.toml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func (c *Config) applyFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	if fc.API.URL != "" {
		c.API.Origin = fc.API.URL
	}
	if fc.API.ViewsURL != "" {
		c.API.ViewsURL = fc.API.ViewsURL
	}
	if fc.Storage.DataDir != "" {
		c.Storage.DataDir = fc.Storage.DataDir
	}
	if fc.UI.WideWidth > 0 {
		c.UI.WideWidth = fc.UI.WideWidth
	}
	if fc.Log.Level != "" {
		c.Log.Level = fc.Log.Level
	}
	if fc.Log.Encoding != "" {
		c.Log.Encoding = fc.Log.Encoding
	}
	if fc.Log.File != "" {
		c.Log.File = fc.Log.File
	}
	if fc.Dev != nil {
		c.DevMode = *fc.Dev
	}

	durations := []struct {
		raw    string
		target *time.Duration
		key    string
	}{
		{fc.API.Timeout, &c.API.Timeout, "api.timeout"},
		{fc.UI.SpinnerMin, &c.UI.SpinnerMin, "ui.spinner_min"},
		{fc.UI.SpinnerMax, &c.UI.SpinnerMax, "ui.spinner_max"},
		{fc.UI.ToastDuration, &c.UI.ToastDuration, "ui.toast_duration"},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s in %s: %w", d.key, path, err)
		}
		*d.target = parsed
	}

	return nil
}

func (c *Config) applyEnv() {
	c.API.Origin = getEnvOrDefault("KAIRO_API_URL", c.API.Origin)
	c.API.Timeout = getDurationOrDefault("KAIRO_API_TIMEOUT", c.API.Timeout)
	c.API.ViewsURL = getEnvOrDefault("KAIRO_VIEWS_URL", c.API.ViewsURL)
	c.Storage.DataDir = getEnvOrDefault("KAIRO_DATA_DIR", c.Storage.DataDir)
	c.UI.SpinnerMin = getDurationOrDefault("KAIRO_SPINNER_MIN", c.UI.SpinnerMin)
	c.UI.SpinnerMax = getDurationOrDefault("KAIRO_SPINNER_MAX", c.UI.SpinnerMax)
	c.UI.ToastDuration = getDurationOrDefault("KAIRO_TOAST_DURATION", c.UI.ToastDuration)
	c.UI.WideWidth = getIntOrDefault("KAIRO_WIDE_WIDTH", c.UI.WideWidth)
	c.Log.Level = getEnvOrDefault("KAIRO_LOG_LEVEL", c.Log.Level)
	c.Log.Encoding = getEnvOrDefault("KAIRO_LOG_ENCODING", c.Log.Encoding)
	c.Log.File = getEnvOrDefault("KAIRO_LOG_FILE", c.Log.File)
	c.DevMode = getBoolOrDefault("KAIRO_DEV", c.DevMode)
	c.MCP.Host = getEnvOrDefault("MCP_HOST", c.MCP.Host)
	c.MCP.Port = getEnvOrDefault("MCP_PORT", c.MCP.Port)
}

// APIBaseURL is the origin with the versioned API prefix.
func (c *Config) APIBaseURL() string {
	return strings.TrimRight(c.API.Origin, "/") + "/api/v1"
}

func (c *Config) MCPAddr() string {
	return c.MCP.Host + ":" + c.MCP.Port
}

// GetEncryptionKey returns nil without error when no key is configured;
// the session is then stored unencrypted.
func (c *Config) GetEncryptionKey() ([]byte, error) {
	keyHex := os.Getenv(c.Security.EncryptionKeyEnv)
	if keyHex == "" {
		return nil, nil
	}

	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}

	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes (64 hex characters)")
	}

	return key, nil
}

func (c *Config) Validate() error {
	origin, err := url.Parse(c.API.Origin)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return fmt.Errorf("API URL %q must be an absolute http(s) URL", c.API.Origin)
	}

	if c.API.Timeout <= 0 {
		return errors.New("API timeout must be positive")
	}

	if c.Storage.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}

	if c.UI.SpinnerMin > c.UI.SpinnerMax {
		return fmt.Errorf("spinner minimum %s exceeds maximum %s", c.UI.SpinnerMin, c.UI.SpinnerMax)
	}

	if _, err := c.GetEncryptionKey(); err != nil {
		return fmt.Errorf("encryption key validation failed: %w", err)
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
