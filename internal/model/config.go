package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// APIConfig holds settings for talking to the LNemail API.
type APIConfig struct {
	// BaseURL is the API root, usually the proxy prefix
	// (e.g., http://localhost:3000/api/lnemail).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// InboxConfig holds paging and polling settings for the inbox.
type InboxConfig struct {
	PageSize       int `mapstructure:"page_size" yaml:"page_size"`
	AutoRefreshSec int `mapstructure:"auto_refresh_sec" yaml:"auto_refresh_sec"`
	HealthCheckSec int `mapstructure:"health_check_sec" yaml:"health_check_sec"`
	PaymentPollSec int `mapstructure:"payment_poll_sec" yaml:"payment_poll_sec"`
}

// SessionConfig holds connect behaviour.
type SessionConfig struct {
	// RequireHealthyAPI refuses to connect while the last health check failed.
	RequireHealthyAPI bool `mapstructure:"require_healthy_api" yaml:"require_healthy_api"`
}

// DownloadsConfig controls where attachments and exports are written.
type DownloadsConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	File  string `mapstructure:"file" yaml:"file"`
	Level string `mapstructure:"level" yaml:"level"`
}

// CredentialConfig controls the keyring file backend.
type CredentialConfig struct {
	FileDir string `mapstructure:"file_dir" yaml:"file_dir"`
}

// ProxyConfig holds the reverse proxy settings.
type ProxyConfig struct {
	Port           int      `mapstructure:"port" yaml:"port"`
	Upstream       string   `mapstructure:"upstream" yaml:"upstream"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	StaticDir      string   `mapstructure:"static_dir" yaml:"static_dir"`
	TimeoutSec     int      `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API        APIConfig        `mapstructure:"api" yaml:"api"`
	Inbox      InboxConfig      `mapstructure:"inbox" yaml:"inbox"`
	Session    SessionConfig    `mapstructure:"session" yaml:"session"`
	Downloads  DownloadsConfig  `mapstructure:"downloads" yaml:"downloads"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Credential CredentialConfig `mapstructure:"credential" yaml:"credential"`
	Proxy      ProxyConfig      `mapstructure:"proxy" yaml:"proxy"`
}

// ConfigDir returns ~/.config/lnemail, or the working directory when the
// home directory cannot be determined.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "lnemail")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/lnemail/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

func defaultDownloadsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

// defaults is the single source of default values; it seeds viper and
// DefaultAppConfig alike.
func defaults() map[string]any {
	return map[string]any{
		"api.base_url":                "http://localhost:3000/api/lnemail",
		"api.timeout_sec":             30,
		"api.max_retries":             3,
		"inbox.page_size":             15,
		"inbox.auto_refresh_sec":      5,
		"inbox.health_check_sec":      300,
		"inbox.payment_poll_sec":      3,
		"session.require_healthy_api": false,
		"downloads.dir":               defaultDownloadsDir(),
		"log.file":                    filepath.Join(ConfigDir(), "lnemail.log"),
		"log.level":                   "info",
		"credential.file_dir":         filepath.Join(ConfigDir(), "credentials"),
		"proxy.port":                  3000,
		"proxy.upstream":              "https://lnemail.net/api",
		"proxy.allowed_origins":       []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		"proxy.static_dir":            "",
		"proxy.timeout_sec":           30,
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix("lnemail")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The proxy honours the conventional PORT variable as well.
	_ = v.BindEnv("proxy.port", "LNEMAIL_PROXY_PORT", "PORT")
	return v
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	cfg := &AppConfig{}
	if err := newViper().Unmarshal(cfg); err != nil {
		// Defaults are static; a failure here is a programming error.
		panic(fmt.Sprintf("decoding default config: %v", err))
	}
	return cfg
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns the defaults with environment
// overrides applied.
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.normalize()
	return cfg, nil
}

// normalize replaces out-of-range values with their defaults.
func (c *AppConfig) normalize() {
	if c.Inbox.PageSize <= 0 {
		c.Inbox.PageSize = 15
	}
	if c.Inbox.AutoRefreshSec <= 0 {
		c.Inbox.AutoRefreshSec = 5
	}
	if c.Inbox.HealthCheckSec <= 0 {
		c.Inbox.HealthCheckSec = 300
	}
	if c.Inbox.PaymentPollSec <= 0 {
		c.Inbox.PaymentPollSec = 3
	}
	if c.API.TimeoutSec <= 0 {
		c.API.TimeoutSec = 30
	}
	if c.API.MaxRetries < 0 {
		c.API.MaxRetries = 0
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	c.Downloads.Dir = expandHome(c.Downloads.Dir)
	c.Log.File = expandHome(c.Log.File)
	c.Credential.FileDir = expandHome(c.Credential.FileDir)
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("inbox", cfg.Inbox)
	v.Set("session", cfg.Session)
	v.Set("downloads", cfg.Downloads)
	v.Set("log", cfg.Log)
	v.Set("credential", cfg.Credential)
	v.Set("proxy", cfg.Proxy)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
