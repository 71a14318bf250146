package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type ServerConfig struct {
	Port        int      `json:"port"`
	Bind        string   `json:"bind"`
	CORSOrigins []string `json:"cors_origins"`
}

type ServiceNowConfig struct {
	InstanceURL    string `json:"instance_url"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type DatabaseConfig struct {
	Driver      string `json:"driver"`
	SQLitePath  string `json:"sqlite_path"`
	PostgresDSN string `json:"postgres_dsn"`
}

type LogConfig struct {
	Level      string `json:"level"`
	Mode       string `json:"mode"`
	FilePath   string `json:"file_path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

type NotifyConfig struct {
	WebhookURL     string `json:"webhook_url"`
	SlackToken     string `json:"slack_token"`
	SlackChannel   string `json:"slack_channel"`
	TelegramToken  string `json:"telegram_token"`
	TelegramChatID string `json:"telegram_chat_id"`
}

type MCPConfig struct {
	Path string `json:"path"`
}

type Config struct {
	Server     ServerConfig     `json:"server"`
	ServiceNow ServiceNowConfig `json:"servicenow"`
	Database   DatabaseConfig   `json:"database"`
	Log        LogConfig        `json:"log"`
	Notify     NotifyConfig     `json:"notify"`
	MCP        MCPConfig        `json:"mcp"`
}

// defaultDataDir returns the data directory next to the executable
// (holds sndiag.db/json/log).
func defaultDataDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "./data"
	}
	return filepath.Join(filepath.Dir(exe), "data")
}

func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port:        8005,
			Bind:        "0.0.0.0",
			CORSOrigins: []string{},
		},
		ServiceNow: ServiceNowConfig{
			TimeoutSeconds: 30,
		},
		Database: DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: filepath.Join(dataDir, "sndiag.db"),
		},
		Log: LogConfig{
			Level:      "info",
			Mode:       "production",
			FilePath:   filepath.Join(dataDir, "sndiag.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 30,
			Compress:   true,
		},
		MCP: MCPConfig{
			Path: "/mcp",
		},
	}
}

func ConfigPath() string {
	if custom := strings.TrimSpace(os.Getenv("SND_CONFIG")); custom != "" {
		return custom
	}
	return filepath.Join(defaultDataDir(), "sndiag.json")
}

func Load() (Config, error) {
	cfg := Default()

	// Layer 1: config file
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	if err == nil && len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Default(), err
		}
	}

	// Layer 2: environment variables override
	applyEnvOverrides(&cfg)

	return cfg, nil
}

func Save(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func (c *Config) ListenAddr() string {
	return c.Server.Bind + ":" + strconv.Itoa(c.Server.Port)
}

func (c *Config) IsDebug() bool {
	return strings.EqualFold(c.Log.Mode, "debug")
}

func (c *Config) RequestTimeout() time.Duration {
	if c.ServiceNow.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ServiceNow.TimeoutSeconds) * time.Second
}

func applyEnvOverrides(cfg *Config) {
	// PORT is honored for parity with common PaaS conventions.
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("SND_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("SND_BIND"); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("SND_SN_INSTANCE"); v != "" {
		cfg.ServiceNow.InstanceURL = v
	}
	if v := os.Getenv("SND_SN_USERNAME"); v != "" {
		cfg.ServiceNow.Username = v
	}
	if v := os.Getenv("SND_SN_PASSWORD"); v != "" {
		cfg.ServiceNow.Password = v
	}
	if v := os.Getenv("SND_SN_TIMEOUT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.ServiceNow.TimeoutSeconds = p
		}
	}
	if v := os.Getenv("SND_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("SND_DB_SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("SND_DB_DSN"); v != "" {
		cfg.Database.PostgresDSN = v
	}
	if v := os.Getenv("SND_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SND_LOG_MODE"); v != "" {
		cfg.Log.Mode = v
	}
	if v := os.Getenv("SND_LOG_FILE"); v != "" {
		cfg.Log.FilePath = v
	}
	if v := os.Getenv("SND_NOTIFY_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := os.Getenv("SND_NOTIFY_SLACK_TOKEN"); v != "" {
		cfg.Notify.SlackToken = v
	}
	if v := os.Getenv("SND_NOTIFY_SLACK_CHANNEL"); v != "" {
		cfg.Notify.SlackChannel = v
	}
	if v := os.Getenv("SND_NOTIFY_TELEGRAM_TOKEN"); v != "" {
		cfg.Notify.TelegramToken = v
	}
	if v := os.Getenv("SND_NOTIFY_TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notify.TelegramChatID = v
	}
	if v := os.Getenv("SND_MCP_PATH"); v != "" {
		cfg.MCP.Path = v
	}
}
