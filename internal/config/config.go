package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds everything the client needs to talk to a Grocy server and
// keep its local cache. It is built once in main and passed down.
type Config struct {
	ServerURL   string
	APIKey      string
	DBPath      string
	LogLevel    string
	LogFormat   string
	Listen      string
	HTTPTimeout time.Duration
	S3          S3Config
	Backup      BackupConfig
}

// BackupConfig controls encrypted cache snapshots. Interval 0 disables the
// scheduled loop; manual backups still work.
type BackupConfig struct {
	Passphrase    string
	Interval      time.Duration
	RetentionDays int
}

// S3Config describes the optional backup destination.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Enabled reports whether enough S3 settings are present to run backups.
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

const (
	defaultConfigPath  = "~/.config/grocysync/config.toml"
	defaultDBPath      = "~/.local/share/grocysync/cache.db"
	defaultListen      = "127.0.0.1:8787"
	defaultHTTPTimeout = 15 * time.Second
	defaultRetention   = 30
)

type fileConfig struct {
	ServerURL   string `toml:"server_url"`
	APIKey      string `toml:"api_key"`
	DBPath      string `toml:"db_path"`
	LogLevel    string `toml:"log_level"`
	LogFormat   string `toml:"log_format"`
	Listen      string `toml:"listen"`
	HTTPTimeout string `toml:"http_timeout"`
	S3          struct {
		Endpoint  string `toml:"endpoint"`
		Bucket    string `toml:"bucket"`
		Region    string `toml:"region"`
		AccessKey string `toml:"access_key"`
		SecretKey string `toml:"secret_key"`
	} `toml:"s3"`
	Backup struct {
		Passphrase    string `toml:"passphrase"`
		Interval      string `toml:"interval"`
		RetentionDays int    `toml:"retention_days"`
	} `toml:"backup"`
}

// Load reads the TOML file at path (or the default location when path is
// empty), applies GROCY_* environment overrides and fills defaults.
// A missing file is not an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var raw fileConfig
	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	cfg := Config{
		ServerURL: strings.TrimSpace(raw.ServerURL),
		APIKey:    strings.TrimSpace(raw.APIKey),
		DBPath:    strings.TrimSpace(raw.DBPath),
		LogLevel:  strings.TrimSpace(raw.LogLevel),
		LogFormat: strings.TrimSpace(raw.LogFormat),
		Listen:    strings.TrimSpace(raw.Listen),
		S3: S3Config{
			Endpoint:  raw.S3.Endpoint,
			Bucket:    raw.S3.Bucket,
			Region:    raw.S3.Region,
			AccessKey: raw.S3.AccessKey,
			SecretKey: raw.S3.SecretKey,
		},
		Backup: BackupConfig{
			Passphrase:    raw.Backup.Passphrase,
			RetentionDays: raw.Backup.RetentionDays,
		},
	}
	timeout := strings.TrimSpace(raw.HTTPTimeout)
	interval := strings.TrimSpace(raw.Backup.Interval)
	retention := ""

	overrideString(&cfg.ServerURL, "GROCY_SERVER_URL")
	overrideString(&cfg.APIKey, "GROCY_API_KEY")
	overrideString(&cfg.DBPath, "GROCY_DB_PATH")
	overrideString(&cfg.LogLevel, "GROCY_LOG_LEVEL")
	overrideString(&cfg.LogFormat, "GROCY_LOG_FORMAT")
	overrideString(&cfg.Listen, "GROCY_LISTEN")
	overrideString(&timeout, "GROCY_HTTP_TIMEOUT")
	overrideString(&cfg.S3.Endpoint, "GROCY_S3_ENDPOINT")
	overrideString(&cfg.S3.Bucket, "GROCY_S3_BUCKET")
	overrideString(&cfg.S3.Region, "GROCY_S3_REGION")
	overrideString(&cfg.S3.AccessKey, "GROCY_S3_ACCESS_KEY")
	overrideString(&cfg.S3.SecretKey, "GROCY_S3_SECRET_KEY")
	overrideString(&cfg.Backup.Passphrase, "GROCY_BACKUP_PASSPHRASE")
	overrideString(&interval, "GROCY_BACKUP_INTERVAL")
	overrideString(&retention, "GROCY_BACKUP_RETENTION_DAYS")

	cfg.HTTPTimeout = defaultHTTPTimeout
	if timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse http_timeout %q: %w", timeout, err)
		}
		if d > 0 {
			cfg.HTTPTimeout = d
		}
	}

	if interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return Config{}, fmt.Errorf("parse backup interval %q: %w", interval, err)
		}
		cfg.Backup.Interval = d
	}
	if retention != "" {
		n, err := strconv.Atoi(retention)
		if err != nil {
			return Config{}, fmt.Errorf("parse GROCY_BACKUP_RETENTION_DAYS %q: %w", retention, err)
		}
		cfg.Backup.RetentionDays = n
	}
	if cfg.Backup.RetentionDays <= 0 {
		cfg.Backup.RetentionDays = defaultRetention
	}

	if cfg.DBPath == "" {
		cfg.DBPath = mustExpand(defaultDBPath)
	} else if cfg.DBPath != ":memory:" {
		cfg.DBPath = mustExpand(cfg.DBPath)
	}
	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.S3.Region == "" {
		cfg.S3.Region = "us-east-1"
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")

	return cfg, nil
}

// Validate checks the settings needed to reach the server.
func (c Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	if !strings.HasPrefix(c.ServerURL, "http://") && !strings.HasPrefix(c.ServerURL, "https://") {
		return fmt.Errorf("server_url %q must start with http:// or https://", c.ServerURL)
	}
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	return nil
}

func overrideString(dst *string, env string) {
	if v, ok := os.LookupEnv(env); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
