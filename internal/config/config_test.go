package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GROCY_SERVER_URL", "GROCY_API_KEY", "GROCY_DB_PATH", "GROCY_LOG_LEVEL",
		"GROCY_LOG_FORMAT", "GROCY_LISTEN", "GROCY_HTTP_TIMEOUT", "GROCY_S3_ENDPOINT",
		"GROCY_S3_BUCKET", "GROCY_S3_REGION", "GROCY_S3_ACCESS_KEY", "GROCY_S3_SECRET_KEY",
		"GROCY_BACKUP_PASSPHRASE", "GROCY_BACKUP_INTERVAL", "GROCY_BACKUP_RETENTION_DAYS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "missing.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != defaultListen {
		t.Errorf("listen = %q, want %q", cfg.Listen, defaultListen)
	}
	if cfg.HTTPTimeout != defaultHTTPTimeout {
		t.Errorf("timeout = %v, want %v", cfg.HTTPTimeout, defaultHTTPTimeout)
	}
	want := filepath.Join(home, ".local/share/grocysync/cache.db")
	if cfg.DBPath != want {
		t.Errorf("db path = %q, want %q", cfg.DBPath, want)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("log = %q/%q, want info/text", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.S3.Enabled() {
		t.Error("s3 should be disabled without credentials")
	}
}

func TestLoadParsesFileAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
server_url = "https://grocy.example.com/"
api_key = "file-key"
db_path = ":memory:"
http_timeout = "3s"

[s3]
bucket = "snapshots"
access_key = "ak"
secret_key = "sk"

[backup]
interval = "24h"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GROCY_API_KEY", "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerURL != "https://grocy.example.com" {
		t.Errorf("server url = %q", cfg.ServerURL)
	}
	if cfg.APIKey != "env-key" {
		t.Errorf("api key = %q, want env override", cfg.APIKey)
	}
	if cfg.DBPath != ":memory:" {
		t.Errorf("db path = %q, want :memory:", cfg.DBPath)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", cfg.HTTPTimeout)
	}
	if !cfg.S3.Enabled() {
		t.Error("expected s3 enabled")
	}
	if cfg.S3.Region != "us-east-1" {
		t.Errorf("region = %q, want default", cfg.S3.Region)
	}
	if cfg.Backup.Interval != 24*time.Hour || cfg.Backup.RetentionDays != 30 {
		t.Errorf("backup = %+v, want 24h / 30 days", cfg.Backup)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROCY_HTTP_TIMEOUT", "soon")
	if _, err := Load(filepath.Join(t.TempDir(), "none.toml")); err == nil {
		t.Fatal("expected error for unparseable timeout")
	}
}

func TestLoadRejectsBadBackupInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROCY_BACKUP_INTERVAL", "daily")
	if _, err := Load(filepath.Join(t.TempDir(), "none.toml")); err == nil {
		t.Fatal("expected error for unparseable backup interval")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{ServerURL: "http://localhost", APIKey: "k"}, false},
		{"missing url", Config{APIKey: "k"}, true},
		{"bad scheme", Config{ServerURL: "grocy.local", APIKey: "k"}, true},
		{"missing key", Config{ServerURL: "http://localhost"}, true},
	}
	for _, tt := range tests {
		err := tt.cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}
