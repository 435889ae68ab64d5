package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yaml := `
server:
  port: 9090
  auth_token: "secret"
  allowed_origins:
    - "http://tauri.localhost"
sync:
  advertise_host: "192.168.1.20"
  qr_size: 512
database:
  path: "/tmp/dedale.db"
log:
  format: json
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.AuthToken != "secret" {
		t.Errorf("Server.AuthToken = %q, want %q", cfg.Server.AuthToken, "secret")
	}
	if len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("Server.AllowedOrigins = %v, want one entry", cfg.Server.AllowedOrigins)
	}
	if cfg.Sync.AdvertiseHost != "192.168.1.20" {
		t.Errorf("Sync.AdvertiseHost = %q, want %q", cfg.Sync.AdvertiseHost, "192.168.1.20")
	}
	if cfg.Sync.QRSize != 512 {
		t.Errorf("Sync.QRSize = %d, want 512", cfg.Sync.QRSize)
	}
	if cfg.Database.Path != "/tmp/dedale.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/dedale.db")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}

	// Defaults should still be applied for unspecified fields.
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want default 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Sync.WriteTimeout != 10*time.Second {
		t.Errorf("Sync.WriteTimeout = %v, want 10s", cfg.Sync.WriteTimeout)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Load() on missing file should return error")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Sync.QRSize != MinQRSize {
		t.Errorf("Sync.QRSize = %d, want default %d", cfg.Sync.QRSize, MinQRSize)
	}
	if cfg.Addr() != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8080", cfg.Addr())
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte(":::not valid yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(cfgPath)
	if err == nil {
		t.Fatal("Load() with invalid YAML should return error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"small qr", func(c *Config) { c.Sync.QRSize = 128 }, true},
		{"zero queue", func(c *Config) { c.Sync.EventQueue = 0 }, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"no db path", func(c *Config) { c.Database.Path = "" }, true},
	}

	for _, tt := range tests {
		cfg := defaultConfig()
		tt.mutate(cfg)
		err := cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}
	b, _ := GenerateToken()
	if len(a) != 48 {
		t.Errorf("len(token) = %d, want 48", len(a))
	}
	if a == b {
		t.Error("two tokens should differ")
	}
}
