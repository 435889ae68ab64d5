package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MinQRSize is the smallest QR image edge, in pixels, a phone camera reads
// reliably from a laptop screen.
const MinQRSize = 256

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Sync     SyncConfig     `yaml:"sync"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AuthToken      string   `yaml:"auth_token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type SyncConfig struct {
	// AdvertiseHost overrides the LAN address put in the QR code.
	AdvertiseHost string        `yaml:"advertise_host"`
	QRSize        int           `yaml:"qr_size"`
	EventQueue    int           `yaml:"event_queue"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	ReadLimit     int64         `yaml:"read_limit"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
		Sync: SyncConfig{
			QRSize:       MinQRSize,
			EventQueue:   32,
			WriteTimeout: 10 * time.Second,
			ReadLimit:    64 << 20,
		},
		Database: DatabaseConfig{
			Path: "dedale.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Sync.QRSize < MinQRSize {
		return fmt.Errorf("sync.qr_size %d below minimum %d", c.Sync.QRSize, MinQRSize)
	}
	if c.Sync.EventQueue < 1 {
		return fmt.Errorf("sync.event_queue must be positive, got %d", c.Sync.EventQueue)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	return nil
}

// Addr is the control API listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GenerateToken returns a random hex token suitable for server.auth_token.
func GenerateToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
