// Package config loads server configuration from a TOML file with
// environment-variable overrides for deployment secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds the full server configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Cache    CacheConfig    `toml:"cache"`
	OCR      OCRConfig      `toml:"ocr"`
	Media    MediaConfig    `toml:"media"`
	Telegram TelegramConfig `toml:"telegram"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type AuthConfig struct {
	JWTSecret     string `toml:"jwt_secret"`
	TokenTTLHours int    `toml:"token_ttl_hours"`
}

type CacheConfig struct {
	TTLSeconds int `toml:"ttl_seconds"`
	MaxEntries int `toml:"max_entries"`
}

type OCRConfig struct {
	Endpoint string `toml:"endpoint"`
	APIKey   string `toml:"api_key"`
}

type MediaConfig struct {
	Dir     string `toml:"dir"`
	BaseURL string `toml:"base_url"`
}

type TelegramConfig struct {
	BotToken string `toml:"bot_token"`
	ChatID   int64  `toml:"chat_id"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{Path: "data/triptab.db"},
		Auth:     AuthConfig{TokenTTLHours: 72},
		Cache:    CacheConfig{TTLSeconds: 300, MaxEntries: 1024},
		Media:    MediaConfig{Dir: "data/media", BaseURL: "/media"},
	}
}

// Load reads path if it exists, applies environment overrides, and
// validates the result. A missing file is not an error; a malformed
// one is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets deployments inject secrets without writing them to disk.
func (c *Config) applyEnv() {
	setString(&c.Server.Host, "TRIPTAB_HOST")
	setInt(&c.Server.Port, "TRIPTAB_PORT")
	setString(&c.Database.Path, "TRIPTAB_DB_PATH")
	setString(&c.Auth.JWTSecret, "TRIPTAB_JWT_SECRET")
	setString(&c.OCR.Endpoint, "TRIPTAB_OCR_ENDPOINT")
	setString(&c.OCR.APIKey, "TRIPTAB_OCR_API_KEY")
	setString(&c.Media.Dir, "TRIPTAB_MEDIA_DIR")
	setString(&c.Telegram.BotToken, "TRIPTAB_TELEGRAM_TOKEN")
	if v := os.Getenv("TRIPTAB_TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache.ttl_seconds must be positive, got %d", c.Cache.TTLSeconds)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
