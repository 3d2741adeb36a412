// Package config loads snippetbase settings from a YAML file and the
// environment.
package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	App     AppConfig     `yaml:"app"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Search  SearchConfig  `yaml:"search"`
	Auth    AuthConfig    `yaml:"auth"`
	Log     LogConfig     `yaml:"log"`
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	Env string `yaml:"env" env:"SNIPPETBASE_ENV" env-default:"production"`
}

// IsDevelopment reports whether swallowed storage errors should be logged.
func (a AppConfig) IsDevelopment() bool { return a.Env == "development" }

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"127.0.0.1"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// Storage engines.
const (
	EngineSQLite = "sqlite"
	EnginePebble = "pebble"
	EngineMemory = "memory"
)

// StorageConfig selects the durable engine and the legacy import directory.
// For sqlite Path is the database file; for pebble it is a directory.
type StorageConfig struct {
	Engine    string `yaml:"engine"     env:"STORAGE_ENGINE"     env-default:"sqlite"`
	Path      string `yaml:"path"       env:"STORAGE_PATH"       env-default:"data/snippetbase.db"`
	LegacyDir string `yaml:"legacy_dir" env:"STORAGE_LEGACY_DIR" env-default:"data/legacy"`
}

// SearchConfig tunes the search index. An empty Synonyms map keeps the
// built-in table.
type SearchConfig struct {
	Synonyms map[string]string `yaml:"synonyms" env:"SEARCH_SYNONYMS"`
	Fuzzy    float64           `yaml:"fuzzy"    env:"SEARCH_FUZZY"    env-default:"0.2"`
}

// AuthConfig holds the local API token settings. With no secret, mutating
// endpoints are open.
type AuthConfig struct {
	TokenSecret string        `yaml:"token_secret" env:"AUTH_TOKEN_SECRET"`
	TokenTTL    time.Duration `yaml:"token_ttl"    env:"AUTH_TOKEN_TTL"    env-default:"720h"`
}

// Enabled reports whether mutating endpoints require a token.
func (a AuthConfig) Enabled() bool { return a.TokenSecret != "" }

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}
