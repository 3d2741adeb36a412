package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// MinTokenSecretLength matches what the token service accepts.
const MinTokenSecretLength = 16

// Validate checks the loaded configuration. Load calls it automatically.
func (c *Config) Validate() error {
	switch c.Storage.Engine {
	case EngineSQLite, EnginePebble:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("storage.path is required for the %s engine", c.Storage.Engine)
		}
	case EngineMemory:
	default:
		return fmt.Errorf("storage.engine must be sqlite, pebble or memory (got %q)", c.Storage.Engine)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535 (got %d)", c.Server.Port)
	}

	if c.Search.Fuzzy < 0 || c.Search.Fuzzy >= 1 {
		return fmt.Errorf("search.fuzzy must be in [0, 1) (got %v)", c.Search.Fuzzy)
	}

	if c.Auth.Enabled() && len(c.Auth.TokenSecret) < MinTokenSecretLength {
		return fmt.Errorf("auth.token_secret must be at least %d characters (got %d)",
			MinTokenSecretLength, len(c.Auth.TokenSecret))
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be > 0 (got %s)", c.Auth.TokenTTL)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json (got %q)", c.Log.Format)
	}

	return nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
