package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *ServiceConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level must be one of debug, info, warn, error, got %q", c.Server.LogLevel)
	}

	if len(c.Feed.Symbols) == 0 {
		return errors.New("feed.symbols must not be empty")
	}
	seen := make(map[string]struct{}, len(c.Feed.Symbols))
	for _, sym := range c.Feed.Symbols {
		if sym == "" {
			return errors.New("feed.symbols must not contain empty symbols")
		}
		if _, dup := seen[sym]; dup {
			return fmt.Errorf("feed.symbols contains duplicate symbol %q", sym)
		}
		seen[sym] = struct{}{}
	}
	if c.Feed.TickInterval <= 0 {
		return errors.New("feed.tick_interval must be positive")
	}
	if c.Feed.SeedMin <= 0 {
		return errors.New("feed.seed_min must be positive")
	}
	if c.Feed.SeedMax <= c.Feed.SeedMin {
		return fmt.Errorf("feed.seed_max (%v) must exceed feed.seed_min (%v)", c.Feed.SeedMax, c.Feed.SeedMin)
	}
	if c.Feed.MaxMovePct <= 0 || c.Feed.MaxMovePct >= 100 {
		return fmt.Errorf("feed.max_move_pct must be in (0, 100), got %v", c.Feed.MaxMovePct)
	}

	if c.Push.SendBuffer < 1 {
		return errors.New("push.send_buffer must be >= 1")
	}

	if c.Broadcast.FanoutConcurrency < 1 {
		return errors.New("broadcast.fanout_concurrency must be >= 1")
	}

	switch c.Storage.Backend {
	case "file":
		if c.Storage.File.Path == "" {
			return errors.New("storage.file.path is required")
		}
	case "postgres":
		if err := c.Storage.Postgres.validate("storage.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("storage.backend must be \"file\" or \"postgres\", got %q", c.Storage.Backend)
	}

	return nil
}

func (db *PostgresConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
