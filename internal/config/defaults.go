package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultPort     = 5000
	DefaultLogLevel = "info"

	DefaultTickInterval = 1 * time.Second
	DefaultSeedMin      = 50.0
	DefaultSeedMax      = 350.0
	DefaultMaxMovePct   = 1.0

	DefaultReadLimit    = 512
	DefaultReadTimeout  = 60 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultPingInterval = 30 * time.Second
	DefaultSendBuffer   = 256

	DefaultFanoutConcurrency = 8

	DefaultStorageBackend = "file"
	DefaultSnapshotPath   = "user_data.json"
	DefaultDBPort         = 5432
	DefaultDBSSLMode      = "prefer"
	DefaultMaxConns       = 10
	DefaultMinConns       = 2

	DefaultMetricsPath = "/metrics"
)

// DefaultSymbols is the instrument universe used when none is configured.
var DefaultSymbols = []string{"GOOG", "TSLA", "AMZN", "META", "NVDA"}

func (c *ServiceConfig) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = DefaultLogLevel
	}

	// Feed defaults
	if len(c.Feed.Symbols) == 0 {
		c.Feed.Symbols = append([]string(nil), DefaultSymbols...)
	}
	if c.Feed.TickInterval == 0 {
		c.Feed.TickInterval = DefaultTickInterval
	}
	if c.Feed.SeedMin == 0 {
		c.Feed.SeedMin = DefaultSeedMin
	}
	if c.Feed.SeedMax == 0 {
		c.Feed.SeedMax = DefaultSeedMax
	}
	if c.Feed.MaxMovePct == 0 {
		c.Feed.MaxMovePct = DefaultMaxMovePct
	}

	// Push defaults
	if c.Push.ReadLimit == 0 {
		c.Push.ReadLimit = DefaultReadLimit
	}
	if c.Push.ReadTimeout == 0 {
		c.Push.ReadTimeout = DefaultReadTimeout
	}
	if c.Push.WriteTimeout == 0 {
		c.Push.WriteTimeout = DefaultWriteTimeout
	}
	if c.Push.PingInterval == 0 {
		c.Push.PingInterval = DefaultPingInterval
	}
	if c.Push.SendBuffer == 0 {
		c.Push.SendBuffer = DefaultSendBuffer
	}

	// Broadcast defaults
	if c.Broadcast.FanoutConcurrency == 0 {
		c.Broadcast.FanoutConcurrency = DefaultFanoutConcurrency
	}

	// Storage defaults
	if c.Storage.Backend == "" {
		c.Storage.Backend = DefaultStorageBackend
	}
	if c.Storage.File.Path == "" {
		c.Storage.File.Path = DefaultSnapshotPath
	}
	if c.Storage.Postgres.Port == 0 {
		c.Storage.Postgres.Port = DefaultDBPort
	}
	if c.Storage.Postgres.SSLMode == "" {
		c.Storage.Postgres.SSLMode = DefaultDBSSLMode
	}
	if c.Storage.Postgres.MaxConns == 0 {
		c.Storage.Postgres.MaxConns = DefaultMaxConns
	}
	if c.Storage.Postgres.MinConns == 0 {
		c.Storage.Postgres.MinConns = DefaultMinConns
	}

	// Metrics defaults
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
