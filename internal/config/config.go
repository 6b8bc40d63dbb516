package config

import "time"

// ServiceConfig is the root configuration for a stockfeed instance.
type ServiceConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Feed      FeedConfig      `yaml:"feed"`
	Push      PushConfig      `yaml:"push"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Storage   StorageConfig   `yaml:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds the HTTP/WebSocket listener settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

// FeedConfig holds price feed generator settings.
type FeedConfig struct {
	Symbols      []string      `yaml:"symbols"`       // Instrument universe, fixed at startup
	TickInterval time.Duration `yaml:"tick_interval"` // Price regeneration period
	SeedMin      float64       `yaml:"seed_min"`      // Lower bound of the startup seed range
	SeedMax      float64       `yaml:"seed_max"`      // Upper bound of the startup seed range
	MaxMovePct   float64       `yaml:"max_move_pct"`  // Symmetric per-tick move band (1.0 = ±1%)
}

// PushConfig holds push-channel (WebSocket) settings.
type PushConfig struct {
	ReadLimit    int64         `yaml:"read_limit"`    // Max inbound frame size in bytes
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // Read deadline, refreshed on pong
	WriteTimeout time.Duration `yaml:"write_timeout"` // Write deadline per frame
	PingInterval time.Duration `yaml:"ping_interval"` // Keepalive ping period
	SendBuffer   int           `yaml:"send_buffer"`   // Initial per-connection outbound queue capacity
}

// BroadcastConfig holds broadcast engine settings.
type BroadcastConfig struct {
	FanoutConcurrency int `yaml:"fanout_concurrency"` // Max users built/delivered in parallel per tick
}

// StorageConfig selects and configures the directory snapshot backend.
type StorageConfig struct {
	Backend  string         `yaml:"backend"` // "file" or "postgres"
	File     FileConfig     `yaml:"file"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// FileConfig holds the flat-file snapshot backend settings.
type FileConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds the Postgres snapshot backend connection.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Path string `yaml:"path"`
}
