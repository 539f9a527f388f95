// Package config loads and validates gocast's YAML configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds bind address, ports, source password, and mount path.
type ServerConfig struct {
	Host           string `yaml:"host"`
	SourcePort     int    `yaml:"source_port"`
	ListenPort     int    `yaml:"listen_port"`
	SourcePassword string `yaml:"source_password"`
	MountPoint     string `yaml:"mount_point"`
}

// BufferConfig holds the ring buffer's fixed capacity.
type BufferConfig struct {
	SizeMB int `yaml:"size_mb"`
}

// PlaylistConfig holds the fallback playlist feeder's settings.
type PlaylistConfig struct {
	Directory  string   `yaml:"directory"`
	Shuffle    bool     `yaml:"shuffle"`
	Extensions []string `yaml:"extensions"`
}

// BroadcasterConfig holds the fan-out worker's chunk size.
type BroadcasterConfig struct {
	ChunkSize int `yaml:"chunk_size"`
}

// MetadataConfig holds the station's ICY-facing identity.
type MetadataConfig struct {
	StationName        string `yaml:"station_name"`
	StationDescription string `yaml:"station_description"`
	StationGenre        string `yaml:"station_genre"`
	StationURL          string `yaml:"station_url"`
	EnableICY           bool   `yaml:"enable_icy"`
	ICYMetaInt          int    `yaml:"icy_metaint"`
}

// AdvancedConfig holds operational knobs that don't fit elsewhere.
type AdvancedConfig struct {
	MaxListeners    int     `yaml:"max_listeners"`
	SourceTimeout   float64 `yaml:"source_timeout"`
	VerboseLogging  bool    `yaml:"verbose_logging"`
	EnableStats     bool    `yaml:"enable_stats"`
	GeoIPDatabase   string  `yaml:"geoip_database"`
}

// LoggingConfig controls the ambient zerolog setup.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Config is the top-level configuration document.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Buffer      BufferConfig      `yaml:"buffer"`
	Playlist    PlaylistConfig    `yaml:"playlist"`
	Broadcaster BroadcasterConfig `yaml:"broadcaster"`
	Metadata    MetadataConfig    `yaml:"metadata"`
	Advanced    AdvancedConfig    `yaml:"advanced"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// Default returns the built-in configuration used when no file is given,
// mirroring the original system's documented defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			SourcePort:     8000,
			ListenPort:     8001,
			SourcePassword: "hackme",
			MountPoint:     "/stream",
		},
		Buffer: BufferConfig{SizeMB: 20},
		Playlist: PlaylistConfig{
			Directory:  "./music",
			Shuffle:    true,
			Extensions: []string{".mp3", ".ogg"},
		},
		Broadcaster: BroadcasterConfig{ChunkSize: 16384},
		Metadata: MetadataConfig{
			StationName:        "Cycast Radio",
			StationDescription: "High-performance internet radio",
			StationGenre:        "Various",
			StationURL:          "http://localhost:8001",
			EnableICY:           true,
			ICYMetaInt:          16000,
		},
		Advanced: AdvancedConfig{
			MaxListeners:   0,
			SourceTimeout:  10.0,
			VerboseLogging: false,
			EnableStats:    true,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

// Load reads and parses a YAML configuration file at path, deep-merging it
// over Default(). A missing path is not an error: Default() is returned
// unchanged, matching the original system's "config file optional" stance.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate enforces the ConfigError rules: invalid ports, password, or
// buffer bounds abort startup before any socket is opened.
func (c *Config) Validate() error {
	if c.Server.SourcePassword == "" {
		return fmt.Errorf("server.source_password is required")
	}
	if c.Server.SourcePort < 1 || c.Server.SourcePort > 65535 {
		return fmt.Errorf("invalid server.source_port: %d", c.Server.SourcePort)
	}
	if c.Server.ListenPort < 1 || c.Server.ListenPort > 65535 {
		return fmt.Errorf("invalid server.listen_port: %d", c.Server.ListenPort)
	}
	if c.Server.SourcePort == c.Server.ListenPort {
		return fmt.Errorf("server.source_port and server.listen_port must differ")
	}
	if c.Buffer.SizeMB < 1 || c.Buffer.SizeMB > 1000 {
		return fmt.Errorf("buffer.size_mb must be between 1 and 1000, got %d", c.Buffer.SizeMB)
	}
	if c.Broadcaster.ChunkSize <= 0 {
		return fmt.Errorf("broadcaster.chunk_size must be positive")
	}
	if c.Advanced.MaxListeners < 0 {
		return fmt.Errorf("advanced.max_listeners must be >= 0")
	}
	return nil
}

// BufferBytes returns the ring buffer capacity in bytes.
func (c *Config) BufferBytes() int {
	return c.Buffer.SizeMB * 1024 * 1024
}
