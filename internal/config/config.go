package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Feed      FeedConfig      `yaml:"feed"`
	Client    ClientConfig    `yaml:"client"`
	Stream    StreamConfig    `yaml:"stream"`
	World     WorldConfig     `yaml:"world"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Port           int    `yaml:"port"`
	Host           string `yaml:"host"`
	AllowedOrigin  string `yaml:"allowed_origin"`
	MaxConnections int    `yaml:"max_connections"`
}

// FeedConfig tunes the click broadcast side of the feed server.
type FeedConfig struct {
	ClickInterval     time.Duration `yaml:"click_interval"`
	LimiterMaxEntries int           `yaml:"limiter_max_entries"`
	LimiterCleanup    time.Duration `yaml:"limiter_cleanup"`
	SendBuffer        int           `yaml:"send_buffer"`
	WriteWait         time.Duration `yaml:"write_wait"`
	PongWait          time.Duration `yaml:"pong_wait"`
	PingPeriod        time.Duration `yaml:"ping_period"`
	MockInterval      time.Duration `yaml:"mock_interval"`
	WorksFile         string        `yaml:"works_file"`
	CountsFile        string        `yaml:"counts_file"`
	SaveInterval      time.Duration `yaml:"save_interval"`
}

type ClientConfig struct {
	BaseURL    string `yaml:"base_url"`
	StreamPath string `yaml:"stream_path"`
	LogFile    string `yaml:"log_file"`
}

// StreamConfig holds the reconnect back-off of the live event feed.
type StreamConfig struct {
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay"`
	MaxRetry  int           `yaml:"max_retry"`
}

// MinZoom keeps the visible world inside the physics broad phase, which
// spans 128 units. At zoom 4 that fits terminals up to 500 columns.
const MinZoom = 4.0

type WorldConfig struct {
	MaxBoxes          int           `yaml:"max_boxes"`
	Gravity           float64       `yaml:"gravity"`
	Timestep          time.Duration `yaml:"timestep"`
	MaxSubsteps       int           `yaml:"max_substeps"`
	AutoSpawnCount    int           `yaml:"auto_spawn_count"`
	AutoSpawnInterval time.Duration `yaml:"auto_spawn_interval"`
	FloorOffset       float64       `yaml:"floor_offset"`
	RampSize          float64       `yaml:"ramp_size"`
	Zoom              float64       `yaml:"zoom"`
	FrameRate         int           `yaml:"frame_rate"`
}

type TelemetryConfig struct {
	Interval time.Duration `yaml:"interval"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 4000,
			Host: "0.0.0.0",
		},
		Feed: FeedConfig{
			ClickInterval:     2 * time.Second,
			LimiterMaxEntries: 10000,
			LimiterCleanup:    time.Minute,
			SendBuffer:        32,
			WriteWait:         2 * time.Second,
			PongWait:          60 * time.Second,
			PingPeriod:        50 * time.Second,
			MockInterval:      4 * time.Second,
			WorksFile:         "works.yaml",
			CountsFile:        "click-counts.json",
			SaveInterval:      30 * time.Second,
		},
		Client: ClientConfig{
			BaseURL:    "http://127.0.0.1:4000",
			StreamPath: "/api/ws",
			LogFile:    "live-world.log",
		},
		Stream: StreamConfig{
			BaseDelay: 500 * time.Millisecond,
			MaxDelay:  10 * time.Second,
			MaxRetry:  6,
		},
		World: WorldConfig{
			MaxBoxes:          30,
			Gravity:           -4.9,
			Timestep:          time.Second / 60,
			MaxSubsteps:       5,
			AutoSpawnCount:    5,
			AutoSpawnInterval: 3 * time.Second,
			FloorOffset:       2,
			RampSize:          8,
			Zoom:              8,
			FrameRate:         30,
		},
		Telemetry: TelemetryConfig{
			Interval: 2 * time.Second,
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
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but returns the defaults when path does
// not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

// Validate rejects values the world and the feed cannot run with.
func (c *Config) Validate() error {
	if c.World.MaxBoxes <= 0 {
		return fmt.Errorf("world.max_boxes must be positive, got %d", c.World.MaxBoxes)
	}
	if c.World.Timestep <= 0 {
		return fmt.Errorf("world.timestep must be positive, got %v", c.World.Timestep)
	}
	if c.World.MaxSubsteps <= 0 {
		return fmt.Errorf("world.max_substeps must be positive, got %d", c.World.MaxSubsteps)
	}
	if c.World.Zoom < MinZoom {
		return fmt.Errorf("world.zoom must be at least %v, got %v", MinZoom, c.World.Zoom)
	}
	if c.World.FrameRate <= 0 {
		return fmt.Errorf("world.frame_rate must be positive, got %d", c.World.FrameRate)
	}
	if c.Stream.BaseDelay <= 0 || c.Stream.MaxDelay < c.Stream.BaseDelay {
		return fmt.Errorf("stream delays invalid: base %v, max %v", c.Stream.BaseDelay, c.Stream.MaxDelay)
	}
	if c.Stream.MaxRetry < 0 {
		return fmt.Errorf("stream.max_retry must not be negative, got %d", c.Stream.MaxRetry)
	}
	if c.Feed.SendBuffer <= 0 {
		return fmt.Errorf("feed.send_buffer must be positive, got %d", c.Feed.SendBuffer)
	}
	return nil
}

// Addr returns the host:port the feed server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
