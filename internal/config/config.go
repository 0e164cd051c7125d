package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/washdeck/backend/internal/model"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Feed    FeedConfig    `yaml:"feed"`
	Sources SourcesConfig `yaml:"sources"`
	Refresh RefreshConfig `yaml:"refresh"`
	Diag    DiagConfig    `yaml:"diag"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// SnapshotInterval is how often the relay pushes a full snapshot to
	// connected websocket clients, correcting any drift from missed deltas.
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

// FeedConfig describes the upstream live-update feed. An empty Endpoint
// disables the feed entirely: the process runs in polling-only mode and
// the connection manager is never started.
type FeedConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	ReconnectBase  time.Duration `yaml:"reconnect_base"`
	ReconnectMax   time.Duration `yaml:"reconnect_max"`
	MaxAttempts    int           `yaml:"max_attempts"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// SourcesConfig holds the ordered candidate locations per dataset kind.
// Candidates are tried strictly in list order; entries may be http(s)
// URLs or local file paths.
type SourcesConfig struct {
	ProbeTimeout    time.Duration `yaml:"probe_timeout"`
	MaxPayloadBytes int64         `yaml:"max_payload_bytes"`

	Washrooms []string `yaml:"washrooms"`
	Crew      []string `yaml:"crew"`
	Tasks     []string `yaml:"tasks"`
	Scores    []string `yaml:"scores"`
	Flights   []string `yaml:"flights"`
}

// Candidates returns the configured candidate list for the given kind.
func (s SourcesConfig) Candidates(kind model.Kind) []string {
	switch kind {
	case model.KindWashrooms:
		return s.Washrooms
	case model.KindCrew:
		return s.Crew
	case model.KindTasks:
		return s.Tasks
	case model.KindScores:
		return s.Scores
	case model.KindFlights:
		return s.Flights
	}
	return nil
}

// LocalPaths returns every configured candidate that is a filesystem
// path rather than a URL, across all kinds. Used by the file watcher.
func (s SourcesConfig) LocalPaths() []string {
	var paths []string
	for _, kind := range model.Kinds() {
		for _, cand := range s.Candidates(kind) {
			if !isURL(cand) {
				paths = append(paths, cand)
			}
		}
	}
	return paths
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

type RefreshConfig struct {
	// Interval between automatic full reloads. Zero disables periodic
	// refresh; explicit refreshes still work.
	Interval time.Duration `yaml:"interval"`

	// Watch enables reloading when a local candidate file changes.
	Watch bool `yaml:"watch"`
}

type DiagConfig struct {
	SampleInterval time.Duration `yaml:"sample_interval"`
}

// Load reads the config file at path over built-in defaults. A missing
// file is not an error: the defaults describe a self-contained process
// (no feed endpoint, no candidate sources) that serves synthetic data.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8090,
			SnapshotInterval: 30 * time.Second,
		},
		Feed: FeedConfig{
			PingInterval:   30 * time.Second,
			ReconnectBase:  time.Second,
			ReconnectMax:   30 * time.Second,
			MaxAttempts:    5,
			ConnectTimeout: 10 * time.Second,
		},
		Sources: SourcesConfig{
			ProbeTimeout:    5 * time.Second,
			MaxPayloadBytes: 8 << 20,
		},
		Refresh: RefreshConfig{
			Interval: 5 * time.Minute,
			Watch:    true,
		},
		Diag: DiagConfig{
			SampleInterval: time.Minute,
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[config] %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Feed.PingInterval <= 0 {
		return fmt.Errorf("feed.ping_interval must be positive, got %v", c.Feed.PingInterval)
	}
	if c.Feed.ReconnectBase <= 0 {
		return fmt.Errorf("feed.reconnect_base must be positive, got %v", c.Feed.ReconnectBase)
	}
	if c.Feed.ReconnectMax < c.Feed.ReconnectBase {
		return fmt.Errorf("feed.reconnect_max %v below reconnect_base %v", c.Feed.ReconnectMax, c.Feed.ReconnectBase)
	}
	if c.Feed.MaxAttempts < 1 {
		return fmt.Errorf("feed.max_attempts must be at least 1, got %d", c.Feed.MaxAttempts)
	}
	if c.Sources.ProbeTimeout <= 0 {
		return fmt.Errorf("sources.probe_timeout must be positive, got %v", c.Sources.ProbeTimeout)
	}
	if c.Sources.MaxPayloadBytes <= 0 {
		return fmt.Errorf("sources.max_payload_bytes must be positive, got %d", c.Sources.MaxPayloadBytes)
	}
	return nil
}
