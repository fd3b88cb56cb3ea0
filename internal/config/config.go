package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Crawler probe window bounds.
const (
	MinProbeBytes = 256 * 1024
	MaxProbeBytes = 64 * 1024 * 1024
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Preview PreviewConfig `yaml:"preview"`
	FFmpeg  FFmpegConfig  `yaml:"ffmpeg"`
	Worker  WorkerConfig  `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"4000"`
	BaseURL      string        `yaml:"base_url" envconfig:"PUBLIC_BASE_URL"`
	ForceHTTPS   bool          `yaml:"force_https" envconfig:"FORCE_HTTPS" default:"false"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"0s"` // 0 = unlimited, files can be large
	RateLimit    int           `yaml:"rate_limit_per_minute" envconfig:"RATE_LIMIT_PER_MINUTE" default:"600"`
}

// PreviewConfig controls link-preview behaviour.
type PreviewConfig struct {
	CrawlerProbeMB float64  `yaml:"crawler_probe_mb" envconfig:"CRAWLER_PROBE_CHUNK_MB" default:"2"`
	CrawlerAgents  []string `yaml:"crawler_user_agents" envconfig:"CRAWLER_USER_AGENTS" default:"Discordbot,facebookexternalhit,Slackbot,Twitterbot"`
	PlayerWidth    int      `yaml:"player_width" envconfig:"PLAYER_WIDTH" default:"1280"`
	PlayerHeight   int      `yaml:"player_height" envconfig:"PLAYER_HEIGHT" default:"720"`
	ProviderName   string   `yaml:"provider_name" envconfig:"PROVIDER_NAME" default:"clipserve"`
	FrameAncestors []string `yaml:"frame_ancestors" envconfig:"FRAME_ANCESTORS" default:"https://discord.com,https://twitter.com,https://x.com,https://facebook.com"`
}

// FFmpegConfig holds encoder binary and tuning configuration.
type FFmpegConfig struct {
	FFmpegPath   string        `yaml:"ffmpeg_path" envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	FFprobePath  string        `yaml:"ffprobe_path" envconfig:"FFPROBE_PATH" default:"ffprobe"`
	UseNVENC     bool          `yaml:"use_nvenc" envconfig:"FFMPEG_USE_NVENC" default:"false"`
	NVPreset     string        `yaml:"nv_preset" envconfig:"FFMPEG_NV_PRESET" default:"fast"`
	NVDevice     string        `yaml:"nv_device" envconfig:"FFMPEG_NV_DEVICE"`
	Niceness     int           `yaml:"niceness" envconfig:"FFMPEG_NICENESS" default:"10"`
	ProbeTimeout time.Duration `yaml:"probe_timeout" envconfig:"FFPROBE_TIMEOUT" default:"15s"`
}

// WorkerConfig holds transcode worker pool configuration.
type WorkerConfig struct {
	Count            int           `yaml:"count" envconfig:"WORKER_COUNT" default:"1"`
	PollInterval     time.Duration `yaml:"poll_interval" envconfig:"WORKER_POLL_INTERVAL" default:"2s"`
	MaxRetries       int           `yaml:"max_retries" envconfig:"WORKER_MAX_RETRIES" default:"0"`
	TranscodeTimeout time.Duration `yaml:"transcode_timeout" envconfig:"TRANSCODE_TIMEOUT" default:"30m"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if strings.TrimSpace(cfg.Server.BaseURL) == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	cfg.Server.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Server.BaseURL), "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT out of range: %d", c.Server.Port)
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("PUBLIC_BASE_URL must be an absolute http(s) URL, got %q", c.Server.BaseURL)
	}
	if c.Preview.PlayerWidth <= 0 || c.Preview.PlayerHeight <= 0 {
		return fmt.Errorf("player dimensions must be positive")
	}
	if c.FFmpeg.FFmpegPath == "" || c.FFmpeg.FFprobePath == "" {
		return fmt.Errorf("FFMPEG_PATH and FFPROBE_PATH are required")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ProbeBytes returns the crawler probe window size, clamped to
// [MinProbeBytes, MaxProbeBytes]. Non-positive values fall back to 2 MiB.
func (c *PreviewConfig) ProbeBytes() int64 {
	mb := c.CrawlerProbeMB
	if mb <= 0 {
		mb = 2
	}
	n := int64(mb * 1024 * 1024)
	if n < MinProbeBytes {
		return MinProbeBytes
	}
	if n > MaxProbeBytes {
		return MaxProbeBytes
	}
	return n
}

// EffectiveForceHTTPS only honours FORCE_HTTPS when the public base URL is itself https.
func (c *ServerConfig) EffectiveForceHTTPS() bool {
	return c.ForceHTTPS && strings.HasPrefix(c.BaseURL, "https://")
}
