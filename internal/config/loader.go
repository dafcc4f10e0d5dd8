package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"github.com/tailscale/hujson"
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)

// Load reads a JSONC config file, expands ${{ .Env.VAR }} templates,
// unmarshals it into Config, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Templates live inside string literals, so expand before standardizing.
	expanded := expandEnvTemplates(string(data))

	std, err := hujson.Standardize([]byte(expanded))
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Default returns a config with every default applied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// expandEnvTemplates replaces ${{ .Env.VAR }} with the env var value.
func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

// applyDefaults fills in zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = "127.0.0.1"
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 18430
	}
	if cfg.Events.BufferSize == 0 {
		cfg.Events.BufferSize = 1024
	}

	if len(cfg.Models.Providers) == 0 {
		cfg.Models.Providers = map[string]ProviderConfig{
			"vision": {Driver: "ollama", Model: "llava"},
		}
		if cfg.Models.Default == "" {
			cfg.Models.Default = "vision"
		}
	}

	applyCaptureDefaults(&cfg.Capture)

	if len(cfg.Policy.Lenient) == 0 {
		cfg.Policy.Lenient = []string{"happy", "surprised"}
	}
	if cfg.Policy.LenientThreshold == 0 {
		cfg.Policy.LenientThreshold = 0.3
	}
	if cfg.Policy.StrictThreshold == 0 {
		cfg.Policy.StrictThreshold = 0.6
	}
	if cfg.Policy.Default == "" {
		cfg.Policy.Default = "neutral"
	}

	if cfg.YouTube.MaxResults == 0 {
		cfg.YouTube.MaxResults = 24
	}
	if cfg.YouTube.Timeout == 0 {
		cfg.YouTube.Timeout = Duration(10 * time.Second)
	}

	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(MoodstreamPath(), "history.db")
	}
	if cfg.History.Retention == 0 {
		cfg.History.Retention = Duration(30 * 24 * time.Hour)
	}
	if cfg.History.PruneSchedule == "" {
		cfg.History.PruneSchedule = "@daily"
	}
}

func applyCaptureDefaults(c *CaptureConfig) {
	if c.Device == "" {
		c.Device = "ffmpeg"
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.Format == "" || c.Input == "" {
		format, input := platformCamera()
		if c.Format == "" {
			c.Format = format
		}
		if c.Input == "" && c.Device == "ffmpeg" {
			c.Input = input
		}
	}
	if len(c.Profiles) == 0 {
		c.Profiles = []ProfileConfig{
			{Name: "hd", Width: 1280, Height: 720},
			{Name: "sd", Width: 640, Height: 480},
			{Name: "low", Width: 320, Height: 240},
		}
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.DisplayDelay == 0 {
		c.DisplayDelay = Duration(1500 * time.Millisecond)
	}
}

// platformCamera returns the ffmpeg input format and default device for the OS.
func platformCamera() (format, input string) {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation", "0"
	case "windows":
		return "dshow", "video=Integrated Camera"
	default:
		return "v4l2", "/dev/video0"
	}
}
