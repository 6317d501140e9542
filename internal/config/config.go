package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Detect  DetectConfig  `yaml:"detect"`
	Discord DiscordConfig `yaml:"discord"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DetectConfig struct {
	RequiredCount int           `yaml:"required_count"`
	Window        time.Duration `yaml:"window"`
	TrackedClass  string        `yaml:"tracked_class"`
	LogCapacity   int           `yaml:"log_capacity"`
}

type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Enabled    bool   `yaml:"enabled"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 5000,
			Host: "0.0.0.0",
		},
		Detect: DetectConfig{
			RequiredCount: 10,
			Window:        10 * time.Second,
			TrackedClass:  "person",
			LogCapacity:   1000,
		},
		Discord: DiscordConfig{
			Enabled: true,
		},
	}
}

// Load reads a yaml config file over the defaults. A missing file is
// not an error: the defaults are returned so the server runs with no
// config at all. The DISCORD_WEBHOOK_URL environment variable always
// wins over the file value.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// fall through to defaults
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if url := os.Getenv("DISCORD_WEBHOOK_URL"); url != "" {
		cfg.Discord.WebhookURL = url
	}

	return cfg, nil
}
