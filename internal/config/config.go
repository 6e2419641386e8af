package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var defaultRelays = []string{"wss://relay.damus.io", "wss://nos.lol"}

// Config holds runtime settings for the deck.
type Config struct {
	DBPath       string        `mapstructure:"db_path"`
	Relays       []string      `mapstructure:"relays"`
	LogPath      string        `mapstructure:"log_path"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// Load reads configuration from file and env. Env var overrides use prefix DECK_.
func Load() (Config, error) {
	v := viper.New()

	dataDir := filepath.Join(os.Getenv("HOME"), ".local", "share", "deck")
	v.SetDefault("db_path", filepath.Join(dataDir, "deck.db"))
	v.SetDefault("relays", defaultRelays)
	v.SetDefault("log_path", filepath.Join(dataDir, "deck.log"))
	v.SetDefault("poll_interval", "250ms")

	v.SetConfigType("toml")
	cfgPath := os.Getenv("DECK_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "deck"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("DECK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit DECK_CONFIG must exist; the default location is optional.
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Relays = normalizeRelays(c.Relays)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if len(c.Relays) == 0 {
		return errors.New("at least one relay is required")
	}
	for _, r := range c.Relays {
		if !strings.HasPrefix(r, "ws://") && !strings.HasPrefix(r, "wss://") {
			return fmt.Errorf("relay must be a ws:// or wss:// url: %s", r)
		}
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive: %s", c.PollInterval)
	}
	return nil
}

func normalizeRelays(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, r := range in {
		r = strings.TrimRight(strings.TrimSpace(r), "/")
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
