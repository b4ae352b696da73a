// Package config loads the YAML configuration of the bot. Secrets can
// also come from the environment or a .env file, which take precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "./config.yaml"

// A duration written as "5s" or "10m" in YAML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

type Discord struct {
	Token  string   `yaml:"token"`
	AppId  string   `yaml:"app_id"`
	Prefix string   `yaml:"prefix"`
	Guilds []string `yaml:"guilds"` // Guilds to register slash commands in, empty means global
}

type Database struct {
	Path string `yaml:"path"`
}

type Log struct {
	Level   string `yaml:"level"`   // debug|info|warn|error
	Console bool   `yaml:"console"` // human readable output
}

type Metrics struct {
	Addr string `yaml:"addr"` // empty disables the server
}

type Pubcord struct {
	Enabled             bool     `yaml:"enabled"`
	GuildId             string   `yaml:"guild_id"`
	SecondaryGuildId    string   `yaml:"secondary_guild_id"`
	BoosterRoleId       string   `yaml:"booster_role_id"`
	QuickLinksChannelId string   `yaml:"quicklinks_channel_id"`
	QaMessageId         string   `yaml:"qa_message_id"`
	PollInterval        Duration `yaml:"poll_interval"`
	ReadyGrace          Duration `yaml:"ready_grace"`
	BoosterInterval     Duration `yaml:"booster_interval"`
	RepostOnMissing     bool     `yaml:"repost_on_missing"`
}

type Tiering struct {
	Enabled      bool     `yaml:"enabled"`
	RoomRequests int      `yaml:"room_requests"`
	RoomWindow   Duration `yaml:"room_window"`
}

type Config struct {
	Discord  Discord  `yaml:"discord"`
	Database Database `yaml:"database"`
	Log      Log      `yaml:"log"`
	Metrics  Metrics  `yaml:"metrics"`
	Pubcord  Pubcord  `yaml:"pubcord"`
	Tiering  Tiering  `yaml:"tiering"`
}

// Default returns the configuration used for anything the file leaves out
func Default() Config {
	return Config{
		Discord:  Discord{Prefix: "%"},
		Database: Database{Path: "tierbot.db"},
		Log:      Log{Level: "info"},
		Metrics:  Metrics{Addr: ":9090"},
		Pubcord: Pubcord{
			PollInterval:    Duration{5 * time.Second},
			ReadyGrace:      Duration{10 * time.Second},
			BoosterInterval: Duration{120 * time.Second},
		},
		Tiering: Tiering{
			Enabled:      true,
			RoomRequests: 2,
			RoomWindow:   Duration{600 * time.Second},
		},
	}
}

// Load reads the file at path (a missing file is fine, defaults apply),
// then the environment. The path falls back to TIERBOT_CONFIG and then
// DefaultPath
func Load(path string) (*Config, error) {

	// .env is optional
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("TIERBOT_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		c.Discord.Token = v
	}
	if v := os.Getenv("DISCORD_APP_ID"); v != "" {
		c.Discord.AppId = v
	}
	if v := os.Getenv("TIERBOT_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("TIERBOT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return errors.New("discord.token (or DISCORD_TOKEN) is required")
	}
	if c.Discord.Prefix == "" {
		return errors.New("discord.prefix cannot be empty")
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.Pubcord.Enabled {
		if c.Pubcord.GuildId == "" {
			return errors.New("pubcord.guild_id is required when pubcord is enabled")
		}
		if c.Pubcord.QuickLinksChannelId == "" {
			return errors.New("pubcord.quicklinks_channel_id is required when pubcord is enabled")
		}
		if c.Pubcord.PollInterval.Duration <= 0 || c.Pubcord.BoosterInterval.Duration <= 0 {
			return errors.New("pubcord intervals must be positive")
		}
		if c.Pubcord.ReadyGrace.Duration < 0 {
			return errors.New("pubcord.ready_grace cannot be negative")
		}
	}
	if c.Tiering.Enabled && (c.Tiering.RoomRequests <= 0 || c.Tiering.RoomWindow.Duration <= 0) {
		return errors.New("tiering room rate limit must be positive")
	}
	return nil
}
