package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/pricegame/go/clients"
)

// Duration reads "10s"-style strings from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Game    GameConfig    `yaml:"game"`
	Catalog CatalogConfig `yaml:"catalog"`
	NATS    NATSConfig    `yaml:"nats"`
	DB      DBConfig      `yaml:"database"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port         string   `yaml:"port"`
	StaticDir    string   `yaml:"static_dir"`
	PublicURL    string   `yaml:"public_url"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	IdleTimeout  Duration `yaml:"idle_timeout"`
}

type GameConfig struct {
	TotalRounds  int      `yaml:"total_rounds"`
	GuessWindow  Duration `yaml:"guess_window"`
	RoundPause   Duration `yaml:"round_pause"`
	CodeLength   int      `yaml:"code_length"`
	EmptyRoomTTL Duration `yaml:"empty_room_ttl"`
	ReapInterval Duration `yaml:"reap_interval"`
	EnforceHost  bool     `yaml:"enforce_host"`
}

type CatalogConfig struct {
	Source       string   `yaml:"source"`
	URL          string   `yaml:"url"`
	FetchTimeout Duration `yaml:"fetch_timeout"`
	Retries      int      `yaml:"retries"`
	RetryBackoff Duration `yaml:"retry_backoff"`
	CacheTTL     Duration `yaml:"cache_ttl"`
}

// NATSConfig enables the event bus mirror when URL is set.
type NATSConfig struct {
	URL           string `yaml:"url"`
	StreamName    string `yaml:"stream_name"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// DBConfig enables the Postgres game archive when URL is set.
type DBConfig struct {
	URL string `yaml:"url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:         "3000",
			StaticDir:    "public",
			ReadTimeout:  Duration(15 * time.Second),
			WriteTimeout: Duration(15 * time.Second),
			IdleTimeout:  Duration(60 * time.Second),
		},
		Game: GameConfig{
			TotalRounds:  5,
			GuessWindow:  Duration(10 * time.Second),
			RoundPause:   Duration(5 * time.Second),
			CodeLength:   6,
			EmptyRoomTTL: Duration(10 * time.Minute),
			ReapInterval: Duration(time.Minute),
		},
		Catalog: CatalogConfig{
			Source:       "fakestore",
			FetchTimeout: Duration(10 * time.Second),
			RetryBackoff: Duration(time.Second),
		},
		NATS: NATSConfig{
			StreamName:    "PRICEGAME_EVENTS",
			SubjectPrefix: "pricegame.rooms",
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.PublicURL = getEnv("PUBLIC_URL", c.Server.PublicURL)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.DB.URL = getEnv("DATABASE_URL", c.DB.URL)
	c.Catalog.URL = getEnv("CATALOG_URL", c.Catalog.URL)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Game.TotalRounds = getEnvAsInt("TOTAL_ROUNDS", c.Game.TotalRounds)
}

func (c Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Game.TotalRounds <= 0 {
		errs = append(errs, fmt.Errorf("game.total_rounds must be positive, got %d", c.Game.TotalRounds))
	}
	if c.Game.CodeLength <= 0 {
		errs = append(errs, fmt.Errorf("game.code_length must be positive, got %d", c.Game.CodeLength))
	}
	for name, d := range map[string]Duration{
		"game.guess_window":     c.Game.GuessWindow,
		"game.round_pause":      c.Game.RoundPause,
		"game.empty_room_ttl":   c.Game.EmptyRoomTTL,
		"game.reap_interval":    c.Game.ReapInterval,
		"catalog.fetch_timeout": c.Catalog.FetchTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if !clients.ValidateExternalSource(clients.ExternalSource(c.Catalog.Source)) {
		errs = append(errs, fmt.Errorf("catalog.source %q is not supported", c.Catalog.Source))
	}
	if clients.ExternalSource(c.Catalog.Source) == clients.ExternalSourceCustom && c.Catalog.URL == "" {
		errs = append(errs, errors.New("catalog.url is required for a custom catalog"))
	}
	if c.Catalog.Retries < 0 {
		errs = append(errs, errors.New("catalog.retries must not be negative"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
