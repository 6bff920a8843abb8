package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath     = "configs/tripprices.yaml"
	DefaultToleranceDays  = 2
	DefaultNoiseFloor     = 10.0
	DefaultPrimarySource  = "footballtravel"
	DefaultUnitTimeout    = 90 * time.Second
	DefaultResolveTimeout = 60 * time.Second
)

type Config struct {
	Comparator  ComparatorConfig    `yaml:"comparator"`
	Sources     SourcesConfig       `yaml:"sources"`
	Aliases     map[string][]string `yaml:"aliases"`      // canonical club name -> alternate spellings
	AliasesFile string              `yaml:"aliases_file"` // optional YAML with clubs/providers entries
	Providers   map[string][]string `yaml:"providers"`    // provider id -> spellings printed by aggregator sites
	Browser     BrowserConfig       `yaml:"browser"`
	Logging     LoggingConfig       `yaml:"logging"`
	Server      ServerConfig        `yaml:"server"`
	Cache       CacheConfig         `yaml:"cache"`
	Postgres    PostgresConfig      `yaml:"postgres"`
	Telegram    TelegramConfig      `yaml:"telegram"`
	Schedule    ScheduleConfig      `yaml:"schedule"`
}

type ComparatorConfig struct {
	ToleranceDays int      `yaml:"tolerance_days"`
	NoiseFloor    float64  `yaml:"noise_floor"`
	PrimarySource string   `yaml:"primary_source"`
	StrictNights  bool     `yaml:"strict_nights"` // competitor cells with other nights than the primary are not compared
	SourceOrder   []string `yaml:"source_order"`  // column order after the primary
}

type SourcesConfig struct {
	Enabled   []string                `yaml:"enabled"`
	Timeout   time.Duration           `yaml:"timeout"` // HTTP client timeout
	UserAgent string                  `yaml:"user_agent"`
	Settings  map[string]SourceConfig `yaml:"settings"`
}

// SourceConfig overrides the limits an adapter declares. Zero values keep the adapter default.
type SourceConfig struct {
	BaseURL        string            `yaml:"base_url"`
	FeedURL        string            `yaml:"feed_url"`
	URLTemplate    string            `yaml:"url_template"`
	Workers        int               `yaml:"workers"`
	UnitTimeout    time.Duration     `yaml:"unit_timeout"`
	ResolveTimeout time.Duration     `yaml:"resolve_timeout"`
	RatePerSecond  float64           `yaml:"rate_per_second"`
	Slugs          map[string]string `yaml:"slugs"` // club name -> slug used in generated URLs
}

// BrowserConfig drives the headless Chrome used by the JavaScript-heavy sources.
type BrowserConfig struct {
	Headful  bool   `yaml:"headful"` // show the window, for debugging selectors
	ExecPath string `yaml:"exec_path"`
	Debug    bool   `yaml:"debug"` // log CDP traffic
}

type LoggingConfig struct {
	Level      string `yaml:"level"` // DEBUG, INFO, WARN, ERROR
	FilePath   string `yaml:"file_path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type CacheConfig struct {
	Backend       string        `yaml:"backend"` // memory or redis
	DirectoryTTL  time.Duration `yaml:"directory_ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// ScheduleConfig makes serve re-run a comparison on its own. Interval 0 disables it.
type ScheduleConfig struct {
	Interval     time.Duration `yaml:"interval"`
	Clubs        []string      `yaml:"clubs"`
	CycleTimeout time.Duration `yaml:"cycle_timeout"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

// Source returns the settings block for a source, or a zero value.
func (c *Config) Source(name string) SourceConfig {
	if c == nil || c.Sources.Settings == nil {
		return SourceConfig{}
	}
	return c.Sources.Settings[strings.ToLower(name)]
}

// Load reads the YAML file, applies .env and environment overrides, then fills defaults.
func Load(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.ApplyDefaults()
	return &config, nil
}

// Path returns the config path from CONFIG_PATH or the fallback.
func Path(fallback string) string {
	if p := strings.TrimSpace(os.Getenv("CONFIG_PATH")); p != "" {
		return p
	}
	if fallback != "" {
		return fallback
	}
	return DefaultConfigPath
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TRIPPRICES_POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("TRIPPRICES_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("TRIPPRICES_REDIS_PASSWORD"); v != "" {
		c.Cache.RedisPassword = v
	}
	if v := os.Getenv("TRIPPRICES_TELEGRAM_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TRIPPRICES_TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TRIPPRICES_TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}
	return nil
}

// ApplyDefaults fills unset fields. Explicit zeros for tolerance and noise floor are
// indistinguishable from unset and get the defaults too.
func (c *Config) ApplyDefaults() {
	if c.Comparator.ToleranceDays == 0 {
		c.Comparator.ToleranceDays = DefaultToleranceDays
	}
	if c.Comparator.NoiseFloor == 0 {
		c.Comparator.NoiseFloor = DefaultNoiseFloor
	}
	if c.Comparator.PrimarySource == "" {
		c.Comparator.PrimarySource = DefaultPrimarySource
	}
	c.Comparator.PrimarySource = strings.ToLower(strings.TrimSpace(c.Comparator.PrimarySource))
	if c.Sources.Timeout <= 0 {
		c.Sources.Timeout = 30 * time.Second
	}
	if c.Sources.UserAgent == "" {
		c.Sources.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	}
	normalized := make(map[string]SourceConfig, len(c.Sources.Settings))
	for name, sc := range c.Sources.Settings {
		normalized[strings.ToLower(strings.TrimSpace(name))] = sc
	}
	c.Sources.Settings = normalized
	for i, name := range c.Sources.Enabled {
		c.Sources.Enabled[i] = strings.ToLower(strings.TrimSpace(name))
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// a comparison run can take minutes
		c.Server.WriteTimeout = 10 * time.Minute
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.DirectoryTTL == 0 {
		c.Cache.DirectoryTTL = time.Hour
	}
}

// Validate checks the configuration against the set of registered source names.
func (c *Config) Validate(known []string) error {
	var errs []error
	if len(c.Sources.Enabled) == 0 {
		errs = append(errs, errors.New("sources.enabled: no sources enabled"))
	}
	knownSet := make(map[string]struct{}, len(known))
	for _, k := range known {
		knownSet[k] = struct{}{}
	}
	for _, name := range c.Sources.Enabled {
		if _, ok := knownSet[name]; !ok {
			errs = append(errs, fmt.Errorf("sources.enabled: unknown source %q (available: %v)", name, known))
		}
	}
	if c.Comparator.ToleranceDays < 0 {
		errs = append(errs, fmt.Errorf("comparator.tolerance_days: must be >= 0, got %d", c.Comparator.ToleranceDays))
	}
	if c.Comparator.NoiseFloor < 0 {
		errs = append(errs, fmt.Errorf("comparator.noise_floor: must be >= 0, got %v", c.Comparator.NoiseFloor))
	}
	for name, sc := range c.Sources.Settings {
		if sc.Workers < 0 {
			errs = append(errs, fmt.Errorf("sources.settings.%s.workers: must be >= 0, got %d", name, sc.Workers))
		}
		if sc.RatePerSecond < 0 {
			errs = append(errs, fmt.Errorf("sources.settings.%s.rate_per_second: must be >= 0", name))
		}
	}
	if c.Schedule.Interval < 0 {
		errs = append(errs, fmt.Errorf("schedule.interval: must be >= 0, got %s", c.Schedule.Interval))
	}
	if c.Schedule.Interval > 0 && len(c.Schedule.Clubs) == 0 {
		errs = append(errs, errors.New("schedule.clubs: required when schedule.interval is set"))
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend))
	}
	return errors.Join(errs...)
}
