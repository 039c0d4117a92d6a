package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone  = "UTC"
	configPathEnv    = "JOBCOPILOT_CONFIG"
	addrEnv          = "JOBCOPILOT_ADDR"
	logLevelEnv      = "JOBCOPILOT_LOG_LEVEL"
	storageDriverEnv = "STORAGE_DRIVER"
	redisURLEnv      = "REDIS_URL"
	databaseDSNEnv   = "DATABASE_DSN"
	kafkaBrokerEnv   = "KAFKA_BROKER"
	kafkaTopicEnv    = "KAFKA_TOPIC"
	eventsDriverEnv  = "EVENTS_DRIVER"
	proxyPoolEnv     = "PROXY_POOL"
	schedulerCronEnv = "SCHEDULER_CRON"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Event drivers.
const (
	EventsNone     = "none"
	EventsKafka    = "kafka"
	EventsRedis    = "redis"
	EventsTelegram = "telegram"
)

// Platform kinds.
const (
	KindSynthetic = "synthetic"
	KindHTML      = "html"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Logging   LoggingConfig    `yaml:"logging"`
	Storage   StorageConfig    `yaml:"storage"`
	Search    SearchConfig     `yaml:"search"`
	Egress    EgressConfig     `yaml:"egress"`
	Platforms []PlatformConfig `yaml:"platforms"`
	Events    EventsConfig     `yaml:"events"`
	Scheduler SchedulerConfig  `yaml:"scheduler"`
	AutoFill  AutoFillConfig   `yaml:"autofill"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// LoggingConfig sets the slog level and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig picks the key-value backend.
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	Namespace   string `yaml:"namespace"`
	RedisURL    string `yaml:"redisUrl"`
	PostgresDSN string `yaml:"postgresDsn"`
	Table       string `yaml:"table"`
}

// SearchConfig tunes the aggregation pipeline and the scorer.
type SearchConfig struct {
	PerPage       int           `yaml:"perPage"`
	MaxParallel   int           `yaml:"maxParallel"`
	SourceTimeout time.Duration `yaml:"sourceTimeout"`
	ScoreDelay    time.Duration `yaml:"scoreDelay"`
	ScoreSeed     uint64        `yaml:"scoreSeed"`
}

// EgressConfig lists outbound proxies.
type EgressConfig struct {
	Policy  string   `yaml:"policy"`
	Proxies []string `yaml:"proxies"`
	Seed    uint64   `yaml:"seed"`
}

// PlatformConfig describes one source adapter.
type PlatformConfig struct {
	Name        string          `yaml:"name"`
	Kind        string          `yaml:"kind"`
	Count       int             `yaml:"count"`
	Total       int             `yaml:"total"`
	MinDelay    time.Duration   `yaml:"minDelay"`
	MaxDelay    time.Duration   `yaml:"maxDelay"`
	FailureRate float64         `yaml:"failureRate"`
	Seed        uint64          `yaml:"seed"`
	RateLimit   RateLimitConfig `yaml:"rateLimit"`
	HTML        HTMLConfig      `yaml:"html"`
}

// RateLimitConfig throttles one platform. Zero RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// HTMLConfig points an html platform at a results page.
type HTMLConfig struct {
	BaseURL   string         `yaml:"baseUrl"`
	Timeout   time.Duration  `yaml:"timeout"`
	Selectors SelectorConfig `yaml:"selectors"`
}

// SelectorConfig overrides individual CSS selectors. Empty fields keep the defaults.
type SelectorConfig struct {
	Item        string `yaml:"item"`
	Title       string `yaml:"title"`
	Company     string `yaml:"company"`
	Location    string `yaml:"location"`
	Description string `yaml:"description"`
	Salary      string `yaml:"salary"`
	Link        string `yaml:"link"`
	Date        string `yaml:"date"`
	Requirement string `yaml:"requirement"`
	Tag         string `yaml:"tag"`
	Total       string `yaml:"total"`
}

// EventsConfig picks where search-completed events go.
type EventsConfig struct {
	Driver       string         `yaml:"driver"`
	KafkaBroker  string         `yaml:"kafkaBroker"`
	KafkaTopic   string         `yaml:"kafkaTopic"`
	RedisURL     string         `yaml:"redisUrl"`
	RedisChannel string         `yaml:"redisChannel"`
	Telegram     TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send digests.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIBase  string `yaml:"apiBase"`
}

// SchedulerConfig defines when the stored profile's search re-runs. An empty expression disables it.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	RunOnStart     bool           `yaml:"runOnStart"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// AutoFillConfig tunes the application simulator.
type AutoFillConfig struct {
	MinDelay    time.Duration `yaml:"minDelay"`
	MaxDelay    time.Duration `yaml:"maxDelay"`
	SuccessRate *float64      `yaml:"successRate"`
	Seed        uint64        `yaml:"seed"`
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Platforms) == 0 {
		cfg.Platforms = defaultConfig().Platforms
	}

	return cfg
}

// Validate rejects unknown drivers and incomplete platform entries.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("config: storage driver redis needs redisUrl")
		}
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("config: storage driver postgres needs postgresDsn")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Events.Driver {
	case EventsNone:
	case EventsKafka:
		if c.Events.KafkaBroker == "" || c.Events.KafkaTopic == "" {
			return fmt.Errorf("config: events driver kafka needs kafkaBroker and kafkaTopic")
		}
	case EventsRedis:
		if c.Events.RedisURL == "" && c.Storage.RedisURL == "" {
			return fmt.Errorf("config: events driver redis needs redisUrl")
		}
	case EventsTelegram:
		if c.Events.Telegram.BotToken == "" || c.Events.Telegram.ChatID == "" {
			return fmt.Errorf("config: events driver telegram needs botToken and chatId")
		}
	default:
		return fmt.Errorf("config: unknown events driver %q", c.Events.Driver)
	}

	seen := make(map[string]struct{}, len(c.Platforms))
	for _, p := range c.Platforms {
		if p.Name == "" {
			return fmt.Errorf("config: platform without a name")
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("config: duplicate platform %q", p.Name)
		}
		seen[p.Name] = struct{}{}

		switch p.Kind {
		case KindSynthetic:
		case KindHTML:
			if p.HTML.BaseURL == "" {
				return fmt.Errorf("config: html platform %q needs html.baseUrl", p.Name)
			}
		default:
			return fmt.Errorf("config: platform %q has unknown kind %q", p.Name, p.Kind)
		}
		if p.FailureRate < 0 || p.FailureRate > 1 {
			return fmt.Errorf("config: platform %q failureRate must be within [0, 1]", p.Name)
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(addrEnv); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(storageDriverEnv); v != "" {
		c.Storage.Driver = v
	}

	if v := os.Getenv(redisURLEnv); v != "" {
		c.Storage.RedisURL = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Storage.PostgresDSN = v
	}

	if v := os.Getenv(eventsDriverEnv); v != "" {
		c.Events.Driver = v
	}

	if v := os.Getenv(kafkaBrokerEnv); v != "" {
		c.Events.KafkaBroker = v
	}

	if v := os.Getenv(kafkaTopicEnv); v != "" {
		c.Events.KafkaTopic = v
	}

	if v := os.Getenv(proxyPoolEnv); v != "" {
		c.Egress.Proxies = splitList(v)
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Events.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Events.Telegram.ChatID = v
	}

	if v, ok := os.LookupEnv(schedulerCronEnv); ok {
		c.Scheduler.CronExpression = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}
	if override.Server.ReadTimeout > 0 {
		base.Server.ReadTimeout = override.Server.ReadTimeout
	}
	if override.Server.WriteTimeout > 0 {
		base.Server.WriteTimeout = override.Server.WriteTimeout
	}
	if override.Server.ShutdownTimeout > 0 {
		base.Server.ShutdownTimeout = override.Server.ShutdownTimeout
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Storage.Driver != "" {
		base.Storage.Driver = override.Storage.Driver
	}
	if override.Storage.Namespace != "" {
		base.Storage.Namespace = override.Storage.Namespace
	}
	if override.Storage.RedisURL != "" {
		base.Storage.RedisURL = override.Storage.RedisURL
	}
	if override.Storage.PostgresDSN != "" {
		base.Storage.PostgresDSN = override.Storage.PostgresDSN
	}
	if override.Storage.Table != "" {
		base.Storage.Table = override.Storage.Table
	}

	if override.Search.PerPage > 0 {
		base.Search.PerPage = override.Search.PerPage
	}
	if override.Search.MaxParallel > 0 {
		base.Search.MaxParallel = override.Search.MaxParallel
	}
	if override.Search.SourceTimeout > 0 {
		base.Search.SourceTimeout = override.Search.SourceTimeout
	}
	if override.Search.ScoreDelay > 0 {
		base.Search.ScoreDelay = override.Search.ScoreDelay
	}
	if override.Search.ScoreSeed != 0 {
		base.Search.ScoreSeed = override.Search.ScoreSeed
	}

	if override.Egress.Policy != "" {
		base.Egress.Policy = override.Egress.Policy
	}
	if len(override.Egress.Proxies) > 0 {
		base.Egress.Proxies = override.Egress.Proxies
	}
	if override.Egress.Seed != 0 {
		base.Egress.Seed = override.Egress.Seed
	}

	if len(override.Platforms) > 0 {
		base.Platforms = override.Platforms
	}

	if override.Events.Driver != "" {
		base.Events.Driver = override.Events.Driver
	}
	if override.Events.KafkaBroker != "" {
		base.Events.KafkaBroker = override.Events.KafkaBroker
	}
	if override.Events.KafkaTopic != "" {
		base.Events.KafkaTopic = override.Events.KafkaTopic
	}
	if override.Events.RedisURL != "" {
		base.Events.RedisURL = override.Events.RedisURL
	}
	if override.Events.RedisChannel != "" {
		base.Events.RedisChannel = override.Events.RedisChannel
	}
	if override.Events.Telegram.BotToken != "" {
		base.Events.Telegram.BotToken = override.Events.Telegram.BotToken
	}
	if override.Events.Telegram.ChatID != "" {
		base.Events.Telegram.ChatID = override.Events.Telegram.ChatID
	}
	if override.Events.Telegram.APIBase != "" {
		base.Events.Telegram.APIBase = override.Events.Telegram.APIBase
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.RunOnStart {
		base.Scheduler.RunOnStart = true
	}

	if override.AutoFill.MinDelay > 0 {
		base.AutoFill.MinDelay = override.AutoFill.MinDelay
	}
	if override.AutoFill.MaxDelay > 0 {
		base.AutoFill.MaxDelay = override.AutoFill.MaxDelay
	}
	if override.AutoFill.SuccessRate != nil {
		base.AutoFill.SuccessRate = override.AutoFill.SuccessRate
	}
	if override.AutoFill.Seed != 0 {
		base.AutoFill.Seed = override.AutoFill.Seed
	}

	return base
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Storage: StorageConfig{Driver: StorageMemory, Namespace: "jobcopilot", Table: "kv_store"},
		Search: SearchConfig{
			PerPage:       10,
			MaxParallel:   4,
			SourceTimeout: 15 * time.Second,
			ScoreDelay:    500 * time.Millisecond,
		},
		Egress: EgressConfig{Policy: "random"},
		Platforms: []PlatformConfig{
			{Name: "linkedin", Kind: KindSynthetic, MinDelay: time.Second, MaxDelay: 3 * time.Second},
			{Name: "indeed", Kind: KindSynthetic, MinDelay: 1500 * time.Millisecond, MaxDelay: 4 * time.Second},
			{Name: "glassdoor", Kind: KindSynthetic, MinDelay: 2 * time.Second, MaxDelay: 5 * time.Second},
		},
		Events:    EventsConfig{Driver: EventsNone, KafkaTopic: "jobcopilot.search", RedisChannel: "EVENT_SEARCH_COMPLETED"},
		Scheduler: SchedulerConfig{Timezone: defaultTimezone, location: tz},
		AutoFill:  AutoFillConfig{MinDelay: 3 * time.Second, MaxDelay: 8 * time.Second},
	}
}
