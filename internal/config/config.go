package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// State backends accepted by state.backend.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token          string        `yaml:"token"`
	APIEndpoint    string        `yaml:"api_endpoint"` // tgbotapi format, e.g. https://api.telegram.org/bot%s/%s
	OperatorChatID string        `yaml:"operator_chat_id"`
	ParseMode      string        `yaml:"parse_mode"`
	Language       string        `yaml:"language"`
	Timeout        time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Port        int           `yaml:"port"`
	WebhookPath string        `yaml:"webhook_path"`
	SecretToken string        `yaml:"secret_token"` // X-Telegram-Bot-Api-Secret-Token
	TurnTimeout time.Duration `yaml:"turn_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
	File     string `yaml:"file"`     // optional rotated log file
}

type StateConfig struct {
	Backend       string        `yaml:"backend"` // redis|postgres|sqlite|memory
	TTL           time.Duration `yaml:"ttl"`
	Lock          bool          `yaml:"lock"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type SheetConfig struct {
	URL          string        `yaml:"url"`
	Secret       string        `yaml:"secret"`
	AuthMode     string        `yaml:"auth_mode"` // bearer|body|jwt
	Timeout      time.Duration `yaml:"timeout"`
	AcceptAny2xx bool          `yaml:"accept_any_2xx"`
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	State    StateConfig    `yaml:"state"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Sheet    SheetConfig    `yaml:"sheet"`

	Runtime RuntimeConfig `yaml:"-"`
}

// envOverrides holds the variables the serverless deployment was configured
// with. Any non-empty value wins over the YAML file.
type envOverrides struct {
	BotToken       string `env:"BOT_TOKEN"`
	OperatorChatID string `env:"DEV_CHAT_ID"`
	SecretToken    string `env:"WEBHOOK_SECRET_TOKEN"`
	Port           string `env:"PORT"`
	SheetURL       string `env:"APPS_SCRIPT_URL"`
	SheetSecret    string `env:"APPS_SCRIPT_SECRET"`
	SheetAuthMode  string `env:"APPS_SCRIPT_AUTH_MODE"`
	StateBackend   string `env:"STATE_BACKEND"`
	RedisURL       string `env:"REDIS_URL"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	DatabaseURL    string `env:"DATABASE_URL"`
	SQLitePath     string `env:"SQLITE_PATH"`
	LogLevel       string `env:"LOG_LEVEL"`
	LogFile        string `env:"LOG_FILE_NAME"`
}

// LoadConfig reads the YAML file at path (a missing file is not an error),
// loads .env if present, applies environment overrides and defaults, and
// validates the result.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// env-only deployment
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Bot.Token, ov.BotToken)
	set(&cfg.Bot.OperatorChatID, ov.OperatorChatID)
	set(&cfg.Server.SecretToken, ov.SecretToken)
	set(&cfg.Sheet.URL, ov.SheetURL)
	set(&cfg.Sheet.Secret, ov.SheetSecret)
	set(&cfg.Sheet.AuthMode, ov.SheetAuthMode)
	set(&cfg.State.Backend, ov.StateBackend)
	set(&cfg.Redis.URL, ov.RedisURL)
	set(&cfg.Redis.Password, ov.RedisPassword)
	set(&cfg.Database.URL, ov.DatabaseURL)
	set(&cfg.SQLite.Path, ov.SQLitePath)
	set(&cfg.Log.Level, ov.LogLevel)
	set(&cfg.Log.File, ov.LogFile)
	if ov.Port != "" {
		port, err := strconv.Atoi(ov.Port)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.ParseMode == "" {
		cfg.Bot.ParseMode = "HTML"
	}
	if cfg.Bot.Language == "" {
		cfg.Bot.Language = "ru"
	}
	cfg.Bot.Timeout = normalizeDuration(cfg.Bot.Timeout, 10*time.Second)

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.WebhookPath == "" {
		cfg.Server.WebhookPath = "/webhook"
	}
	cfg.Server.TurnTimeout = normalizeDuration(cfg.Server.TurnTimeout, 30*time.Second)

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	cfg.State.Backend = strings.ToLower(strings.TrimSpace(cfg.State.Backend))
	if cfg.State.Backend == "" {
		cfg.State.Backend = BackendRedis
	}
	cfg.State.TTL = normalizeDuration(cfg.State.TTL, 24*time.Hour)
	cfg.State.LockTTL = normalizeDuration(cfg.State.LockTTL, 30*time.Second)
	cfg.State.SweepInterval = normalizeDuration(cfg.State.SweepInterval, 10*time.Minute)

	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = "leads.db"
	}

	cfg.Sheet.AuthMode = strings.ToLower(strings.TrimSpace(cfg.Sheet.AuthMode))
	if cfg.Sheet.AuthMode == "" {
		cfg.Sheet.AuthMode = "bearer"
	}
	cfg.Sheet.Timeout = normalizeDuration(cfg.Sheet.Timeout, 15*time.Second)
}

// Validate performs the minimal checks needed to start serving.
func (c *Config) Validate() error {
	if c.Bot.Token == "" && !c.Runtime.Dev {
		return errors.New("bot.token is required")
	}
	if c.Sheet.URL == "" {
		return errors.New("sheet.url is required")
	}
	switch c.Sheet.AuthMode {
	case "bearer", "body", "jwt":
	default:
		return fmt.Errorf("sheet.auth_mode %q: must be bearer, body or jwt", c.Sheet.AuthMode)
	}
	switch c.State.Backend {
	case BackendRedis:
		if c.Redis.URL == "" {
			return errors.New("redis.url is required")
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url is required")
		}
	case BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("state.backend %q: must be redis, postgres, sqlite or memory", c.State.Backend)
	}
	if c.State.Lock && c.State.Backend != BackendRedis {
		return errors.New("state.lock requires the redis backend")
	}
	if !strings.HasPrefix(c.Server.WebhookPath, "/") {
		return fmt.Errorf("server.webhook_path %q must start with /", c.Server.WebhookPath)
	}
	return nil
}

func normalizeDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
