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
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	SessionsMemory = "memory"
	SessionsRedis  = "redis"
	SessionsJSON   = "json"

	ModePolling = "polling"
	ModeWebhook = "webhook"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type TelegramBotConfig struct {
	Token       string        `yaml:"token"`
	Username    string        `yaml:"username"`
	Mode        string        `yaml:"mode"`
	WebhookURL  string        `yaml:"webhook_url"`
	ListenAddr  string        `yaml:"listen_addr"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
	Debug       bool          `yaml:"debug"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN строка подключения для pgxpool
func (d DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s", d.User, d.Password, d.Host, d.Port, d.Name)
	if d.SSLMode != "" {
		dsn += "?sslmode=" + d.SSLMode
	}
	return dsn
}

type StorageConfig struct {
	Type string `yaml:"type"`
}

type SessionsConfig struct {
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
	File    string        `yaml:"file"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RabbitMQConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

// TestConfig параметры прохождения теста
type TestConfig struct {
	GracePeriod  time.Duration `yaml:"grace_period"`
	MaxScore     int           `yaml:"max_score"`
	TickInterval time.Duration `yaml:"tick_interval"`
	TopLimit     int           `yaml:"top_limit"`
	SeedFile     string        `yaml:"seed_file"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// ReportConfig TTF-шрифт с кириллицей для PDF, без него используется Helvetica
type ReportConfig struct {
	FontPath string `yaml:"font_path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	TelegramBot TelegramBotConfig `yaml:"telegram_bot"`
	Database    DatabaseConfig    `yaml:"database"`
	Storage     StorageConfig     `yaml:"storage"`
	Sessions    SessionsConfig    `yaml:"sessions"`
	Redis       RedisConfig       `yaml:"redis"`
	RabbitMQ    RabbitMQConfig    `yaml:"rabbitmq"`
	Test        TestConfig        `yaml:"test"`
	Admins      []int64           `yaml:"admins"`
	Auth        AuthConfig        `yaml:"auth"`
	Report      ReportConfig      `yaml:"report"`
	Log         LogConfig         `yaml:"log"`
}

// Default значения, которые файл конфигурации может переопределить
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: "8080"},
		TelegramBot: TelegramBotConfig{
			Mode:        ModePolling,
			ListenAddr:  ":8443",
			PollTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Host: "localhost", Port: "5432", SSLMode: "disable"},
		Storage:  StorageConfig{Type: StoragePostgres},
		Sessions: SessionsConfig{Backend: SessionsMemory, TTL: 24 * time.Hour, File: "sessions.json"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		RabbitMQ: RabbitMQConfig{Queue: "attempt.finished"},
		Test: TestConfig{
			GracePeriod:  3 * time.Second,
			MaxScore:     100,
			TickInterval: 15 * time.Second,
			TopLimit:     8,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// LoadConfig читает .env, yaml-файл и переменные окружения
func LoadConfig(filename string) (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	config := Default()
	if filename != "" {
		f, err := os.Open(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to open config %s: %w", filename, err)
		}

		defer func(f *os.File) {
			_ = f.Close()
		}(f)

		if err := yaml.NewDecoder(f).Decode(config); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", filename, err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	overrides := map[string]*string{
		"TELEGRAM_BOT_TOKEN":    &c.TelegramBot.Token,
		"TELEGRAM_BOT_USERNAME": &c.TelegramBot.Username,
		"DB_HOST":               &c.Database.Host,
		"DB_PORT":               &c.Database.Port,
		"DB_USER":               &c.Database.User,
		"DB_PASSWORD":           &c.Database.Password,
		"DB_NAME":               &c.Database.Name,
		"REDIS_ADDR":            &c.Redis.Addr,
		"RABBITMQ_URL":          &c.RabbitMQ.URL,
		"JWT_SECRET":            &c.Auth.JWTSecret,
		"LOG_LEVEL":             &c.Log.Level,
	}
	for key, target := range overrides {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			*target = value
		}
	}

	if raw := os.Getenv("ADMIN_IDS"); raw != "" {
		admins, err := ParseAdminIDs(raw)
		if err != nil {
			return err
		}
		c.Admins = admins
	}
	return nil
}

// ParseAdminIDs разбирает список ID через запятую
func ParseAdminIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	var errs []error
	if c.TelegramBot.Token == "" {
		errs = append(errs, errors.New("telegram_bot.token is required"))
	}
	switch c.TelegramBot.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.TelegramBot.WebhookURL == "" {
			errs = append(errs, errors.New("telegram_bot.webhook_url is required in webhook mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown telegram_bot.mode %q", c.TelegramBot.Mode))
	}
	if c.Storage.Type != StoragePostgres && c.Storage.Type != StorageMemory {
		errs = append(errs, fmt.Errorf("unknown storage.type %q", c.Storage.Type))
	}
	switch c.Sessions.Backend {
	case SessionsMemory, SessionsRedis:
	case SessionsJSON:
		if c.Sessions.File == "" {
			errs = append(errs, errors.New("sessions.file is required for the json backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown sessions.backend %q", c.Sessions.Backend))
	}
	if c.Test.MaxScore <= 0 {
		errs = append(errs, errors.New("test.max_score must be positive"))
	}
	if c.Test.TickInterval <= 0 {
		errs = append(errs, errors.New("test.tick_interval must be positive"))
	}
	if c.Test.GracePeriod < 0 {
		errs = append(errs, errors.New("test.grace_period must not be negative"))
	}
	if c.Test.TopLimit <= 0 {
		errs = append(errs, errors.New("test.top_limit must be positive"))
	}
	return errors.Join(errs...)
}

// IsAdmin проверяет, входит ли пользователь в список администраторов
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.Admins {
		if id == telegramID {
			return true
		}
	}
	return false
}
