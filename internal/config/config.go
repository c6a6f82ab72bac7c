package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"Server"`
	Database DatabaseConfig `mapstructure:"Database"`
	Telegram TelegramConfig `mapstructure:"Telegram"`
	Policy   PolicyConfig   `mapstructure:"Policy"`
	Publish  PublishConfig  `mapstructure:"Publish"`
	S3       S3Config       `mapstructure:"S3"`
	Metrics  MetricsConfig  `mapstructure:"Metrics"`
	Log      LogConfig      `mapstructure:"Log"`
}

type ServerConfig struct {
	Port     string `mapstructure:"Port"`
	GRPCPort string `mapstructure:"GRPCPort"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"Driver"`
	DSN      string `mapstructure:"DSN"`
	Host     string `mapstructure:"Host"`
	Port     string `mapstructure:"Port"`
	User     string `mapstructure:"User"`
	Password string `mapstructure:"Password"`
	Name     string `mapstructure:"Name"`
	SSLMode  string `mapstructure:"SSLMode"`
}

type TelegramConfig struct {
	Token           string `mapstructure:"Token"`
	ChannelID       string `mapstructure:"ChannelID"`
	SupportUsername string `mapstructure:"SupportUsername"`
	BotUsername     string `mapstructure:"BotUsername"`
	AdminID         int64  `mapstructure:"AdminID"`
	PollTimeout     int    `mapstructure:"PollTimeout"`
	Workers         int    `mapstructure:"Workers"`
}

// PolicyConfig holds the numeric submission policy. None of it is secret.
type PolicyConfig struct {
	MaxConfessionsPerDay int `mapstructure:"MaxConfessionsPerDay"`
	MinWords             int `mapstructure:"MinWords"`
	MaxChars             int `mapstructure:"MaxChars"`
}

type PublishConfig struct {
	RetryInterval time.Duration `mapstructure:"RetryInterval"`
	MaxAttempts   int           `mapstructure:"MaxAttempts"`
}

type S3Config struct {
	AccessKeyID     string `mapstructure:"AccessKeyID"`
	SecretAccessKey string `mapstructure:"SecretAccessKey"`
	Bucket          string `mapstructure:"Bucket"`
	Endpoint        string `mapstructure:"Endpoint"`
	Region          string `mapstructure:"Region"`
}

type MetricsConfig struct {
	User     string `mapstructure:"User"`
	Password string `mapstructure:"Password"`
}

type LogConfig struct {
	Mode     string `mapstructure:"Mode"`
	HashSalt string `mapstructure:"HashSalt"`
}

var envBindings = map[string][]string{
	"Server.Port":                 {"HTTP_PORT", "PORT"},
	"Server.GRPCPort":             {"GRPC_PORT"},
	"Database.Driver":             {"DATABASE_DRIVER"},
	"Database.DSN":                {"DATABASE_DSN", "DATABASE_URL"},
	"Database.Host":               {"DATABASE_HOST"},
	"Database.Port":               {"DATABASE_PORT"},
	"Database.User":               {"DATABASE_USER"},
	"Database.Password":           {"DATABASE_PASSWORD"},
	"Database.Name":               {"DATABASE_NAME"},
	"Database.SSLMode":            {"DATABASE_SSLMODE"},
	"Telegram.Token":              {"TELEGRAM_TOKEN"},
	"Telegram.ChannelID":          {"CHAT_ID"},
	"Telegram.SupportUsername":    {"SOPORTE_USERNAME"},
	"Telegram.BotUsername":        {"BOT_USERNAME"},
	"Telegram.AdminID":            {"ADMIN_ID"},
	"Telegram.PollTimeout":        {"POLL_TIMEOUT"},
	"Telegram.Workers":            {"BOT_WORKERS"},
	"Policy.MaxConfessionsPerDay": {"MAX_CONFESSIONS_PER_DAY"},
	"Policy.MinWords":             {"MIN_WORDS"},
	"Policy.MaxChars":             {"MAX_CHARS"},
	"Publish.RetryInterval":       {"PUBLISH_RETRY_INTERVAL"},
	"Publish.MaxAttempts":         {"PUBLISH_MAX_ATTEMPTS"},
	"S3.AccessKeyID":              {"S3_ACCESS_KEY_ID"},
	"S3.SecretAccessKey":          {"S3_SECRET_ACCESS_KEY"},
	"S3.Bucket":                   {"S3_BUCKET"},
	"S3.Endpoint":                 {"S3_ENDPOINT"},
	"S3.Region":                   {"S3_REGION"},
	"Metrics.User":                {"METRICS_USER"},
	"Metrics.Password":            {"METRICS_PASS"},
	"Log.Mode":                    {"LOG_MODE"},
	"Log.HashSalt":                {"LOG_HASH_SALT"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "8080")
	v.SetDefault("Server.GRPCPort", "50051")
	v.SetDefault("Database.Driver", "sqlite3")
	v.SetDefault("Database.SSLMode", "disable")
	v.SetDefault("Telegram.SupportUsername", "Tekvoblack")
	v.SetDefault("Telegram.BotUsername", "ConfesionesTekvoBot")
	v.SetDefault("Telegram.AdminID", int64(6913856812))
	v.SetDefault("Telegram.PollTimeout", 60)
	v.SetDefault("Telegram.Workers", 8)
	v.SetDefault("Policy.MaxConfessionsPerDay", 6)
	v.SetDefault("Policy.MinWords", 25)
	v.SetDefault("Policy.MaxChars", 4000)
	v.SetDefault("Publish.RetryInterval", time.Minute)
	v.SetDefault("Publish.MaxAttempts", 5)
	v.SetDefault("S3.Endpoint", "https://storage.yandexcloud.net")
	v.SetDefault("S3.Region", "ru-central1")
	v.SetDefault("Log.Mode", "dev")
}

// NewConfig loads path as a dotenv file (a missing file only means "use the
// process environment") and maps the environment onto Config.
func NewConfig(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Database.DSN == "" {
		switch cfg.Database.Driver {
		case "postgres":
			cfg.Database.DSN = cfg.Database.GetDSN()
		default:
			cfg.Database.DSN = "confesiones.db"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if c.Telegram.ChannelID == "" {
		return fmt.Errorf("CHAT_ID is required")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Policy.MaxConfessionsPerDay <= 0 || c.Policy.MinWords <= 0 || c.Policy.MaxChars <= 0 {
		return fmt.Errorf("policy values must be positive: max_per_day=%d, min_words=%d, max_chars=%d",
			c.Policy.MaxConfessionsPerDay, c.Policy.MinWords, c.Policy.MaxChars)
	}
	if c.Publish.RetryInterval <= 0 {
		return fmt.Errorf("PUBLISH_RETRY_INTERVAL must be positive, got %s", c.Publish.RetryInterval)
	}
	if c.Telegram.Workers <= 0 {
		c.Telegram.Workers = 1
	}
	if c.Publish.MaxAttempts <= 0 {
		c.Publish.MaxAttempts = 1
	}
	return nil
}

// ArchiveEnabled reports whether photo archiving to S3 is configured.
func (c *S3Config) ArchiveEnabled() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != "" && c.Bucket != ""
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}
