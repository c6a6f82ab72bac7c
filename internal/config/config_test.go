package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("CHAT_ID", "-1001234")
}

func TestNewConfigDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := NewConfig("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "50051", cfg.Server.GRPCPort)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "confesiones.db", cfg.Database.DSN)
	assert.Equal(t, "Tekvoblack", cfg.Telegram.SupportUsername)
	assert.Equal(t, int64(6913856812), cfg.Telegram.AdminID)
	assert.Equal(t, 6, cfg.Policy.MaxConfessionsPerDay)
	assert.Equal(t, 25, cfg.Policy.MinWords)
	assert.Equal(t, 4000, cfg.Policy.MaxChars)
	assert.Equal(t, time.Minute, cfg.Publish.RetryInterval)
	assert.False(t, cfg.S3.ArchiveEnabled())
}

func TestNewConfigEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9000")
	t.Setenv("MAX_CONFESSIONS_PER_DAY", "3")
	t.Setenv("PUBLISH_RETRY_INTERVAL", "30s")
	t.Setenv("ADMIN_ID", "42")
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("DATABASE_HOST", "db")
	t.Setenv("DATABASE_PORT", "5432")
	t.Setenv("DATABASE_USER", "relay")
	t.Setenv("DATABASE_PASSWORD", "pw")
	t.Setenv("DATABASE_NAME", "confesiones")
	t.Setenv("S3_ACCESS_KEY_ID", "id")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("S3_BUCKET", "photos")

	cfg, err := NewConfig("")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Policy.MaxConfessionsPerDay)
	assert.Equal(t, 30*time.Second, cfg.Publish.RetryInterval)
	assert.Equal(t, int64(42), cfg.Telegram.AdminID)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "host=db port=5432 user=relay password=pw dbname=confesiones sslmode=disable", cfg.Database.DSN)
	assert.True(t, cfg.S3.ArchiveEnabled())
}

func TestNewConfigRejectsZeroRetryInterval(t *testing.T) {
	setRequired(t)
	t.Setenv("PUBLISH_RETRY_INTERVAL", "0s")

	_, err := NewConfig("")
	assert.ErrorContains(t, err, "PUBLISH_RETRY_INTERVAL")
}

func TestNewConfigLoadsDotenv(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MIN_WORDS=10\nBOT_USERNAME=OtroBot\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("MIN_WORDS")
		os.Unsetenv("BOT_USERNAME")
	})

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Policy.MinWords)
	assert.Equal(t, "OtroBot", cfg.Telegram.BotUsername)
}

func TestNewConfigMissingDotenvIsFine(t *testing.T) {
	setRequired(t)
	_, err := NewConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database: DatabaseConfig{Driver: "sqlite3"},
			Telegram: TelegramConfig{Token: "t", ChannelID: "c"},
			Policy:   PolicyConfig{MaxConfessionsPerDay: 6, MinWords: 25, MaxChars: 4000},
			Publish:  PublishConfig{RetryInterval: time.Minute},
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Telegram.Workers)
	assert.Equal(t, 1, cfg.Publish.MaxAttempts)

	tests := map[string]func(c *Config){
		"missing token":   func(c *Config) { c.Telegram.Token = "" },
		"missing channel": func(c *Config) { c.Telegram.ChannelID = "" },
		"bad driver":      func(c *Config) { c.Database.Driver = "mysql" },
		"zero quota":      func(c *Config) { c.Policy.MaxConfessionsPerDay = 0 },
		"negative words":  func(c *Config) { c.Policy.MinWords = -1 },
		"zero retry":      func(c *Config) { c.Publish.RetryInterval = 0 },
		"negative retry":  func(c *Config) { c.Publish.RetryInterval = -time.Second },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
