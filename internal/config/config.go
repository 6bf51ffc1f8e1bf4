package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                          string        `mapstructure:"PORT"`
	LogLevel                      string        `mapstructure:"LOG_LEVEL"`
	DatabaseDriver                string        `mapstructure:"DATABASE_DRIVER"`
	DatabasePath                  string        `mapstructure:"DATABASE_PATH"`
	DatabaseDSN                   string        `mapstructure:"DATABASE_DSN"`
	TxMaxAttempts                 int           `mapstructure:"TX_MAX_ATTEMPTS"`
	TxBackoff                     time.Duration `mapstructure:"TX_BACKOFF"`
	JWTSecret                     string        `mapstructure:"JWT_SECRET"`
	NotifyBuffer                  int           `mapstructure:"NOTIFY_BUFFER"`
	NotifyWorkers                 int           `mapstructure:"NOTIFY_WORKERS"`
	DiscordBotToken               string        `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string        `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`
	TelegramBotToken              string        `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID                int64         `mapstructure:"TELEGRAM_CHAT_ID"`
	RabbitURL                     string        `mapstructure:"RABBIT_URL"`
	NotifyExchange                string        `mapstructure:"NOTIFY_EXCHANGE"`
	NotifyQueue                   string        `mapstructure:"NOTIFY_QUEUE"`
	OTLPEndpoint                  string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// LoadConfig reads envFile (if present) and then the process environment.
// Variables already set in the environment win over the file.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}
	return Load(viper.New())
}

func Load(v *viper.Viper) (*Config, error) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_PATH", "medislot.db")
	v.SetDefault("TX_MAX_ATTEMPTS", 5)
	v.SetDefault("TX_BACKOFF", 20*time.Millisecond)
	v.SetDefault("NOTIFY_BUFFER", 256)
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_EXCHANGE", "medislot.notify")
	v.SetDefault("NOTIFY_QUEUE", "medislot.notify.q")

	v.BindEnv("DATABASE_DSN")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("DISCORD_BOT_TOKEN")
	v.BindEnv("DISCORD_NOTIFICATIONS_CHANNEL_ID")
	v.BindEnv("TELEGRAM_BOT_TOKEN")
	v.BindEnv("TELEGRAM_CHAT_ID")
	v.BindEnv("RABBIT_URL")
	v.BindEnv("OTEL_EXPORTER_OTLP_ENDPOINT")

	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
