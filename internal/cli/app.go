package cli

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/gdg-garage/medislot-api/internal/config"
	"github.com/gdg-garage/medislot-api/internal/database"
	"github.com/gdg-garage/medislot-api/internal/mq"
	"github.com/gdg-garage/medislot-api/internal/notifier"
	"gorm.io/gorm"
)

func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func retryPolicy(cfg *config.Config) database.RetryPolicy {
	p := database.DefaultRetryPolicy()
	if cfg.TxMaxAttempts > 0 {
		p.Attempts = cfg.TxMaxAttempts
	}
	if cfg.TxBackoff > 0 {
		p.Backoff = cfg.TxBackoff
	}
	return p
}

// buildNotifier fans out to every configured channel. The log and in-app
// channels are always on.
func buildNotifier(cfg *config.Config, db *gorm.DB, logger *slog.Logger) notifier.Multi {
	channels := notifier.Multi{notifier.Log{Logger: logger}, notifier.NewInApp(db)}

	if cfg.DiscordBotToken != "" && cfg.DiscordNotificationsChannelID != "" {
		session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
		if err != nil {
			logger.Warn("Discord notifier not initialized", "error", err)
		} else {
			channels = append(channels, notifier.NewDiscordNotifier(session, cfg.DiscordNotificationsChannelID))
		}
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notifier.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			logger.Warn("Telegram notifier not initialized", "error", err)
		} else {
			channels = append(channels, tg)
		}
	}
	return channels
}

// newDispatcher publishes to RabbitMQ when RABBIT_URL is set and delivers
// in process otherwise. Both run off the request goroutine.
func newDispatcher(cfg *config.Config, db *gorm.DB, logger *slog.Logger) (notifier.Dispatcher, func(), error) {
	if cfg.RabbitURL != "" {
		pub, err := mq.NewPublisher(cfg.RabbitURL, cfg.NotifyExchange)
		if err != nil {
			return nil, nil, fmt.Errorf("notification publisher: %w", err)
		}
		logger.Info("notifications go to rabbitmq", "exchange", cfg.NotifyExchange)
		d := notifier.NewAsyncDispatcher(pub, cfg.NotifyBuffer, cfg.NotifyWorkers, logger)
		return d, func() {
			d.Close()
			_ = pub.Close()
		}, nil
	}
	d := notifier.NewAsyncDispatcher(buildNotifier(cfg, db, logger), cfg.NotifyBuffer, cfg.NotifyWorkers, logger)
	return d, d.Close, nil
}
