package cli

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/gdg-garage/medislot-api/internal/mq"
	"github.com/spf13/cobra"
)

func NewNotifyWorkerCommand(opts *RootOptions) *cobra.Command {
	var prefetch int

	cmd := &cobra.Command{
		Use:   "notify-worker",
		Short: "Deliver notifications published to RabbitMQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := opts.Config, opts.Logger
			if cfg.RabbitURL == "" {
				return errors.New("RABBIT_URL is required")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB(db)

			w := mq.NewWorker(mq.WorkerConfig{
				RabbitURL: cfg.RabbitURL,
				Exchange:  cfg.NotifyExchange,
				Queue:     cfg.NotifyQueue,
				Prefetch:  prefetch,
				Name:      "medislot-notify-worker",
			}, buildNotifier(cfg, db, logger), logger)
			if err := w.Connect(); err != nil {
				return err
			}
			defer w.Close()

			logger.Info("notify worker consuming", "queue", cfg.NotifyQueue)
			return w.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&prefetch, "prefetch", 8, "unacknowledged deliveries per worker")
	return cmd
}
