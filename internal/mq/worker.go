package mq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gdg-garage/medislot-api/internal/notifier"
	amqp "github.com/rabbitmq/amqp091-go"
)

type WorkerConfig struct {
	RabbitURL string
	Exchange  string
	Queue     string
	Prefetch  int
	Name      string
}

// Worker consumes notification envelopes and delivers them.
type Worker struct {
	cfg      WorkerConfig
	notifier notifier.Notifier
	logger   *slog.Logger

	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewWorker(cfg WorkerConfig, n notifier.Notifier, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{cfg: cfg, notifier: n, logger: logger}
}

func (w *Worker) Connect() error {
	conn, err := amqp.Dial(w.cfg.RabbitURL)
	if err != nil {
		return fmt.Errorf("rabbit dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel failed: %w", err)
	}
	fail := func(err error) error {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	if err := ch.ExchangeDeclare(w.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fail(fmt.Errorf("declare exchange %s failed: %w", w.cfg.Exchange, err))
	}
	q, err := ch.QueueDeclare(w.cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fail(fmt.Errorf("declare queue failed: %w", err))
	}
	for _, key := range Bindings {
		if err := ch.QueueBind(q.Name, key, w.cfg.Exchange, false, nil); err != nil {
			return fail(fmt.Errorf("bind queue key=%s failed: %w", key, err))
		}
	}

	if w.cfg.Prefetch <= 0 {
		w.cfg.Prefetch = 8
	}
	if err := ch.Qos(w.cfg.Prefetch, 0, false); err != nil {
		return fail(fmt.Errorf("set qos failed: %w", err))
	}

	w.conn, w.ch = conn, ch
	return nil
}

func (w *Worker) Close() {
	if w.ch != nil {
		_ = w.ch.Close()
	}
	if w.conn != nil {
		_ = w.conn.Close()
	}
}

// Run consumes until ctx is cancelled or the channel closes.
func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.ch.ConsumeWithContext(ctx, w.cfg.Queue, w.cfg.Name, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume failed: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := w.handle(ctx, d.RoutingKey, d.Body); err != nil {
				// malformed messages will never succeed, so they are not requeued
				w.logger.Warn("dropping notification", "key", d.RoutingKey, "error", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handle decodes one delivery and hands it to the notifier. Delivery
// failures are logged, not returned; only malformed input is an error.
func (w *Worker) handle(ctx context.Context, key string, body []byte) error {
	env, err := decode(key, body)
	if err != nil {
		return err
	}
	notifier.Deliver(ctx, w.notifier, w.logger, 0, env.To, env.Message)
	return nil
}
