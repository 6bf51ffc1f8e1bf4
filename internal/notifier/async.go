package notifier

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type job struct {
	to  Recipient
	msg Message
}

// AsyncDispatcher delivers messages on a fixed pool of goroutines. When the
// queue is full new messages are dropped with a warning.
type AsyncDispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	timeout  time.Duration

	jobs      chan job
	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func NewAsyncDispatcher(n Notifier, buffer, workers int, logger *slog.Logger) *AsyncDispatcher {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &AsyncDispatcher{
		notifier: n,
		logger:   logger,
		timeout:  10 * time.Second,
		jobs:     make(chan job, buffer),
	}
	for range workers {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

func (d *AsyncDispatcher) Dispatch(_ context.Context, to Recipient, msg Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("notification dropped, dispatcher closed", "kind", msg.Kind, "reference", msg.Reference)
		return
	}
	select {
	case d.jobs <- job{to: to, msg: msg}:
	default:
		d.logger.Warn("notification dropped, queue full", "kind", msg.Kind, "reference", msg.Reference)
	}
}

func (d *AsyncDispatcher) run() {
	defer d.wg.Done()
	for j := range d.jobs {
		Deliver(context.Background(), d.notifier, d.logger, d.timeout, j.to, j.msg)
	}
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (d *AsyncDispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.jobs)
		d.mu.Unlock()
	})
	d.wg.Wait()
}

// Deliver runs one notification with a timeout, logging and swallowing any
// failure.
func Deliver(ctx context.Context, n Notifier, logger *slog.Logger, timeout time.Duration, to Recipient, msg Message) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := n.Notify(ctx, to, msg); err != nil {
		logger.Warn("notification failed",
			"kind", msg.Kind,
			"user_id", to.UserID,
			"reference", msg.Reference,
			"error", err,
		)
	}
}

// Discard drops every message.
type Discard struct{}

func (Discard) Dispatch(context.Context, Recipient, Message) {}
