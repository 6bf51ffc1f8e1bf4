package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdg-garage/medislot-api/internal/auth"
	"github.com/gdg-garage/medislot-api/internal/booking"
	"github.com/gdg-garage/medislot-api/internal/database"
	"github.com/gdg-garage/medislot-api/internal/events"
	"github.com/gdg-garage/medislot-api/internal/handlers"
	"github.com/gdg-garage/medislot-api/internal/obs"
	"github.com/gdg-garage/medislot-api/internal/registration"
	"github.com/gdg-garage/medislot-api/internal/sequence"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
)

const serviceName = "medislot-api"

func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions) error {
	cfg, logger := opts.Config, opts.Logger
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(tctx)
	}()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)

	dispatch, closeDispatch, err := newDispatcher(cfg, db, logger)
	if err != nil {
		return err
	}
	defer closeDispatch()

	policy := retryPolicy(cfg)
	runner := database.NewTxRunner(db, policy)
	deps := handlers.Deps{
		DB:            db,
		Issuer:        auth.NewIssuer(cfg.JWTSecret),
		Events:        events.NewService(runner, dispatch, logger),
		Registrations: registration.NewService(runner, dispatch, logger),
		Bookings:      booking.NewService(runner, sequence.NewCounter(db, policy), dispatch, logger),
	}

	r := chi.NewRouter()
	handlers.RegisterRoutes(r, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "driver", cfg.DatabaseDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
