// Command identity-mock serves the in-process identity backend over HTTP
// so the authsession CLI can run with -identity=http.
//
// Every call waits for the configured latency (1s by default) before it
// resolves. The demo account is demo@example.com / password.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/havenstay/authsession/identity"
	"github.com/havenstay/authsession/internal/app"
	"github.com/havenstay/authsession/internal/config"
	"github.com/havenstay/authsession/internal/logging"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("identity-mock", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "path to a YAML config file")
		envFile    = fs.String("env", ".env", "dotenv file, ignored when missing")
		addr       = fs.String("addr", "", "listen address, overrides server.host and server.port")
		latency    = fs.Duration("latency", -1, "simulated latency per call, overrides the config")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := os.Stat(*envFile); err == nil {
		if err := godotenv.Load(*envFile); err != nil {
			return fmt.Errorf("loading %s: %w", *envFile, err)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *latency >= 0 {
		cfg.Identity.Latency = *latency
	}
	listen := cfg.Server.Addr()
	if *addr != "" {
		listen = *addr
	}

	logger := logging.NewWithWriter(stderr, cfg.Logging, "identity-mock", version)

	mock, err := app.NewMock(cfg.Identity, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              listen,
		Handler:           identity.NewHandler(mock, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	return serve(ctx, srv, logger.With("addr", listen, "latency", cfg.Identity.Latency))
}

func serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("identity mock listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
