// Command authsession drives a session manager from the command line.
//
// The session survives between invocations when a persistent store is
// selected:
//
//	authsession -store=file sign-in demo@example.com password
//	authsession -store=file status
//	authsession -store=file check /host
//	authsession -store=file sign-out
//
// serve exposes the guarded demo routes and Prometheus metrics over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/havenstay/authsession"
	"github.com/havenstay/authsession/internal/app"
	"github.com/havenstay/authsession/internal/config"
	"github.com/havenstay/authsession/internal/logging"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("authsession", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "path to a YAML config file")
		envFile    = fs.String("env", ".env", "dotenv file loaded before the config, ignored when missing")
		store      = fs.String("store", "", "session backend: memory, file, redis, sqlite or miniredis")
		mode       = fs.String("identity", "", "identity backend: mock or http")
		latency    = fs.Duration("latency", -1, "mock identity latency, overrides the config")
		jsonOut    = fs.Bool("json", false, "print notifications as JSON lines")
		timeout    = fs.Duration("timeout", 30*time.Second, "overall command timeout")
	)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: authsession [flags] <command> [args]\n\ncommands:\n")
		printCommands(stderr)
		fmt.Fprintf(stderr, "\nflags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	if _, err := os.Stat(*envFile); err == nil {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(stderr, "loading %s: %v\n", *envFile, err)
			return 1
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *store != "" {
		cfg.Store.Backend = *store
	}
	if *mode != "" {
		cfg.Identity.Mode = *mode
	}
	if *latency >= 0 {
		cfg.Identity.Latency = *latency
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	logger := logging.NewWithWriter(stderr, cfg.Logging, "authsession", version)

	cmd, ok := lookupCommand(fs.Arg(0))
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", fs.Arg(0))
		fs.Usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if !cmd.longRunning {
		// One-shot commands print notifications in order with their output.
		cfg.Manager.Notifications.Async = false
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	var sink authsession.NotificationSink = consoleSink{w: stdout}
	if *jsonOut {
		sink = authsession.NewJSONWriterSink(stdout)
	}

	env, cleanup, err := open(ctx, cfg, sink, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer cleanup()
	env.stdout = stdout

	if err := cmd.run(ctx, env, fs.Args()[1:]); err != nil {
		logger.Debug("command failed", "command", cmd.name, "error", err)
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

type environment struct {
	cfg     *config.Config
	manager *authsession.Manager
	logger  *slog.Logger
	stdout  io.Writer
}

func open(ctx context.Context, cfg *config.Config, sink authsession.NotificationSink, logger *slog.Logger) (*environment, func(), error) {
	store, closeStore, err := app.OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, nil, err
	}
	svc, err := app.NewIdentity(cfg.Identity, logger)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	m, err := app.Manager(ctx, cfg.Manager, store, svc, sink, logger, 10*time.Second)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	cleanup := func() {
		m.Close()
		closeStore()
	}
	return &environment{cfg: cfg, manager: m, logger: logger}, cleanup, nil
}

type consoleSink struct {
	w io.Writer
}

func (s consoleSink) Notify(_ context.Context, n authsession.Notification) {
	fmt.Fprintf(s.w, "[%s] %s: %s\n", n.Severity, n.Title, n.Description)
}
