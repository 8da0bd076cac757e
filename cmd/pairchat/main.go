package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"pairchat/internal/app"
	"pairchat/internal/config"
	"pairchat/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file (overrides "+config.ConfigFileEnv+")")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "pairchat:", err)
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then shuts down within the configured timeout
// ARCHITECTURAL DISCOVERY: Separate run function keeps main testable
func run(ctx context.Context, configPath string, out io.Writer) error {
	// STEP 1: Configuration with precedence defaults < env < file
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// STEP 2: Logger
	logger, err := logging.New(out, cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}

	// STEP 3: Application
	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	if err := application.Start(ctx); err != nil {
		_ = application.Stop(context.Background())
		return fmt.Errorf("failed to start application: %w", err)
	}

	// STEP 4: Wait for shutdown signal
	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := application.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}
