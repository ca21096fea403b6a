package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GriffinCanCode/FileDeck/backend/internal/config"
	"github.com/GriffinCanCode/FileDeck/backend/internal/server"
)

// shutdownTimeout bounds draining in-flight requests after a signal
const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "filedeck: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags override the environment
	fs := flag.NewFlagSet("filedeck", flag.ContinueOnError)
	fs.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Server port")
	fs.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "Listen address")
	fs.StringVar(&cfg.Filesystem.SharesFile, "shares", cfg.Filesystem.SharesFile, "SMB shares file (.yaml or .toml)")
	fs.StringVar(&cfg.Filesystem.TempDir, "temp-dir", cfg.Filesystem.TempDir, "Directory for extracted nested archives")
	fs.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	srv, err := server.NewServer(cfg, nil)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Run() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
