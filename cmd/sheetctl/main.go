package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phuslu/log"

	"github.com/productsheet/backend/config"
	"github.com/productsheet/backend/internal/app"
	"github.com/productsheet/backend/internal/delivery/cli"
	"github.com/productsheet/backend/internal/infrastructure/diagnostics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log.DefaultLogger = log.Logger{
		Level:  log.ParseLevel(cfg.Log.Level),
		Writer: &log.ConsoleWriter{Writer: os.Stderr, ColorOutput: true},
	}

	application, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Listing and cleaning read the output directory even when new
	// diagnostics are disabled.
	responses := application.Diagnostics
	if responses == nil {
		responses = diagnostics.NewFileStore(cfg.Storage.OutputDir)
	}

	root := cli.NewRootCommand(cli.Dependencies{
		Extractor: application.Service,
		ReadText:  application.ReadText,
		Responses: responses,
		OutputDir: cfg.Storage.OutputDir,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = root.ExecuteContext(ctx)
	stop()
	application.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
