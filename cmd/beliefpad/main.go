package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"beliefpad/api/internal/bootstrap"
	"beliefpad/api/internal/cli"
	"beliefpad/api/internal/config"
	"beliefpad/api/internal/email"
	"beliefpad/api/internal/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewQuiet(cfg.LogFilePath)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	components, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "beliefpad: %v\n", err)
		os.Exit(1)
	}

	env := &cli.Env{
		Catalogue: components.Catalogue,
		Exporter:  components.Exporter,
		History:   components.History,
		Search:    components.Search,
		Backup:    components.Backup,
		Delivery:  email.NewRemoteClient(cfg.ServerURL),
		Mail:      cli.SystemMailClient{},
		Logger:    logger,
		PIN:       cfg.PIN,
	}
	code := 0
	if err := cli.NewRootCommand(env).ExecuteContext(ctx); err != nil {
		cli.PrintError(os.Stderr, err)
		code = 1
	}
	_ = components.Close()
	os.Exit(code)
}
