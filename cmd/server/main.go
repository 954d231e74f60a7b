package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lex-dialog/internal/app"
	"lex-dialog/internal/config"
	"lex-dialog/internal/log"
	"lex-dialog/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configFile string
	cmd := &cobra.Command{
		Use:           "lexd",
		Short:         "Serve the dialog runtime over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configFile)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "optional YAML config file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		base := log.Base()
		base.Error().Err(err).Msg("lexd exited")
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	log.Configure(log.Config{Level: cfg.LogLevel, Service: "lexd"})

	rt, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv, err := server.New(server.Config{
		Addr:       cfg.HTTP.Addr,
		RateLimit:  cfg.HTTP.RateLimit,
		RateWindow: cfg.HTTP.RateWindow,
		Logger:     log.WithComponent("server"),
	}, rt.Service)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errCh
}
