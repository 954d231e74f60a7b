package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"lex-dialog/handler"
	"lex-dialog/internal/app"
	"lex-dialog/internal/config"
	"lex-dialog/internal/log"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load(os.Getenv("LEXD_CONFIG_FILE"))
	if err != nil {
		base := log.Base()
		base.Fatal().Err(err).Msg("failed to load configuration")
	}
	log.Configure(log.Config{Level: cfg.LogLevel, Service: "lex-dialog-lambda"})
	logger := log.WithComponent("main")

	// ---- Runtime ----
	rt, err := app.Build(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build runtime")
	}
	// Preload bot definitions so the first turn after a cold start skips SSM.
	if n, err := rt.Catalog.Warm(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to preload bot definitions")
	} else {
		logger.Info().Int("bots", n).Msg("bot definitions preloaded")
	}

	// ---- Handler ----
	h, err := handler.NewHandler(rt.Service, handler.WithLogger(log.WithComponent("handler")))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create handler")
	}

	lambda.Start(h.Handle)
}
