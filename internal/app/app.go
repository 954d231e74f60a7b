// Package app assembles the runtime service from a Config. Both the Lambda
// entry point and the HTTP server build through here.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/redis/go-redis/v9"

	"lex-dialog/internal/catalog"
	"lex-dialog/internal/config"
	"lex-dialog/internal/dialog"
	"lex-dialog/internal/integrations/fulfillment"
	"lex-dialog/internal/integrations/paramstore"
	"lex-dialog/internal/log"
	"lex-dialog/internal/repository"
	"lex-dialog/internal/usecase"
)

// Runtime is the assembled service plus the resources Close releases.
type Runtime struct {
	Service *usecase.RuntimeService
	Catalog *catalog.Catalog
	closers []func() error
}

func (r *Runtime) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Build wires the store, catalog, code hook and dialog engine named by cfg.
// AWS configuration is only loaded when a component needs it.
func Build(ctx context.Context, cfg config.Config) (*Runtime, error) {
	rt := &Runtime{}
	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return aws.Config{}, fmt.Errorf("app: load AWS config: %w", err)
		}
		awsCfg = &c
		return c, nil
	}

	storeOpts := []repository.Option{repository.WithSessionTTL(cfg.Store.SessionTTL)}
	switch cfg.Store.Backend {
	case repository.BackendDynamoDB:
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		storeOpts = append(storeOpts, repository.WithDynamoDB(awsdynamodb.NewFromConfig(c), cfg.Store.Table))
	case repository.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr})
		rt.closers = append(rt.closers, client.Close)
		storeOpts = append(storeOpts, repository.WithRedisClient(client), repository.WithKeyPrefix(cfg.Store.KeyPrefix))
	}
	store, err := repository.NewStore(cfg.Store.Backend, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("app: session store: %w", err)
	}

	var params *paramstore.Client
	var source catalog.Source
	if cfg.Catalog.Dir != "" {
		if source, err = catalog.NewDirSource(cfg.Catalog.Dir); err != nil {
			return nil, fmt.Errorf("app: bot catalog: %w", err)
		}
	} else {
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		if params, err = paramstore.New(awsssm.NewFromConfig(c)); err != nil {
			return nil, fmt.Errorf("app: parameter store: %w", err)
		}
		if source, err = catalog.NewParamSource(params, cfg.Catalog.ParamPrefix); err != nil {
			return nil, fmt.Errorf("app: bot catalog: %w", err)
		}
	}
	bots, err := catalog.New(source, cfg.Catalog.CacheSize, catalog.WithTTL(cfg.Catalog.CacheTTL))
	if err != nil {
		return nil, fmt.Errorf("app: bot catalog: %w", err)
	}

	engine, err := dialog.NewEngine(cfg.Dialog.Policy())
	if err != nil {
		return nil, fmt.Errorf("app: dialog engine: %w", err)
	}

	opts := []usecase.Option{
		usecase.WithLogger(log.WithComponent("runtime")),
		usecase.WithTurnLimit(cfg.Dialog.MaxTurns, cfg.Dialog.RetryAfter),
	}
	if cfg.Fulfillment.URL != "" {
		hookOpts := []fulfillment.Option{
			fulfillment.WithHTTPClient(&http.Client{Timeout: cfg.Fulfillment.Timeout}),
		}
		if params != nil {
			hookOpts = append(hookOpts, fulfillment.WithTokenFromParamStore(params, cfg.Catalog.ParamPrefix))
		}
		hook, err := fulfillment.NewClient(cfg.Fulfillment.URL, hookOpts...)
		if err != nil {
			return nil, fmt.Errorf("app: fulfillment: %w", err)
		}
		opts = append(opts, usecase.WithFulfiller(hook))
	}

	rt.Catalog = bots
	rt.Service, err = usecase.NewRuntimeService(bots, store, engine, opts...)
	if err != nil {
		return nil, fmt.Errorf("app: runtime: %w", err)
	}
	return rt, nil
}
