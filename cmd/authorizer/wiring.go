package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rajasatyajit/apikey-authorizer/config"
	"github.com/rajasatyajit/apikey-authorizer/internal/authorizer"
	"github.com/rajasatyajit/apikey-authorizer/internal/awsclient"
	"github.com/rajasatyajit/apikey-authorizer/internal/cache"
	"github.com/rajasatyajit/apikey-authorizer/internal/database"
	"github.com/rajasatyajit/apikey-authorizer/internal/decision"
	"github.com/rajasatyajit/apikey-authorizer/internal/keys"
	"github.com/rajasatyajit/apikey-authorizer/internal/logger"
	"github.com/rajasatyajit/apikey-authorizer/internal/metrics"
	"github.com/rajasatyajit/apikey-authorizer/internal/plan"
)

// app is the fully wired authorizer plus whatever must be closed on exit
type app struct {
	cfg     *config.Config
	service *authorizer.Service
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// setup loads configuration, initializes logging and metrics, and wires the service
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting authorizer",
		"version", Version,
		"build_time", BuildTime,
		"git_commit", GitCommit,
	)

	if cfg.Metrics.Enabled {
		metrics.Init()
	}

	return build(ctx, cfg, awsclient.New(awsclient.Config{
		Region:   cfg.Authorizer.Region,
		Endpoint: cfg.KeyService.Endpoint,
	}))
}

func build(ctx context.Context, cfg *config.Config, clients *awsclient.Clients) (*app, error) {
	a := &app{cfg: cfg}

	lister, err := newLister(cfg, clients)
	if err != nil {
		return nil, err
	}

	store, err := a.newStore(ctx, cfg, clients)
	if err != nil {
		a.Close()
		return nil, err
	}

	p := plan.Parse(cfg.Authorizer.AuthorizationPlan)
	if len(p.Steps()) == 0 {
		logger.Warn("Authorization plan has no usable steps; every request will be rejected",
			"plan", cfg.Authorizer.AuthorizationPlan)
	}

	a.service = authorizer.New(
		p,
		cache.New(store, cfg.Cache.MaxAge),
		keys.NewResolver(lister),
		decision.NewBuilder(decision.Config{
			Region:             cfg.Authorizer.Region,
			PrincipalIDTagName: cfg.Authorizer.PrincipalIDTagName,
			DefaultPrincipalID: cfg.Authorizer.DefaultPrincipalID,
			ContextTagPrefix:   cfg.Authorizer.ContextTagPrefix,
			CopyRequestHeaders: cfg.Authorizer.CopyRequestHeaders,
		}),
	)
	return a, nil
}

func newLister(cfg *config.Config, clients *awsclient.Clients) (keys.Lister, error) {
	if keysFile != "" {
		return loadKeysFile(keysFile)
	}
	client, err := clients.APIGateway()
	if err != nil {
		return nil, err
	}
	return keys.NewAPIGatewayLister(client, cfg.KeyService.PageRateLimit), nil
}

func loadKeysFile(path string) (keys.StaticLister, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keys file: %w", err)
	}
	var records []keys.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse keys file %s: %w", path, err)
	}
	logger.Info("Using static key listing", "path", path, "keys", len(records))
	return keys.StaticLister(records), nil
}

// newStore opens the configured cache backend. A disabled cache opens nothing.
func (a *app) newStore(ctx context.Context, cfg *config.Config, clients *awsclient.Clients) (cache.Store, error) {
	if !cfg.Cache.Enabled() {
		logger.Info("Credential cache disabled")
		return nil, nil
	}

	logger.Info("Credential cache enabled", "backend", cfg.Cache.Backend, "max_age_seconds", cfg.Cache.MaxAge)

	switch cfg.Cache.Backend {
	case config.CacheBackendDynamoDB:
		client, err := clients.DynamoDB()
		if err != nil {
			return nil, err
		}
		return cache.NewDynamoDBStore(client, cfg.Cache.TableName), nil

	case config.CacheBackendRedis:
		store, err := cache.NewRedisStore(cfg.Redis.URL, cfg.Redis.KeyPrefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil

	case config.CacheBackendPostgres:
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		store := cache.NewPostgresStore(db, cfg.Cache.TableName)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil

	case config.CacheBackendMemory:
		return cache.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
}
