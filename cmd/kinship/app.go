package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/persistorai/kinship/internal/cache"
	"github.com/persistorai/kinship/internal/config"
	"github.com/persistorai/kinship/internal/dbpool"
	"github.com/persistorai/kinship/internal/graph"
	"github.com/persistorai/kinship/internal/models"
	"github.com/persistorai/kinship/internal/service"
	"github.com/persistorai/kinship/internal/store"
)

var errNoSource = errors.New("no tree source: pass --file, or --tree with --sqlite or --database-url")

// app is the wiring shared by every subcommand.
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	cache     *cache.RelationshipCache
	relations *service.RelationshipService
	printer   *printer

	pool    *dbpool.Pool
	closers []func()
}

func newApp(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if flags.databaseURL != "" {
		cfg.DatabaseURL = config.Secret(flags.databaseURL)
	}

	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	p, err := newPrinter(cmd.OutOrStdout(), flags.format)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(level)

	c := cache.New(cacheOptions(cfg), log)

	return &app{
		cfg:       cfg,
		log:       log,
		cache:     c,
		relations: service.NewRelationshipService(c, log, serviceOptions(cfg)),
		printer:   p,
	}, nil
}

func cacheOptions(cfg *config.Config) cache.Options {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = -1
	}

	return cache.Options{MaxSize: cfg.CacheMaxSize, TTL: ttl, TrackStats: cfg.CacheTrackStats}
}

func serviceOptions(cfg *config.Config) service.Options {
	opts := service.DefaultOptions()
	opts.MaxDepth = cfg.MaxDepth
	opts.PathLimits = graph.PathLimits{
		MaxDepth:      cfg.PathMaxDepth,
		MaxResults:    cfg.PathMaxResults,
		MaxExpansions: cfg.PathMaxExpansions,
	}
	opts.Convention = cfg.Convention
	opts.MatrixMaxPersons = cfg.MatrixMaxPersons

	if cfg.Workers > 0 {
		opts.Workers = cfg.Workers
	}

	return opts
}

// database opens the PostgreSQL pool once per invocation.
func (a *app) database(ctx context.Context) (*dbpool.Pool, error) {
	if a.pool != nil {
		return a.pool, nil
	}

	if !a.cfg.HasDatabase() {
		return nil, errors.New("DATABASE_URL or --database-url is required")
	}

	pool, err := dbpool.NewPool(ctx, a.cfg.DatabaseURL.Value(), dbpool.Options{MaxConns: int32(a.cfg.DBMaxConns)}) //nolint:gosec // validated 2..100.
	if err != nil {
		return nil, err
	}

	a.pool = pool
	a.closers = append(a.closers, pool.Close)

	return pool, nil
}

// source resolves the tree loader and tree id selected by the flags.
// --file wins over --sqlite, which wins over the database.
func (a *app) source(ctx context.Context, flags *globalFlags) (service.TreeLoader, string, error) {
	switch {
	case flags.file != "":
		return store.NewFileStore(filepath.Dir(flags.file), a.log), store.TreeIDFromPath(flags.file), nil
	case flags.tree == "":
		return nil, "", errNoSource
	case flags.sqlite != "":
		s, err := store.OpenSQLite(ctx, flags.sqlite, a.log)
		if err != nil {
			return nil, "", err
		}

		a.closers = append(a.closers, func() { s.Close() }) //nolint:errcheck // closing on exit.

		return s, flags.tree, nil
	case a.cfg.HasDatabase():
		pool, err := a.database(ctx)
		if err != nil {
			return nil, "", err
		}

		return store.NewFamilyStore(pool, a.log), flags.tree, nil
	default:
		return nil, "", errNoSource
	}
}

// graph loads and builds the selected tree.
func (a *app) graph(ctx context.Context, flags *globalFlags) (*graph.FamilyGraph, error) {
	loader, treeID, err := a.source(ctx, flags)
	if err != nil {
		return nil, err
	}

	return service.NewTreeService(loader, a.log).Graph(ctx, treeID)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// exitCode maps engine errors to distinct process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, models.ErrPersonNotFound), errors.Is(err, models.ErrTreeNotFound):
		return 3
	case errors.Is(err, models.ErrInvalidRelationship), errors.Is(err, models.ErrMatrixTooLarge):
		return 4
	case errors.Is(err, models.ErrMalformedGraph):
		return 5
	default:
		return 1
	}
}
