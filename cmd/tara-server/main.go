package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dd0wney/cluso-tara/pkg/api"
	"github.com/dd0wney/cluso-tara/pkg/audit"
	"github.com/dd0wney/cluso-tara/pkg/config"
	"github.com/dd0wney/cluso-tara/pkg/feed"
	"github.com/dd0wney/cluso-tara/pkg/graphql"
	"github.com/dd0wney/cluso-tara/pkg/logging"
	"github.com/dd0wney/cluso-tara/pkg/metrics"
	"github.com/dd0wney/cluso-tara/pkg/policy"
	"github.com/dd0wney/cluso-tara/pkg/risk"
	"github.com/dd0wney/cluso-tara/pkg/server"
	"github.com/dd0wney/cluso-tara/pkg/store"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	addr := flag.String("addr", "", "Listen address, overrides the config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("tara-server v%s\n", version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logging.SetDefaultLogger(logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.Logging.Level)))
	log := logging.DefaultLogger().With(logging.Component("main"))

	log.Info("Cluso TARA server starting",
		logging.String("version", version),
		logging.String("addr", cfg.Server.Addr),
		logging.String("store_backend", cfg.Store.Backend))

	reg := metrics.DefaultRegistry()

	// Risk policy: external tables when configured, compiled-in defaults
	// otherwise. Either way the tables have passed the monotonicity checks
	// before the first request arrives.
	pol, policySource, err := loadPolicy(cfg.Policy.Path)
	if err != nil {
		log.Error("failed to load risk policy", logging.Path(cfg.Policy.Path), logging.Error(err))
		os.Exit(1)
	}
	log.Info("risk policy loaded", logging.String("source", policySource))

	projectStore, err := openStore(cfg, reg)
	if err != nil {
		log.Error("failed to open project store", logging.Error(err))
		os.Exit(1)
	}
	defer projectStore.Close()

	history, historyCloser, err := openHistory(cfg)
	if err != nil {
		log.Error("failed to open history log", logging.Path(cfg.History.Dir), logging.Error(err))
		os.Exit(1)
	}
	if historyCloser != nil {
		defer historyCloser()
	}

	eventFeed := openFeed(cfg, reg, log)
	defer eventFeed.Close()

	schema, err := graphql.GenerateSchema(projectStore)
	if err != nil {
		log.Error("failed to build GraphQL schema", logging.Error(err))
		os.Exit(1)
	}

	apiServer, err := api.NewServer(api.Options{
		Store:        projectStore,
		Recalculator: risk.NewProjectRecalculator(pol),
		History:      history,
		Feed:         eventFeed,
		Metrics:      reg,
		GraphQL:      graphql.NewHandler(schema),
		Version:      version,
		PolicySource: policySource,
	})
	if err != nil {
		log.Error("failed to create API server", logging.Error(err))
		os.Exit(1)
	}
	defer apiServer.Shutdown()

	gs := server.NewGracefulServer(cfg.Server.Addr, apiServer.Handler())
	gs.SetShutdownTimeout(cfg.Server.ShutdownTimeout)
	gs.SetConfigReloadFunc(func() error {
		// A SIGHUP re-reads and validates the configuration so operators
		// can catch mistakes before a restart; live collaborators keep
		// their settings until the process is restarted.
		reloaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		if _, _, err := loadPolicy(reloaded.Policy.Path); err != nil {
			return fmt.Errorf("risk policy: %w", err)
		}
		log.Info("configuration revalidated; restart to apply changes")
		return nil
	})

	if err := gs.Start(); err != nil {
		log.Error("server failed", logging.Error(err))
		os.Exit(1)
	}

	log.Info("server stopped")
}

func loadPolicy(path string) (*policy.Policy, string, error) {
	if path == "" {
		return policy.Default(), "defaults", nil
	}
	pol, err := policy.Load(path)
	if err != nil {
		return nil, "", err
	}
	return pol, path, nil
}

func openStore(cfg *config.Config, reg *metrics.Registry) (store.ProjectStore, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		pgCfg := store.DefaultPGStoreConfig(cfg.Store.DatabaseURL)
		pgCfg.Registry = reg
		return store.NewPGStore(ctx, pgCfg)
	default:
		fileCfg := store.DefaultFileStoreConfig(cfg.Store.DataDir)
		fileCfg.Registry = reg
		if cfg.Store.MaxArchives > 0 {
			fileCfg.MaxArchives = cfg.Store.MaxArchives
		}
		return store.NewFileStore(fileCfg)
	}
}

func openHistory(cfg *config.Config) (audit.Recorder, func(), error) {
	if !cfg.History.Persistent {
		return audit.NewHistoryLog(cfg.History.BufferSize), nil, nil
	}
	persistentCfg := audit.DefaultPersistentConfig()
	persistentCfg.LogDir = cfg.History.Dir
	persistentCfg.RetentionDays = cfg.History.RetentionDays
	log, err := audit.NewPersistentHistoryLog(persistentCfg)
	if err != nil {
		return nil, nil, err
	}
	return log, func() { log.Close() }, nil
}

// openFeed builds the recalculation event feed. A configured wire
// transport that is not compiled into the binary, or fails to bind, is
// downgraded to in-process delivery with a warning rather than refusing
// to start: the feed is an observer, not a dependency.
func openFeed(cfg *config.Config, reg *metrics.Registry, log logging.Logger) *feed.Feed {
	opts := feed.Options{
		BufferSize: cfg.Feed.BufferSize,
		Registry:   reg,
	}

	if cfg.Feed.Transport != "" {
		wire, err := feed.NewWirePublisher(feed.WireConfig{
			Transport:  cfg.Feed.Transport,
			Address:    cfg.Feed.Address,
			BufferSize: cfg.Feed.BufferSize,
		})
		if err != nil {
			log.Warn("wire feed unavailable, continuing in-process only",
				logging.String("transport", cfg.Feed.Transport),
				logging.Error(err))
		} else if err := wire.Start(); err != nil {
			log.Warn("wire feed failed to start, continuing in-process only",
				logging.String("transport", cfg.Feed.Transport),
				logging.String("address", cfg.Feed.Address),
				logging.Error(err))
		} else {
			log.Info("wire feed publishing",
				logging.String("transport", cfg.Feed.Transport),
				logging.String("address", cfg.Feed.Address))
			opts.Wire = wire
		}
	}

	return feed.New(opts)
}
