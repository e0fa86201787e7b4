// dash.go assembles and runs the dashboard: client, store, reconciliation
// loops, optional feed and journal listeners, and the console.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/example/kdash/internal/agetrack"
	"github.com/example/kdash/internal/appconfig"
	"github.com/example/kdash/internal/config"
	"github.com/example/kdash/internal/feed"
	"github.com/example/kdash/internal/journal"
	"github.com/example/kdash/internal/kube"
	"github.com/example/kdash/internal/logging"
	"github.com/example/kdash/internal/resources"
	"github.com/example/kdash/internal/ui"
	"github.com/example/kdash/internal/watch"
)

func runDashboard(cmd *cobra.Command, opts *config.Options) error {
	if err := applyViewDefaults(cmd.Flags(), opts); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	logger, err := logging.New(opts.LogLevel)
	if err != nil {
		return err
	}
	logging.RouteKlog(logger)

	stats := kube.NewAPIRequestStats()
	client, err := kube.New(opts.KubeConfigPath, opts.Context, stats)
	if err != nil {
		return err
	}
	stop := ui.StartSpinner(os.Stderr, "Connecting to cluster")
	serverVersion, err := client.ServerVersion()
	stop(err == nil)
	if err != nil {
		return err
	}
	logger.Info("connected to cluster", "serverVersion", serverVersion)

	tables, err := selectTables(opts)
	if err != nil {
		return err
	}

	registry := watch.NewRegistry(logger)
	store := watch.NewStore(logger, registry)
	scheduler := agetrack.NewScheduler(logger)

	var loops []*watch.Loop
	var poller *watch.Poller
	for _, table := range tables {
		if table.Kind() == watch.PodMetricsKind {
			poller = watch.NewPoller(logger, client.Metrics, store, watch.PollerOptions{
				Interval:  opts.MetricsInterval,
				Namespace: opts.Namespace,
			})
			continue
		}
		gateway := watch.NewGateway(client.Dynamic, table.GVR(), table.Namespaced())
		scope := watch.Scope{Kind: table.Kind(), ClusterScoped: !table.Namespaced()}
		if table.Namespaced() {
			scope.Namespace = opts.Namespace
		}
		loops = append(loops, watch.NewLoop(logger, gateway, store, scope, watch.LoopOptions{}))
	}

	engine := watch.NewManager(watch.ManagerConfig{
		Log:       logger,
		Store:     store,
		Registry:  registry,
		Scheduler: scheduler,
		Loops:     loops,
		Poller:    poller,
	})

	var feedSrv *feed.Server
	if opts.ListenAddr != "" {
		feedSrv = feed.New(opts.ListenAddr, logger)
		for _, table := range tables {
			engine.Subscribe(table.Kind(), feedSrv)
		}
	}

	var jnl *journal.Journal
	if opts.JournalPath != "" {
		jnl, err = journal.Open(opts.JournalPath, journal.Options{MaxRows: opts.JournalMaxRows})
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		recorder := journal.NewRecorder(logger, store, jnl)
		for _, table := range tables {
			engine.Subscribe(table.Kind(), recorder)
		}
	}

	console := ui.NewConsole(os.Stdout, logger, engine, tables, opts.Namespace, stats, ui.ConsoleOptions{Tick: opts.Tick})

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error { return engine.Run(ctx) })
	if feedSrv != nil {
		g.Go(func() error { return feedSrv.Run(ctx) })
	}
	g.Go(func() error { return console.Run(ctx) })
	runErr := g.Wait()

	if jnl != nil {
		if dropped := jnl.Dropped(); dropped > 0 {
			logger.Info("journal dropped entries under load", "count", dropped)
		}
		if cerr := jnl.Close(); cerr != nil {
			logger.Error(cerr, "close journal")
		}
	}
	logger.Info("api request summary", "requests", stats.Snapshot().String())
	return runErr
}

// applyViewDefaults layers ~/.kdash/config.yaml view defaults under flags the
// user did not set on the command line.
func applyViewDefaults(fs *pflag.FlagSet, opts *config.Options) error {
	cfg, err := appconfig.Load(appconfig.DefaultPath())
	if err != nil {
		return err
	}
	view := cfg.View
	if !fs.Changed("namespace") && view.Namespace != "" {
		opts.Namespace = view.Namespace
	}
	if !fs.Changed("kinds") && len(view.Kinds) > 0 {
		opts.Kinds = view.Kinds
	}
	if !fs.Changed("listen") && view.Listen != "" {
		opts.ListenAddr = view.Listen
	}
	if !fs.Changed("journal") && view.Journal != "" {
		opts.JournalPath = view.Journal
	}
	if !fs.Changed("tick") {
		if d, _ := view.TickDuration(); d > 0 {
			opts.Tick = d
		}
	}
	if !fs.Changed("metrics-interval") {
		if d, _ := view.MetricsIntervalDuration(); d > 0 {
			opts.MetricsInterval = d
		}
	}
	return nil
}

// selectTables resolves the kinds to display in catalog order. The synthetic
// pod metrics kind is excluded when its poll interval is zero.
func selectTables(opts *config.Options) ([]resources.Table, error) {
	selected := make(map[string]struct{})
	for _, kind := range opts.WatchKinds() {
		selected[kind] = struct{}{}
	}
	var tables []resources.Table
	for _, table := range resources.Catalog() {
		if _, ok := selected[table.Kind()]; !ok {
			continue
		}
		if table.Kind() == watch.PodMetricsKind && opts.MetricsInterval <= 0 {
			continue
		}
		tables = append(tables, table)
	}
	if len(tables) == 0 {
		return nil, errors.New("no kinds left to watch; check --kinds and --metrics-interval")
	}
	return tables, nil
}
