package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/goran-ethernal/DDOIndexor/internal/checkpoint"
	"github.com/goran-ethernal/DDOIndexor/internal/common"
	"github.com/goran-ethernal/DDOIndexor/internal/config"
	"github.com/goran-ethernal/DDOIndexor/internal/db"
	"github.com/goran-ethernal/DDOIndexor/internal/ddo"
	"github.com/goran-ethernal/DDOIndexor/internal/decoder"
	"github.com/goran-ethernal/DDOIndexor/internal/eventbus"
	"github.com/goran-ethernal/DDOIndexor/internal/logger"
	"github.com/goran-ethernal/DDOIndexor/internal/metrics"
	"github.com/goran-ethernal/DDOIndexor/internal/migrations"
	"github.com/goran-ethernal/DDOIndexor/internal/supervisor"
	"github.com/goran-ethernal/DDOIndexor/pkg/api"
	pkgconfig "github.com/goran-ethernal/DDOIndexor/pkg/config"
	"github.com/goran-ethernal/DDOIndexor/pkg/indexer"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════╗
║            DDOIndexor v%s              ║
║   Multi-chain asset metadata crawler      ║
╚═══════════════════════════════════════════╝
`
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "indexer",
	Short: "DDOIndexor - multi-chain asset metadata crawler",
	Long: `DDOIndexor crawls the configured EVM networks for asset metadata and order
events, persists the resulting documents and republishes newly indexed records.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runIndexer,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start crawling every configured network",
	RunE:  runIndexer,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the configuration file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: %d network(s)\n", len(cfg.Networks))
		for _, n := range cfg.Networks {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s (chain %d, %d rpc url(s))\n", n.DisplayName(), n.ChainID, len(n.RPCURLs))
		}
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the configuration file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reflector := jsonschema.Reflector{FieldNameTag: "json"}
		schema := reflector.Reflect(&pkgconfig.Config{})

		out, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode schema: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.AddCommand(runCmd, validateCmd, schemaCmd)
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	fmt.Printf(banner, version)

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.NewComponentLoggerFromConfig(common.ComponentSupervisor, cfg.Logging)
	logger.SetDefaultLogger(log)

	componentLog := func(component string) *logger.Logger {
		return logger.NewComponentLoggerFromConfig(component, cfg.Logging)
	}

	metrics.SetBuildInfo(version)

	log.Infow("opening database", "path", cfg.DB.Path)
	sqlDB, err := db.NewSQLiteDBFromConfig(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer sqlDB.Close()

	if err := migrations.Run(log, sqlDB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	metrics.SetComponentHealth(common.ComponentDocumentStore, true)

	maint := db.NewMaintenance(cfg.DB.Path, sqlDB, cfg.Maintenance, componentLog(common.ComponentMaintenance))
	if err := maint.Start(ctx); err != nil {
		return fmt.Errorf("failed to start database maintenance: %w", err)
	}
	defer func() {
		if err := maint.Stop(); err != nil {
			log.Warnw("failed to stop database maintenance", "error", err)
		}
	}()

	checkpoints, err := checkpoint.Open(cfg.Checkpoint, sqlDB, maint, log)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	defer checkpoints.Close()

	documents := ddo.NewStore(sqlDB, maint, componentLog(common.ComponentDocumentStore))

	dec, err := decoder.New()
	if err != nil {
		return fmt.Errorf("failed to load event ABIs: %w", err)
	}

	bus := eventbus.New(cfg.Events.SubscriberBuffer, componentLog(common.ComponentEventBus))
	defer bus.Close()

	if cfg.Events.NATS != nil {
		natsLog := componentLog(common.ComponentEventBus)
		conn, err := eventbus.ConnectNATS(*cfg.Events.NATS, natsLog)
		if err != nil {
			metrics.SetComponentHealth(common.ComponentEventBus, false)
			return err
		}
		metrics.SetComponentHealth(common.ComponentEventBus, true)
		defer conn.Drain() //nolint:errcheck

		bridge := eventbus.NewNATSBridge(conn, cfg.Events.NATS.SubjectPrefix, natsLog)
		bridge.Attach(bus, forwardKinds(cfg.Events.Forward)...)
		defer bridge.Detach()

		log.Infow("forwarding events to NATS", "url", conn.ConnectedUrl(), "prefix", cfg.Events.NATS.SubjectPrefix)
	}

	sup, err := supervisor.New(supervisor.Options{
		Checkpoints: checkpoints,
		Factory: supervisor.NewCrawlerFactory(supervisor.CrawlerDeps{
			Defaults:    cfg.Crawler,
			Checkpoints: checkpoints,
			Documents:   documents,
			Decoder:     dec,
		}, componentLog(common.ComponentCrawler)),
		Bus:     bus,
		Policy:  supervisor.PolicyFromConfig(cfg.Supervisor),
		Forward: cfg.Events.Forward,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create supervisor: %w", err)
	}

	var started atomic.Bool
	metricsServer := metrics.NewServer(metricsConfig(cfg), log)
	metricsServer.SetReadiness(func() error {
		if !started.Load() {
			return errors.New("networks are starting")
		}
		return exitStatus(sup.Networks())
	})
	if err := metricsServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	defer func() {
		if err := metricsServer.Stop(context.Background()); err != nil {
			log.Warnw("failed to stop metrics server", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	log.Infow("starting networks", "count", len(cfg.Networks))
	if err := sup.StartAll(gctx, cfg.Networks); err != nil {
		stop()
		sup.Wait()
		metrics.SetComponentHealth(common.ComponentSupervisor, false)
		return err
	}
	metrics.SetComponentHealth(common.ComponentSupervisor, true)
	started.Store(true)

	if cfg.API != nil {
		apiServer := api.NewServer(cfg.API, sup, componentLog(common.ComponentAPI))
		g.Go(func() error {
			return apiServer.Start(gctx)
		})
	}

	g.Go(func() error {
		sup.Wait()
		metrics.SetComponentHealth(common.ComponentSupervisor, false)
		interrupted := ctx.Err() != nil
		// every worker has exited; stop the API as well
		stop()
		if interrupted {
			return nil
		}
		return exitStatus(sup.Networks())
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("DDOIndexor stopped")
	return nil
}

// exitStatus reports the networks whose worker errored.
func exitStatus(records []supervisor.Record) error {
	var errored []string
	for _, r := range records {
		if r.State == indexer.StateErrored {
			errored = append(errored, fmt.Sprintf("%s: %s", r.Name, r.Error))
		}
	}
	if len(errored) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d network(s) errored: %s", len(errored), len(records), strings.Join(errored, "; "))
}

func forwardKinds(forward []string) []indexer.EventKind {
	kinds := make([]indexer.EventKind, 0, len(forward))
	for _, k := range forward {
		kinds = append(kinds, indexer.EventKind(k))
	}
	return kinds
}

func metricsConfig(cfg *pkgconfig.Config) *pkgconfig.MetricsConfig {
	if cfg.Metrics == nil {
		return &pkgconfig.MetricsConfig{}
	}
	return cfg.Metrics
}
