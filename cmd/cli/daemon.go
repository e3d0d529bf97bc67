package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/config"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/discovery"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/enrich"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/logging"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/metrics"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/netinfo"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/probe"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/store"
)

const metricsReadHeaderTimeout = 10 * time.Second

// daemonCmd runs the discovery daemon in the foreground. Process
// supervision (systemd, containers) is expected to handle
// backgrounding and restarts.
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the discovery daemon",
	Long: `Run the nexasec discovery daemon in the foreground. The daemon
sweeps the configured networks on a fixed interval, keeps device
liveness current with a quick check loop, and persists the inventory
to PostgreSQL. It stops cleanly on SIGINT or SIGTERM.`,
	Example: `  nexasec daemon
  nexasec daemon --config /etc/nexasec/config.yaml`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(getConfigFilePath())
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := logging.Default().WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storeCfg := cfg.GetStoreConfig()
	database, err := store.Connect(ctx, &storeCfg)
	if err != nil {
		return fmt.Errorf("error connecting to device store: %w", err)
	}
	defer func() {
		if cerr := database.Close(); cerr != nil {
			logger.ErrorStore("failed to close device store", cerr)
		}
	}()

	if err := database.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("error preparing device store schema: %w", err)
	}

	var metricsSrv *http.Server
	if cfg.IsMetricsEnabled() {
		metricsSrv = startMetricsServer(ctx, cfg, logger)
	}

	svc := discovery.NewService(cfg, discovery.Deps{
		Store:        database,
		Resolution:   probe.NewARPStrategy(logging.Default()),
		Reachability: probe.NewPingStrategy(0),
		Pinger:       probe.NewExecPinger(),
		Enricher: enrich.New(
			cfg.Enrichment.ProbePorts,
			cfg.Enrichment.ProbeTimeout,
			enrich.NewResolver(cfg.Enrichment.DNSTimeout),
			logging.Default(),
		),
		Ranges: netinfo.New(),
		Logger: logging.Default(),
	})

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("error starting discovery service: %w", err)
	}

	logger.InfoDaemon("daemon running", "version", version)
	<-ctx.Done()
	logger.InfoDaemon("shutdown signal received")

	svc.Stop()

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Daemon.ShutdownTimeout)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.ErrorDaemon("metrics server shutdown failed", err)
		}
	}

	logger.InfoDaemon("daemon stopped")
	return nil
}

// startMetricsServer serves the Prometheus registry and starts the
// periodic system metric updates.
func startMetricsServer(ctx context.Context, cfg *config.Config, logger *logging.Logger) *http.Server {
	m := metrics.GetGlobalMetrics()
	m.StartPeriodicUpdates(ctx, 30*time.Second)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.GetRegistry(), promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.GetMetricsAddress(),
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}
	go func() {
		logger.InfoDaemon("metrics endpoint listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorDaemon("metrics server failed", err)
		}
	}()
	return srv
}
