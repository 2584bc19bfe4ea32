package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/drbridge/pkg/api"
	"github.com/cuemby/drbridge/pkg/config"
	"github.com/cuemby/drbridge/pkg/drdb"
	"github.com/cuemby/drbridge/pkg/events"
	"github.com/cuemby/drbridge/pkg/health"
	"github.com/cuemby/drbridge/pkg/ledger"
	"github.com/cuemby/drbridge/pkg/log"
	"github.com/cuemby/drbridge/pkg/metrics"
	"github.com/cuemby/drbridge/pkg/poller"
	"github.com/cuemby/drbridge/pkg/storage"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	collectInterval = 15 * time.Second
	shutdownTimeout = 5 * time.Second
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bridge",
	Long: `Run the bridge until interrupted.

The first reconciliation cycle starts immediately; every following cycle
starts eth_new_dr_polling_rate_ms after the previous one finished.`,
	RunE: runBridge,
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	initLogging(cmd, cfg)
	logger := log.WithComponent("main")
	metrics.SetVersion(Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("version", Version).
		Str("eth_client_url", cfg.EthClientURL).
		Str("wrb_contract_addr", cfg.ContractAddress().Hex()).
		Str("storage", cfg.Storage.Driver).
		Msg("Starting drbridge")

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close store")
		}
	}()

	eth, err := ethclient.DialContext(ctx, cfg.EthClientURL)
	if err != nil {
		return fmt.Errorf("failed to connect to ethereum node: %w", err)
	}
	defer eth.Close()

	reader, err := ledger.NewWRBReader(eth, cfg.ContractAddress(), cfg.Account(), cfg.CallTimeout())
	if err != nil {
		return err
	}

	probe := health.NewMonitor(
		health.NewEthNodeChecker(cfg.EthClientURL, eth),
		health.Config{Timeout: cfg.CallTimeout()},
	)
	metrics.RegisterComponent(metrics.ComponentLedger, false, "waiting for first cycle")
	if res := probe.Check(ctx); !res.Healthy {
		logger.Warn().Str("probe", res.Message).Msg("Ethereum node not reachable yet, polling anyway")
	} else {
		logger.Info().Str("probe", res.Message).Msg("Ethereum node reachable")
	}

	db := drdb.New(store, cfg.Storage.MailboxSize)
	db.Start()

	broker := events.NewBroker()
	broker.Start()
	sub := broker.Subscribe()
	go logEvents(log.WithComponent("events"), sub)

	collector := metrics.NewCollector(store, collectInterval)
	collector.Start()

	apiServer := api.NewServer(cfg.HTTPAddr, db)
	errCh := make(chan error, 1)
	go func() {
		if err := apiServer.Start(); err != nil {
			errCh <- fmt.Errorf("API server error: %w", err)
		}
	}()

	p := poller.NewPoller(reader, db, probe,
		poller.Config{Period: cfg.PollingPeriod()},
		poller.WithEvents(broker),
	)
	p.Start()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutting down")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("Shutting down")
	}

	p.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP API did not shut down cleanly")
	}

	collector.Stop()
	broker.Unsubscribe(sub)
	broker.Stop()
	db.Stop()

	logger.Info().Msg("Shutdown complete")
	return runErr
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		store, err := storage.NewPostgresStore(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return store, nil
	default:
		store, err := storage.NewBoltStore(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open bolt store: %w", err)
		}
		return store, nil
	}
}

// logEvents writes bridge events to the log until sub is closed
func logEvents(logger zerolog.Logger, sub events.Subscriber) {
	for ev := range sub {
		entry := logger.Debug()
		switch ev.Type {
		case events.EventNodeUnreachable, events.EventCycleAborted:
			entry = logger.Warn()
		}
		for k, v := range ev.Metadata {
			entry = entry.Str(k, v)
		}
		entry.Str("event", string(ev.Type)).Str("event_id", ev.ID).Msg(ev.Message)
	}
}
