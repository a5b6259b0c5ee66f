package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goran-ethernal/LoanIndexor/internal/common"
	"github.com/goran-ethernal/LoanIndexor/internal/config"
	"github.com/goran-ethernal/LoanIndexor/internal/db"
	internalindexer "github.com/goran-ethernal/LoanIndexor/internal/indexer"
	"github.com/goran-ethernal/LoanIndexor/internal/indexer/loanscheme"
	"github.com/goran-ethernal/LoanIndexor/internal/logger"
	"github.com/goran-ethernal/LoanIndexor/internal/metrics"
	"github.com/goran-ethernal/LoanIndexor/internal/migrations"
	"github.com/goran-ethernal/LoanIndexor/internal/nodeclient"
	"github.com/goran-ethernal/LoanIndexor/internal/store"
	syncmgr "github.com/goran-ethernal/LoanIndexor/internal/sync"
	"github.com/goran-ethernal/LoanIndexor/internal/vault"
	"github.com/goran-ethernal/LoanIndexor/pkg/api"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "loanindexor",
	Short: "LoanIndexor - Loan scheme and vault read-model indexer",
	Long: `LoanIndexor maintains a queryable read model of on-chain loan schemes,
including deferred activations, with exact rollback on chain reorganizations.
It serves enriched vault and auction views over HTTP.`,
	Version: version,
	RunE:    runIndexer,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
}

func runIndexer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully...")
		cancel()
	}()

	log := logger.NewComponentLoggerFromConfig(common.ComponentSyncManager, cfg.Logging)

	// Connect to the node
	log.Infof("Connecting to node at %s...", cfg.Node.RPCURL)
	nodeClient, err := nodeclient.NewClient(ctx, cfg.Node.RPCURL, cfg.Node.Retry)
	if err != nil {
		return fmt.Errorf("failed to create node client: %w", err)
	}
	defer nodeClient.Close()

	// Start metrics server if enabled
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics)
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			if err := metricsServer.Stop(ctx); err != nil {
				log.Warnf("Failed to stop metrics server: %v", err)
			}
		}()
		log.Infof("Metrics server started on %s%s", cfg.Metrics.ListenAddress, cfg.Metrics.Path)
	}

	// Run database migrations
	log.Info("Running database migrations...")
	if err := migrations.RunMigrations(cfg.DB.Path); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	database, err := db.NewSQLiteDBFromConfig(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer database.Close()

	schemes := store.NewSchemeStore(database,
		logger.NewComponentLoggerFromConfig(common.ComponentSchemeStore, cfg.Logging))

	// Register the loan scheme indexers
	coordinator := internalindexer.NewCoordinator(
		logger.NewComponentLoggerFromConfig(common.ComponentCoordinator, cfg.Logging))

	indexerLog := logger.NewComponentLoggerFromConfig(common.ComponentLoanScheme, cfg.Logging)
	if err := coordinator.Register(loanscheme.NewCreateIndexer(schemes, indexerLog)); err != nil {
		return fmt.Errorf("failed to register create indexer: %w", err)
	}
	if err := coordinator.Register(
		loanscheme.NewUpdateIndexer(schemes, cfg.Indexer.DeferredBatchSize, indexerLog)); err != nil {
		return fmt.Errorf("failed to register update indexer: %w", err)
	}

	syncManager := syncmgr.NewManager(database, log, nodeClient, coordinator,
		cfg.Indexer.StartHeight, cfg.Node.PollInterval.Duration)

	// Start API server if enabled
	if cfg.API != nil && cfg.API.Enabled {
		vaultService := vault.NewService(
			logger.NewComponentLoggerFromConfig(common.ComponentVaultService, cfg.Logging),
			nodeClient, schemes, cfg.Indexer.DefaultSchemeID, cfg.API.MaxPageSize)

		apiServer := api.NewServer(cfg.API, vaultService, syncManager,
			logger.NewComponentLoggerFromConfig(common.ComponentAPI, cfg.Logging))
		go func() {
			if err := apiServer.Start(ctx); err != nil {
				log.Errorf("API server error: %v", err)
			}
		}()
	}

	// Start indexing
	log.Info("Starting LoanIndexor...")

	if err := syncManager.Start(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("sync manager failed: %w", err)
	}

	log.Info("LoanIndexor stopped successfully")

	return nil
}
