package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/finledger/bankfeed/db"
	"github.com/finledger/bankfeed/pkg/config"
	"github.com/finledger/bankfeed/pkg/provider"
	"github.com/finledger/bankfeed/pkg/services"
)

var (
	configPath string
	dbPath     string
	rootCmd    *cobra.Command
)

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd = &cobra.Command{
		Use:   "bankfeed",
		Short: "Sync bank transactions into a local ledger",
		Long: `bankfeed reconciles a local SQLite ledger of accounts and transactions
against a financial-aggregation provider using cursor-based incremental sync.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the SQLite database (overrides config)")

	rootCmd.AddCommand(
		newSyncCommand(),
		newServeCommand(),
		newLinkCommand(),
		newAccountsCommand(),
		newTransactionsCommand(),
	)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// appState carries the wired dependencies for one command invocation.
// Everything is constructed here and passed down; no globals.
type appState struct {
	cfg    *config.Config
	store  db.Store
	client provider.Client
}

func initAppState() (*appState, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}

	store, err := db.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	if err := store.Initialize(); err != nil {
		store.Close()
		return nil, err
	}

	client, err := provider.NewPlaidClient(cfg.Provider)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &appState{cfg: cfg, store: store, client: client}, nil
}

func (a *appState) syncer() *services.Syncer {
	return services.NewSyncer(a.store, a.client, a.cfg.Sync)
}

func (a *appState) linker() *services.Linker {
	return services.NewLinker(a.store, a.client)
}

func (a *appState) close() {
	if err := a.store.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database")
	}
}
