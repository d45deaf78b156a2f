package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"homeessence/internal/config"
	"homeessence/internal/repos"
)

// Loaded before any init so every command sees the env defaults.
var cfg = config.Load()

var rootCmd = &cobra.Command{
	Use:   "homeessence",
	Short: "Home Essence - catalog, clients, sales and P&L for a perfumery",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogFile(cfg.LogFile)
	},
	// no subcommand means serve
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "Database driver (sqlite or postgres)")
	rootCmd.PersistentFlags().StringVar(&cfg.DBDSN, "db", cfg.DBDSN, "Database DSN or sqlite file")
}

// setupLogFile mirrors every log line to path as well as stdout.
func setupLogFile(path string) {
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("[warn] could not open log file %s: %v", path, err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
}

func openDB() (*sqlx.DB, error) {
	db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}
	return db, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
