package main

import (
	"log"
	"time"

	"github.com/spf13/cobra"

	"homeessence/internal/csvio"
	"homeessence/internal/repos"
)

var (
	importDir   string
	importForce bool
	backupDir   string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import products, clients and sales from the legacy CSV files",
	Long: `Reads products.csv, clients.csv, sales.csv and sales_items.csv from --dir
in one transaction. Rows that break the data rules are skipped and listed.
The import is recorded and will not run twice unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		rep, err := csvio.NewImporter(db).Import(importDir, importForce)
		if err != nil {
			return err
		}
		logReport(rep)
		return nil
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export every table to CSV under a timestamped folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		out, err := csvio.Backup(repos.NewArchiveRepo(db), backupDir, time.Now())
		if err != nil {
			return err
		}
		log.Printf("[backup] written to %s", out)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importDir, "dir", cfg.DataDir, "Folder holding the CSV files")
	importCmd.Flags().BoolVar(&importForce, "force", false, "Run again even if already imported")
	backupCmd.Flags().StringVar(&backupDir, "dir", cfg.BackupDir, "Destination folder")
	rootCmd.AddCommand(importCmd, backupCmd)
}
