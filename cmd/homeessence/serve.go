package main

import (
	"errors"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"homeessence/internal/csvio"
	"homeessence/internal/http/handlers"
	applog "homeessence/internal/log"
	"homeessence/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web app",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	serveCmd.Flags().StringVar(&cfg.Port, "port", cfg.Port, "HTTP port")
	serveCmd.Flags().BoolVar(&cfg.AutoImport, "import", cfg.AutoImport, "Import the legacy CSV files on first start")
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.AutoImport {
		autoImport(db, cfg.DataDir)
	}

	expCfg, source, warnings := services.LoadExpenses(services.ExpenseSource{
		File:     cfg.ExpensesFile,
		EnvJSON:  cfg.ExpensesJSON,
		Template: cfg.ExpensesTemplate,
	})
	for _, w := range warnings {
		applog.Warn(nil, "expenses.load", w, nil)
	}
	applog.Info(nil, "expenses.source", map[string]any{"source": source})
	exp := services.NewExpenseService(expCfg, source, cfg.ExpensesFile)

	deps := handlers.NewDeps(db, cfg, exp)
	app := handlers.NewApp(cfg, deps)
	log.Printf("[static] /static -> %s", cfg.StaticDir)
	return app.Listen(":" + cfg.Port)
}

// autoImport loads the legacy CSV files once. A missing data folder or an
// import already applied is normal and only noted.
func autoImport(db *sqlx.DB, dir string) {
	rep, err := csvio.NewImporter(db).Import(dir, false)
	switch {
	case errors.Is(err, csvio.ErrAlreadyImported):
		return
	case errors.Is(err, csvio.ErrMissingFiles):
		log.Printf("[import] skipped: %v", err)
		return
	case err != nil:
		applog.Warn(nil, "csv.import.fail", err, map[string]any{"dir": dir})
		return
	}
	logReport(rep)
}

func logReport(rep *csvio.Report) {
	log.Printf("[import] products=%d clients=%d sales=%d items=%d skipped=%d",
		rep.Products, rep.Clients, rep.Sales, rep.SaleItems, len(rep.Skipped))
	for _, s := range rep.Skipped {
		log.Printf("[import] skipped %s", s)
	}
}
