package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	Port     string
	DBDriver string // sqlite | postgres
	DBDSN    string
	LogFile  string

	// Legacy CSV files imported on first start when AutoImport is set.
	DataDir    string
	AutoImport bool
	BackupDir  string

	TemplatesDir string
	StaticDir    string

	// Expense figures: real file, then inline JSON, then template, then an empty skeleton.
	ExpensesFile     string
	ExpensesJSON     string
	ExpensesTemplate string

	LowStockThreshold int

	// Requests per minute per client IP across the app.
	RateLimit int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func Load() Config {
	driver := getenv("DB_DRIVER", "sqlite")
	if driver == "postgresql" {
		driver = "postgres"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		dsn = "homeessence.db" // sqlite file in project root
	}
	logFile, ok := os.LookupEnv("LOG_FILE")
	if !ok {
		logFile = "./homeessence.log"
	}
	threshold, err := strconv.Atoi(getenv("LOW_STOCK_THRESHOLD", "1"))
	if err != nil || threshold < 0 {
		threshold = 1
	}
	rate, err := strconv.Atoi(getenv("RATE_LIMIT", "120"))
	if err != nil || rate < 1 {
		rate = 120
	}
	autoImport, err := strconv.ParseBool(getenv("AUTO_IMPORT", "true"))
	if err != nil {
		autoImport = true
	}

	cfg := Config{
		Port:              getenv("PORT", "8080"),
		DBDriver:          driver,
		DBDSN:             dsn,
		LogFile:           logFile,
		DataDir:           getenv("DATA_DIR", "data"),
		AutoImport:        autoImport,
		BackupDir:         getenv("BACKUP_DIR", "data/backup"),
		TemplatesDir:      getenv("TEMPLATES_DIR", "./web/templates"),
		StaticDir:         getenv("STATIC_DIR", "./web/static"),
		ExpensesFile:      getenv("EXPENSES_FILE", "data/expenses_config.json"),
		ExpensesJSON:      os.Getenv("EXPENSES_CONFIG_JSON"),
		ExpensesTemplate:  getenv("EXPENSES_TEMPLATE", "data/expenses_config.template.json"),
		LowStockThreshold: threshold,
		RateLimit:         rate,
	}
	log.Printf("[config] PORT=%s DB_DRIVER=%s LOG_FILE=%s EXPENSES_FILE=%s LOW_STOCK_THRESHOLD=%d",
		cfg.Port, cfg.DBDriver, cfg.LogFile, cfg.ExpensesFile, cfg.LowStockThreshold)
	return cfg
}
