package db

import (
	"fmt"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // registers the "libsql" database/sql driver
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Options selects the database backend. A non-empty TursoURL takes precedence over Path.
type Options struct {
	Path        string
	TursoURL    string
	TursoToken  string
	Environment string
}

// Initialize sets up the database connection. Local files use WAL mode for concurrency.
func Initialize(opts Options) error {
	// Determine log level based on environment
	logLevel := logger.Info
	if opts.Environment == "production" {
		logLevel = logger.Warn
	}

	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	var err error
	if opts.TursoURL != "" {
		DB, err = gorm.Open(sqlite.New(sqlite.Config{
			DriverName: "libsql",
			DSN:        tursoDSN(opts.TursoURL, opts.TursoToken),
		}), gormCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to turso database: %w", err)
		}
		zap.L().Info("database connection established (turso)")
		return nil
	}

	DB, err = gorm.Open(sqlite.Open(opts.Path+"?_journal_mode=WAL&_busy_timeout=5000"), gormCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	zap.L().Info("database connection established (WAL mode enabled)", zap.String("path", opts.Path))
	return nil
}

func tursoDSN(url, token string) string {
	if token == "" {
		return url
	}
	return url + "?authToken=" + token
}

// AutoMigrate runs database migrations for the provided models
func AutoMigrate(models ...interface{}) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	zap.L().Info("database migrations completed")
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
