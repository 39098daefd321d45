package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"focusflow/internal/config"
	"focusflow/internal/db"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg := config.Load()

	fs := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "database file")
	fs.StringVar(&cfg.DBDriver, "driver", cfg.DBDriver, "sqlite driver: sqlite3 or sqlite")
	fs.StringVar(&cfg.MigrationsDir, "dir", cfg.MigrationsDir, "migrations directory")
	list := fs.Bool("list", false, "print applied migrations after running")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := config.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	database, err := db.Open(cfg.DBDriver, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if *list {
		applied, err := db.AppliedMigrations(database)
		if err != nil {
			return fmt.Errorf("list migrations: %w", err)
		}
		for _, name := range applied {
			fmt.Println(name)
		}
	}

	logger.Info("migrations applied successfully", "dir", cfg.MigrationsDir)
	return nil
}
