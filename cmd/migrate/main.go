// Command migrate applies the embedded schema migrations.
//
//	migrate up|down|status|reset
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/iliyamo/admin-dashboard/internal/config"
	"github.com/iliyamo/admin-dashboard/internal/database"
	"github.com/iliyamo/admin-dashboard/internal/logger"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate up|down|status|reset")
		os.Exit(2)
	}
	if err := run(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(command string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log, os.Stdout)

	db, err := database.Open(ctx, cfg.DB.MySQLDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	log.InfoContext(ctx, "running migrations", slog.String("command", command))
	if err := database.Migrate(ctx, db, command); err != nil {
		return err
	}
	log.InfoContext(ctx, "migrations done", slog.String("command", command))
	return nil
}
