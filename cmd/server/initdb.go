package main

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/staybook/staybook/internal/config"
	"github.com/staybook/staybook/internal/database"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the application tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadDatabase()
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return err
		}
		defer db.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := database.EnsureSchema(ctx, db); err != nil {
			return err
		}
		log.Printf("schema applied to %s", cfg.DBName)
		return nil
	},
}
