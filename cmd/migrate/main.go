package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/vidobj/vidobj/internal/config"
	"github.com/vidobj/vidobj/internal/database"
	"github.com/vidobj/vidobj/internal/logging"
)

func main() {
	status := flag.Bool("status", false, "Show migration status only")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	db, err := database.NewDB(database.Config{
		Type:       cfg.DBType,
		Host:       cfg.DBHost,
		Port:       cfg.DBPort,
		User:       cfg.DBUser,
		Password:   cfg.DBPassword,
		Name:       cfg.DBName,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if cfg.DBType != "postgres" {
		fmt.Println("SQLite schemas are created on open, nothing to migrate.")
		return
	}

	if *status {
		migrator := database.NewMigrator(db.Conn(), cfg.DBType, logger)

		if err := migrator.Initialize(); err != nil {
			log.Fatal("Failed to initialize migrator:", err)
		}
		applied, err := migrator.AppliedMigrations()
		if err != nil {
			log.Fatal("Failed to get applied migrations:", err)
		}
		migrations, err := migrator.LoadMigrations(cfg.MigrationsPath)
		if err != nil {
			log.Fatal("Failed to load migrations:", err)
		}

		fmt.Println("Migration Status:")
		fmt.Println("=================")
		for _, m := range migrations {
			state := "pending"
			if applied[m.Version] {
				state = "applied"
			}
			fmt.Printf("%s - %s [%s]\n", m.Version, m.Name, state)
		}
		return
	}

	fmt.Printf("Running migrations from %s...\n", cfg.MigrationsPath)
	if err := db.RunMigrations(cfg.MigrationsPath, logger); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	fmt.Println("Migrations completed successfully!")
}
