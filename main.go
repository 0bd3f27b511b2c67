package main

import (
	"github.com/anshtutorial/chess-game/config"
	"github.com/anshtutorial/chess-game/logger"
	"github.com/anshtutorial/chess-game/persistence"
	"github.com/anshtutorial/chess-game/rules"
	"github.com/anshtutorial/chess-game/server"
)

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Resolve the rules engine. Engine adapters register themselves by
	// name (see rules.Register); link one into the binary.
	oracle, ok := rules.Engine(cfg.Server.Engine)
	if !ok {
		logger.Log.Fatalf("No rules engine registered under %q; link an engine adapter into this binary", cfg.Server.Engine)
	}

	// Initialize the optional finished-game archive
	var db persistence.Database
	if cfg.Archive.Enabled {
		pg := cfg.Archive.Postgres
		switch cfg.Archive.Driver {
		case "sql":
			db, err = persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
		default:
			db, err = persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
		}
		if err != nil {
			logger.Log.Fatalf("Failed to connect to archive database: %v", err)
		}
		logger.Log.Info("Archive database connection successful.")
		defer db.Close()
	}

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg, oracle, db)

	// Start Server
	logger.Log.Infof("Starting chess match server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
