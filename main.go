package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/arcadeduel/server/internal/arena"
	"github.com/arcadeduel/server/internal/httpserver"
	"github.com/arcadeduel/server/internal/ledger"
	"github.com/arcadeduel/server/internal/ws"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	db, err := openDB(getEnv("DB_PATH", "./data/app.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()
	if err := migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	store := ledger.NewStore(db)
	hub := ws.NewHub(store.GetPoints)
	svc := arena.NewService(hub, store)
	hub.SetService(svc)

	// The arena runs on a single goroutine; all match state lives there.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	srv := httpserver.New(db, store, hub)
	port := getEnv("PORT", "3000")
	log.Info().Str("port", port).Msg("starting arcade-duel server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
