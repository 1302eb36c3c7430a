package main

import (
	"context"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bitbingo/go-server/internal/bingo"
	"github.com/bitbingo/go-server/internal/httpserver"
	"github.com/bitbingo/go-server/internal/prompts"
	"github.com/bitbingo/go-server/internal/store"
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
	if err := migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	pool, err := prompts.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load prompt pool")
	}
	log.Info().Int("prompts", pool.Len()).Msg("prompt pool ready")

	eng := bingo.NewEngine(store.NewSQLite(db), pool)
	if _, err := eng.Init(context.Background(), envInt("BOARD_SIZE", bingo.DefaultBoardSize)); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure open game")
	}

	srv := httpserver.New(eng, db)
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting bingo server")
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

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
