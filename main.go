package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"telecare-server/internal/config"
	"telecare-server/internal/middleware"
	"telecare-server/internal/models"
	"telecare-server/internal/routes"
)

func main() {
	// A missing .env is fine in deployed environments.
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	if cfg.Environment == "development" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("loading timezone")
	}

	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to database")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Cron-Key"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, db, cfg, loc, log)

	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	log.Info().Str("addr", serverAddr).Str("timezone", cfg.Timezone).Msg("server starting")
	if err := router.Run(serverAddr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
