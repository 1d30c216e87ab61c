package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hardchor/frog-pond/internal/app"
	"github.com/hardchor/frog-pond/internal/config"
	"github.com/hardchor/frog-pond/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "YAML file overlaying the built-in defaults (or FROGPOND_CONFIG)")
	envFile := flag.String("env", ".env", "dotenv file loaded before reading the environment")
	flag.Parse()

	logger := telemetry.WrapLogger(log.Default())
	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Fatalf("%v", err)
	}
	settings, err := config.Load(config.ResolvePath(*configPath), logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Config{Logger: logger, Settings: settings}); err != nil {
		log.Fatalf("%v", err)
	}
}
