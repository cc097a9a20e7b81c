package main

import (
	"flag"
	"log"
	"os"

	"ExtremeScan/internal/di"
	"ExtremeScan/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "config file path (empty for defaults)")
	envFile := flag.String("env", ".env", "dotenv file loaded before the config")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath, *envFile)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s source=%s kafka=%t redis=%t", cfg.Environment, cfg.Fetcher.Source, cfg.Kafka.Enabled, cfg.Redis.Enabled)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
