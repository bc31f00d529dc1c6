// Command main seeds the development database with demo data.
package main

import (
	"log"

	"lumen/internal/config"
	"lumen/internal/database"
	"lumen/internal/seed"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Seed(db); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
