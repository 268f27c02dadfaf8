package main

import (
	"log"

	"campusmarket/config"
	"campusmarket/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	database, err := db.NewDB(cfg.DSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := db.AutoMigrate(database); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("migrations applied")
}
