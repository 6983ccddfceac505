package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"roomsync/internal/config"
	"roomsync/internal/database"
	"roomsync/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type RoomsConfig struct {
	Rooms []models.Room `yaml:"rooms"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		roomsPath = flag.String("rooms", "configs/rooms.yaml", "path to rooms.yaml")
		dbPath    = flag.String("db", "./data/reservations.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*roomsPath)
	if err != nil {
		return fmt.Errorf("read rooms: %w", err)
	}
	var cfg RoomsConfig
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse rooms: %w", err)
	}
	if len(cfg.Rooms) == 0 {
		return fmt.Errorf("no rooms in yaml")
	}
	if err = config.ValidateRooms(cfg.Rooms); err != nil {
		return fmt.Errorf("validate rooms: %w", err)
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// SeedRooms upserts listed rooms and deactivates rows missing from the
	// file, so re-running after edits converges the table.
	if err = db.SeedRooms(ctx, cfg.Rooms); err != nil {
		return fmt.Errorf("seed rooms: %w", err)
	}

	active, err := db.GetActiveRooms(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}

	fmt.Printf("done: active rooms=%d\n", len(active))
	return nil
}
