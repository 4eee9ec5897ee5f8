package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	addr := flag.String("addr", ":8303", "HTTP listen address")
	dbPath := flag.String("db", "tileworld.db", "Path to the SQLite database")
	mapName := flag.String("map", "arena", "Map to load from the database")
	tickRate := flag.Int("tickrate", DefaultTickSpeed, "Simulation ticks per second")
	snapRate := flag.Int("snaprate", DefaultSnapRate, "Snapshots per second")
	rconPassword := flag.String("rcon-password", "", "Remote console password (empty keeps the stored one)")
	debug := flag.Bool("debug", false, "Verbose simulation diagnostics")
	flag.Parse()

	db, err := OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	m, err := LoadOrSeedMap(db, *mapName)
	if err != nil {
		log.Fatalf("load map: %v", err)
	}
	log.Printf("Loaded map %s", m.Summary())

	diag := NewDiagnostics(db)
	diag.Record(DiagMapLoad, 0, m.Summary())

	auth := NewAuth(db)
	if *rconPassword != "" {
		if err := auth.SetRconPassword(*rconPassword); err != nil {
			log.Fatalf("rcon password: %v", err)
		}
	}

	game := NewGame(m, GameConfig{
		TickSpeed: *tickRate,
		SnapRate:  *snapRate,
		Debug:     *debug,
	}, diag)
	go game.Run()

	hub := NewHub(game, auth, diag)
	go hub.Run()

	mux := SetupRoutes(hub)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		log.Printf("Server starting on %s", *addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	server.Close()
	game.Stop()
	diag.Stop()
}

// LoadOrSeedMap loads a map from the store. The built-in arena is written
// to the store the first time it is asked for.
func LoadOrSeedMap(db *DB, name string) (*Map, error) {
	data, err := db.LoadMap(name)
	if errors.Is(err, ErrMapNotFound) && name == DefaultArenaMap().Name {
		data, err = MarshalMapFile(DefaultArenaMap())
		if err != nil {
			return nil, err
		}
		if err := db.SaveMap(name, data); err != nil {
			return nil, err
		}
		log.Printf("Seeded built-in map %q", name)
	} else if err != nil {
		return nil, err
	}

	f, err := UnmarshalMapFile(data)
	if err != nil {
		return nil, err
	}
	m, err := DecodeMap(f)
	if err != nil {
		return nil, fmt.Errorf("map %q: %w", name, err)
	}
	return m, nil
}
