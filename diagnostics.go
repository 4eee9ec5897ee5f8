package main

import (
	"log"
	"sync"
	"time"
)

// Diagnostics event kinds
const (
	DiagStuck     = "stuck"
	DiagReckoning = "reckoning"
	DiagRcon      = "rcon"
	DiagMapLoad   = "map_load"
)

// DiagEvent is a single diagnostics record
type DiagEvent struct {
	Kind      string
	Tick      int64
	Detail    string
	Timestamp time.Time
}

// Diagnostics persists simulation events with batched background writes
// so the tick loop never waits on the database
type Diagnostics struct {
	db     *DB
	events chan DiagEvent
	stop   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	counts  map[string]int
	dropped int
}

// NewDiagnostics creates and starts the background writer
func NewDiagnostics(db *DB) *Diagnostics {
	d := &Diagnostics{
		db:     db,
		events: make(chan DiagEvent, 1024),
		stop:   make(chan struct{}),
		counts: make(map[string]int),
	}
	d.wg.Add(1)
	go d.writer()
	return d
}

// Record enqueues an event (non-blocking)
func (d *Diagnostics) Record(kind string, tick int64, detail string) {
	d.mu.Lock()
	d.counts[kind]++
	d.mu.Unlock()

	select {
	case d.events <- DiagEvent{Kind: kind, Tick: tick, Detail: detail, Timestamp: time.Now().UTC()}:
	default:
		// channel full, drop the event
		d.mu.Lock()
		d.dropped++
		d.mu.Unlock()
	}
}

// Count returns how many events of kind were recorded since start
func (d *Diagnostics) Count(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[kind]
}

// Stop drains pending events and shuts down the writer
func (d *Diagnostics) Stop() {
	close(d.stop)
	d.wg.Wait()
}

func (d *Diagnostics) writer() {
	defer d.wg.Done()

	batch := make([]DiagEvent, 0, 64)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt := <-d.events:
			batch = append(batch, evt)
			if len(batch) >= 50 {
				d.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				d.flush(batch)
				batch = batch[:0]
			}
		case <-d.stop:
			for {
				select {
				case evt := <-d.events:
					batch = append(batch, evt)
				default:
					d.flush(batch)
					return
				}
			}
		}
	}
}

func (d *Diagnostics) flush(events []DiagEvent) {
	if d.db == nil || len(events) == 0 {
		return
	}
	tx, err := d.db.conn.Begin()
	if err != nil {
		log.Printf("diagnostics: begin tx error: %v", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO diagnostics (kind, tick, detail, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		log.Printf("diagnostics: prepare error: %v", err)
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		if _, err := stmt.Exec(evt.Kind, evt.Tick, evt.Detail, evt.Timestamp.Format(time.RFC3339)); err != nil {
			log.Printf("diagnostics: insert error: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("diagnostics: commit error: %v", err)
	}
}
