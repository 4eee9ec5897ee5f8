package main

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	DefaultTickSpeed = 50 // simulation ticks per second
	DefaultSnapRate  = 25 // snapshots per second
	maxPlayers       = 16
)

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// GameConfig holds the startup parameters of a game
type GameConfig struct {
	TickSpeed int
	SnapRate  int
	Seed      int64
	Debug     bool
}

// Game is the authoritative server state: the world, the players and the
// connected viewers. Everything is mutated under mu by the tick loop or
// by short input handlers.
type Game struct {
	mu         sync.RWMutex
	ctx        *SimContext
	world      *World
	controller *Controller
	mapName    string
	players    map[string]*Player
	order      []*Player // join order
	clients    map[string]Broadcaster
	snapEvery  int64
	stopOnce   sync.Once
	stop       chan struct{}
}

// NewGame creates a game on a decoded map
func NewGame(m *Map, cfg GameConfig, diag *Diagnostics) *Game {
	if cfg.TickSpeed <= 0 {
		cfg.TickSpeed = DefaultTickSpeed
	}
	if cfg.SnapRate <= 0 || cfg.SnapRate > cfg.TickSpeed {
		cfg.SnapRate = DefaultSnapRate
		if cfg.SnapRate > cfg.TickSpeed {
			cfg.SnapRate = cfg.TickSpeed
		}
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	ctx := NewSimContext(cfg.TickSpeed, cfg.Seed)
	w := NewWorld(ctx, NewCollisionMap(m.Game, m.Physics))
	w.Diag = diag
	w.Debug = cfg.Debug

	return &Game{
		ctx:        ctx,
		world:      w,
		controller: NewController(m),
		mapName:    m.Name,
		players:    make(map[string]*Player),
		clients:    make(map[string]Broadcaster),
		snapEvery:  int64(cfg.TickSpeed / cfg.SnapRate),
		stop:       make(chan struct{}),
	}
}

// Run starts the game loop
func (g *Game) Run() {
	ticker := time.NewTicker(time.Second / time.Duration(g.ctx.TickSpeed))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.Step()
		case <-g.stop:
			return
		}
	}
}

// Stop terminates the game loop
func (g *Game) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
}

// MapName returns the name of the running map
func (g *Game) MapName() string { return g.mapName }

// TickSpeed returns the simulation rate
func (g *Game) TickSpeed() int { return g.ctx.TickSpeed }

// AddPlayer adds a player. An empty id gets a fresh UUID. Returns an
// error if the game is full or the id is already playing.
func (g *Game) AddPlayer(id, name string) (*Player, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.players) >= maxPlayers {
		return nil, fmt.Errorf("game full")
	}
	if id == "" {
		id = GenerateUUID()
	}
	if _, ok := g.players[id]; ok {
		return nil, fmt.Errorf("player %s already in game", id)
	}

	p := NewPlayer(id, name)
	p.RespawnTick = g.world.Tick
	g.players[id] = p
	g.order = append(g.order, p)
	return p, nil
}

// RemovePlayer removes a player; its character leaves at the next tick
// boundary
func (g *Game) RemovePlayer(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[id]
	if !ok {
		return
	}
	g.world.Destroy(p.Character)
	delete(g.players, id)
	delete(g.clients, id)
	for i, op := range g.order {
		if op == p {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// SetClient associates a broadcaster with a player
func (g *Game) SetClient(playerID string, client Broadcaster) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[playerID] = client
}

// HandleInput stores the latest input of a player; it is applied at the
// start of the next tick
func (g *Game) HandleInput(playerID string, input CharacterInput) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[playerID]
	if !ok {
		return
	}
	input.Direction = clampInt(input.Direction, -1, 1)
	p.Input = input
}

// PlayerCount returns the number of players
func (g *Game) PlayerCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.players)
}

// Tick returns the current simulation tick
func (g *Game) Tick() int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.world.Tick
}

// SetPaused pauses or resumes the simulation
func (g *Game) SetPaused(paused bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.world.Paused = paused
}

// Paused reports whether the simulation is paused
func (g *Game) Paused() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.world.Paused
}

// Tune changes a physics constant for every core
func (g *Game) Tune(name string, value float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ctx.Tuning.Set(name, value)
}

// Exec runs a console command and returns its output
func (g *Game) Exec(cmd string) (string, error) {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty command")
	}
	switch fields[0] {
	case "pause":
		g.SetPaused(true)
		return "paused", nil
	case "unpause":
		g.SetPaused(false)
		return "unpaused", nil
	case "tune":
		if len(fields) != 3 {
			return "", fmt.Errorf("usage: tune <name> <value>")
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return "", fmt.Errorf("bad value %q: %w", fields[2], err)
		}
		if err := g.Tune(fields[1], v); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = %g", fields[1], v), nil
	case "tunes":
		return strings.Join(g.ctx.Tuning.Names(), " "), nil
	case "status":
		g.mu.RLock()
		defer g.mu.RUnlock()
		return fmt.Sprintf("map=%s size=%dx%d tick=%d players=%d paused=%v",
			g.mapName, g.world.Collision.Width(), g.world.Collision.Height(),
			g.world.Tick, len(g.players), g.world.Paused), nil
	}
	return "", fmt.Errorf("unknown command %q", fields[0])
}

// Step runs one tick and emits a snapshot when due
func (g *Game) Step() {
	g.mu.Lock()
	defer g.mu.Unlock()

	w := g.world
	for _, p := range g.order {
		if c := w.Character(p.Character); c != nil {
			c.Input = p.Input
		}
	}

	w.Step()

	for _, ev := range w.Kills {
		victim := g.players[ev.Victim]
		killer := g.players[ev.Killer]
		g.controller.OnKill(ev, victim, killer)
		if victim != nil {
			victim.RespawnTick = w.Tick + g.ctx.Seconds(RespawnDelay)
		}
		g.broadcastMsg(Envelope{T: MsgKill, Data: KillMsg{KillerID: ev.Killer, VictimID: ev.Victim, Weapon: ev.Weapon}})
	}

	if !w.Paused {
		g.controller.Respawn(w, g.order)
	}

	if w.Tick%g.snapEvery == 0 {
		g.broadcastSnapshot()
		w.PostSnap()
	}
}

// Snapshot builds the current snapshot
func (g *Game) Snapshot() *Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.buildSnapshot()
}

func (g *Game) buildSnapshot() *Snapshot {
	snap := &Snapshot{
		Tick:   g.world.Tick,
		Paused: g.world.Paused,
	}
	g.world.Snap(snap)
	for _, p := range g.order {
		snap.Scores = append(snap.Scores, p.ToScore())
	}
	sort.SliceStable(snap.Scores, func(i, j int) bool { return snap.Scores[i].Score > snap.Scores[j].Score })
	return snap
}

// broadcastSnapshot sends the state as one msgpack binary frame to every
// client
func (g *Game) broadcastSnapshot() {
	if len(g.clients) == 0 {
		return
	}
	data, err := msgpack.Marshal(g.buildSnapshot())
	if err != nil {
		log.Printf("snapshot marshal error: %v", err)
		return
	}
	for _, client := range g.clients {
		client.SendBinary(data)
	}
}

// broadcastMsg sends a message to all clients
func (g *Game) broadcastMsg(msg Envelope) {
	for _, client := range g.clients {
		client.SendJSON(msg)
	}
}
