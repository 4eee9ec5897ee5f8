package main

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// mockBroadcaster captures sent messages for testing
type mockBroadcaster struct {
	mu       sync.Mutex
	messages []interface{}
	binary   [][]byte
}

func (m *mockBroadcaster) SendJSON(msg interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *mockBroadcaster) SendBinary(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.binary = append(m.binary, data)
}

func (m *mockBroadcaster) envelopes(t string) []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Envelope
	for _, msg := range m.messages {
		if env, ok := msg.(Envelope); ok && env.T == t {
			out = append(out, env)
		}
	}
	return out
}

func newTestGame(t *testing.T) *Game {
	t.Helper()
	m, err := DecodeMap(DefaultArenaMap())
	if err != nil {
		t.Fatalf("decode arena: %v", err)
	}
	return NewGame(m, GameConfig{TickSpeed: 50, SnapRate: 25, Seed: 1}, nil)
}

func TestGameAddRemovePlayer(t *testing.T) {
	g := newTestGame(t)
	p, err := g.AddPlayer("", "TestTee")
	if err != nil {
		t.Fatalf("add player: %v", err)
	}
	if p.Name != "TestTee" {
		t.Errorf("expected name TestTee, got %s", p.Name)
	}
	if !uuidRegex.MatchString(p.ID) {
		t.Errorf("expected a UUID id, got %s", p.ID)
	}
	if g.PlayerCount() != 1 {
		t.Errorf("expected 1 player, got %d", g.PlayerCount())
	}

	g.RemovePlayer(p.ID)
	if g.PlayerCount() != 0 {
		t.Errorf("expected 0 players, got %d", g.PlayerCount())
	}
}

func TestGameRejectsDuplicateAndFull(t *testing.T) {
	g := newTestGame(t)
	if _, err := g.AddPlayer("fixed-id", "A"); err != nil {
		t.Fatalf("add player: %v", err)
	}
	if _, err := g.AddPlayer("fixed-id", "B"); err == nil {
		t.Error("expected duplicate id to be rejected")
	}
	for i := 1; i < maxPlayers; i++ {
		if _, err := g.AddPlayer("", "X"); err != nil {
			t.Fatalf("add player %d: %v", i, err)
		}
	}
	if _, err := g.AddPlayer("", "late"); err == nil {
		t.Error("expected full game to reject players")
	}
}

func TestGameSpawnsOnStep(t *testing.T) {
	g := newTestGame(t)
	p, _ := g.AddPlayer("", "A")
	if p.HasCharacter(g.world) {
		t.Fatal("character should not exist before the first tick")
	}

	g.Step()
	if !p.HasCharacter(g.world) {
		t.Fatal("expected a character after the first tick")
	}

	snap := g.Snapshot()
	if snap.Tick != 1 {
		t.Errorf("expected tick 1, got %d", snap.Tick)
	}
	if len(snap.Characters) != 1 || snap.Characters[0].ID != p.ID {
		t.Fatalf("expected one character for %s, got %+v", p.ID, snap.Characters)
	}
	if snap.Characters[0].Health != CharacterMaxHealth {
		t.Errorf("expected full health, got %d", snap.Characters[0].Health)
	}
	if len(snap.Scores) != 1 || snap.Scores[0].Name != "A" {
		t.Errorf("expected scoreboard row for A, got %+v", snap.Scores)
	}
}

func TestGameRemovePlayerDestroysCharacter(t *testing.T) {
	g := newTestGame(t)
	p, _ := g.AddPlayer("", "A")
	g.Step()

	g.RemovePlayer(p.ID)
	g.Step()
	if g.world.Count(KindCharacter) != 0 {
		t.Errorf("expected character removed, got %d", g.world.Count(KindCharacter))
	}
}

func TestGameBroadcastsSnapshots(t *testing.T) {
	g := newTestGame(t)
	p, _ := g.AddPlayer("", "A")
	mock := &mockBroadcaster{}
	g.SetClient(p.ID, mock)

	g.Step()
	if len(mock.binary) != 0 {
		t.Errorf("expected no snapshot on tick 1, got %d", len(mock.binary))
	}
	g.Step()
	if len(mock.binary) != 1 {
		t.Fatalf("expected a snapshot on tick 2, got %d", len(mock.binary))
	}

	var snap Snapshot
	if err := msgpack.Unmarshal(mock.binary[0], &snap); err != nil {
		t.Fatalf("msgpack unmarshal: %v", err)
	}
	if snap.Tick != 2 {
		t.Errorf("expected tick 2, got %d", snap.Tick)
	}
	if len(snap.Characters) != 1 || snap.Characters[0].ID != p.ID {
		t.Errorf("expected the player's character, got %+v", snap.Characters)
	}
}

func TestGameHandleInput(t *testing.T) {
	g := newTestGame(t)
	p, _ := g.AddPlayer("", "A")
	g.Step()

	g.HandleInput(p.ID, CharacterInput{Direction: 5, TargetX: 1})
	if p.Input.Direction != 1 {
		t.Errorf("expected direction clamped to 1, got %d", p.Input.Direction)
	}
	g.HandleInput("nobody", CharacterInput{Direction: 1})

	c := g.world.Character(p.Character)
	start := c.Core.Pos.X()
	for i := 0; i < 10; i++ {
		g.Step()
	}
	if c.Core.Pos.X() <= start {
		t.Errorf("expected the character to walk right from %v, got %v", start, c.Core.Pos.X())
	}
}

func TestGamePauseFreezesSnapshot(t *testing.T) {
	g := newTestGame(t)
	g.AddPlayer("", "A")
	g.Step()

	out, err := g.Exec("pause")
	if err != nil || out != "paused" {
		t.Fatalf("expected paused, got %q %v", out, err)
	}
	g.Step()
	snap := g.Snapshot()
	if !snap.Paused {
		t.Error("expected snapshot to be flagged paused")
	}
	if snap.Characters[0].Tick != 0 {
		t.Errorf("expected literal slot with tick 0, got %d", snap.Characters[0].Tick)
	}

	if _, err := g.Exec("unpause"); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if g.Paused() {
		t.Error("expected game resumed")
	}
}

func TestGameExec(t *testing.T) {
	g := newTestGame(t)

	out, err := g.Exec("tune gravity 0.8")
	if err != nil {
		t.Fatalf("tune: %v", err)
	}
	if out != "gravity = 0.8" {
		t.Errorf("unexpected output %q", out)
	}
	if g.world.Ctx.Tuning.Gravity != 0.8 {
		t.Errorf("expected gravity 0.8 in the world, got %v", g.world.Ctx.Tuning.Gravity)
	}

	if _, err := g.Exec("tune nope 1"); err == nil {
		t.Error("expected unknown tuning error")
	}
	if _, err := g.Exec("tune gravity abc"); err == nil {
		t.Error("expected bad value error")
	}
	if _, err := g.Exec("tune gravity"); err == nil {
		t.Error("expected usage error")
	}
	if _, err := g.Exec("explode"); err == nil {
		t.Error("expected unknown command error")
	}
	if _, err := g.Exec("   "); err == nil {
		t.Error("expected empty command error")
	}

	out, _ = g.Exec("tunes")
	if !strings.Contains(out, "ground_friction") {
		t.Errorf("expected tuning names, got %q", out)
	}
	out, _ = g.Exec("status")
	if !strings.HasPrefix(out, "map=arena size=50x30 ") {
		t.Errorf("unexpected status %q", out)
	}
}

func TestGameDeathPitKillAndRespawn(t *testing.T) {
	g := newTestGame(t)
	p, _ := g.AddPlayer("", "A")
	mock := &mockBroadcaster{}
	g.SetClient(p.ID, mock)
	g.Step()

	// drop the character right above the pit in the arena floor
	g.world.Character(p.Character).SetPos(Vec2{24*32 + 16, 27*32 + 16})

	for i := 0; i < 50 && p.Deaths == 0; i++ {
		g.Step()
	}
	if p.Deaths != 1 {
		t.Fatal("expected the character to die in the pit")
	}
	if p.Score != -1 {
		t.Errorf("expected score -1 for a world death, got %d", p.Score)
	}
	if p.HasCharacter(g.world) {
		t.Error("dead character should be gone")
	}

	kills := mock.envelopes(MsgKill)
	if len(kills) != 1 {
		t.Fatalf("expected 1 kill message, got %d", len(kills))
	}
	km := kills[0].Data.(KillMsg)
	if km.VictimID != p.ID || km.Weapon != WeaponWorld {
		t.Errorf("unexpected kill message %+v", km)
	}

	delay := g.ctx.Seconds(RespawnDelay)
	for i := int64(1); i < delay; i++ {
		g.Step()
	}
	if p.HasCharacter(g.world) {
		t.Error("respawned before the delay")
	}
	g.Step()
	if !p.HasCharacter(g.world) {
		t.Error("expected respawn after the delay")
	}
}

func TestGameRunStop(t *testing.T) {
	g := newTestGame(t)
	go g.Run()
	time.Sleep(100 * time.Millisecond)
	g.Stop()
	g.Stop()

	if g.Tick() == 0 {
		t.Error("expected the loop to advance the tick")
	}
	time.Sleep(50 * time.Millisecond)
	tick := g.Tick()
	time.Sleep(100 * time.Millisecond)
	if g.Tick() != tick {
		t.Error("loop kept running after Stop")
	}
}
