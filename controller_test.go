package main

import "testing"

func newArenaWorld(t *testing.T) (*World, *Controller) {
	t.Helper()
	m, err := DecodeMap(DefaultArenaMap())
	if err != nil {
		t.Fatalf("decode arena: %v", err)
	}
	w := NewWorld(NewSimContext(50, 1), NewCollisionMap(m.Game, m.Physics))
	return w, NewController(m)
}

func TestSpawnPosPrefersEmptySpawns(t *testing.T) {
	w, ctl := newArenaWorld(t)

	first, ok := ctl.SpawnPos(w)
	if !ok {
		t.Fatal("expected a spawn position")
	}
	if first != (Vec2{4 * 32, 26 * 32}) {
		t.Errorf("expected the first spawn in an empty world, got %v", first)
	}

	spawnCharacter(w, "a", first)
	second, ok := ctl.SpawnPos(w)
	if !ok {
		t.Fatal("expected a second spawn position")
	}
	if second != (Vec2{45 * 32, 26 * 32}) {
		t.Errorf("expected the spawn farthest from a, got %v", second)
	}
}

func TestSpawnPosOffsetsWhenOccupied(t *testing.T) {
	m := &Map{
		Name:   "single",
		Game:   newTileLayer(10, 10, make([]byte, 100)),
		Spawns: []Vec2{{160, 160}},
	}
	w := NewWorld(NewSimContext(50, 1), NewCollisionMap(m.Game, nil))
	ctl := NewController(m)

	spawnCharacter(w, "a", Vec2{160, 160})
	pos, ok := ctl.SpawnPos(w)
	if !ok {
		t.Fatal("expected an offset position")
	}
	if pos == (Vec2{160, 160}) {
		t.Error("occupied spawn point was reused")
	}
	if Distance(pos, Vec2{160, 160}) != 32 {
		t.Errorf("expected a 32 unit offset, got %v", pos)
	}
}

func TestControllerFallsBackToCentre(t *testing.T) {
	m := &Map{Game: newTileLayer(10, 6, make([]byte, 60))}
	ctl := NewController(m)
	w := NewWorld(NewSimContext(50, 1), NewCollisionMap(m.Game, nil))

	pos, ok := ctl.SpawnPos(w)
	if !ok || pos != (Vec2{160, 96}) {
		t.Errorf("expected map centre (160,96), got %v ok=%v", pos, ok)
	}
}

func TestOnKillScoring(t *testing.T) {
	ctl := &Controller{}
	a := NewPlayer("a", "A")
	b := NewPlayer("b", "B")

	ctl.OnKill(KillEvent{Victim: "b", Killer: "a", Weapon: WeaponGun}, b, a)
	if a.Score != 1 || a.Kills != 1 {
		t.Errorf("expected killer +1, got score %d kills %d", a.Score, a.Kills)
	}
	if b.Deaths != 1 || b.Score != 0 {
		t.Errorf("expected victim death without penalty, got score %d deaths %d", b.Score, b.Deaths)
	}

	ctl.OnKill(KillEvent{Victim: "a", Killer: "a", Weapon: WeaponGrenade}, a, a)
	if a.Score != 0 || a.Deaths != 1 || a.Kills != 1 {
		t.Errorf("expected suicide penalty, got %+v", a)
	}

	ctl.OnKill(KillEvent{Victim: "b", Weapon: WeaponWorld}, b, nil)
	if b.Score != -1 || b.Deaths != 2 {
		t.Errorf("expected world death penalty, got %+v", b)
	}

	// killer already left the game
	ctl.OnKill(KillEvent{Victim: "b", Killer: "gone", Weapon: WeaponGun}, b, nil)
	if b.Score != -1 || b.Deaths != 3 {
		t.Errorf("expected only a death, got %+v", b)
	}
}

func TestRespawnHonoursDelay(t *testing.T) {
	w, ctl := newArenaWorld(t)
	a := NewPlayer("a", "A")
	b := NewPlayer("b", "B")
	b.RespawnTick = 10

	spawned := ctl.Respawn(w, []*Player{a, b})
	if len(spawned) != 1 || spawned[0] != a {
		t.Fatalf("expected only a to spawn, got %d", len(spawned))
	}
	if w.Count(KindCharacter) != 1 {
		t.Error("respawn should activate the character immediately")
	}
	if len(ctl.Respawn(w, []*Player{a})) != 0 {
		t.Error("a living player must not respawn")
	}

	w.Tick = 10
	spawned = ctl.Respawn(w, []*Player{a, b})
	if len(spawned) != 1 || spawned[0] != b {
		t.Error("expected b to spawn once the delay passed")
	}
	ca := w.Character(a.Character)
	cb := w.Character(b.Character)
	if ca.Core.Pos == cb.Core.Pos {
		t.Error("players spawned on top of each other")
	}
}
