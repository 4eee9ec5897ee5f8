package main

import (
	"bytes"
	"testing"
)

// refreshTicks steps the world n times and records the ticks at which the
// character's baseline was refreshed
func refreshTicks(w *World, c *Character, n int) []int64 {
	var ticks []int64
	seen := c.Reckon.Refreshes
	for i := 0; i < n; i++ {
		w.Step()
		if c.Reckon.Refreshes != seen {
			seen = c.Reckon.Refreshes
			ticks = append(ticks, c.Reckon.Tick)
		}
	}
	return ticks
}

func TestReckoningConvergesAtRest(t *testing.T) {
	w := newFloorWorld(t)
	_, c := spawnCharacter(w, "a", Vec2{320, floorY})

	got := refreshTicks(w, c, 200)
	want := []int64{1, 152}
	if len(got) != len(want) {
		t.Fatalf("expected refreshes at %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected refresh %d at tick %d, got %d", i, want[i], got[i])
		}
	}
}

func TestReckoningConvergesWhileFalling(t *testing.T) {
	w := newFloorWorld(t)
	_, c := spawnCharacter(w, "a", Vec2{320, 100})

	// free fall and landing are both reproduced without input
	got := refreshTicks(w, c, 100)
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected a single refresh at tick 1, got %v", got)
	}
}

func TestReckoningRefreshesOnInputChange(t *testing.T) {
	w := newFloorWorld(t)
	_, c := spawnCharacter(w, "a", Vec2{100, floorY})
	refreshTicks(w, c, 10)
	if c.Reckon.Refreshes != 1 {
		t.Fatalf("expected 1 refresh while idle, got %d", c.Reckon.Refreshes)
	}

	c.Input.Direction = 1
	w.Step()
	if c.Reckon.Refreshes != 2 {
		t.Fatalf("expected refresh when the input changes, got %d", c.Reckon.Refreshes)
	}
	if c.Reckon.Tick != 11 {
		t.Errorf("expected baseline at tick 11, got %d", c.Reckon.Tick)
	}

	// direction is part of the baseline, so running is predicted
	refreshTicks(w, c, 10)
	if c.Reckon.Refreshes != 2 {
		t.Errorf("steady running should not refresh, got %d refreshes", c.Reckon.Refreshes)
	}

	c.Input.Direction = 0
	w.Step()
	if c.Reckon.Refreshes != 3 {
		t.Errorf("expected refresh when stopping, got %d", c.Reckon.Refreshes)
	}
}

func TestReckoningMatchesLiveCore(t *testing.T) {
	w := newFloorWorld(t)
	_, c := spawnCharacter(w, "a", Vec2{320, 200})
	for i := 0; i < 20; i++ {
		w.Step()
	}

	var predicted, live NetCharacter
	c.Reckon.Reckoning.Write(&predicted)
	c.Core.Write(&live)
	if !bytes.Equal(EncodeNetCharacter(&predicted), EncodeNetCharacter(&live)) {
		t.Errorf("expected reckoning %+v to equal live %+v", predicted, live)
	}
}

func TestReckoningPausedSlot(t *testing.T) {
	w := newFloorWorld(t)
	_, c := spawnCharacter(w, "a", Vec2{320, floorY})
	w.Step()
	if c.Reckon.Tick != 1 {
		t.Fatalf("expected baseline at tick 1, got %d", c.Reckon.Tick)
	}

	w.Paused = true
	for i := 0; i < 5; i++ {
		w.Step()
	}
	if c.Reckon.Tick != 6 {
		t.Errorf("expected baseline shifted to tick 6, got %d", c.Reckon.Tick)
	}

	var snap Snapshot
	w.Snap(&snap)
	if len(snap.Characters) != 1 {
		t.Fatalf("expected 1 character slot, got %d", len(snap.Characters))
	}
	cs := snap.Characters[0]
	if cs.Tick != 0 {
		t.Errorf("paused slot should carry tick 0, got %d", cs.Tick)
	}
	var live NetCharacter
	c.Core.Write(&live)
	if cs.Core != live {
		t.Errorf("paused slot should carry the live state, got %+v want %+v", cs.Core, live)
	}

	w.Paused = false
	snap = Snapshot{}
	w.Snap(&snap)
	if snap.Characters[0].Tick != 6 {
		t.Errorf("expected baseline tick after unpause, got %d", snap.Characters[0].Tick)
	}
}

func TestReconcilerShift(t *testing.T) {
	var r Reconciler
	r.Shift()
	if r.Tick != 0 {
		t.Errorf("shift without a baseline must stay at 0, got %d", r.Tick)
	}
	r.Tick = 40
	r.Shift()
	if r.Tick != 41 {
		t.Errorf("expected 41, got %d", r.Tick)
	}
}

func TestReconcilerSlot(t *testing.T) {
	c := newTestCollision(10, 10, TileSolid)
	core := CharacterCore{Pos: Vec2{10, 20}, Vel: Vec2{1, 0}}
	core.Init(NewWorldCore(&Tuning{}), c)

	var r Reconciler
	tick, state := r.Slot(false, &core)
	if tick != 0 || state.X != 10 || state.Y != 20 {
		t.Errorf("expected literal state before first baseline, got tick %d %+v", tick, state)
	}

	r.Compare(5, 50, &core)
	core.Pos = Vec2{99, 99}
	tick, state = r.Slot(false, &core)
	if tick != 5 {
		t.Errorf("expected baseline tick 5, got %d", tick)
	}
	if state.X != 10 || state.VelX != 256 {
		t.Errorf("expected the baseline state, got %+v", state)
	}
}

func TestReconcilerStaleness(t *testing.T) {
	core := CharacterCore{Pos: Vec2{10, 20}}
	var r Reconciler
	if !r.Compare(1, 50, &core) {
		t.Fatal("first compare should refresh")
	}

	if r.Compare(151, 50, &core) {
		t.Error("baseline is still fresh at tick 151")
	}
	if !r.Compare(152, 50, &core) {
		t.Error("baseline is stale at tick 152")
	}
}

func TestNetCharacterEncodingFixedWidth(t *testing.T) {
	small := NetCharacter{X: 1}
	large := NetCharacter{X: 1 << 20, VelY: -5000}
	a := EncodeNetCharacter(&small)
	b := EncodeNetCharacter(&large)
	if len(a) != len(b) {
		t.Errorf("expected equal encoded sizes, got %d and %d", len(a), len(b))
	}

	got, err := DecodeNetCharacter(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != large {
		t.Errorf("expected %+v, got %+v", large, got)
	}
}
