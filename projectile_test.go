package main

import "testing"

func TestProjectileLifetime(t *testing.T) {
	w := newFloorWorld(t)
	w.Spawn(NewProjectile("", NoHandle, Vec2{320, 100}, Vec2{}, 0, 3))
	w.Flush()

	w.Step()
	w.Step()
	if w.Count(KindProjectile) != 1 {
		t.Fatal("projectile expired early")
	}
	w.Step()
	if w.Count(KindProjectile) != 0 {
		t.Error("expected projectile to explode when its life runs out")
	}
}

func TestProjectileHitsCharacter(t *testing.T) {
	w := newFloorWorld(t)
	_, c := spawnCharacter(w, "a", Vec2{200, floorY})
	w.Spawn(NewProjectile("b", NoHandle, Vec2{200, 560}, Vec2{0, 10}, 0, 100))
	w.Flush()

	w.Step()
	if w.Count(KindProjectile) != 0 {
		t.Error("expected projectile to explode on contact")
	}
	if c.Health != CharacterMaxHealth-6 {
		t.Errorf("expected full explosion damage, got health %d", c.Health)
	}
}

func TestProjectileIgnoresOwnerAtLaunch(t *testing.T) {
	w := newFloorWorld(t)
	h, owner := spawnCharacter(w, "a", Vec2{200, floorY})
	w.Spawn(NewProjectile("a", h, Vec2{200, 580}, Vec2{}, w.Tick, 100))
	w.Flush()

	w.Step()
	if w.Count(KindProjectile) != 1 {
		t.Fatal("projectile should pass through its owner right after launch")
	}
	w.Step()
	if w.Count(KindProjectile) != 0 {
		t.Fatal("expected the owner to be hit once the grace period ends")
	}
	if owner.Health != CharacterMaxHealth-3 {
		t.Errorf("expected halved self damage, got health %d", owner.Health)
	}
}

func TestProjectileBounce(t *testing.T) {
	w := newFloorWorld(t)
	p := NewProjectile("", NoHandle, Vec2{320, 600}, Vec2{0, 10}, 0, 100)
	w.Spawn(p)
	w.Flush()

	w.Step()
	if p.Position.Y() != 600 {
		t.Errorf("expected projectile held at the floor, got %v", p.Position)
	}
	want := -(10 + w.Ctx.Tuning.GrenadeGravity) * w.Ctx.Tuning.GrenadeElasticity
	if !approx(p.Vel.Y(), want) {
		t.Errorf("expected vy %v after bounce, got %v", want, p.Vel.Y())
	}
}

func TestProjectilePausedAndSnap(t *testing.T) {
	w := newFloorWorld(t)
	p := NewProjectile("", NoHandle, Vec2{320, 100}, Vec2{1, 0}, 7, 100)
	w.Spawn(p)
	w.Flush()

	w.Paused = true
	w.Step()
	w.Step()
	if p.StartTick != 9 {
		t.Errorf("expected start tick shifted to 9, got %d", p.StartTick)
	}
	if p.Position != (Vec2{320, 100}) {
		t.Errorf("paused projectile moved to %v", p.Position)
	}

	var snap Snapshot
	w.Snap(&snap)
	if len(snap.Projectiles) != 1 {
		t.Fatalf("expected 1 projectile, got %d", len(snap.Projectiles))
	}
	ps := snap.Projectiles[0]
	if ps.X != 320 || ps.Y != 100 || ps.VelX != 100 || ps.StartTick != 9 {
		t.Errorf("unexpected projectile snap %+v", ps)
	}
}
