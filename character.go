package main

import (
	"fmt"
	"log"
	"math"
)

const (
	CharacterMaxHealth = 10
	characterRadius    = PhysSize
)

// Weapon and cause-of-death ids
const (
	WeaponWorld   = -1 // map hazard or leaving the map
	WeaponHammer  = 0
	WeaponGun     = 1
	WeaponGrenade = 2
	NumWeapons    = 3
)

// Character is the in-world body of a player
type Character struct {
	PlayerID string
	Core     CharacterCore
	Reckon   Reconciler
	Input    CharacterInput

	Health      int
	Weapon      int
	ReloadTimer int
	AttackTick  int64

	prevFire bool
	stuck    bool
	events   int // core events since the last snapshot
}

// NewCharacter creates a character standing at pos
func NewCharacter(playerID string, pos Vec2) *Character {
	c := &Character{
		PlayerID: playerID,
		Health:   CharacterMaxHealth,
		Weapon:   WeaponGun,
	}
	c.Core.Reset()
	c.Core.Pos = pos
	c.Reckon.Reset()
	return c
}

func (c *Character) Kind() EntityKind          { return KindCharacter }
func (c *Character) Pos() Vec2                 { return c.Core.Pos }
func (c *Character) ProximityRadius() float64 { return characterRadius }

// SetPos teleports the character and forces a fresh baseline
func (c *Character) SetPos(p Vec2) {
	c.Core.Pos = p
	c.Reckon.Reset()
}

// Advance applies this tick's input to the core velocity
func (c *Character) Advance(w *World, self Handle) {
	c.Core.Input = c.Input
	c.Core.Tick(true)
	c.events |= c.Core.TriggeredEvents

	if w.Collision.GameLayerClipped(c.Core.Pos) {
		c.Die(w, self, "", WeaponWorld)
	}
}

// Tick resolves weapons against the settled positions of the previous tick
func (c *Character) Tick(w *World, self Handle) {
	if c.ReloadTimer > 0 {
		c.ReloadTimer--
	}
	if w.Weapons != nil {
		w.Weapons.Resolve(w, self, c)
	}
	c.prevFire = c.Input.Fire
}

// TickDeferred moves the reckoning core and the live core, then checks
// for stuck and lethal contact
func (c *Character) TickDeferred(w *World, self Handle) {
	c.Reckon.Advance(w.Collision, &w.Ctx.Tuning)

	half := Vec2{PhysSize / 2, PhysSize / 2}
	startPos, startVel := c.Core.Pos, c.Core.Vel
	stuckBefore := w.Collision.TestBox(c.Core.Pos, half)

	c.Core.Move()
	stuckAfterMove := w.Collision.TestBox(c.Core.Pos, half)
	c.Core.Quantize()
	stuckAfterQuant := w.Collision.TestBox(c.Core.Pos, half)

	c.stuck = stuckAfterMove || stuckAfterQuant
	if !stuckBefore && c.stuck {
		c.reportStuck(w, startPos, startVel, stuckAfterMove, stuckAfterQuant)
	}

	if c.Core.Death {
		c.Die(w, self, "", WeaponWorld)
	}
}

func (c *Character) reportStuck(w *World, startPos, startVel Vec2, afterMove, afterQuant bool) {
	detail := fmt.Sprintf("player=%s move=%v quant=%v start=(%g,%g) vel=(%g,%g) end=(%g,%g)",
		c.PlayerID, afterMove, afterQuant,
		startPos.X(), startPos.Y(), startVel.X(), startVel.Y(), c.Core.Pos.X(), c.Core.Pos.Y())
	log.Printf("character stuck: %s", detail)
	if w.Debug {
		log.Printf("stuck raw: pos=%x,%x vel=%x,%x",
			math.Float64bits(startPos.X()), math.Float64bits(startPos.Y()),
			math.Float64bits(startVel.X()), math.Float64bits(startVel.Y()))
	}
	if w.Diag != nil {
		w.Diag.Record(DiagStuck, w.Tick, detail)
	}
}

// Reconcile decides whether the broadcast baseline needs a refresh
func (c *Character) Reconcile(w *World, self Handle) {
	c.Reckon.Compare(w.Tick, w.Ctx.TickSpeed, &c.Core)
}

// TickPaused keeps time-relative state aligned while nothing moves
func (c *Character) TickPaused(w *World, self Handle) {
	c.Reckon.Shift()
	if c.AttackTick != 0 {
		c.AttackTick++
	}
}

// Snap writes the character slot
func (c *Character) Snap(w *World, self Handle, snap *Snapshot) {
	tick, core := c.Reckon.Slot(w.Paused, &c.Core)
	snap.Characters = append(snap.Characters, CharacterSnap{
		ID:     c.PlayerID,
		Tick:   tick,
		Core:   core,
		Health: c.Health,
		Weapon: c.Weapon,
		Events: c.events,
	})
}

// PostSnap forgets the events already sent
func (c *Character) PostSnap() { c.events = 0 }

// Stuck reports whether the last move ended inside solid geometry
func (c *Character) Stuck() bool { return c.stuck }

// TakeDamage pushes the character by force and removes health. Returns
// true if the hit was fatal.
func (c *Character) TakeDamage(w *World, self Handle, force Vec2, dmg int, from string, weapon int) bool {
	if !w.Alive(self) {
		return false
	}
	c.Core.Vel = c.Core.Vel.Add(force)

	// own damage is reduced
	if from == c.PlayerID {
		dmg = int(math.Max(1, float64(dmg/2)))
	}
	c.Health -= dmg
	if c.Health <= 0 {
		c.Health = 0
		c.Die(w, self, from, weapon)
		return true
	}
	return false
}

// Die removes the character at the next tick boundary
func (c *Character) Die(w *World, self Handle, killer string, weapon int) {
	if !w.Alive(self) {
		return
	}
	w.recordKill(KillEvent{Victim: c.PlayerID, Killer: killer, Weapon: weapon, Position: c.Core.Pos})
	if w.Diag != nil && c.Reckon.Refreshes > 0 {
		w.Diag.Record(DiagReckoning, w.Tick, fmt.Sprintf("player=%s refreshes=%d", c.PlayerID, c.Reckon.Refreshes))
	}
	w.Destroy(self)
	// the body stops blocking other cores right away; the slot goes at the boundary
	w.Core.Remove(self)
}
