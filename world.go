package main

import (
	"math"
	"sort"
)

// EntityKind tags the concrete entity type
type EntityKind int

const (
	KindCharacter EntityKind = iota
	KindProjectile
)

func (k EntityKind) String() string {
	switch k {
	case KindCharacter:
		return "character"
	case KindProjectile:
		return "projectile"
	}
	return "unknown"
}

// Handle addresses an entity slot in the world. Generations start at 1 so
// the zero Handle never resolves.
type Handle struct {
	Index uint32
	Gen   uint32
}

// NoHandle is the zero handle
var NoHandle = Handle{}

// Valid reports whether h was ever issued
func (h Handle) Valid() bool { return h.Gen != 0 }

// Entity is anything the world steps. Entities hold no pointer to the
// world; every call passes the world and the entity's own handle.
type Entity interface {
	Kind() EntityKind
	Pos() Vec2
	ProximityRadius() float64

	// Advance runs in the physics pass before any ability resolves
	Advance(w *World, self Handle)
	// Tick runs in the ability pass against the previous tick's positions
	Tick(w *World, self Handle)
	// TickDeferred moves the entity and settles collisions
	TickDeferred(w *World, self Handle)
	// TickPaused replaces all of the above while the world is paused
	TickPaused(w *World, self Handle)
	Snap(w *World, self Handle, snap *Snapshot)
}

// KillEvent is produced when a character dies during a tick
type KillEvent struct {
	Victim   string
	Killer   string
	Weapon   int
	Tick     int64
	Position Vec2
}

type entitySlot struct {
	gen    uint32
	ent    Entity
	active bool // spawned and flushed into the tick loop
	doomed bool
}

// World owns every entity and the per-tick ordering that advances them
type World struct {
	Ctx       *SimContext
	Collision *CollisionMap
	Core      *WorldCore
	Weapons   AbilityResolver
	Diag      *Diagnostics
	Debug     bool

	Tick   int64
	Paused bool
	Kills  []KillEvent

	slots   []entitySlot
	free    []uint32
	pending []Handle
	doomed  []Handle

	index      *SpatialIndex
	indexDirty bool
	queryBuf   []EntityRef
}

// NewWorld creates an empty world over a collision map
func NewWorld(ctx *SimContext, collision *CollisionMap) *World {
	w := &World{
		Ctx:        ctx,
		Collision:  collision,
		index:      NewSpatialIndex(),
		indexDirty: true,
	}
	w.Core = NewWorldCore(&ctx.Tuning)
	w.Weapons = NewWeaponSystem()
	return w
}

// Spawn reserves a handle for e. The entity joins the tick loop at the
// next tick boundary.
func (w *World) Spawn(e Entity) Handle {
	var idx uint32
	if n := len(w.free); n > 0 {
		idx = w.free[n-1]
		w.free = w.free[:n-1]
	} else {
		idx = uint32(len(w.slots))
		w.slots = append(w.slots, entitySlot{})
	}
	s := &w.slots[idx]
	s.gen++
	s.ent = e
	s.active = false
	s.doomed = false
	h := Handle{Index: idx, Gen: s.gen}
	w.pending = append(w.pending, h)
	return h
}

// Destroy marks the entity for removal at the next tick boundary
func (w *World) Destroy(h Handle) {
	s := w.slot(h)
	if s == nil || s.doomed {
		return
	}
	s.doomed = true
	w.doomed = append(w.doomed, h)
}

func (w *World) slot(h Handle) *entitySlot {
	if !h.Valid() || int(h.Index) >= len(w.slots) {
		return nil
	}
	s := &w.slots[h.Index]
	if s.gen != h.Gen || s.ent == nil {
		return nil
	}
	return s
}

// Get resolves a handle; stale handles return nil
func (w *World) Get(h Handle) Entity {
	if s := w.slot(h); s != nil {
		return s.ent
	}
	return nil
}

// Alive reports whether h refers to an entity not marked for removal
func (w *World) Alive(h Handle) bool {
	s := w.slot(h)
	return s != nil && !s.doomed
}

// Character resolves h to a live character
func (w *World) Character(h Handle) *Character {
	if !w.Alive(h) {
		return nil
	}
	c, _ := w.Get(h).(*Character)
	return c
}

// Each calls fn for every active entity in slot order, skipping those
// marked for removal
func (w *World) Each(fn func(h Handle, e Entity)) {
	for i := range w.slots {
		s := &w.slots[i]
		if !s.active || s.doomed {
			continue
		}
		fn(Handle{Index: uint32(i), Gen: s.gen}, s.ent)
	}
}

// EachCharacter is Each restricted to characters
func (w *World) EachCharacter(fn func(h Handle, c *Character)) {
	w.Each(func(h Handle, e Entity) {
		if c, ok := e.(*Character); ok {
			fn(h, c)
		}
	})
}

// Count returns the number of active entities of kind
func (w *World) Count(kind EntityKind) int {
	n := 0
	w.Each(func(_ Handle, e Entity) {
		if e.Kind() == kind {
			n++
		}
	})
	return n
}

// Flush applies deferred spawns and removals
func (w *World) Flush() {
	for _, h := range w.doomed {
		s := &w.slots[h.Index]
		if s.gen != h.Gen {
			continue
		}
		if _, ok := s.ent.(*Character); ok {
			w.Core.Remove(h)
		}
		s.ent = nil
		s.active = false
		s.doomed = false
		w.free = append(w.free, h.Index)
	}
	w.doomed = w.doomed[:0]

	for _, h := range w.pending {
		s := w.slot(h)
		if s == nil {
			continue
		}
		s.active = true
		if c, ok := s.ent.(*Character); ok {
			c.Core.Init(w.Core, w.Collision)
			w.Core.Add(h, &c.Core)
		}
	}
	w.pending = w.pending[:0]
	w.indexDirty = true
}

// Step runs one tick: physics advance, ability resolution, deferred
// movement, reckoning comparison, then the boundary flush
func (w *World) Step() {
	w.Tick++
	w.Kills = w.Kills[:0]

	if w.Paused {
		w.Each(func(h Handle, e Entity) { e.TickPaused(w, h) })
		w.Flush()
		return
	}

	w.Each(func(h Handle, e Entity) { e.Advance(w, h) })

	w.rebuildIndex()
	w.Each(func(h Handle, e Entity) { e.Tick(w, h) })

	w.Each(func(h Handle, e Entity) { e.TickDeferred(w, h) })
	w.indexDirty = true

	w.EachCharacter(func(h Handle, c *Character) { c.Reconcile(w, h) })

	w.Flush()
}

// Snap appends every active entity to snap
func (w *World) Snap(snap *Snapshot) {
	w.Each(func(h Handle, e Entity) { e.Snap(w, h, snap) })
}

// PostSnap runs after a snapshot went out
func (w *World) PostSnap() {
	w.EachCharacter(func(_ Handle, c *Character) { c.PostSnap() })
}

func (w *World) rebuildIndex() {
	w.index.Clear()
	w.Each(func(h Handle, e Entity) {
		w.index.InsertCircle(e.Pos(), e.ProximityRadius(), EntityRef{Handle: h, Kind: e.Kind()})
	})
	w.indexDirty = false
}

// FindEntities returns the handles of entities of kind whose proximity
// circle comes within radius of p, ordered by slot
func (w *World) FindEntities(p Vec2, radius float64, kind EntityKind) []Handle {
	if w.indexDirty {
		w.rebuildIndex()
	}
	w.queryBuf = w.index.QueryBuf(p, radius, w.queryBuf[:0])

	var out []Handle
	for _, ref := range w.queryBuf {
		if ref.Kind == kind && w.Alive(ref.Handle) {
			out = append(out, ref.Handle)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// ClosestCharacter returns the nearest character within radius of p,
// ignoring not
func (w *World) ClosestCharacter(p Vec2, radius float64, not Handle) (Handle, *Character) {
	best := math.MaxFloat64
	var bh Handle
	var bc *Character
	w.EachCharacter(func(h Handle, c *Character) {
		if h == not {
			return
		}
		d := Distance(p, c.Core.Pos)
		if d < radius && d < best {
			best, bh, bc = d, h, c
		}
	})
	return bh, bc
}

// IntersectCharacter finds the character closest to p0 whose proximity
// circle, grown by radius, touches the segment p0-p1
func (w *World) IntersectCharacter(p0, p1 Vec2, radius float64, not Handle) (Handle, *Character, Vec2) {
	closest := Distance(p0, p1) * 100
	var bh Handle
	var bc *Character
	var at Vec2
	w.EachCharacter(func(h Handle, c *Character) {
		if h == not {
			return
		}
		ip := closestPointOnLine(p0, p1, c.Core.Pos)
		if Distance(c.Core.Pos, ip) < c.ProximityRadius()+radius {
			if d := Distance(p0, ip); d < closest {
				closest, bh, bc, at = d, h, c, ip
			}
		}
	})
	return bh, bc, at
}

func closestPointOnLine(a, b, p Vec2) Vec2 {
	ab := b.Sub(a)
	l := ab.LenSqr()
	if l == 0 {
		return a
	}
	t := Clamp(p.Sub(a).Dot(ab)/l, 0, 1)
	return a.Add(ab.Mul(t))
}

// explosion falloff
const (
	explosionRadius      = 135.0
	explosionInnerRadius = 48.0
	explosionDamage      = 6.0
)

// CreateExplosion damages and pushes every character in range of p
func (w *World) CreateExplosion(p Vec2, owner string, weapon int) {
	for _, h := range w.FindEntities(p, explosionRadius, KindCharacter) {
		c := w.Character(h)
		if c == nil {
			continue
		}
		diff := c.Core.Pos.Sub(p)
		force := Vec2{0, 1}
		l := diff.Len()
		if l > 0 {
			force = Normalize(diff)
		}
		l = 1 - Clamp((l-explosionInnerRadius)/(explosionRadius-explosionInnerRadius), 0, 1)
		dmg := explosionDamage * l
		if int(dmg) != 0 {
			c.TakeDamage(w, h, force.Mul(dmg*2), int(dmg), owner, weapon)
		}
	}
}

func (w *World) recordKill(ev KillEvent) {
	ev.Tick = w.Tick
	w.Kills = append(w.Kills, ev)
}
