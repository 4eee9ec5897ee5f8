package main

const (
	ProjectileRadius = 6.0
)

// Projectile is a grenade in flight. It bounces off solid tiles and
// explodes on character contact or when its life runs out.
type Projectile struct {
	OwnerID   string
	Owner     Handle
	Position  Vec2
	Vel       Vec2
	StartTick int64
	LifeSpan  int64 // ticks left

	next     Vec2
	exploded bool
}

// NewProjectile creates a grenade
func NewProjectile(ownerID string, owner Handle, pos, vel Vec2, tick, lifeSpan int64) *Projectile {
	return &Projectile{
		OwnerID:   ownerID,
		Owner:     owner,
		Position:  pos,
		Vel:       vel,
		StartTick: tick,
		LifeSpan:  lifeSpan,
	}
}

func (p *Projectile) Kind() EntityKind          { return KindProjectile }
func (p *Projectile) Pos() Vec2                 { return p.Position }
func (p *Projectile) ProximityRadius() float64 { return ProjectileRadius }

// Advance applies gravity
func (p *Projectile) Advance(w *World, self Handle) {
	p.Vel[1] += w.Ctx.Tuning.GrenadeGravity
	p.next = p.Position.Add(p.Vel)
}

// Tick checks the path of this tick for characters and the lifetime
func (p *Projectile) Tick(w *World, self Handle) {
	p.LifeSpan--

	// the owner is ignored while still overlapping the muzzle
	not := NoHandle
	if w.Tick-p.StartTick < 2 {
		not = p.Owner
	}
	if _, target, at := w.IntersectCharacter(p.Position, p.next, ProjectileRadius, not); target != nil {
		p.explode(w, self, at)
		return
	}
	if p.LifeSpan <= 0 {
		p.explode(w, self, p.Position)
		return
	}
	if w.Collision.GameLayerClipped(p.next) {
		w.Destroy(self)
	}
}

// TickDeferred moves the grenade with an elastic bounce
func (p *Projectile) TickDeferred(w *World, self Handle) {
	w.Collision.MovePoint(&p.Position, &p.Vel, w.Ctx.Tuning.GrenadeElasticity, ModeSolid)
	if w.Collision.PointHasFlag(p.Position, ColFlagDeath) {
		w.Destroy(self)
	}
}

// TickPaused keeps the flight curve anchored
func (p *Projectile) TickPaused(w *World, self Handle) {
	p.StartTick++
}

func (p *Projectile) explode(w *World, self Handle, at Vec2) {
	if p.exploded {
		return
	}
	p.exploded = true
	w.CreateExplosion(at, p.OwnerID, WeaponGrenade)
	w.Destroy(self)
}

// Snap writes the projectile
func (p *Projectile) Snap(w *World, self Handle, snap *Snapshot) {
	snap.Projectiles = append(snap.Projectiles, ProjectileSnap{
		X:         int32(roundToInt(p.Position.X())),
		Y:         int32(roundToInt(p.Position.Y())),
		VelX:      int32(roundToInt(p.Vel.X() * 100)),
		VelY:      int32(roundToInt(p.Vel.Y() * 100)),
		StartTick: p.StartTick,
	})
}
