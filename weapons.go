package main

// AbilityResolver runs a character's weapons during the ability pass.
// Implementations may query the world and damage other entities but must
// not move anything.
type AbilityResolver interface {
	Resolve(w *World, self Handle, c *Character)
}

// WeaponSpec holds the fixed parameters of one weapon
type WeaponSpec struct {
	ReloadMs int
	Damage   int
	FullAuto bool
}

var weaponSpecs = [NumWeapons]WeaponSpec{
	WeaponHammer:  {ReloadMs: 125, Damage: 3},
	WeaponGun:     {ReloadMs: 125, Damage: 1},
	WeaponGrenade: {ReloadMs: 500, Damage: 6, FullAuto: true},
}

// WeaponSystem is the default resolver: hammer, hitscan gun and grenades
type WeaponSystem struct{}

// NewWeaponSystem returns the stock weapon set
func NewWeaponSystem() *WeaponSystem {
	return &WeaponSystem{}
}

// Resolve fires the active weapon if the trigger and reload allow it
func (ws *WeaponSystem) Resolve(w *World, self Handle, c *Character) {
	if c.Input.Weapon >= 0 && c.Input.Weapon < NumWeapons {
		c.Weapon = c.Input.Weapon
	}
	if !c.Input.Fire || c.ReloadTimer > 0 {
		return
	}
	def := weaponSpecs[c.Weapon]
	if !def.FullAuto && c.prevFire {
		return
	}

	dir := Normalize(Vec2{c.Input.TargetX, c.Input.TargetY})
	if dir.Len() == 0 {
		dir = Vec2{1, 0}
	}

	switch c.Weapon {
	case WeaponHammer:
		ws.fireHammer(w, self, c, dir, def)
	case WeaponGun:
		ws.fireGun(w, self, c, dir, def)
	case WeaponGrenade:
		ws.fireGrenade(w, self, c, dir)
	}

	c.AttackTick = w.Tick
	c.ReloadTimer = def.ReloadMs * w.Ctx.TickSpeed / 1000
}

func (ws *WeaponSystem) fireHammer(w *World, self Handle, c *Character, dir Vec2, def WeaponSpec) {
	start := c.Core.Pos.Add(dir.Mul(PhysSize * 0.75))
	for _, h := range w.FindEntities(start, PhysSize*0.5, KindCharacter) {
		if h == self {
			continue
		}
		target := w.Character(h)
		if target == nil {
			continue
		}
		// no hitting through walls
		if _, _, flags := w.Collision.IntersectSegment(start, target.Core.Pos, ModeSolid); flags != 0 {
			continue
		}
		hitDir := Normalize(target.Core.Pos.Sub(c.Core.Pos))
		if hitDir.Len() == 0 {
			hitDir = Vec2{0, -1}
		}
		force := Vec2{0, -1}.Add(Normalize(hitDir.Add(Vec2{0, -1.1})).Mul(10))
		target.TakeDamage(w, h, force, def.Damage, c.PlayerID, WeaponHammer)
	}
}

func (ws *WeaponSystem) fireGun(w *World, self Handle, c *Character, dir Vec2, def WeaponSpec) {
	from := c.Core.Pos
	to := from.Add(dir.Mul(w.Ctx.Tuning.GunRange))
	if _, before, flags := w.Collision.IntersectSegment(from, to, ModeSolid); flags != 0 {
		to = before
	}
	h, target, _ := w.IntersectCharacter(from, to, 0, self)
	if target == nil {
		return
	}
	target.TakeDamage(w, h, dir.Mul(2), def.Damage, c.PlayerID, WeaponGun)
}

func (ws *WeaponSystem) fireGrenade(w *World, self Handle, c *Character, dir Vec2) {
	start := c.Core.Pos.Add(dir.Mul(PhysSize * 0.75))
	vel := dir.Mul(w.Ctx.Tuning.GrenadeSpeed)
	// small spread so repeated shots do not stack exactly
	spread := (w.Ctx.Rand.Float64() - 0.5) * 0.02
	vel = vel.Add(Vec2{-dir.Y(), dir.X()}.Mul(spread * vel.Len()))
	w.Spawn(NewProjectile(c.PlayerID, self, start, vel, w.Tick, w.Ctx.Seconds(w.Ctx.Tuning.GrenadeLifetime)))
}
