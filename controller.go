package main

import "math"

// respawn delay in seconds after a death
const RespawnDelay = 0.5

// offsets tried around each spawn point when it is occupied
var spawnOffsets = [5]Vec2{{0, 0}, {-32, 0}, {0, -32}, {32, 0}, {0, 32}}

// Controller is the game mode: spawn selection, respawns and scoring
type Controller struct {
	spawns []Vec2
}

// NewController creates a controller for the map's spawn points. A map
// without spawns gets its centre.
func NewController(m *Map) *Controller {
	spawns := m.Spawns
	if len(spawns) == 0 {
		spawns = []Vec2{{float64(m.Game.Width*TileSize) / 2, float64(m.Game.Height*TileSize) / 2}}
	}
	return &Controller{spawns: spawns}
}

// evaluateSpawnPos scores p by how crowded it is; lower is better
func evaluateSpawnPos(w *World, p Vec2) float64 {
	score := 0.0
	w.EachCharacter(func(_ Handle, c *Character) {
		d := Distance(p, c.Core.Pos)
		if d == 0 {
			score += 1e9
		} else {
			score += 1 / d
		}
	})
	return score
}

// SpawnPos picks the least crowded free position among the spawn points.
// ok is false when every candidate is blocked.
func (ctl *Controller) SpawnPos(w *World) (pos Vec2, ok bool) {
	best := math.MaxFloat64
	for _, sp := range ctl.spawns {
		near := w.FindEntities(sp, 64, KindCharacter)
		found := -1
		for i, off := range spawnOffsets {
			p := sp.Add(off)
			if w.Collision.CheckPoint(p) {
				continue
			}
			free := true
			for _, h := range near {
				if e := w.Get(h); e != nil && Distance(e.Pos(), p) <= e.ProximityRadius() {
					free = false
					break
				}
			}
			if free {
				found = i
				break
			}
		}
		if found < 0 {
			continue
		}
		p := sp.Add(spawnOffsets[found])
		if s := evaluateSpawnPos(w, p); s < best {
			best, pos, ok = s, p, true
		}
	}
	return pos, ok
}

// OnKill applies the score changes of one death
func (ctl *Controller) OnKill(ev KillEvent, victim, killer *Player) {
	if victim != nil {
		victim.Deaths++
	}
	switch {
	case killer == nil:
		if victim != nil && ev.Weapon == WeaponWorld {
			victim.Score--
		}
	case killer == victim:
		killer.Score--
	default:
		killer.Score++
		killer.Kills++
	}
}

// Respawn spawns a character for every player whose delay has passed.
// Returns the players that got a new character.
func (ctl *Controller) Respawn(w *World, players []*Player) []*Player {
	var spawned []*Player
	for _, p := range players {
		if p.HasCharacter(w) || w.Tick < p.RespawnTick {
			continue
		}
		pos, ok := ctl.SpawnPos(w)
		if !ok {
			continue
		}
		c := NewCharacter(p.ID, pos)
		p.Character = w.Spawn(c)
		// runs at the tick boundary; activate now so the next pick sees it
		w.Flush()
		spawned = append(spawned, p)
	}
	return spawned
}
