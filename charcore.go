package main

import "math"

// PhysSize is the edge length of a character's collision box
const PhysSize = 28.0

const maxCoreSpeed = 6000.0

// Core events raised during a tick
const (
	EventGroundJump = 1 << iota
	EventAirJump
)

// CharacterInput is the latest control state sent by a player. Target is
// relative to the character.
type CharacterInput struct {
	Direction int     `json:"dir"`
	Jump      bool    `json:"jump"`
	Fire      bool    `json:"fire"`
	Weapon    int     `json:"weapon"`
	TargetX   float64 `json:"tx"`
	TargetY   float64 `json:"ty"`
}

// WorldCore is the set of character cores that physically interact.
// Slots follow entity handle indices so iteration order is stable.
type WorldCore struct {
	Tuning *Tuning
	cores  []*CharacterCore
}

// NewWorldCore returns an empty world core
func NewWorldCore(tuning *Tuning) *WorldCore {
	return &WorldCore{Tuning: tuning}
}

// Add registers a core under the handle's slot
func (w *WorldCore) Add(h Handle, c *CharacterCore) {
	for int(h.Index) >= len(w.cores) {
		w.cores = append(w.cores, nil)
	}
	w.cores[h.Index] = c
}

// Remove drops the core registered under the handle's slot
func (w *WorldCore) Remove(h Handle) {
	if int(h.Index) < len(w.cores) {
		w.cores[h.Index] = nil
	}
}

// Count returns the number of registered cores
func (w *WorldCore) Count() int {
	n := 0
	for _, c := range w.cores {
		if c != nil {
			n++
		}
	}
	return n
}

// CharacterCore is the kinematic state of one character and the stepping
// rules that advance it
type CharacterCore struct {
	world     *WorldCore
	collision *CollisionMap

	Pos       Vec2
	Vel       Vec2
	Input     CharacterInput
	Direction int
	Jumped    int
	Angle     int
	Death     bool

	TriggeredEvents int
}

// Init binds the core to a world and a collision map
func (c *CharacterCore) Init(world *WorldCore, collision *CollisionMap) {
	c.world = world
	c.collision = collision
}

// Reset clears the kinematic state but keeps the bindings
func (c *CharacterCore) Reset() {
	c.Pos = Vec2{}
	c.Vel = Vec2{}
	c.Input = CharacterInput{}
	c.Direction = 0
	c.Jumped = 0
	c.Angle = 0
	c.Death = false
	c.TriggeredEvents = 0
}

func (c *CharacterCore) grounded() bool {
	x, y := c.Pos.X(), c.Pos.Y()+PhysSize/2+5
	return c.collision.CheckPoint(Vec2{x + PhysSize/2, y}) ||
		c.collision.CheckPoint(Vec2{x - PhysSize/2, y})
}

// Tick applies gravity, control and pushes from other cores to the
// velocity. Position is not touched; Move does that.
func (c *CharacterCore) Tick(useInput bool) {
	t := c.world.Tuning
	c.TriggeredEvents = 0

	grounded := c.grounded()
	c.Vel[1] += t.Gravity

	maxSpeed, accel, friction := t.AirControlSpeed, t.AirControlAccel, t.AirFriction
	if grounded {
		maxSpeed, accel, friction = t.GroundControlSpeed, t.GroundControlAccel, t.GroundFriction
	}

	if useInput {
		c.Direction = c.Input.Direction
		c.Angle = int(math.Atan2(c.Input.TargetY, c.Input.TargetX) * 256)

		if c.Input.Jump {
			if c.Jumped&1 == 0 {
				if grounded {
					c.TriggeredEvents |= EventGroundJump
					c.Vel[1] = -t.GroundJumpImpulse
					c.Jumped |= 1
				} else if c.Jumped&2 == 0 {
					c.TriggeredEvents |= EventAirJump
					c.Vel[1] = -t.AirJumpImpulse
					c.Jumped |= 3
				}
			}
		} else {
			c.Jumped &^= 1
		}
	}

	switch {
	case c.Direction < 0:
		c.Vel[0] = saturatedAdd(-maxSpeed, maxSpeed, c.Vel.X(), -accel)
	case c.Direction > 0:
		c.Vel[0] = saturatedAdd(-maxSpeed, maxSpeed, c.Vel.X(), accel)
	default:
		c.Vel[0] *= friction
	}

	if grounded {
		c.Jumped &^= 2
	}

	if t.PlayerCollision != 0 {
		for _, other := range c.world.cores {
			if other == nil || other == c {
				continue
			}
			d := Distance(c.Pos, other.Pos)
			if d >= PhysSize*1.25 || d <= 0 {
				continue
			}
			dir := Normalize(c.Pos.Sub(other.Pos))
			a := PhysSize*1.45 - d
			velocity := 0.5
			if c.Vel.Len() > 0.0001 {
				velocity = 1 - (Normalize(c.Vel).Dot(dir)+1)/2
			}
			c.Vel = c.Vel.Add(dir.Mul(a * velocity * 0.75))
			c.Vel = c.Vel.Mul(0.85)
		}
	}

	if c.Vel.Len() > maxCoreSpeed {
		c.Vel = Normalize(c.Vel).Mul(maxCoreSpeed)
	}
}

// Move integrates the velocity against the map and stops short of other
// cores
func (c *CharacterCore) Move() {
	t := c.world.Tuning

	ramp := velocityRamp(c.Vel.Len()*50, t.VelrampStart, t.VelrampRange, t.VelrampCurvature)
	c.Vel[0] *= ramp

	newPos := c.Pos
	c.Death = c.collision.MoveBox(&newPos, &c.Vel, Vec2{PhysSize / 2, PhysSize / 2}, 0, ModeSolid)

	if ramp != 0 {
		c.Vel[0] /= ramp
	}

	if t.PlayerCollision != 0 && c.world.Count() > 1 {
		d := Distance(c.Pos, newPos)
		if d > 0 {
			end := int(d + 1)
			last := c.Pos
			for i := 0; i < end; i++ {
				a := float64(i) / d
				pos := Mix(c.Pos, newPos, a)
				for _, other := range c.world.cores {
					if other == nil || other == c {
						continue
					}
					od := Distance(pos, other.Pos)
					if od < PhysSize {
						if a > 0 {
							c.Pos = last
						} else if Distance(newPos, other.Pos) > od {
							c.Pos = newPos
						}
						return
					}
				}
				last = pos
			}
		}
	}

	c.Pos = newPos
}

// Write stores the core in its network representation
func (c *CharacterCore) Write(out *NetCharacter) {
	out.X = int32(roundToInt(c.Pos.X()))
	out.Y = int32(roundToInt(c.Pos.Y()))
	out.VelX = int32(roundToInt(c.Vel.X() * 256))
	out.VelY = int32(roundToInt(c.Vel.Y() * 256))
	out.Angle = int32(c.Angle)
	out.Direction = int32(c.Direction)
	out.Jumped = int32(c.Jumped)
}

// Read restores the core from its network representation
func (c *CharacterCore) Read(in *NetCharacter) {
	c.Pos = Vec2{float64(in.X), float64(in.Y)}
	c.Vel = Vec2{float64(in.VelX) / 256, float64(in.VelY) / 256}
	c.Angle = int(in.Angle)
	c.Direction = int(in.Direction)
	c.Jumped = int(in.Jumped)
}

// Quantize rounds the state to what the network can carry so the server
// simulates exactly what clients will see
func (c *CharacterCore) Quantize() {
	var n NetCharacter
	c.Write(&n)
	c.Read(&n)
}
