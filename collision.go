package main

import "math"

// CollisionMode selects which flags block movement and whether the
// physics quads take part in the lookup
type CollisionMode struct {
	Mask  int
	Quads bool
}

var (
	// ModeSolid blocks on solid tiles only
	ModeSolid = CollisionMode{Mask: ColFlagSolid}
	// ModePhysics blocks on solid tiles and also consults the physics quads
	ModePhysics = CollisionMode{Mask: ColFlagSolid, Quads: true}
	// ModeAny stops on any flagged cell or quad
	ModeAny = CollisionMode{Mask: ColFlagSolid | ColFlagDeath | ColFlagNoHook | ColFlagExport, Quads: true}

	// death tiles are probed including hazard quads
	deathMode = CollisionMode{Mask: ColFlagDeath, Quads: true}
)

// minimum displacement for MoveBox to do anything
const moveEpsilon = 0.00001

// CollisionMap is the read-only spatial index over the game layer and the
// physics quads. Safe for concurrent reads once built.
type CollisionMap struct {
	width  int
	height int
	tiles  []Tile
	quads  []Quad
}

// NewCollisionMap remaps the layer's tiles and the quads into collision
// flags and returns the finished map
func NewCollisionMap(layer *TileLayer, quads []Quad) *CollisionMap {
	layer.Remap()
	qs := make([]Quad, len(quads))
	copy(qs, quads)
	remapQuads(qs)
	return &CollisionMap{
		width:  layer.Width,
		height: layer.Height,
		tiles:  layer.Tiles,
		quads:  qs,
	}
}

func remapQuads(qs []Quad) {
	for i := range qs {
		qs[i].Flags = quadFlags(qs[i].Env)
	}
}

// Width returns the grid width in cells
func (c *CollisionMap) Width() int { return c.width }

// Height returns the grid height in cells
func (c *CollisionMap) Height() int { return c.height }

// flagsAt looks up the rounded world position; out of range positions are
// clamped onto the border cells
func (c *CollisionMap) flagsAt(x, y float64, quads bool) int {
	ix, iy := roundToInt(x), roundToInt(y)
	nx := clampInt(ix/TileSize, 0, c.width-1)
	ny := clampInt(iy/TileSize, 0, c.height-1)

	flags := c.tiles[ny*c.width+nx].Flags
	if quads {
		p := Vec2{float64(ix), float64(iy)}
		for i := range c.quads {
			q := &c.quads[i]
			if insideQuad(q.Points[0], q.Points[1], q.Points[2], q.Points[3], p) {
				flags |= q.Flags
			}
		}
	}
	return flags
}

// TileFlags returns the flags of the cell under (x, y) together with the
// flags of every physics quad containing the point
func (c *CollisionMap) TileFlags(x, y float64) int {
	return c.flagsAt(x, y, true)
}

// PointHasFlag reports whether the point carries any of flag
func (c *CollisionMap) PointHasFlag(p Vec2, flag int) bool {
	return c.TileFlags(p.X(), p.Y())&flag != 0
}

// CheckPoint reports whether the point is solid
func (c *CollisionMap) CheckPoint(p Vec2) bool {
	return c.checkPoint(p, ModeSolid)
}

func (c *CollisionMap) checkPoint(p Vec2, mode CollisionMode) bool {
	return c.flagsAt(p.X(), p.Y(), mode.Quads)&mode.Mask != 0
}

// GameLayerClipped reports whether p is more than clipMargin cells
// outside the grid
func (c *CollisionMap) GameLayerClipped(p Vec2) bool {
	const clipMargin = 200
	x := roundToInt(p.X()) / TileSize
	y := roundToInt(p.Y()) / TileSize
	return x < -clipMargin || x >= c.width+clipMargin || y < -clipMargin || y >= c.height+clipMargin
}

// IntersectSegment samples the segment at most one unit apart and returns
// the first sample blocked under mode, the sample before it and the flags
// found there. Without a hit both points are p1 and flags is 0.
//
// Sampling is conservative: diagonal segments can slip through gaps
// narrower than one unit.
func (c *CollisionMap) IntersectSegment(p0, p1 Vec2, mode CollisionMode) (hit, before Vec2, flags int) {
	end := int(Distance(p0, p1)) + 1
	inv := 1.0 / float64(end)
	last := p0
	for i := 0; i <= end; i++ {
		pos := Mix(p0, p1, float64(i)*inv)
		if c.checkPoint(pos, mode) {
			return pos, last, c.flagsAt(pos.X(), pos.Y(), mode.Quads)
		}
		last = pos
	}
	return p1, p1, 0
}

// BoxOverlapsFlag tests the four corners of the box against flag
func (c *CollisionMap) BoxOverlapsFlag(center, half Vec2, flag int) bool {
	return c.boxHits(center, half, CollisionMode{Mask: flag, Quads: true})
}

// TestBox reports whether the box overlaps solid geometry
func (c *CollisionMap) TestBox(center, half Vec2) bool {
	return c.boxHits(center, half, ModeSolid)
}

func (c *CollisionMap) boxHits(center, half Vec2, mode CollisionMode) bool {
	x, y := center.X(), center.Y()
	hx, hy := half.X(), half.Y()
	return c.checkPoint(Vec2{x - hx, y - hy}, mode) ||
		c.checkPoint(Vec2{x + hx, y - hy}, mode) ||
		c.checkPoint(Vec2{x - hx, y + hy}, mode) ||
		c.checkPoint(Vec2{x + hx, y + hy}, mode)
}

// MovePoint advances a point by its velocity in one step. A blocked
// destination leaves the position alone and reflects the blocked axes,
// scaled by elasticity. Returns the number of reflected axes.
func (c *CollisionMap) MovePoint(pos, vel *Vec2, elasticity float64, mode CollisionMode) int {
	p, v := *pos, *vel
	if !c.checkPoint(p.Add(v), mode) {
		*pos = p.Add(v)
		return 0
	}

	bounces := 0
	if c.checkPoint(Vec2{p.X() + v.X(), p.Y()}, mode) {
		vel[0] *= -elasticity
		bounces++
	}
	if c.checkPoint(Vec2{p.X(), p.Y() + v.Y()}, mode) {
		vel[1] *= -elasticity
		bounces++
	}
	if bounces == 0 {
		vel[0] *= -elasticity
		vel[1] *= -elasticity
	}
	return bounces
}

// MoveBox advances an axis-aligned box by its velocity, split into
// floor(|vel|)+1 sub-steps so no sub-step moves more than one unit.
// Blocked axes are reverted for the sub-step and their velocity is
// multiplied by -elasticity. Returns true if a shrunken copy of the box
// touched a death tile or quad on the way.
func (c *CollisionMap) MoveBox(pos, vel *Vec2, half Vec2, elasticity float64, mode CollisionMode) bool {
	p, v := *pos, *vel
	death := false

	distance := v.Len()
	if distance > moveEpsilon {
		steps := int(distance)
		fraction := 1.0 / float64(steps+1)
		deathHalf := half.Mul(2.0 / 3.0)
		for i := 0; i <= steps; i++ {
			np := p.Add(v.Mul(fraction))

			if c.boxHits(np, deathHalf, deathMode) {
				death = true
			}

			if c.boxHits(np, half, mode) {
				hits := 0
				if c.boxHits(Vec2{p.X(), np.Y()}, half, mode) {
					np[1] = p.Y()
					v[1] *= -elasticity
					hits++
				}
				if c.boxHits(Vec2{np.X(), p.Y()}, half, mode) {
					np[0] = p.X()
					v[0] *= -elasticity
					hits++
				}
				// real corner: neither axis alone is blocked
				if hits == 0 {
					np = p
					v = v.Mul(-elasticity)
				}
			}
			p = np
		}
	}

	*pos = p
	*vel = v
	return death
}

// sameSide reports whether p0 and p1 lie on the same side of line l0-l1
func sameSide(l0, l1, p0, p1 Vec2) bool {
	d := l1.Sub(l0)
	a := p0.Sub(l0)
	b := p1.Sub(l0)
	return sign(d.X()*a.Y()-d.Y()*a.X()) == sign(d.X()*b.Y()-d.Y()*b.X())
}

// barycentric returns the weights of p relative to triangle t0,t1,t2.
// ok is false for degenerate triangles.
func barycentric(t0, t1, t2, p Vec2) (u, v float64, ok bool) {
	e0 := t1.Sub(t0)
	e1 := t2.Sub(t0)
	e2 := p.Sub(t0)

	d00 := e0.Dot(e0)
	d01 := e0.Dot(e1)
	d11 := e1.Dot(e1)
	d20 := e2.Dot(e0)
	d21 := e2.Dot(e1)
	denom := d00*d11 - d01*d01
	if denom == 0 {
		return 0, 0, false
	}

	u = (d11*d20 - d01*d21) / denom
	v = (d00*d21 - d01*d20) / denom
	if math.IsNaN(u) || math.IsNaN(v) || math.IsInf(u, 0) || math.IsInf(v, 0) {
		return 0, 0, false
	}
	return u, v, true
}

// insideTriangle uses an exclusive bound on the t1-t2 edge: points on it
// are outside
func insideTriangle(t0, t1, t2, p Vec2) bool {
	u, v, ok := barycentric(t0, t1, t2, p)
	if !ok {
		return false
	}
	return u >= 0 && v >= 0 && u+v < 1
}

// insideQuad splits the Z-ordered quad along q1-q2 and tests the half
// that faces p
func insideQuad(q0, q1, q2, q3, p Vec2) bool {
	if sameSide(q1, q2, p, q0) {
		return insideTriangle(q0, q1, q2, p)
	}
	return insideTriangle(q1, q2, q3, p)
}
