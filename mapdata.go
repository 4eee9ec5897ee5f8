package main

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// TileSize is the edge length of one grid cell in world units
const TileSize = 32

// Raw tile indices as authored in map files
const (
	TileAir    = 0
	TileSolid  = 1
	TileDeath  = 2
	TileNoHook = 3
	TileExport = 4
)

// Collision flags produced by the remap
const (
	ColFlagSolid  = 1
	ColFlagDeath  = 2
	ColFlagNoHook = 4
	ColFlagExport = 8
)

// indices above this are legacy/overflow entries and carry no flags
const maxFlagIndex = 128

// LayerType tags the payload carried by a RawLayer
type LayerType int

const (
	LayerInvalid LayerType = iota
	LayerTiles
	LayerQuads
)

// TilesLayerFlagGame marks the tile layer that drives collision
const TilesLayerFlagGame = 1

// PhysicsLayerName is the name of the quads layer carrying collision flags
const PhysicsLayerName = "#Physic"

var (
	ErrNoGameLayer  = errors.New("map has no game layer")
	ErrBadLayerData = errors.New("tile data does not match layer size")
)

// Point is a 1/1024 fixed-point coordinate as stored in map files
type Point struct {
	X int32 `msgpack:"x"`
	Y int32 `msgpack:"y"`
}

// Vec converts the fixed-point point into world space
func (p Point) Vec() Vec2 {
	return Vec2{fx2f(p.X), fx2f(p.Y)}
}

// PointFromVec converts a world-space position into fixed point
func PointFromVec(v Vec2) Point {
	return Point{X: f2fx(v.X()), Y: f2fx(v.Y())}
}

// RawQuad is a quad as authored: Z-ordered corners plus an auxiliary value
type RawQuad struct {
	Points [4]Point `msgpack:"p"`
	Env    int32    `msgpack:"env"`
}

// RawLayer is one map layer; only the fields matching Type are set
type RawLayer struct {
	Type   LayerType `msgpack:"type"`
	Name   string    `msgpack:"name"`
	Flags  int       `msgpack:"flags"`
	Width  int       `msgpack:"w,omitempty"`
	Height int       `msgpack:"h,omitempty"`
	Tiles  []byte    `msgpack:"tiles,omitempty"`
	Quads  []RawQuad `msgpack:"quads,omitempty"`
}

// RawGroup is an ordered list of layers
type RawGroup struct {
	Name   string     `msgpack:"name"`
	Layers []RawLayer `msgpack:"layers"`
}

// MapFile is the serialized form handed over by the map store
type MapFile struct {
	Name   string     `msgpack:"name"`
	Groups []RawGroup `msgpack:"groups"`
	Spawns []Point    `msgpack:"spawns"`
}

// Tile is one decoded grid cell
type Tile struct {
	Index uint8
	Flags int
	Skip  uint8 // empty cells following this one in the row
}

// TileLayer is the decoded game layer
type TileLayer struct {
	Width  int
	Height int
	Tiles  []Tile
}

// Quad is a decoded physics quad in world space
type Quad struct {
	Points [4]Vec2
	Env    int32
	Flags  int
}

// Map is the strongly-typed result of decoding a MapFile
type Map struct {
	Name    string
	Game    *TileLayer
	Physics []Quad
	Spawns  []Vec2
}

// Summary describes the map for the load log: size, quads, spawns and
// hazard cells
func (m *Map) Summary() string {
	return fmt.Sprintf("%s %dx%d quads=%d spawns=%d death=%d export=%d",
		m.Name, m.Game.Width, m.Game.Height, len(m.Physics), len(m.Spawns),
		len(m.Game.FlaggedTiles(ColFlagDeath)), len(m.Game.FlaggedTiles(ColFlagExport)))
}

// MarshalMapFile encodes a map file for storage
func MarshalMapFile(f *MapFile) ([]byte, error) {
	return msgpack.Marshal(f)
}

// UnmarshalMapFile decodes a stored map file
func UnmarshalMapFile(data []byte) (*MapFile, error) {
	var f MapFile
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode map file: %w", err)
	}
	return &f, nil
}

// DecodeMap resolves the game layer and physics quads of a map file.
// The game layer is the first tile layer flagged as game; the physics
// quads come from the first "#Physic" quads layer inside the game group.
func DecodeMap(f *MapFile) (*Map, error) {
	gameGroup := -1
	var game *TileLayer
	for g, group := range f.Groups {
		for _, l := range group.Layers {
			if l.Type != LayerTiles || l.Flags&TilesLayerFlagGame == 0 {
				continue
			}
			if len(l.Tiles) != l.Width*l.Height || l.Width <= 0 || l.Height <= 0 {
				return nil, fmt.Errorf("layer %q: %w", l.Name, ErrBadLayerData)
			}
			game = newTileLayer(l.Width, l.Height, l.Tiles)
			game.Remap()
			gameGroup = g
			break
		}
		if game != nil {
			break
		}
	}
	if game == nil {
		return nil, ErrNoGameLayer
	}

	m := &Map{Name: f.Name, Game: game}
	for _, l := range f.Groups[gameGroup].Layers {
		if l.Type == LayerQuads && l.Name == PhysicsLayerName {
			m.Physics = make([]Quad, len(l.Quads))
			for i, rq := range l.Quads {
				q := Quad{Env: rq.Env}
				for k, p := range rq.Points {
					q.Points[k] = p.Vec()
				}
				m.Physics[i] = q
			}
			break
		}
	}
	for _, p := range f.Spawns {
		m.Spawns = append(m.Spawns, p.Vec())
	}
	return m, nil
}

func newTileLayer(w, h int, indices []byte) *TileLayer {
	l := &TileLayer{Width: w, Height: h, Tiles: make([]Tile, w*h)}
	for i, idx := range indices {
		l.Tiles[i].Index = idx
	}
	l.computeSkip()
	return l
}

// computeSkip records, for scan start cells, how many empty cells follow
func (l *TileLayer) computeSkip() {
	for y := 0; y < l.Height; y++ {
		row := l.Tiles[y*l.Width : (y+1)*l.Width]
		for x := 1; x < l.Width; {
			skipped := 1
			for ; x+skipped < l.Width && skipped < 255; skipped++ {
				if row[x+skipped].Index != 0 {
					break
				}
			}
			row[x].Skip = uint8(skipped - 1)
			x += skipped
		}
	}
}

// Remap derives collision flags from the raw tile indices
func (l *TileLayer) Remap() {
	for i := range l.Tiles {
		l.Tiles[i].Flags = tileFlags(l.Tiles[i].Index)
	}
}

// FlaggedTiles returns the cells carrying any of flag, walking rows with the
// precomputed skip counts
func (l *TileLayer) FlaggedTiles(flag int) [][2]int {
	var out [][2]int
	for y := 0; y < l.Height; y++ {
		row := l.Tiles[y*l.Width : (y+1)*l.Width]
		for x := 0; x < l.Width; {
			if row[x].Flags&flag != 0 {
				out = append(out, [2]int{x, y})
			}
			x += int(row[x].Skip) + 1
		}
	}
	return out
}

func tileFlags(index uint8) int {
	if index > maxFlagIndex {
		return 0
	}
	switch index {
	case TileDeath:
		return ColFlagDeath
	case TileSolid:
		return ColFlagSolid
	case TileNoHook:
		return ColFlagSolid | ColFlagNoHook
	case TileExport:
		return ColFlagExport
	}
	return 0
}

// quadFlags maps a quad's auxiliary value; solid quads are not supported
// because clients cannot predict them
func quadFlags(env int32) int {
	if env < 0 || env > maxFlagIndex {
		return 0
	}
	switch env {
	case TileDeath:
		return ColFlagDeath
	case TileExport:
		return ColFlagExport
	}
	return 0
}

// DefaultArenaMap builds the map used when the store holds none
func DefaultArenaMap() *MapFile {
	const w, h = 50, 30
	tiles := make([]byte, w*h)
	set := func(x, y int, idx byte) { tiles[y*w+x] = idx }
	for x := 0; x < w; x++ {
		set(x, 0, TileNoHook)
		set(x, h-1, TileSolid)
		set(x, h-2, TileSolid)
	}
	for y := 0; y < h; y++ {
		set(0, y, TileNoHook)
		set(w-1, y, TileNoHook)
	}
	// death pit in the floor
	for x := 22; x < 27; x++ {
		set(x, h-2, TileDeath)
	}
	// platforms
	for x := 6; x < 16; x++ {
		set(x, 20, TileSolid)
	}
	for x := 34; x < 44; x++ {
		set(x, 20, TileSolid)
	}
	for x := 18; x < 32; x++ {
		set(x, 13, TileNoHook)
	}
	// exit zone on the left wall
	set(1, h-3, TileExport)

	cell := func(x, y float64) Point { return PointFromVec(Vec2{x * TileSize, y * TileSize}) }
	spike := RawQuad{
		Points: [4]Point{cell(23, 10), cell(27, 10), cell(23, 11), cell(27, 11)},
		Env:    TileDeath,
	}

	return &MapFile{
		Name: "arena",
		Groups: []RawGroup{
			{Name: "Game", Layers: []RawLayer{
				{Type: LayerTiles, Name: "Game", Flags: TilesLayerFlagGame, Width: w, Height: h, Tiles: tiles},
				{Type: LayerQuads, Name: PhysicsLayerName, Quads: []RawQuad{spike}},
			}},
		},
		Spawns: []Point{
			cell(4, 26), cell(45, 26), cell(10, 18), cell(39, 18), cell(25, 12),
		},
	}
}
