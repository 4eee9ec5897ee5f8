package main

import "github.com/dhconnelly/rtreego"

// r-tree fan-out
const (
	spatialMinChildren = 25
	spatialMaxChildren = 50
)

// bounds are padded so zero-radius entities still intersect queries
const spatialPad = 1.0

// EntityRef identifies an entity in the index
type EntityRef struct {
	Handle Handle
	Kind   EntityKind
}

type spatialItem struct {
	ref    EntityRef
	pos    Vec2
	radius float64
	bounds rtreego.Rect
}

func (s *spatialItem) Bounds() rtreego.Rect { return s.bounds }

// SpatialIndex is the broad phase for radius queries over live entities.
// It is rebuilt from scratch and never updated in place.
type SpatialIndex struct {
	tree *rtreego.Rtree
}

// NewSpatialIndex returns an empty index
func NewSpatialIndex() *SpatialIndex {
	return &SpatialIndex{tree: rtreego.NewTree(2, spatialMinChildren, spatialMaxChildren)}
}

// Clear drops every entry
func (s *SpatialIndex) Clear() {
	s.tree = rtreego.NewTree(2, spatialMinChildren, spatialMaxChildren)
}

// Len returns the number of indexed entities
func (s *SpatialIndex) Len() int {
	return s.tree.Size()
}

// InsertCircle adds an entity occupying a circle of radius around pos
func (s *SpatialIndex) InsertCircle(pos Vec2, radius float64, ref EntityRef) {
	s.tree.Insert(&spatialItem{
		ref:    ref,
		pos:    pos,
		radius: radius,
		bounds: rtreego.Point{pos.X(), pos.Y()}.ToRect(radius + spatialPad),
	})
}

// Query returns entities whose circle comes closer than radius to pos
func (s *SpatialIndex) Query(pos Vec2, radius float64) []EntityRef {
	return s.QueryBuf(pos, radius, nil)
}

// QueryBuf appends results to buf and returns the extended slice
func (s *SpatialIndex) QueryBuf(pos Vec2, radius float64, buf []EntityRef) []EntityRef {
	bb := rtreego.Point{pos.X(), pos.Y()}.ToRect(radius + spatialPad)
	for _, obj := range s.tree.SearchIntersect(bb) {
		it := obj.(*spatialItem)
		if Distance(pos, it.pos) < radius+it.radius {
			buf = append(buf, it.ref)
		}
	}
	return buf
}
