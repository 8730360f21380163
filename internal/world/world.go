// Package world declares what the schematic codec needs from a live voxel
// world. Implementations own locking; the codec assumes exclusive access for
// the duration of a capture or paste.
package world

import (
	"voxelcraft.ai/schematic/internal/blockstate"
	"voxelcraft.ai/schematic/internal/tag"
)

type Vec3i struct {
	X, Y, Z int
}

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }
func (v Vec3i) Sub(o Vec3i) Vec3i { return Vec3i{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z} }

func (v Vec3i) Vec3d() Vec3d { return Vec3d{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)} }

type Vec3d struct {
	X, Y, Z float64
}

func (v Vec3d) Add(o Vec3d) Vec3d { return Vec3d{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }
func (v Vec3d) Sub(o Vec3d) Vec3d { return Vec3d{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z} }

// AABB is an axis-aligned box, Min inclusive and Max exclusive.
type AABB struct {
	Min, Max Vec3d
}

// CellBox covers whole cells from min to min+size.
func CellBox(min, size Vec3i) AABB {
	return AABB{Min: min.Vec3d(), Max: min.Add(size).Vec3d()}
}

func (b AABB) Intersects(o AABB) bool {
	return b.Min.X < o.Max.X && o.Min.X < b.Max.X &&
		b.Min.Y < o.Max.Y && o.Min.Y < b.Max.Y &&
		b.Min.Z < o.Max.Z && o.Min.Z < b.Max.Z
}

// BlockEntity is a snapshot of the fixture attached to one cell.
type BlockEntity struct {
	Type string
	Data tag.Compound
}

// Entity is a snapshot of a free object.
type Entity struct {
	Type string
	Pos  Vec3d
	Data tag.Compound
}

type World interface {
	Block(pos Vec3i) blockstate.State
	SetBlock(pos Vec3i, s blockstate.State) error

	// BlockEntity returns the persisted data of the fixture at pos, if any.
	BlockEntity(pos Vec3i) (BlockEntity, bool)
	// LoadBlockEntity replaces the data of the existing fixture at pos.
	LoadBlockEntity(pos Vec3i, data tag.Compound) error

	// EntitiesIntersecting returns every entity whose bounding box touches box.
	EntitiesIntersecting(box AABB) []Entity
	// SpawnEntity creates a new entity of type id with a fresh identity.
	SpawnEntity(typeID string, pos Vec3d, data tag.Compound) error
}
