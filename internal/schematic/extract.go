package schematic

import (
	"github.com/cockroachdb/errors"

	"voxelcraft.ai/schematic/internal/palette"
	"voxelcraft.ai/schematic/internal/world"
)

// Fields the world re-derives on paste.
var (
	blockEntityPositionKeys = []string{"x", "y", "z"}
	entityPlacementKeys     = []string{"Pos", "UUID", "UUIDMost", "UUIDLeast"}
)

// Region is the raw result of walking a box of the world.
type Region struct {
	Origin        world.Vec3i
	Size          world.Vec3i
	Palette       *palette.Builder
	Indices       []uint32
	BlockEntities []BlockEntity
	Entities      []Entity
}

// Bounds normalises two opposite corners into a minimum corner and an
// inclusive size.
func Bounds(a, b world.Vec3i) (min, size world.Vec3i) {
	min = world.Vec3i{X: minInt(a.X, b.X), Y: minInt(a.Y, b.Y), Z: minInt(a.Z, b.Z)}
	max := world.Vec3i{X: maxInt(a.X, b.X), Y: maxInt(a.Y, b.Y), Z: maxInt(a.Z, b.Z)}
	return min, max.Sub(min).Add(world.Vec3i{X: 1, Y: 1, Z: 1})
}

// Extract walks [origin, origin+size) y outer, z middle, x inner. Entities
// are selected by bounding-box overlap with the whole region, so objects
// straddling the edge are captured too.
func Extract(src world.World, origin, size world.Vec3i) (*Region, error) {
	if size.X < 1 || size.Y < 1 || size.Z < 1 {
		return nil, errors.Newf("extract: invalid size %v", size)
	}
	if size.X > MaxDimension || size.Y > MaxDimension || size.Z > MaxDimension {
		return nil, errors.Wrapf(ErrRegionTooLarge, "extract: edge of %v exceeds %d", size, MaxDimension)
	}
	r := &Region{
		Origin:  origin,
		Size:    size,
		Palette: palette.NewBuilder(),
		Indices: make([]uint32, size.X*size.Y*size.Z),
	}
	for y := 0; y < size.Y; y++ {
		for z := 0; z < size.Z; z++ {
			for x := 0; x < size.X; x++ {
				rel := world.Vec3i{X: x, Y: y, Z: z}
				abs := origin.Add(rel)
				r.Indices[x+z*size.X+y*size.X*size.Z] = uint32(r.Palette.Include(src.Block(abs)))

				be, ok := src.BlockEntity(abs)
				if !ok {
					continue
				}
				r.BlockEntities = append(r.BlockEntities, BlockEntity{
					ID:   be.Type,
					Pos:  rel,
					Data: be.Data.Without(blockEntityPositionKeys...),
				})
			}
		}
	}

	originD := origin.Vec3d()
	for _, e := range src.EntitiesIntersecting(world.CellBox(origin, size)) {
		r.Entities = append(r.Entities, Entity{
			ID:   e.Type,
			Pos:  e.Pos.Sub(originD),
			Data: e.Data.Without(entityPlacementKeys...),
		})
	}
	return r, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
