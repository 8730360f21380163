package schematic

import (
	"voxelcraft.ai/schematic/internal/blockstate"
	"voxelcraft.ai/schematic/internal/world"
)

const maxReportedMismatches = 64

type Mismatch struct {
	Pos  world.Vec3i // absolute
	Want string
	Got  string
}

type VerifyReport struct {
	Checked    int
	Matched    int
	Unresolved int // cells whose palette entry the registry rejected
	Mismatched int
	// Mismatches holds the first few differences in flat-index order.
	Mismatches []Mismatch
}

func (r VerifyReport) OK() bool { return r.Mismatched == 0 && r.Unresolved == 0 }

// Verify compares every non-air cell of doc against dst at anchor.
func Verify(dst world.World, doc *Document, anchor world.Vec3i, reg *blockstate.Registry) VerifyReport {
	var rep VerifyReport
	states := make([]blockstate.State, len(doc.palette))
	for i, key := range doc.palette {
		if s, err := decodeState(reg, key); err == nil {
			states[i] = s
		}
	}
	size := doc.size
	for y := 0; y < size.Y; y++ {
		for z := 0; z < size.Z; z++ {
			for x := 0; x < size.X; x++ {
				want := states[doc.indices[x+z*size.X+y*size.X*size.Z]]
				if want.IsZero() {
					rep.Unresolved++
					continue
				}
				if reg.IsAir(want) {
					continue
				}
				rep.Checked++
				pos := anchor.Add(world.Vec3i{X: x, Y: y, Z: z})
				got := dst.Block(pos)
				if got.Equal(want) {
					rep.Matched++
					continue
				}
				rep.Mismatched++
				if len(rep.Mismatches) < maxReportedMismatches {
					rep.Mismatches = append(rep.Mismatches, Mismatch{Pos: pos, Want: want.String(), Got: got.String()})
				}
			}
		}
	}
	return rep
}
