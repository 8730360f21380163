// Package schematic captures rectangular regions of a world into portable
// gzip-compressed NBT documents and pastes them back at any anchor.
//
// Documents use the Sponge-style layout, version 3:
//
//	"" {
//	  Schematic {
//	    Version, DataVersion int32
//	    Width, Height, Length int16
//	    Offset int32[3]
//	    Metadata? {Name, Author string; Date int64}
//	    Blocks {Palette {state: int32}; Data byte[]; BlockEntities [{Id, Pos int32[3], Data}]}
//	    Entities? [{Id, Pos double[3], Data}]
//	  }
//	}
//
// Blocks.Data holds one unsigned VarInt per cell at index x + z*W + y*W*L.
package schematic

import (
	"sort"
	"time"

	"voxelcraft.ai/schematic/internal/blockstate"
	"voxelcraft.ai/schematic/internal/tag"
	"voxelcraft.ai/schematic/internal/world"
)

const (
	// FormatVersion is the only layout this package reads and writes.
	FormatVersion = 3
	// MaxDimension is the largest edge an unsigned 16-bit field can hold.
	MaxDimension = 1<<16 - 1
)

type Metadata struct {
	Name   string
	Author string
	Date   time.Time
}

func (m Metadata) IsZero() bool {
	return m.Name == "" && m.Author == "" && m.Date.IsZero()
}

// BlockEntity is a fixture record. Pos is relative to the region minimum and
// Data carries no absolute position fields.
type BlockEntity struct {
	ID   string
	Pos  world.Vec3i
	Data tag.Compound
}

// Entity is a free object record. Pos is relative to the region minimum and
// Data carries no position or identity fields.
type Entity struct {
	ID   string
	Pos  world.Vec3d
	Data tag.Compound
}

// Header is the cheap summary of a document.
type Header struct {
	Version       int32
	DataVersion   int32
	Width         int
	Height        int
	Length        int
	Metadata      Metadata
	PaletteSize   int
	BlockEntities int
	Entities      int
}

func (h Header) Volume() int { return h.Width * h.Height * h.Length }

// Document is an immutable decoded schematic. Build one with DocumentBuilder.
type Document struct {
	version     int32
	dataVersion int32
	size        world.Vec3i
	offset      world.Vec3i
	meta        Metadata

	palette       []string
	indices       []uint32
	blockEntities []BlockEntity
	entities      []Entity
}

func (d *Document) Version() int32     { return d.version }
func (d *Document) DataVersion() int32 { return d.dataVersion }
func (d *Document) Size() world.Vec3i  { return d.size }
func (d *Document) Offset() world.Vec3i { return d.offset }
func (d *Document) Metadata() Metadata { return d.meta }
func (d *Document) Volume() int        { return d.size.X * d.size.Y * d.size.Z }

// Palette returns encoded block states in index order.
func (d *Document) Palette() []string {
	return append([]string(nil), d.palette...)
}

// IndexAt returns the palette index of the relative cell (x, y, z).
func (d *Document) IndexAt(x, y, z int) uint32 {
	return d.indices[x+z*d.size.X+y*d.size.X*d.size.Z]
}

func (d *Document) Indices() []uint32 {
	return append([]uint32(nil), d.indices...)
}

func (d *Document) BlockEntities() []BlockEntity {
	out := make([]BlockEntity, len(d.blockEntities))
	for i, be := range d.blockEntities {
		out[i] = BlockEntity{ID: be.ID, Pos: be.Pos, Data: be.Data.Clone()}
	}
	return out
}

func (d *Document) Entities() []Entity {
	out := make([]Entity, len(d.entities))
	for i, e := range d.entities {
		out[i] = Entity{ID: e.ID, Pos: e.Pos, Data: e.Data.Clone()}
	}
	return out
}

func (d *Document) Header() Header {
	return Header{
		Version:       d.version,
		DataVersion:   d.dataVersion,
		Width:         d.size.X,
		Height:        d.size.Y,
		Length:        d.size.Z,
		Metadata:      d.meta,
		PaletteSize:   len(d.palette),
		BlockEntities: len(d.blockEntities),
		Entities:      len(d.entities),
	}
}

type MaterialCount struct {
	State string
	Count int
}

// Materials counts non-air cells per palette entry, largest first. Entries
// the registry cannot resolve are counted under their raw key.
func (d *Document) Materials(reg *blockstate.Registry) []MaterialCount {
	air := make([]bool, len(d.palette))
	for i, key := range d.palette {
		if s, err := decodeState(reg, key); err == nil && reg.IsAir(s) {
			air[i] = true
		}
	}
	counts := make([]int, len(d.palette))
	for _, idx := range d.indices {
		if !air[idx] {
			counts[idx]++
		}
	}
	out := make([]MaterialCount, 0, len(counts))
	for i, n := range counts {
		if n > 0 {
			out = append(out, MaterialCount{State: d.palette[i], Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].State < out[j].State
	})
	return out
}

// DocumentBuilder assembles a Document. Validation happens once, in Build.
type DocumentBuilder struct {
	doc Document
}

func NewDocumentBuilder(dataVersion int32, size world.Vec3i) *DocumentBuilder {
	return &DocumentBuilder{doc: Document{
		version:     FormatVersion,
		dataVersion: dataVersion,
		size:        size,
	}}
}

// Version overrides the format version; decoders use it to carry what the
// file declared so Build can reject it.
func (b *DocumentBuilder) Version(v int32) *DocumentBuilder {
	b.doc.version = v
	return b
}

func (b *DocumentBuilder) Offset(o world.Vec3i) *DocumentBuilder {
	b.doc.offset = o
	return b
}

func (b *DocumentBuilder) Metadata(m Metadata) *DocumentBuilder {
	b.doc.meta = m
	return b
}

// Palette sets the encoded states in index order.
func (b *DocumentBuilder) Palette(keys []string) *DocumentBuilder {
	b.doc.palette = append([]string(nil), keys...)
	return b
}

func (b *DocumentBuilder) Indices(indices []uint32) *DocumentBuilder {
	b.doc.indices = append([]uint32(nil), indices...)
	return b
}

func (b *DocumentBuilder) AddBlockEntity(be BlockEntity) *DocumentBuilder {
	be.Data = be.Data.Clone()
	b.doc.blockEntities = append(b.doc.blockEntities, be)
	return b
}

func (b *DocumentBuilder) AddEntity(e Entity) *DocumentBuilder {
	e.Data = e.Data.Clone()
	b.doc.entities = append(b.doc.entities, e)
	return b
}

// Build validates the accumulated fields and returns the document. Failures
// are ErrFormat.
func (b *DocumentBuilder) Build() (*Document, error) {
	d := b.doc
	if d.version != FormatVersion {
		return nil, formatErrorf("unsupported version %d", d.version)
	}
	for _, n := range []int{d.size.X, d.size.Y, d.size.Z} {
		if n < 1 || n > MaxDimension {
			return nil, formatErrorf("dimensions %dx%dx%d out of range", d.size.X, d.size.Y, d.size.Z)
		}
	}
	if len(d.palette) == 0 {
		return nil, formatErrorf("empty palette")
	}
	seen := make(map[string]int, len(d.palette))
	for i, key := range d.palette {
		if key == "" {
			return nil, formatErrorf("palette entry %d is empty", i)
		}
		if j, ok := seen[key]; ok {
			return nil, formatErrorf("palette entry %q at %d and %d", key, j, i)
		}
		seen[key] = i
	}
	if len(d.indices) != d.Volume() {
		return nil, formatErrorf("block data has %d cells, want %d", len(d.indices), d.Volume())
	}
	for i, idx := range d.indices {
		if int(idx) >= len(d.palette) {
			return nil, formatErrorf("cell %d references palette index %d of %d", i, idx, len(d.palette))
		}
	}
	for i, be := range d.blockEntities {
		if be.ID == "" {
			return nil, formatErrorf("block entity %d has no id", i)
		}
		p := be.Pos
		if p.X < 0 || p.Y < 0 || p.Z < 0 || p.X >= d.size.X || p.Y >= d.size.Y || p.Z >= d.size.Z {
			return nil, formatErrorf("block entity %d at %v outside region", i, p)
		}
	}
	for i, e := range d.entities {
		if e.ID == "" {
			return nil, formatErrorf("entity %d has no id", i)
		}
	}
	return &d, nil
}
