package schematic

import (
	"time"

	"github.com/Tnze/go-mc/nbt"

	"voxelcraft.ai/schematic/internal/encoding"
	"voxelcraft.ai/schematic/internal/palette"
	"voxelcraft.ai/schematic/internal/tag"
	"voxelcraft.ai/schematic/internal/world"
)

const rootKey = "Schematic"

// Encode side. Data blobs are plain maps so the encoder sees only native
// NBT types.

type fileRoot struct {
	Schematic fileSchematic `nbt:"Schematic"`
}

type fileSchematic struct {
	Version     int32          `nbt:"Version"`
	DataVersion int32          `nbt:"DataVersion"`
	Width       int16          `nbt:"Width"`
	Height      int16          `nbt:"Height"`
	Length      int16          `nbt:"Length"`
	Offset      []int32        `nbt:"Offset"`
	Metadata    map[string]any `nbt:"Metadata,omitempty"`
	Blocks      fileBlocks     `nbt:"Blocks"`
	Entities    []fileEntity   `nbt:"Entities,omitempty"`
}

type fileBlocks struct {
	Palette       map[string]int32  `nbt:"Palette"`
	Data          []byte            `nbt:"Data"`
	BlockEntities []fileBlockEntity `nbt:"BlockEntities"`
}

type fileBlockEntity struct {
	ID   string         `nbt:"Id"`
	Pos  []int32        `nbt:"Pos"`
	Data map[string]any `nbt:"Data"`
}

type fileEntity struct {
	ID   string         `nbt:"Id"`
	Pos  []float64      `nbt:"Pos"`
	Data map[string]any `nbt:"Data"`
}

// Decode side. Absent optional containers decode to zero values; blobs stay
// raw until the record is converted.

type inRoot struct {
	Schematic inSchematic `nbt:"Schematic"`
}

type inSchematic struct {
	Version     int32      `nbt:"Version"`
	DataVersion int32      `nbt:"DataVersion"`
	Width       int16      `nbt:"Width"`
	Height      int16      `nbt:"Height"`
	Length      int16      `nbt:"Length"`
	Offset      []int32    `nbt:"Offset"`
	Metadata    inMetadata `nbt:"Metadata"`
	Blocks      inBlocks   `nbt:"Blocks"`
	Entities    []inEntity `nbt:"Entities"`
}

type inMetadata struct {
	Name   string `nbt:"Name"`
	Author string `nbt:"Author"`
	Date   int64  `nbt:"Date"`
}

type inBlocks struct {
	Palette       map[string]int32 `nbt:"Palette"`
	Data          []byte           `nbt:"Data"`
	BlockEntities []inBlockEntity  `nbt:"BlockEntities"`
}

type inBlockEntity struct {
	ID   string         `nbt:"Id"`
	Pos  []int32        `nbt:"Pos"`
	Data nbt.RawMessage `nbt:"Data"`
}

type inEntity struct {
	ID   string         `nbt:"Id"`
	Pos  []float64      `nbt:"Pos"`
	Data nbt.RawMessage `nbt:"Data"`
}

// Header side: the block array is never materialised.

type headerRoot struct {
	Schematic headerSchematic `nbt:"Schematic"`
}

type headerSchematic struct {
	Version     int32            `nbt:"Version"`
	DataVersion int32            `nbt:"DataVersion"`
	Width       int16            `nbt:"Width"`
	Height      int16            `nbt:"Height"`
	Length      int16            `nbt:"Length"`
	Metadata    inMetadata       `nbt:"Metadata"`
	Blocks      headerBlocks     `nbt:"Blocks"`
	Entities    []nbt.RawMessage `nbt:"Entities"`
}

type headerBlocks struct {
	Palette       map[string]int32 `nbt:"Palette"`
	BlockEntities []nbt.RawMessage `nbt:"BlockEntities"`
}

func toFile(d *Document) fileRoot {
	keys := d.palette
	table := make(map[string]int32, len(keys))
	for i, k := range keys {
		table[k] = int32(i)
	}
	s := fileSchematic{
		Version:     d.version,
		DataVersion: d.dataVersion,
		Width:       int16(uint16(d.size.X)),
		Height:      int16(uint16(d.size.Y)),
		Length:      int16(uint16(d.size.Z)),
		Offset:      []int32{int32(d.offset.X), int32(d.offset.Y), int32(d.offset.Z)},
		Metadata:    metadataMap(d.meta),
		Blocks: fileBlocks{
			Palette:       table,
			Data:          encoding.EncodeVarInts(d.indices),
			BlockEntities: make([]fileBlockEntity, 0, len(d.blockEntities)),
		},
	}
	for _, be := range d.blockEntities {
		s.Blocks.BlockEntities = append(s.Blocks.BlockEntities, fileBlockEntity{
			ID:   be.ID,
			Pos:  []int32{int32(be.Pos.X), int32(be.Pos.Y), int32(be.Pos.Z)},
			Data: be.Data.Plain(),
		})
	}
	for _, e := range d.entities {
		s.Entities = append(s.Entities, fileEntity{
			ID:   e.ID,
			Pos:  []float64{e.Pos.X, e.Pos.Y, e.Pos.Z},
			Data: e.Data.Plain(),
		})
	}
	return fileRoot{Schematic: s}
}

func metadataMap(m Metadata) map[string]any {
	if m.IsZero() {
		return nil
	}
	out := map[string]any{}
	if m.Name != "" {
		out["Name"] = m.Name
	}
	if m.Author != "" {
		out["Author"] = m.Author
	}
	if !m.Date.IsZero() {
		out["Date"] = m.Date.UnixMilli()
	}
	return out
}

func (m inMetadata) toMetadata() Metadata {
	out := Metadata{Name: m.Name, Author: m.Author}
	if m.Date != 0 {
		out.Date = time.UnixMilli(m.Date).UTC()
	}
	return out
}

func dims(w, h, l int16) world.Vec3i {
	return world.Vec3i{X: int(uint16(w)), Y: int(uint16(h)), Z: int(uint16(l))}
}

// fromFile validates the decoded tree and builds the document. cellLimit
// (when > 0) is enforced before the block array is expanded.
func fromFile(s inSchematic, cellLimit int) (*Document, error) {
	if s.Version != FormatVersion {
		return nil, formatErrorf("unsupported version %d", s.Version)
	}
	size := dims(s.Width, s.Height, s.Length)
	volume := size.X * size.Y * size.Z
	if volume == 0 {
		return nil, formatErrorf("missing or zero dimensions %dx%dx%d", size.X, size.Y, size.Z)
	}
	if cellLimit > 0 && volume > cellLimit {
		return nil, regionTooLarge(volume, cellLimit)
	}

	b := NewDocumentBuilder(s.DataVersion, size).
		Version(s.Version).
		Metadata(s.Metadata.toMetadata())

	switch len(s.Offset) {
	case 0:
	case 3:
		b.Offset(world.Vec3i{X: int(s.Offset[0]), Y: int(s.Offset[1]), Z: int(s.Offset[2])})
	default:
		return nil, formatErrorf("offset has %d components", len(s.Offset))
	}

	if len(s.Blocks.Palette) == 0 {
		return nil, formatErrorf("missing block palette")
	}
	keys, err := palette.FromTable(s.Blocks.Palette)
	if err != nil {
		return nil, markFormat(err, "block palette")
	}
	indices, err := encoding.DecodeVarInts(s.Blocks.Data, volume)
	if err != nil {
		return nil, markFormat(err, "block data")
	}
	b.Palette(keys).Indices(indices)

	for i, be := range s.Blocks.BlockEntities {
		if len(be.Pos) != 3 {
			return nil, formatErrorf("block entity %d: position has %d components", i, len(be.Pos))
		}
		data, err := tag.FromRaw(be.Data)
		if err != nil {
			return nil, markFormat(err, "block entity data")
		}
		b.AddBlockEntity(BlockEntity{
			ID:   be.ID,
			Pos:  world.Vec3i{X: int(be.Pos[0]), Y: int(be.Pos[1]), Z: int(be.Pos[2])},
			Data: data,
		})
	}
	for i, e := range s.Entities {
		if len(e.Pos) != 3 {
			return nil, formatErrorf("entity %d: position has %d components", i, len(e.Pos))
		}
		data, err := tag.FromRaw(e.Data)
		if err != nil {
			return nil, markFormat(err, "entity data")
		}
		b.AddEntity(Entity{
			ID:   e.ID,
			Pos:  world.Vec3d{X: e.Pos[0], Y: e.Pos[1], Z: e.Pos[2]},
			Data: data,
		})
	}
	return b.Build()
}

func (s headerSchematic) toHeader() (Header, error) {
	if s.Version != FormatVersion {
		return Header{}, formatErrorf("unsupported version %d", s.Version)
	}
	size := dims(s.Width, s.Height, s.Length)
	if size.X == 0 || size.Y == 0 || size.Z == 0 {
		return Header{}, formatErrorf("missing or zero dimensions %dx%dx%d", size.X, size.Y, size.Z)
	}
	return Header{
		Version:       s.Version,
		DataVersion:   s.DataVersion,
		Width:         size.X,
		Height:        size.Y,
		Length:        size.Z,
		Metadata:      s.Metadata.toMetadata(),
		PaletteSize:   len(s.Blocks.Palette),
		BlockEntities: len(s.Blocks.BlockEntities),
		Entities:      len(s.Entities),
	}, nil
}
