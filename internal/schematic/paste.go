package schematic

import (
	"io"
	"log"

	"github.com/cockroachdb/errors"

	"voxelcraft.ai/schematic/internal/blockstate"
	"voxelcraft.ai/schematic/internal/world"
)

type PasteOptions struct {
	IncludeBlocks   bool
	IncludeEntities bool
	// IncludeAir also writes air cells, clearing whatever was there.
	IncludeAir bool
	// MaxCellCount rejects larger documents before any mutation; 0 selects
	// DefaultMaxCellCount.
	MaxCellCount int
}

func DefaultPasteOptions() PasteOptions {
	return PasteOptions{IncludeBlocks: true, IncludeEntities: true, MaxCellCount: DefaultMaxCellCount}
}

type PasteResult struct {
	BlocksPlaced   int
	AirSkipped     int
	UnknownSkipped int // cells whose palette entry did not resolve
	BlocksFailed   int
	BlockEntities  int
	Entities       int
	// Records lists every isolated failure in the order it happened.
	Records []*RecordError
}

// Paste writes doc into dst with its minimum corner at anchor. Phases run in
// order (size check, blocks, block entities, entities) and nothing is rolled
// back: only the size check and a nil document abort before mutation, and
// record failures after that are collected in the result.
func Paste(dst world.World, doc *Document, anchor world.Vec3i, opts PasteOptions, reg *blockstate.Registry, logger *log.Logger) (PasteResult, error) {
	var res PasteResult
	if doc == nil {
		return res, formatErrorf("paste: nil document")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	limit := opts.MaxCellCount
	if limit <= 0 {
		limit = DefaultMaxCellCount
	}
	if v := doc.Volume(); v > limit {
		return res, regionTooLarge(v, limit)
	}

	if opts.IncludeBlocks {
		pasteBlocks(dst, doc, anchor, opts.IncludeAir, reg, logger, &res)
		pasteBlockEntities(dst, doc, anchor, logger, &res)
	}
	if opts.IncludeEntities {
		pasteEntities(dst, doc, anchor, logger, &res)
	}
	return res, nil
}

func pasteBlocks(dst world.World, doc *Document, anchor world.Vec3i, includeAir bool, reg *blockstate.Registry, logger *log.Logger, res *PasteResult) {
	states := make([]blockstate.State, len(doc.palette))
	for i, key := range doc.palette {
		s, err := decodeState(reg, key)
		if err != nil {
			logger.Printf("schematic: palette entry %d %q skipped: %v", i, key, err)
			res.Records = append(res.Records, &RecordError{Kind: KindPalette, Index: i, ID: key, Err: err})
			continue
		}
		states[i] = s
	}

	var firstErr error
	size := doc.size
	for y := 0; y < size.Y; y++ {
		for z := 0; z < size.Z; z++ {
			for x := 0; x < size.X; x++ {
				s := states[doc.indices[x+z*size.X+y*size.X*size.Z]]
				switch {
				case s.IsZero():
					res.UnknownSkipped++
					continue
				case !includeAir && reg.IsAir(s):
					res.AirSkipped++
					continue
				}
				if err := dst.SetBlock(anchor.Add(world.Vec3i{X: x, Y: y, Z: z}), s); err != nil {
					if firstErr == nil {
						firstErr = err
					}
					res.BlocksFailed++
					continue
				}
				res.BlocksPlaced++
			}
		}
	}
	if res.BlocksFailed > 0 {
		logger.Printf("schematic: %d cells not placed, first: %v", res.BlocksFailed, firstErr)
	}
}

func pasteBlockEntities(dst world.World, doc *Document, anchor world.Vec3i, logger *log.Logger, res *PasteResult) {
	for i, be := range doc.blockEntities {
		abs := anchor.Add(be.Pos)
		data := be.Data.
			With("id", be.ID).
			With("x", int32(abs.X)).
			With("y", int32(abs.Y)).
			With("z", int32(abs.Z))
		if err := dst.LoadBlockEntity(abs, data); err != nil {
			rec := &RecordError{Kind: KindBlockEntity, Index: i, ID: be.ID, Err: errors.Wrapf(err, "at %v", abs)}
			logger.Printf("schematic: %v", rec)
			res.Records = append(res.Records, rec)
			continue
		}
		res.BlockEntities++
	}
}

func pasteEntities(dst world.World, doc *Document, anchor world.Vec3i, logger *log.Logger, res *PasteResult) {
	base := anchor.Vec3d()
	for i, e := range doc.entities {
		pos := base.Add(e.Pos)
		if err := dst.SpawnEntity(e.ID, pos, e.Data.Clone()); err != nil {
			rec := &RecordError{Kind: KindEntity, Index: i, ID: e.ID, Err: err}
			logger.Printf("schematic: %v", rec)
			res.Records = append(res.Records, rec)
			continue
		}
		res.Entities++
	}
}
