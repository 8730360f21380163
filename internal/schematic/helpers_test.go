package schematic

import (
	"bytes"
	"testing"

	"github.com/Tnze/go-mc/nbt"
	"github.com/klauspost/compress/gzip"

	"voxelcraft.ai/schematic/internal/blockstate"
	"voxelcraft.ai/schematic/internal/catalogs"
	"voxelcraft.ai/schematic/internal/world/memworld"
)

func testRegistry(t *testing.T) *blockstate.Registry {
	t.Helper()
	reg, err := blockstate.NewRegistry(catalogs.MustBuiltin().Blocks, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func testWorld(t *testing.T, reg *blockstate.Registry) *memworld.World {
	t.Helper()
	return memworld.New(memworld.Config{MinY: -64, MaxY: 128}, reg, catalogs.MustBuiltin().Entities)
}

// gzipTree encodes an arbitrary tag tree the way a foreign writer would.
func gzipTree(t *testing.T, v any) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := nbt.NewEncoder(gz).Encode(v, ""); err != nil {
		t.Fatalf("nbt encode: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func mustBuild(t *testing.T, b *DocumentBuilder) *Document {
	t.Helper()
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return doc
}
