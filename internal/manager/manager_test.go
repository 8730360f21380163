package manager

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"voxelcraft.ai/schematic/internal/blockstate"
	"voxelcraft.ai/schematic/internal/catalogs"
	"voxelcraft.ai/schematic/internal/config"
	"voxelcraft.ai/schematic/internal/doccache"
	"voxelcraft.ai/schematic/internal/persistence/indexdb"
	"voxelcraft.ai/schematic/internal/persistence/oplog"
	"voxelcraft.ai/schematic/internal/schematic"
	"voxelcraft.ai/schematic/internal/tag"
	"voxelcraft.ai/schematic/internal/world"
	"voxelcraft.ai/schematic/internal/world/memworld"
)

type fixture struct {
	reg  *blockstate.Registry
	cats *catalogs.Catalogs
	cfg  config.Config
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cats := catalogs.MustBuiltin()
	reg, err := blockstate.NewRegistry(cats.Blocks, nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Defaults()
	cfg.Dir = filepath.Join(t.TempDir(), "schematics")
	return fixture{reg: reg, cats: cats, cfg: cfg}
}

func (f fixture) world() *memworld.World {
	return memworld.New(memworld.Config{MinY: 0, MaxY: 64}, f.reg, f.cats.Entities)
}

func (f fixture) sampleWorld(t *testing.T) *memworld.World {
	t.Helper()
	w := f.world()
	if err := w.Fill(world.Vec3i{}, world.Vec3i{X: 3, Y: 1, Z: 3}, f.reg.MustState("minecraft:cobblestone")); err != nil {
		t.Fatal(err)
	}
	chest := world.Vec3i{X: 1, Y: 1, Z: 1}
	if err := w.SetBlock(chest, f.reg.MustState("minecraft:chest")); err != nil {
		t.Fatal(err)
	}
	if err := w.LoadBlockEntity(chest, tag.Compound{"CustomName": "stash"}); err != nil {
		t.Fatal(err)
	}
	if err := w.SpawnEntity("minecraft:villager", world.Vec3d{X: 2.5, Y: 1, Z: 0.5}, tag.Compound{"Profession": "mason"}); err != nil {
		t.Fatal(err)
	}
	return w
}

func TestManager_SaveInspectListPaste(t *testing.T) {
	f := newFixture(t)
	idx, err := indexdb.OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	journalDir := t.TempDir()
	journal := oplog.New(journalDir, "ops")
	cache := doccache.New(doccache.Config{Capacity: 8, TTL: time.Minute})
	m := New(f.cfg, f.reg, Options{Cache: cache, Index: idx, Journal: journal})

	src := f.sampleWorld(t)
	saved := m.Save(src, world.Vec3i{X: 2, Y: 2, Z: 2}, world.Vec3i{}, SaveRequest{Name: "stash room", Author: "ann"})
	if !saved.OK {
		t.Fatalf("Save: %s (%v)", saved.Message, saved.Err)
	}
	if filepath.Base(saved.Path) != "stash_room.schem" || saved.Cells != 27 || saved.BlockEntities != 1 || saved.Entities != 1 {
		t.Fatalf("saved=%+v", saved)
	}

	for i := 0; i < 2; i++ {
		ins := m.Inspect(saved.Path)
		if !ins.OK || ins.Header.Metadata.Author != "ann" || ins.Header.Volume() != 27 {
			t.Fatalf("Inspect=%+v", ins)
		}
	}
	if st := cache.Stats(); st.Hits != 1 || st.Misses != 1 {
		t.Fatalf("cache stats=%+v", st)
	}

	listed := m.List(context.Background())
	if !listed.OK || len(listed.Records) != 1 || listed.Records[0].Path != saved.Path || listed.Records[0].Digest == "" {
		t.Fatalf("List=%+v", listed)
	}

	dst := f.world()
	anchor := world.Vec3i{X: 40, Y: 5, Z: 40}
	rep := m.Paste(dst, saved.Path, anchor, m.PasteOptions())
	if !rep.OK {
		t.Fatalf("Paste: %s (%v)", rep.Message, rep.Err)
	}
	if rep.Result.BlocksPlaced != 10 || rep.Result.BlockEntities != 1 || rep.Result.Entities != 1 {
		t.Fatalf("paste result=%+v", rep.Result)
	}
	if n := dst.CountNonAir(anchor, world.Vec3i{X: 3, Y: 3, Z: 3}); n != 10 {
		t.Fatalf("non-air at target=%d", n)
	}

	if err := journal.Close(); err != nil {
		t.Fatal(err)
	}
	files, _ := oplog.Files(journalDir, "ops")
	var ops []string
	for _, p := range files {
		entries, err := oplog.ReadFile(p)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range entries {
			ops = append(ops, e.Op)
		}
	}
	if strings.Join(ops, ",") != "save,inspect,inspect,paste" {
		t.Fatalf("journal ops=%v", ops)
	}
}

func TestManager_OversizeSaveWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.cfg.MaxRegionVolume = 26
	m := New(f.cfg, f.reg, Options{})
	src := f.sampleWorld(t)

	res := m.Save(src, world.Vec3i{}, world.Vec3i{X: 2, Y: 2, Z: 2}, SaveRequest{Name: "big"})
	if res.OK || !errors.Is(res.Err, schematic.ErrRegionTooLarge) {
		t.Fatalf("Save=%+v", res)
	}
	if _, err := os.Stat(f.cfg.Dir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("schematic dir should not exist, stat err=%v", err)
	}
}

func TestManager_OversizePasteLeavesWorldUntouched(t *testing.T) {
	f := newFixture(t)
	saved := New(f.cfg, f.reg, Options{}).Save(f.sampleWorld(t), world.Vec3i{}, world.Vec3i{X: 2, Y: 2, Z: 2}, SaveRequest{Name: "cube"})
	if !saved.OK {
		t.Fatalf("Save: %v", saved.Err)
	}

	small := f.cfg
	small.MaxRegionVolume = 8
	m := New(small, f.reg, Options{})
	dst := f.world()
	rep := m.Paste(dst, saved.Path, world.Vec3i{}, m.PasteOptions())
	if rep.OK || !errors.Is(rep.Err, schematic.ErrRegionTooLarge) {
		t.Fatalf("Paste=%+v", rep)
	}
	if len(dst.LoadedChunkKeys()) != 0 || dst.EntityCount() != 0 {
		t.Fatalf("world mutated by rejected paste")
	}
}

func TestManager_CollisionAvoidingNames(t *testing.T) {
	f := newFixture(t)
	m := New(f.cfg, f.reg, Options{})
	src := f.sampleWorld(t)
	var names []string
	for i := 0; i < 2; i++ {
		res := m.Save(src, world.Vec3i{}, world.Vec3i{}, SaveRequest{Name: "tile"})
		if !res.OK {
			t.Fatalf("Save: %v", res.Err)
		}
		names = append(names, filepath.Base(res.Path))
	}
	yes := true
	res := m.Save(src, world.Vec3i{}, world.Vec3i{}, SaveRequest{Name: "tile", Overwrite: &yes})
	if !res.OK {
		t.Fatalf("Save: %v", res.Err)
	}
	names = append(names, filepath.Base(res.Path))
	if strings.Join(names, ",") != "tile.schem,tile_1.schem,tile.schem" {
		t.Fatalf("names=%v", names)
	}
}

func TestManager_FailuresBecomeResults(t *testing.T) {
	f := newFixture(t)
	m := New(f.cfg, f.reg, Options{})

	missing := m.Load(m.Path("ghost"))
	if missing.OK || !errors.Is(missing.Err, schematic.ErrIO) || !strings.Contains(missing.Message, "i/o error") {
		t.Fatalf("Load missing=%+v", missing)
	}
	if ins := m.Inspect(m.Path("ghost")); ins.OK || !errors.Is(ins.Err, schematic.ErrIO) {
		t.Fatalf("Inspect missing=%+v", ins)
	}

	junk := filepath.Join(f.cfg.Dir, "junk.schem")
	if err := os.MkdirAll(f.cfg.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(junk, []byte("definitely not gzip"), 0o644); err != nil {
		t.Fatal(err)
	}
	bad := m.Load(junk)
	if bad.OK || !errors.Is(bad.Err, schematic.ErrFormat) || !strings.Contains(bad.Message, "malformed") {
		t.Fatalf("Load junk=%+v", bad)
	}
	if rep := m.Paste(f.world(), junk, world.Vec3i{}, m.PasteOptions()); rep.OK || rep.Err == nil {
		t.Fatalf("Paste junk=%+v", rep)
	}
	if l := m.List(context.Background()); l.OK {
		t.Fatalf("List without index should fail: %+v", l)
	}
}

func TestManager_PathResolution(t *testing.T) {
	f := newFixture(t)
	m := New(f.cfg, f.reg, Options{})
	if got := m.Path("house"); got != filepath.Join(f.cfg.Dir, "house.schem") {
		t.Fatalf("Path(house)=%q", got)
	}
	if got := m.Path("./x/house.schem"); got != "./x/house.schem" {
		t.Fatalf("relative path rewritten: %q", got)
	}
}

// brokenWorld panics on the first block write.
type brokenWorld struct {
	*memworld.World
}

func (brokenWorld) SetBlock(world.Vec3i, blockstate.State) error {
	panic("chunk storage gone")
}

func TestManager_PasteDocumentRecoversPanics(t *testing.T) {
	f := newFixture(t)
	journalDir := t.TempDir()
	journal := oplog.New(journalDir, "ops")
	m := New(f.cfg, f.reg, Options{Journal: journal})

	doc, err := schematic.NewWriter(schematic.WriterConfig{}).Capture(f.sampleWorld(t), world.Vec3i{}, world.Vec3i{X: 2, Y: 2, Z: 2}, schematic.Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	rep := m.PasteDocument(brokenWorld{f.world()}, doc, world.Vec3i{}, m.PasteOptions(), "scratch")
	if rep.OK || rep.Err == nil || !strings.Contains(rep.Message, "chunk storage gone") {
		t.Fatalf("PasteDocument=%+v", rep)
	}

	if err := journal.Close(); err != nil {
		t.Fatal(err)
	}
	files, _ := oplog.Files(journalDir, "ops")
	var entries []oplog.Entry
	for _, p := range files {
		got, err := oplog.ReadFile(p)
		if err != nil {
			t.Fatal(err)
		}
		entries = append(entries, got...)
	}
	if len(entries) != 1 || entries[0].Op != "paste" || entries[0].OK || entries[0].Path != "scratch" {
		t.Fatalf("journal=%+v", entries)
	}
}

func TestManager_CompressionLevelZeroStores(t *testing.T) {
	f := newFixture(t)
	src := f.world()
	if err := src.Fill(world.Vec3i{}, world.Vec3i{X: 16, Y: 8, Z: 16}, f.reg.MustState("minecraft:stone")); err != nil {
		t.Fatal(err)
	}
	sizes := map[int]int64{}
	for _, level := range []int{0, 9} {
		cfg := f.cfg
		cfg.CompressionLevel = level
		res := New(cfg, f.reg, Options{}).Save(src, world.Vec3i{}, world.Vec3i{X: 15, Y: 7, Z: 15}, SaveRequest{Name: "slab"})
		if !res.OK {
			t.Fatalf("Save level %d: %v", level, res.Err)
		}
		fi, err := os.Stat(res.Path)
		if err != nil {
			t.Fatal(err)
		}
		sizes[level] = fi.Size()
	}
	if sizes[0] <= 16*8*16 || sizes[9] >= sizes[0] {
		t.Fatalf("file sizes=%v: level 0 should store the block array uncompressed", sizes)
	}
}
