// Package memworld is an in-memory voxel world backed by 16x16 chunk
// columns. It implements world.World and is used by tests and the CLI demo.
package memworld

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"voxelcraft.ai/schematic/internal/blockstate"
	"voxelcraft.ai/schematic/internal/catalogs"
	"voxelcraft.ai/schematic/internal/tag"
	"voxelcraft.ai/schematic/internal/world"
)

var (
	ErrOutOfBounds   = errors.New("position outside world bounds")
	ErrNoBlockEntity = errors.New("no block entity at position")
	ErrUnknownEntity = errors.New("unknown entity type")
)

type Config struct {
	MinY int
	MaxY int // exclusive
	// BoundaryR limits |x| and |z| when > 0.
	BoundaryR int
}

type blockEntity struct {
	typ  string
	data tag.Compound
}

type entity struct {
	id   uuid.UUID
	typ  string
	pos  world.Vec3d
	data tag.Compound
	def  catalogs.EntityDef
}

func (e *entity) box() world.AABB {
	hw := e.def.Width / 2
	return world.AABB{
		Min: world.Vec3d{X: e.pos.X - hw, Y: e.pos.Y, Z: e.pos.Z - hw},
		Max: world.Vec3d{X: e.pos.X + hw, Y: e.pos.Y + e.def.Height, Z: e.pos.Z + hw},
	}
}

type World struct {
	cfg  Config
	reg  *blockstate.Registry
	defs map[string]catalogs.EntityDef

	states     []blockstate.State
	stateIndex map[string]uint16

	chunks        map[ChunkKey]*Chunk
	blockEntities map[world.Vec3i]*blockEntity
	entities      []*entity
}

var _ world.World = (*World)(nil)

func New(cfg Config, reg *blockstate.Registry, entities catalogs.EntityCatalog) *World {
	if cfg.MaxY <= cfg.MinY {
		cfg.MaxY = cfg.MinY + 256
	}
	air := reg.Air()
	return &World{
		cfg:           cfg,
		reg:           reg,
		defs:          entities.ByID,
		states:        []blockstate.State{air},
		stateIndex:    map[string]uint16{blockstate.Encode(air): 0},
		chunks:        map[ChunkKey]*Chunk{},
		blockEntities: map[world.Vec3i]*blockEntity{},
	}
}

func (w *World) InBounds(p world.Vec3i) bool {
	if p.Y < w.cfg.MinY || p.Y >= w.cfg.MaxY {
		return false
	}
	if r := w.cfg.BoundaryR; r > 0 {
		if p.X < -r || p.X > r || p.Z < -r || p.Z > r {
			return false
		}
	}
	return true
}

func (w *World) stateID(s blockstate.State) uint16 {
	key := blockstate.Encode(s)
	if id, ok := w.stateIndex[key]; ok {
		return id
	}
	id := uint16(len(w.states))
	w.states = append(w.states, s)
	w.stateIndex[key] = id
	return id
}

func (w *World) chunkAt(p world.Vec3i, create bool) (*Chunk, int, int, int) {
	k := ChunkKey{CX: floorDiv(p.X, chunkSize), CZ: floorDiv(p.Z, chunkSize)}
	lx, ly, lz := mod(p.X, chunkSize), p.Y-w.cfg.MinY, mod(p.Z, chunkSize)
	ch, ok := w.chunks[k]
	if !ok && create {
		ch = &Chunk{
			CX:     k.CX,
			CZ:     k.CZ,
			Blocks: make([]uint16, chunkSize*chunkSize*(w.cfg.MaxY-w.cfg.MinY)),
		}
		w.chunks[k] = ch
	}
	return ch, lx, ly, lz
}

func (w *World) Block(p world.Vec3i) blockstate.State {
	if !w.InBounds(p) {
		return w.states[0]
	}
	ch, lx, ly, lz := w.chunkAt(p, false)
	if ch == nil {
		return w.states[0]
	}
	return w.states[ch.Get(lx, ly, lz)]
}

// SetBlock places s at p. Placing a type that carries a block entity creates
// an empty fixture; placing any other type removes the old one.
func (w *World) SetBlock(p world.Vec3i, s blockstate.State) error {
	if !w.InBounds(p) {
		return errors.Wrapf(ErrOutOfBounds, "%v", p)
	}
	t, ok := w.reg.Type(s.ID())
	if !ok {
		return errors.Wrapf(blockstate.ErrUnknownType, "%q", s.ID())
	}
	ch, lx, ly, lz := w.chunkAt(p, true)
	ch.Set(lx, ly, lz, w.stateID(s))

	beType := t.BlockEntity()
	if beType == "" {
		delete(w.blockEntities, p)
		return nil
	}
	if cur, ok := w.blockEntities[p]; !ok || cur.typ != beType {
		w.blockEntities[p] = &blockEntity{typ: beType, data: tag.Compound{}}
	}
	return nil
}

func (w *World) BlockEntity(p world.Vec3i) (world.BlockEntity, bool) {
	be, ok := w.blockEntities[p]
	if !ok {
		return world.BlockEntity{}, false
	}
	data := be.data.
		With("id", be.typ).
		With("x", int32(p.X)).
		With("y", int32(p.Y)).
		With("z", int32(p.Z))
	return world.BlockEntity{Type: be.typ, Data: data}, true
}

// LoadBlockEntity requires the position fields in data, when present, to
// name p.
func (w *World) LoadBlockEntity(p world.Vec3i, data tag.Compound) error {
	be, ok := w.blockEntities[p]
	if !ok {
		return errors.Wrapf(ErrNoBlockEntity, "%v", p)
	}
	want := map[string]int{"x": p.X, "y": p.Y, "z": p.Z}
	for k, v := range want {
		if got, ok := data.Int(k); ok && got != int64(v) {
			return errors.Newf("block entity data %s=%d does not match position %v", k, got, p)
		}
	}
	if id, ok := data.String("id"); ok && id != be.typ {
		return errors.Newf("block entity data id %q does not match fixture %q", id, be.typ)
	}
	be.data = data.Without("id", "x", "y", "z")
	return nil
}

func (w *World) EntitiesIntersecting(box world.AABB) []world.Entity {
	var out []world.Entity
	for _, e := range w.entities {
		if !e.box().Intersects(box) {
			continue
		}
		id := e.id
		data := e.data.
			With("Pos", []any{e.pos.X, e.pos.Y, e.pos.Z}).
			With("UUID", uuidInts(id))
		out = append(out, world.Entity{Type: e.typ, Pos: e.pos, Data: data})
	}
	return out
}

func (w *World) SpawnEntity(typeID string, pos world.Vec3d, data tag.Compound) error {
	def, ok := w.defs[typeID]
	if !ok {
		return errors.Wrapf(ErrUnknownEntity, "%q", typeID)
	}
	w.entities = append(w.entities, &entity{
		id:   uuid.New(),
		typ:  typeID,
		pos:  pos,
		data: data.Without("Pos", "UUID", "UUIDMost", "UUIDLeast"),
		def:  def,
	})
	return nil
}

func uuidInts(id uuid.UUID) []int32 {
	out := make([]int32, 4)
	for i := range out {
		out[i] = int32(uint32(id[i*4])<<24 | uint32(id[i*4+1])<<16 | uint32(id[i*4+2])<<8 | uint32(id[i*4+3]))
	}
	return out
}

// Fill sets every cell in [min, min+size) to s.
func (w *World) Fill(min, size world.Vec3i, s blockstate.State) error {
	for y := 0; y < size.Y; y++ {
		for z := 0; z < size.Z; z++ {
			for x := 0; x < size.X; x++ {
				if err := w.SetBlock(min.Add(world.Vec3i{X: x, Y: y, Z: z}), s); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// CountNonAir counts non-air cells in [min, min+size).
func (w *World) CountNonAir(min, size world.Vec3i) int {
	n := 0
	for y := 0; y < size.Y; y++ {
		for z := 0; z < size.Z; z++ {
			for x := 0; x < size.X; x++ {
				if !w.reg.IsAir(w.Block(min.Add(world.Vec3i{X: x, Y: y, Z: z}))) {
					n++
				}
			}
		}
	}
	return n
}

// BlockEntityPositions lists fixture positions in (y, z, x) order.
func (w *World) BlockEntityPositions() []world.Vec3i {
	out := make([]world.Vec3i, 0, len(w.blockEntities))
	for p := range w.blockEntities {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		if out[i].Z != out[j].Z {
			return out[i].Z < out[j].Z
		}
		return out[i].X < out[j].X
	})
	return out
}

// EntityCount is the number of live entities.
func (w *World) EntityCount() int { return len(w.entities) }

// EntityIDs returns the identity of every entity in spawn order.
func (w *World) EntityIDs() []uuid.UUID {
	out := make([]uuid.UUID, len(w.entities))
	for i, e := range w.entities {
		out[i] = e.id
	}
	return out
}

// LoadedChunkKeys returns the keys of allocated chunks, sorted.
func (w *World) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(w.chunks))
	for k := range w.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

// Digest hashes every allocated chunk in key order. Two worlds holding the
// same cells in the same chunks, with the same state table, digest equally.
func (w *World) Digest() [32]byte {
	h := sha256.New()
	var tmp [8]byte
	for _, s := range w.states {
		h.Write([]byte(blockstate.Encode(s)))
		h.Write([]byte{0})
	}
	for _, k := range w.LoadedChunkKeys() {
		binary.LittleEndian.PutUint32(tmp[:4], uint32(int32(k.CX)))
		binary.LittleEndian.PutUint32(tmp[4:], uint32(int32(k.CZ)))
		h.Write(tmp[:])
		d := w.chunks[k].Digest()
		h.Write(d[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
