package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"voxelcraft.ai/schematic/internal/blockstate"
	"voxelcraft.ai/schematic/internal/manager"
	"voxelcraft.ai/schematic/internal/schematic"
	"voxelcraft.ai/schematic/internal/tag"
	"voxelcraft.ai/schematic/internal/world"
	"voxelcraft.ai/schematic/internal/world/memworld"
)

func runDemo(out io.Writer, a *app, name string) error {
	src := memworld.New(memworld.Config{MinY: -64, MaxY: 320}, a.reg, a.cats.Entities)
	origin := world.Vec3i{X: -3, Y: 64, Z: 5}
	if err := buildHut(src, a.reg, origin); err != nil {
		return errors.Wrap(err, "build sample")
	}
	far := origin.Add(world.Vec3i{X: 6, Y: 5, Z: 6})

	saved := a.mgr.Save(src, far, origin, manager.SaveRequest{Name: name, Author: "schem demo"})
	if !saved.OK {
		return saved.Err
	}
	ins := a.mgr.Inspect(saved.Path)
	if !ins.OK {
		return ins.Err
	}

	dst := memworld.New(memworld.Config{MinY: -64, MaxY: 320}, a.reg, a.cats.Entities)
	anchor := world.Vec3i{X: 1000, Y: 70, Z: -1000}
	rep := a.mgr.Paste(dst, saved.Path, anchor, a.mgr.PasteOptions())
	if !rep.OK {
		return rep.Err
	}
	loaded := a.mgr.Load(saved.Path)
	if !loaded.OK {
		return loaded.Err
	}
	v := schematic.Verify(dst, loaded.Document, anchor, a.reg)

	size := loaded.Document.Size()
	tbl := tablewriter.NewWriter(out)
	tbl.SetHeader([]string{"Step", "Detail"})
	tbl.Append([]string{"save", saved.Message})
	tbl.Append([]string{"file", fmt.Sprintf("%s (%s)", saved.Path, fileSize(saved.Path))})
	tbl.Append([]string{"header", fmt.Sprintf("%s, palette %d, data version %d", ins.Message, ins.Header.PaletteSize, ins.Header.DataVersion)})
	tbl.Append([]string{"paste", fmt.Sprintf("%s at %v", rep.Message, anchor)})
	tbl.Append([]string{"source non-air", humanize.Comma(int64(src.CountNonAir(origin, size)))})
	tbl.Append([]string{"target non-air", humanize.Comma(int64(dst.CountNonAir(anchor, size)))})
	tbl.Append([]string{"verify", fmt.Sprintf("%d/%d cells match", v.Matched, v.Checked)})
	tbl.Append([]string{"entities", strconv.Itoa(dst.EntityCount())})
	tbl.Render()
	if !v.OK() {
		return errors.Newf("verification found %d mismatches", v.Mismatched)
	}
	return nil
}

// buildHut places a 7x6x7 hut with a chest, a sign, a furnace and two
// entities at origin.
func buildHut(w *memworld.World, reg *blockstate.Registry, origin world.Vec3i) error {
	set := func(x, y, z int, s blockstate.State) error {
		return w.SetBlock(origin.Add(world.Vec3i{X: x, Y: y, Z: z}), s)
	}
	floor := reg.MustState("minecraft:cobblestone")
	wall := reg.MustState("minecraft:oak_planks")
	corner := reg.MustState("minecraft:oak_log", "axis", "y")
	window := reg.MustState("minecraft:glass")

	if err := w.Fill(origin, world.Vec3i{X: 7, Y: 1, Z: 7}, floor); err != nil {
		return err
	}
	for y := 1; y <= 3; y++ {
		for i := 0; i < 7; i++ {
			for _, p := range [][2]int{{i, 0}, {i, 6}, {0, i}, {6, i}} {
				s := wall
				switch {
				case (p[0] == 0 || p[0] == 6) && (p[1] == 0 || p[1] == 6):
					s = corner
				case y == 2 && i == 3:
					s = window
				}
				if err := set(p[0], y, p[1], s); err != nil {
					return err
				}
			}
		}
	}
	// Doorway on the north wall.
	air := reg.Air()
	for y := 1; y <= 2; y++ {
		if err := set(3, y, 0, air); err != nil {
			return err
		}
	}
	for z := 0; z < 7; z++ {
		north := reg.MustState("minecraft:oak_stairs", "facing", "south")
		south := reg.MustState("minecraft:oak_stairs", "facing", "north")
		for x := 0; x < 7; x++ {
			s := north
			if x >= 3 {
				s = south
			}
			if err := set(x, 4+roofStep(x), z, s); err != nil {
				return err
			}
		}
	}

	chest := origin.Add(world.Vec3i{X: 1, Y: 1, Z: 5})
	if err := w.SetBlock(chest, reg.MustState("minecraft:chest", "facing", "south")); err != nil {
		return err
	}
	if err := w.LoadBlockEntity(chest, tag.Compound{"CustomName": "Supplies", "LootTableSeed": int64(42)}); err != nil {
		return err
	}
	sign := origin.Add(world.Vec3i{X: 5, Y: 1, Z: 1})
	if err := w.SetBlock(sign, reg.MustState("minecraft:oak_sign", "rotation", "8")); err != nil {
		return err
	}
	if err := w.LoadBlockEntity(sign, tag.Compound{"Text1": "Welcome", "GlowingText": int8(1)}); err != nil {
		return err
	}
	if err := set(5, 1, 5, reg.MustState("minecraft:furnace", "facing", "west", "lit", "true")); err != nil {
		return err
	}
	if err := set(3, 3, 3, reg.MustState("minecraft:torch")); err != nil {
		return err
	}

	base := origin.Vec3d()
	if err := w.SpawnEntity("minecraft:armor_stand", base.Add(world.Vec3d{X: 3.5, Y: 1, Z: 3.5}), tag.Compound{"ShowArms": int8(1)}); err != nil {
		return err
	}
	return w.SpawnEntity("minecraft:pig", base.Add(world.Vec3d{X: 3.5, Y: 0, Z: -0.2}), tag.Compound{"Saddle": int8(0)})
}

// roofStep is the roof step for column x: 0 at the eaves, 1 at the ridge.
func roofStep(x int) int {
	if x == 3 {
		return 1
	}
	return 0
}
