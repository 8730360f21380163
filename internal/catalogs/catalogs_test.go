package catalogs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltin(t *testing.T) {
	c, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	if !c.Blocks.ByID["minecraft:air"].Air {
		t.Fatalf("minecraft:air should be flagged air")
	}
	chest := c.Blocks.ByID["minecraft:chest"]
	if chest.BlockEntity != "minecraft:chest" {
		t.Fatalf("chest block_entity=%q", chest.BlockEntity)
	}
	if len(chest.Properties) != 3 || chest.Properties[0].Name != "facing" {
		t.Fatalf("chest properties out of declared order: %+v", chest.Properties)
	}
	if len(c.Blocks.Defs) != len(c.Blocks.ByID) {
		t.Fatalf("Defs=%d ByID=%d", len(c.Blocks.Defs), len(c.Blocks.ByID))
	}
	if c.Entities.ByID["minecraft:pig"].Width <= 0 {
		t.Fatalf("missing pig size")
	}
	if c.Blocks.Digest == "" || c.Entities.Digest == "" {
		t.Fatalf("digests not computed")
	}
}

func TestLoad_ConfigDirMatchesBuiltin(t *testing.T) {
	c, err := Load("../../configs")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b := MustBuiltin()
	if c.Blocks.Digest != b.Blocks.Digest {
		t.Fatalf("configs/blocks.json drifted from builtin copy")
	}
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]string{
		"no air":       `[{"id":"minecraft:stone"}]`,
		"empty id":     `[{"id":"minecraft:air","air":true},{"id":""}]`,
		"duplicate":    `[{"id":"minecraft:air","air":true},{"id":"minecraft:air"}]`,
		"dup property": `[{"id":"minecraft:air","air":true},{"id":"x:y","properties":[{"name":"a","kind":"bool"},{"name":"a","kind":"bool"}]}]`,
		"bad json":     `{`,
	}
	for name, raw := range cases {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "blocks.json"), []byte(raw), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(dir); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoad_EntitiesOptional(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "blocks.json"), []byte(`[{"id":"minecraft:air","air":true}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Entities.ByID) != 0 {
		t.Fatalf("expected no entity defs")
	}
}
