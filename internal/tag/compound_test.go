package tag

import "testing"

func TestWithout_LeavesSourceIntact(t *testing.T) {
	src := Compound{
		"x": int32(4), "y": int32(64), "z": int32(-9),
		"CustomName": "Loot",
		"Items":      []any{map[string]any{"id": "minecraft:apple", "Count": int8(3)}},
	}
	got := src.Without("x", "y", "z")
	if _, ok := got["x"]; ok {
		t.Fatalf("x not stripped")
	}
	if len(src) != 5 {
		t.Fatalf("source mutated: %v", src)
	}
	items := got["Items"].([]any)
	items[0].(Compound)["Count"] = int8(9)
	if src["Items"].([]any)[0].(map[string]any)["Count"] != int8(3) {
		t.Fatalf("nested value shared between copies")
	}
}

func TestWith(t *testing.T) {
	var src Compound
	got := src.With("id", "minecraft:chest")
	if s, ok := got.String("id"); !ok || s != "minecraft:chest" {
		t.Fatalf("With: %v", got)
	}
	if src != nil {
		t.Fatalf("nil receiver mutated")
	}
}

func TestInt(t *testing.T) {
	c := Compound{"a": int8(1), "b": int16(2), "c": int32(3), "d": int64(4), "e": "5"}
	for k, want := range map[string]int64{"a": 1, "b": 2, "c": 3, "d": 4} {
		if got, ok := c.Int(k); !ok || got != want {
			t.Fatalf("Int(%s)=%d,%v want %d", k, got, ok, want)
		}
	}
	if _, ok := c.Int("e"); ok {
		t.Fatalf("string should not convert")
	}
}

func TestPlain_UnwrapsNamedCompounds(t *testing.T) {
	c := Compound{"inner": Compound{"k": "v"}, "list": []any{Compound{"n": int32(1)}}}
	p := c.Plain()
	if _, ok := p["inner"].(map[string]any); !ok {
		t.Fatalf("inner not plain: %T", p["inner"])
	}
	if _, ok := p["list"].([]any)[0].(map[string]any); !ok {
		t.Fatalf("list element not plain")
	}
}
