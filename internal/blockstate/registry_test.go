package blockstate

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	"voxelcraft.ai/schematic/internal/catalogs"
)

func newTestRegistry(t *testing.T, logger *log.Logger) *Registry {
	t.Helper()
	r, err := NewRegistry(catalogs.MustBuiltin().Blocks, logger)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestEncode(t *testing.T) {
	r := newTestRegistry(t, nil)
	cases := []struct {
		state State
		want  string
	}{
		{r.MustState("minecraft:stone"), "minecraft:stone"},
		{r.MustState("minecraft:oak_log", "axis", "x"), "minecraft:oak_log[axis=x]"},
		{r.MustState("minecraft:chest", "type", "left", "facing", "east"), "minecraft:chest[facing=east,type=left,waterlogged=false]"},
	}
	for _, c := range cases {
		if got := Encode(c.state); got != c.want {
			t.Fatalf("Encode=%q want %q", got, c.want)
		}
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	r := newTestRegistry(t, nil)
	states := []State{
		r.Air(),
		r.MustState("minecraft:grass_block", "snowy", "true"),
		r.MustState("minecraft:water", "level", "7"),
		r.MustState("minecraft:oak_stairs", "facing", "west", "half", "top", "shape", "outer_left", "waterlogged", "true"),
		r.MustState("minecraft:oak_sign", "rotation", "15"),
	}
	for _, s := range states {
		got, err := r.Decode(Encode(s))
		if err != nil {
			t.Fatalf("Decode(%q): %v", Encode(s), err)
		}
		if !got.Equal(s) {
			t.Fatalf("round trip %q: got %q", Encode(s), Encode(got))
		}
	}
}

func TestDecode_UnknownTypeFails(t *testing.T) {
	r := newTestRegistry(t, nil)
	_, err := r.Decode("modded:reactor[heat=9]")
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("got %v want ErrUnknownType", err)
	}
}

func TestDecode_MalformedFails(t *testing.T) {
	r := newTestRegistry(t, nil)
	for _, s := range []string{"", "[axis=x]", "minecraft:oak_log[axis=x"} {
		if _, err := r.Decode(s); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Decode(%q): got %v want ErrMalformed", s, err)
		}
	}
}

func TestDecode_LenientProperties(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRegistry(t, log.New(&buf, "", 0))

	got, err := r.Decode("minecraft:chest[facing=south,color=red,type=huge,waterlogged]")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := r.MustState("minecraft:chest", "facing", "south")
	if !got.Equal(want) {
		t.Fatalf("got %q want %q", Encode(got), Encode(want))
	}
	logged := buf.String()
	for _, frag := range []string{"color", "huge", "waterlogged"} {
		if !strings.Contains(logged, frag) {
			t.Fatalf("expected skipped %q in log, got:\n%s", frag, logged)
		}
	}
}

func TestDecode_DefaultNamespaceAndEmptySection(t *testing.T) {
	r := newTestRegistry(t, nil)
	got, err := r.Decode("oak_log[]")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if Encode(got) != "minecraft:oak_log[axis=y]" {
		t.Fatalf("got %q", Encode(got))
	}
}

func TestIntPropertyCanonicalized(t *testing.T) {
	r := newTestRegistry(t, nil)
	got, err := r.Decode("minecraft:water[level=07]")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v, _ := got.Value("level"); v != "7" {
		t.Fatalf("level=%q want 7", v)
	}
	if _, err := r.State("minecraft:water", "level", "16"); !errors.Is(err, ErrUnknownProperty) {
		t.Fatalf("out of range level: got %v", err)
	}
}

func TestIsAir(t *testing.T) {
	r := newTestRegistry(t, nil)
	if !r.IsAir(r.Air()) || !r.IsAir(r.MustState("minecraft:cave_air")) {
		t.Fatalf("air states not recognised")
	}
	if r.IsAir(r.MustState("minecraft:stone")) {
		t.Fatalf("stone is not air")
	}
}

func TestNewRegistry_RejectsBadDefinitions(t *testing.T) {
	air := catalogs.BlockDef{ID: "minecraft:air", Air: true}
	cases := []catalogs.BlockDef{
		{ID: "x:a", Properties: []catalogs.PropertyDef{{Name: "p", Kind: "enum"}}},
		{ID: "x:b", Properties: []catalogs.PropertyDef{{Name: "p", Kind: "int", Min: 3, Max: 1}}},
		{ID: "x:c", Properties: []catalogs.PropertyDef{{Name: "p", Kind: "float"}}},
		{ID: "x:d", Properties: []catalogs.PropertyDef{{Name: "p", Kind: "bool", Default: "yes"}}},
	}
	for _, d := range cases {
		cat := catalogs.BlockCatalog{Defs: []catalogs.BlockDef{air, d}}
		if _, err := NewRegistry(cat, nil); err == nil {
			t.Fatalf("%s: expected error", d.ID)
		}
	}
}
