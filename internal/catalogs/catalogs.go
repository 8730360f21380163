package catalogs

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

//go:embed builtin/*.json
var builtinFS embed.FS

type Catalogs struct {
	Blocks   BlockCatalog
	Entities EntityCatalog
}

// BlockCatalog keeps definitions in file order; the declared property order
// of each definition is what block-state strings are encoded with.
type BlockCatalog struct {
	Defs   []BlockDef
	ByID   map[string]BlockDef
	Digest string
}

type BlockDef struct {
	ID          string        `json:"id"`
	Air         bool          `json:"air,omitempty"`
	BlockEntity string        `json:"block_entity,omitempty"`
	Properties  []PropertyDef `json:"properties,omitempty"`
}

// PropertyDef describes one block property. Kind is "bool", "int" (Min..Max
// inclusive) or "enum" (Values).
type PropertyDef struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Values  []string `json:"values,omitempty"`
	Min     int      `json:"min,omitempty"`
	Max     int      `json:"max,omitempty"`
	Default string   `json:"default,omitempty"`
}

type EntityCatalog struct {
	ByID   map[string]EntityDef
	Digest string
}

type EntityDef struct {
	ID     string  `json:"id"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Load reads blocks.json and entities.json from configDir.
func Load(configDir string) (*Catalogs, error) {
	blocks, err := os.ReadFile(filepath.Join(configDir, "blocks.json"))
	if err != nil {
		return nil, err
	}
	entities, err := os.ReadFile(filepath.Join(configDir, "entities.json"))
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return parse(blocks, entities)
}

// Builtin returns the catalogs compiled into the binary.
func Builtin() (*Catalogs, error) {
	blocks, err := builtinFS.ReadFile("builtin/blocks.json")
	if err != nil {
		return nil, err
	}
	entities, err := builtinFS.ReadFile("builtin/entities.json")
	if err != nil {
		return nil, err
	}
	return parse(blocks, entities)
}

// MustBuiltin is Builtin for tests and tools that cannot proceed without it.
func MustBuiltin() *Catalogs {
	c, err := Builtin()
	if err != nil {
		panic(err)
	}
	return c
}

func parse(blocks, entities []byte) (*Catalogs, error) {
	var c Catalogs
	if err := parseBlocks(blocks, &c.Blocks); err != nil {
		return nil, err
	}
	if err := parseEntities(entities, &c.Entities); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func parseBlocks(raw []byte, out *BlockCatalog) error {
	out.Digest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return errors.Wrap(err, "blocks.json")
	}
	out.ByID = make(map[string]BlockDef, len(defs))
	hasAir := false
	for _, d := range defs {
		if d.ID == "" {
			return errors.New("blocks.json: empty id")
		}
		if _, dup := out.ByID[d.ID]; dup {
			return errors.Newf("blocks.json: duplicate id %s", d.ID)
		}
		seen := map[string]bool{}
		for _, p := range d.Properties {
			if p.Name == "" {
				return errors.Newf("blocks.json: %s: property with empty name", d.ID)
			}
			if seen[p.Name] {
				return errors.Newf("blocks.json: %s: duplicate property %s", d.ID, p.Name)
			}
			seen[p.Name] = true
		}
		if d.Air {
			hasAir = true
		}
		out.ByID[d.ID] = d
		out.Defs = append(out.Defs, d)
	}
	if !hasAir {
		return errors.New("blocks.json: no air block")
	}
	return nil
}

func parseEntities(raw []byte, out *EntityCatalog) error {
	out.Digest = sha256Hex(raw)
	out.ByID = map[string]EntityDef{}
	if len(raw) == 0 {
		return nil
	}
	var defs []EntityDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return errors.Wrap(err, "entities.json")
	}
	for _, d := range defs {
		if d.ID == "" {
			return errors.New("entities.json: empty id")
		}
		if d.Width < 0 || d.Height < 0 {
			return errors.Newf("entities.json: %s: negative size", d.ID)
		}
		out.ByID[d.ID] = d
	}
	return nil
}
