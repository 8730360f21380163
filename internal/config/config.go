// Package config loads the schematic store settings from YAML, validates the
// file against an embedded JSON schema and applies SCHEM_* environment
// overrides.
package config

import (
	_ "embed"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

type Config struct {
	// Dir is where saved schematics live.
	Dir        string `yaml:"dir" env:"SCHEM_DIR"`
	CatalogDir string `yaml:"catalog_dir" env:"SCHEM_CATALOG_DIR"`

	DataVersion      int32 `yaml:"data_version" env:"SCHEM_DATA_VERSION"`
	MaxRegionVolume  int   `yaml:"max_region_volume" env:"SCHEM_MAX_REGION_VOLUME"`
	MaxDocumentBytes int64 `yaml:"max_document_bytes" env:"SCHEM_MAX_DOCUMENT_BYTES"`
	CompressionLevel int   `yaml:"compression_level" env:"SCHEM_COMPRESSION_LEVEL"`
	Overwrite        bool  `yaml:"overwrite" env:"SCHEM_OVERWRITE"`

	// IndexDB and JournalDir are optional; empty disables them.
	IndexDB    string `yaml:"index_db" env:"SCHEM_INDEX_DB"`
	JournalDir string `yaml:"journal_dir" env:"SCHEM_JOURNAL_DIR"`

	Cache CacheConfig `yaml:"cache" envPrefix:"SCHEM_CACHE_"`
	Paste PasteConfig `yaml:"paste" envPrefix:"SCHEM_PASTE_"`
}

type CacheConfig struct {
	Capacity int           `yaml:"capacity" env:"CAPACITY"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"`
}

type PasteConfig struct {
	IncludeEntities bool `yaml:"include_entities" env:"INCLUDE_ENTITIES"`
	IncludeAir      bool `yaml:"include_air" env:"INCLUDE_AIR"`
}

func Defaults() Config {
	return Config{
		Dir:              "data/schematics",
		DataVersion:      3700,
		MaxRegionVolume:  64 * 64 * 64 * 8,
		MaxDocumentBytes: 256 << 20,
		CompressionLevel: -1,
		Cache:            CacheConfig{Capacity: 64, TTL: 10 * time.Minute},
		Paste:            PasteConfig{IncludeEntities: true},
	}
}

// Load reads path (empty means defaults only) and applies the process
// environment on top.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, nil)
}

// LoadWithEnv is Load with an explicit environment; nil uses os.Environ.
func LoadWithEnv(path string, environ map[string]string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "read config")
		}
		if err := ValidateDocument(b); err != nil {
			return cfg, errors.Wrapf(err, "%s", path)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "%s", path)
		}
	}
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, errors.Wrap(err, "parse env")
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ValidateDocument checks raw YAML against the embedded schema.
func ValidateDocument(b []byte) error {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return errors.Wrap(err, "parse yaml")
	}
	if doc == nil {
		return nil
	}
	// Round-trip through JSON so the validator sees JSON value types.
	jb, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "yaml to json")
	}
	var v any
	if err := json.Unmarshal(jb, &v); err != nil {
		return errors.Wrap(err, "yaml to json")
	}
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		return errors.Wrap(err, "schema")
	}
	return nil
}

func compiledSchema() (*jsonschema.Schema, error) {
	s, err := jsonschema.CompileString("schematic.schema.json", schemaJSON)
	if err != nil {
		return nil, errors.Wrap(err, "compile config schema")
	}
	return s, nil
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.Dir = strings.TrimSpace(c.Dir)
	c.CatalogDir = strings.TrimSpace(c.CatalogDir)
	c.IndexDB = strings.TrimSpace(c.IndexDB)
	c.JournalDir = strings.TrimSpace(c.JournalDir)
	if c.Cache.Capacity < 0 {
		c.Cache.Capacity = 0
	}
}

func (c Config) Validate() error {
	if c.Dir == "" {
		return errors.New("config: dir is required")
	}
	if c.DataVersion <= 0 {
		return errors.Newf("config: data_version must be > 0, got %d", c.DataVersion)
	}
	if c.MaxRegionVolume <= 0 {
		return errors.Newf("config: max_region_volume must be > 0, got %d", c.MaxRegionVolume)
	}
	if c.MaxDocumentBytes < 1024 {
		return errors.Newf("config: max_document_bytes must be >= 1024, got %d", c.MaxDocumentBytes)
	}
	if c.CompressionLevel < -2 || c.CompressionLevel > 9 {
		return errors.Newf("config: compression_level must be in [-2,9], got %d", c.CompressionLevel)
	}
	if c.Cache.TTL < 0 {
		return errors.Newf("config: cache.ttl must be >= 0, got %s", c.Cache.TTL)
	}
	return nil
}
