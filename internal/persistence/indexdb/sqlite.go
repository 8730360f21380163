package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"

	"voxelcraft.ai/schematic/internal/catalogs"
	"voxelcraft.ai/schematic/internal/schematic"
)

// SQLiteIndex is a queryable record of saved schematics. Files stay the
// source of truth; the index can be rebuilt from them.
type SQLiteIndex struct {
	db *sql.DB
}

type Record struct {
	Path          string
	Name          string
	Author        string
	Width         int
	Height        int
	Length        int
	DataVersion   int32
	PaletteSize   int
	BlockEntities int
	Entities      int
	Digest        string
	CreatedAt     time.Time
}

func (r Record) Volume() int { return r.Width * r.Height * r.Length }

// RecordFromHeader fills a record from a decoded header.
func RecordFromHeader(path string, h schematic.Header, digest string) Record {
	return Record{
		Path:          path,
		Name:          h.Metadata.Name,
		Author:        h.Metadata.Author,
		Width:         h.Width,
		Height:        h.Height,
		Length:        h.Length,
		DataVersion:   h.DataVersion,
		PaletteSize:   h.PaletteSize,
		BlockEntities: h.BlockEntities,
		Entities:      h.Entities,
		Digest:        digest,
		CreatedAt:     h.Metadata.Date,
	}
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, errors.New("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteIndex{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return errors.Wrapf(err, "pragma %q", p)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS schematics (
			path TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			author TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			length INTEGER NOT NULL,
			data_version INTEGER NOT NULL,
			palette_size INTEGER NOT NULL,
			block_entities INTEGER NOT NULL,
			entities INTEGER NOT NULL,
			digest TEXT NOT NULL,
			created_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS schematics_name ON schematics(name);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordSave inserts or replaces the row for r.Path.
func (s *SQLiteIndex) RecordSave(ctx context.Context, r Record) error {
	if s == nil {
		return nil
	}
	var created int64
	if !r.CreatedAt.IsZero() {
		created = r.CreatedAt.UnixMilli()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO schematics(path,name,author,width,height,length,data_version,palette_size,block_entities,entities,digest,created_ms)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.Path, r.Name, r.Author, r.Width, r.Height, r.Length, r.DataVersion,
		r.PaletteSize, r.BlockEntities, r.Entities, r.Digest, created)
	return errors.Wrapf(err, "record %s", r.Path)
}

func (s *SQLiteIndex) Remove(ctx context.Context, path string) error {
	if s == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM schematics WHERE path=?`, path)
	return errors.Wrapf(err, "remove %s", path)
}

// List returns every record, newest first.
func (s *SQLiteIndex) List(ctx context.Context) ([]Record, error) {
	if s == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT path,name,author,width,height,length,data_version,palette_size,block_entities,entities,digest,created_ms
		 FROM schematics ORDER BY created_ms DESC, path ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "list schematics")
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "list schematics")
}

func (s *SQLiteIndex) Lookup(ctx context.Context, path string) (Record, bool, error) {
	if s == nil {
		return Record{}, false, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT path,name,author,width,height,length,data_version,palette_size,block_entities,entities,digest,created_ms
		 FROM schematics WHERE path=?`, path)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return r, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		r       Record
		created int64
	)
	if err := sc.Scan(&r.Path, &r.Name, &r.Author, &r.Width, &r.Height, &r.Length, &r.DataVersion,
		&r.PaletteSize, &r.BlockEntities, &r.Entities, &r.Digest, &created); err != nil {
		return Record{}, err
	}
	if created != 0 {
		r.CreatedAt = time.UnixMilli(created).UTC()
	}
	return r, nil
}

// UpsertCatalogs stores the catalogs the codec resolved states against, so a
// saved file can be matched to the definitions it was written with.
func (s *SQLiteIndex) UpsertCatalogs(ctx context.Context, cats *catalogs.Catalogs) error {
	if s == nil || cats == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	blocks, err := json.Marshal(cats.Blocks.Defs)
	if err != nil {
		return errors.Wrap(err, "marshal block catalog")
	}
	entities, err := json.Marshal(cats.Entities.ByID)
	if err != nil {
		return errors.Wrap(err, "marshal entity catalog")
	}
	rows := []kv{
		{name: "blocks", digest: cats.Blocks.Digest, json: blocks},
		{name: "entities", digest: cats.Entities.Digest, json: entities},
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.digest == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, r.name, r.digest, string(r.json), now); err != nil {
			return errors.Wrapf(err, "upsert catalog %s", r.name)
		}
	}
	return tx.Commit()
}

// CatalogDigest returns the stored digest for name, or "" when absent.
func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	if s == nil {
		return "", nil
	}
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name=?`, name).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return d, err
}

// FileDigest is the hex sha256 of the file at path.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
