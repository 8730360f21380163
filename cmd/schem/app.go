package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"voxelcraft.ai/schematic/internal/blockstate"
	"voxelcraft.ai/schematic/internal/catalogs"
	"voxelcraft.ai/schematic/internal/config"
	"voxelcraft.ai/schematic/internal/doccache"
	"voxelcraft.ai/schematic/internal/manager"
	"voxelcraft.ai/schematic/internal/persistence/indexdb"
	"voxelcraft.ai/schematic/internal/persistence/oplog"
)

const journalPrefix = "ops"

// app holds everything a command needs; close releases the index and
// journal.
type app struct {
	cfg     config.Config
	cats    *catalogs.Catalogs
	reg     *blockstate.Registry
	logger  *log.Logger
	index   *indexdb.SQLiteIndex
	journal *oplog.Journal
	mgr     *manager.Manager
}

func openApp(withIndex bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, withIndex)
}

func newApp(cfg config.Config, withIndex bool) (*app, error) {
	logger := log.New(io.Discard, "", 0)
	if verbose {
		logger = log.New(os.Stderr, "[schem] ", log.LstdFlags)
	}

	cats, err := loadCatalogs(cfg.CatalogDir)
	if err != nil {
		return nil, err
	}
	reg, err := blockstate.NewRegistry(cats.Blocks, logger)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, cats: cats, reg: reg, logger: logger}
	if withIndex && cfg.IndexDB != "" {
		idx, err := indexdb.OpenSQLite(cfg.IndexDB)
		if err != nil {
			return nil, errors.Wrap(err, "open index")
		}
		if _, err := syncCatalogs(context.Background(), idx, cats, logger); err != nil {
			logger.Printf("index catalogs: %v", err)
		}
		a.index = idx
	}
	if cfg.JournalDir != "" {
		a.journal = oplog.New(cfg.JournalDir, journalPrefix)
	}
	a.mgr = manager.New(cfg, reg, manager.Options{
		Logger:  logger,
		Cache:   doccache.New(doccache.Config{Capacity: cfg.Cache.Capacity, TTL: cfg.Cache.TTL}),
		Index:   a.index,
		Journal: a.journal,
	})
	return a, nil
}

// syncCatalogs stores cats in the index and reports whether the block
// catalog differs from the one recorded by an earlier run.
func syncCatalogs(ctx context.Context, idx *indexdb.SQLiteIndex, cats *catalogs.Catalogs, logger *log.Logger) (bool, error) {
	prev, err := idx.CatalogDigest(ctx, "blocks")
	if err != nil {
		return false, err
	}
	changed := prev != cats.Blocks.Digest
	if changed && prev != "" {
		logger.Printf("block catalog changed since last run: %.12s -> %.12s", prev, cats.Blocks.Digest)
	}
	return changed, idx.UpsertCatalogs(ctx, cats)
}

// loadCatalogs prefers definitions on disk and falls back to the embedded
// set when dir does not hold them.
func loadCatalogs(dir string) (*catalogs.Catalogs, error) {
	if dir != "" {
		if _, err := os.Stat(filepath.Join(dir, "blocks.json")); err == nil {
			return catalogs.Load(dir)
		}
	}
	return catalogs.Builtin()
}

func (a *app) close() {
	if err := a.journal.Close(); err != nil {
		a.logger.Printf("journal close: %v", err)
	}
	if err := a.index.Close(); err != nil {
		a.logger.Printf("index close: %v", err)
	}
}
