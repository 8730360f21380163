// Package manager is the non-failing façade over the schematic codec. Every
// call returns a result value; errors travel inside it.
package manager

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"voxelcraft.ai/schematic/internal/blockstate"
	"voxelcraft.ai/schematic/internal/config"
	"voxelcraft.ai/schematic/internal/doccache"
	"voxelcraft.ai/schematic/internal/persistence/indexdb"
	"voxelcraft.ai/schematic/internal/persistence/oplog"
	"voxelcraft.ai/schematic/internal/schematic"
	"voxelcraft.ai/schematic/internal/world"
)

// Options carries the optional collaborators. Any of them may be nil.
type Options struct {
	Logger  *log.Logger
	Cache   *doccache.Cache
	Index   *indexdb.SQLiteIndex
	Journal *oplog.Journal
	Now     func() time.Time
}

type Manager struct {
	cfg    config.Config
	reg    *blockstate.Registry
	writer *schematic.Writer
	opts   Options
	logger *log.Logger
}

func New(cfg config.Config, reg *blockstate.Registry, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		cfg: cfg,
		reg: reg,
		writer: schematic.NewWriter(schematic.WriterConfig{
			DataVersion:      cfg.DataVersion,
			CompressionLevel: cfg.CompressionLevel,
			Now:              opts.Now,
		}),
		opts:   opts,
		logger: logger,
	}
}

type SaveRequest struct {
	Name   string
	Author string
	// Overwrite reuses the canonical file name. When nil the configured
	// default applies.
	Overwrite *bool
}

type SaveResult struct {
	OK            bool
	Path          string
	Cells         int
	BlockEntities int
	Entities      int
	Message       string
	Err           error
}

type LoadResult struct {
	OK       bool
	Path     string
	Document *schematic.Document
	Message  string
	Err      error
}

type InspectResult struct {
	OK      bool
	Path    string
	Header  schematic.Header
	Message string
	Err     error
}

type PasteReport struct {
	OK      bool
	Path    string
	Result  schematic.PasteResult
	Message string
	Err     error
}

type ListResult struct {
	OK      bool
	Records []indexdb.Record
	Message string
	Err     error
}

func (m *Manager) limits() schematic.Limits {
	return schematic.Limits{MaxDocumentBytes: m.cfg.MaxDocumentBytes, MaxCellCount: m.cfg.MaxRegionVolume}
}

// PasteOptions builds options from the configuration.
func (m *Manager) PasteOptions() schematic.PasteOptions {
	return schematic.PasteOptions{
		IncludeBlocks:   true,
		IncludeEntities: m.cfg.Paste.IncludeEntities,
		IncludeAir:      m.cfg.Paste.IncludeAir,
		MaxCellCount:    m.cfg.MaxRegionVolume,
	}
}

// Path resolves a bare name against the schematic directory.
func (m *Manager) Path(name string) string {
	if filepath.IsAbs(name) || filepath.Dir(name) != "." {
		return name
	}
	return filepath.Join(m.cfg.Dir, schematic.SanitizeName(name)+schematic.FileExt)
}

// Save captures the box spanned by a and b and writes it under the
// configured directory. The volume is checked before the world is read.
func (m *Manager) Save(src world.World, a, b world.Vec3i, req SaveRequest) (res SaveResult) {
	start := m.opts.Now()
	defer func() {
		if r := recover(); r != nil {
			res = SaveResult{Message: fmt.Sprintf("save failed: %v", r), Err: errors.Newf("panic: %v", r)}
		}
		m.journal(oplog.Entry{Op: "save", Path: res.Path, OK: res.OK, Cells: res.Cells,
			BlockEntities: res.BlockEntities, Entities: res.Entities, Error: errString(res.Err)}, start)
	}()

	_, size := schematic.Bounds(a, b)
	if v := size.X * size.Y * size.Z; v > m.cfg.MaxRegionVolume {
		err := errors.Wrapf(schematic.ErrRegionTooLarge, "%d cells exceeds limit of %d", v, m.cfg.MaxRegionVolume)
		return SaveResult{Message: fmt.Sprintf("region of %d cells exceeds the limit of %d", v, m.cfg.MaxRegionVolume), Err: err}
	}

	doc, err := m.writer.Capture(src, a, b, schematic.Metadata{Name: req.Name, Author: req.Author})
	if err != nil {
		return SaveResult{Message: "capture failed: " + err.Error(), Err: err}
	}
	overwrite := m.cfg.Overwrite
	if req.Overwrite != nil {
		overwrite = *req.Overwrite
	}
	path, err := schematic.NextFreePath(m.cfg.Dir, req.Name, overwrite)
	if err != nil {
		return SaveResult{Message: "no file name available: " + err.Error(), Err: err}
	}
	if err := m.writer.WriteFile(path, doc); err != nil {
		return SaveResult{Path: path, Message: "write failed: " + err.Error(), Err: err}
	}
	if m.opts.Cache != nil {
		m.opts.Cache.Invalidate(path)
	}
	m.index(path, doc.Header())

	res = SaveResult{
		OK:            true,
		Path:          path,
		Cells:         doc.Volume(),
		BlockEntities: len(doc.BlockEntities()),
		Entities:      len(doc.Entities()),
	}
	res.Message = fmt.Sprintf("saved %d cells, %d block entities, %d entities to %s", res.Cells, res.BlockEntities, res.Entities, path)
	m.logger.Printf("schematic: %s", res.Message)
	return res
}

func (m *Manager) Load(path string) (res LoadResult) {
	start := m.opts.Now()
	defer func() {
		if r := recover(); r != nil {
			res = LoadResult{Path: path, Message: fmt.Sprintf("load failed: %v", r), Err: errors.Newf("panic: %v", r)}
		}
		e := oplog.Entry{Op: "load", Path: path, OK: res.OK, Error: errString(res.Err)}
		if res.Document != nil {
			e.Cells = res.Document.Volume()
		}
		m.journal(e, start)
	}()

	doc, err := schematic.ReadFile(path, m.limits())
	if err != nil {
		return LoadResult{Path: path, Message: describe("load", err), Err: err}
	}
	return LoadResult{OK: true, Path: path, Document: doc, Message: fmt.Sprintf("loaded %s", path)}
}

// Inspect returns the header of path, through the cache when one is set.
func (m *Manager) Inspect(path string) (res InspectResult) {
	start := m.opts.Now()
	defer func() {
		if r := recover(); r != nil {
			res = InspectResult{Path: path, Message: fmt.Sprintf("inspect failed: %v", r), Err: errors.Newf("panic: %v", r)}
		}
		m.journal(oplog.Entry{Op: "inspect", Path: path, OK: res.OK, Cells: res.Header.Volume(), Error: errString(res.Err)}, start)
	}()

	load := func(p string) (schematic.Header, error) { return schematic.ReadHeader(p, m.limits()) }
	var (
		h   schematic.Header
		err error
	)
	if m.opts.Cache != nil {
		h, err = m.opts.Cache.Header(path, load)
	} else {
		h, err = load(path)
	}
	if err != nil {
		return InspectResult{Path: path, Message: describe("inspect", err), Err: err}
	}
	return InspectResult{OK: true, Path: path, Header: h, Message: fmt.Sprintf("%dx%dx%d", h.Width, h.Height, h.Length)}
}

// Paste loads path and pastes it into dst at anchor.
func (m *Manager) Paste(dst world.World, path string, anchor world.Vec3i, opts schematic.PasteOptions) (res PasteReport) {
	start := m.opts.Now()
	defer m.finishPaste(&res, path, start)

	doc, err := schematic.ReadFile(path, m.limits())
	if err != nil {
		return PasteReport{Path: path, Message: describe("paste", err), Err: err}
	}
	return m.pasteDocument(dst, doc, anchor, opts, path)
}

// PasteDocument pastes an already loaded document. path only labels the
// report and the journal entry.
func (m *Manager) PasteDocument(dst world.World, doc *schematic.Document, anchor world.Vec3i, opts schematic.PasteOptions, path string) (res PasteReport) {
	start := m.opts.Now()
	defer m.finishPaste(&res, path, start)
	return m.pasteDocument(dst, doc, anchor, opts, path)
}

func (m *Manager) pasteDocument(dst world.World, doc *schematic.Document, anchor world.Vec3i, opts schematic.PasteOptions, path string) PasteReport {
	if opts.MaxCellCount <= 0 || opts.MaxCellCount > m.cfg.MaxRegionVolume {
		opts.MaxCellCount = m.cfg.MaxRegionVolume
	}
	r, err := schematic.Paste(dst, doc, anchor, opts, m.reg, m.logger)
	if err != nil {
		return PasteReport{Path: path, Result: r, Message: describe("paste", err), Err: err}
	}
	msg := fmt.Sprintf("placed %d blocks, %d block entities, %d entities", r.BlocksPlaced, r.BlockEntities, r.Entities)
	if n := len(r.Records); n > 0 {
		msg += fmt.Sprintf(" (%d records skipped)", n)
	}
	return PasteReport{OK: true, Path: path, Result: r, Message: msg}
}

// finishPaste converts a panic into a failed report and journals the paste.
// It must be deferred directly.
func (m *Manager) finishPaste(res *PasteReport, path string, start time.Time) {
	if r := recover(); r != nil {
		*res = PasteReport{Path: path, Result: res.Result, Message: fmt.Sprintf("paste failed: %v", r), Err: errors.Newf("panic: %v", r)}
	}
	m.journal(oplog.Entry{Op: "paste", Path: path, OK: res.OK, Cells: res.Result.BlocksPlaced,
		BlockEntities: res.Result.BlockEntities, Entities: res.Result.Entities,
		Skipped: len(res.Result.Records) + res.Result.UnknownSkipped + res.Result.BlocksFailed,
		Error:   errString(res.Err)}, start)
}

// List returns indexed saves; without an index it reports that instead.
func (m *Manager) List(ctx context.Context) ListResult {
	if m.opts.Index == nil {
		return ListResult{Message: "no index configured", Err: errors.New("no index configured")}
	}
	recs, err := m.opts.Index.List(ctx)
	if err != nil {
		return ListResult{Message: "list failed: " + err.Error(), Err: err}
	}
	return ListResult{OK: true, Records: recs, Message: fmt.Sprintf("%d schematics", len(recs))}
}

func (m *Manager) index(path string, h schematic.Header) {
	if m.opts.Index == nil {
		return
	}
	digest, err := indexdb.FileDigest(path)
	if err != nil {
		m.logger.Printf("schematic: index digest %s: %v", path, err)
	}
	if err := m.opts.Index.RecordSave(context.Background(), indexdb.RecordFromHeader(path, h, digest)); err != nil {
		m.logger.Printf("schematic: index %s: %v", path, err)
	}
}

func (m *Manager) journal(e oplog.Entry, start time.Time) {
	if m.opts.Journal == nil {
		return
	}
	e.DurationMS = m.opts.Now().Sub(start).Milliseconds()
	if err := m.opts.Journal.Append(e); err != nil {
		m.logger.Printf("schematic: journal: %v", err)
	}
}

func describe(op string, err error) string {
	var kind string
	switch {
	case errors.Is(err, schematic.ErrIO):
		kind = "i/o error"
	case errors.Is(err, schematic.ErrRegionTooLarge):
		kind = "region too large"
	case errors.Is(err, schematic.ErrFormat):
		kind = "malformed schematic"
	default:
		kind = "failed"
	}
	return fmt.Sprintf("%s: %s: %v", op, kind, err)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
