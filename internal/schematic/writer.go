package schematic

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Tnze/go-mc/nbt"
	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"

	"voxelcraft.ai/schematic/internal/world"
)

const (
	// FileExt is appended by NextFreePath.
	FileExt = ".schem"
	// DefaultDataVersion is the engine build tag written when none is
	// configured (1.20.4).
	DefaultDataVersion int32 = 3700

	maxCollisionSuffix = 10000
)

type WriterConfig struct {
	DataVersion int32
	// CompressionLevel is passed to gzip as is, so 0 is gzip.NoCompression.
	// Use gzip.DefaultCompression (-1) for the library default.
	CompressionLevel int
	// Now stamps Metadata.Date when the caller leaves it zero.
	Now func() time.Time
}

type Writer struct {
	cfg WriterConfig
}

func NewWriter(cfg WriterConfig) *Writer {
	if cfg.DataVersion == 0 {
		cfg.DataVersion = DefaultDataVersion
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Writer{cfg: cfg}
}

// Capture extracts the box spanned by corners a and b (in any order) into a
// new document.
func (w *Writer) Capture(src world.World, a, b world.Vec3i, meta Metadata) (*Document, error) {
	origin, size := Bounds(a, b)
	r, err := Extract(src, origin, size)
	if err != nil {
		return nil, err
	}
	if meta.Date.IsZero() {
		meta.Date = w.cfg.Now().UTC().Truncate(time.Millisecond)
	}
	db := NewDocumentBuilder(w.cfg.DataVersion, size).
		Metadata(meta).
		Palette(r.Palette.Keys()).
		Indices(r.Indices)
	for _, be := range r.BlockEntities {
		db.AddBlockEntity(be)
	}
	for _, e := range r.Entities {
		db.AddEntity(e)
	}
	return db.Build()
}

// Encode writes doc as a gzip-compressed NBT stream.
func (w *Writer) Encode(out io.Writer, doc *Document) error {
	gz, err := gzip.NewWriterLevel(out, w.cfg.CompressionLevel)
	if err != nil {
		return errors.Wrap(err, "gzip writer")
	}
	bw := bufio.NewWriterSize(gz, 64*1024)
	if err := nbt.NewEncoder(bw).Encode(toFile(doc), ""); err != nil {
		return errors.Wrap(err, "nbt encode")
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "flush")
	}
	return errors.Wrap(gz.Close(), "gzip close")
}

// WriteFile encodes doc to path, creating parent directories. A failed
// write leaves no file behind.
func (w *Writer) WriteFile(path string, doc *Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return markIO(err, "mkdir", filepath.Dir(path))
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return markIO(err, "create", path)
	}
	tmpName := tmp.Name()
	if err := w.Encode(tmp, doc); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return markIO(err, "write", path)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return markIO(err, "close", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return markIO(err, "rename", path)
	}
	return nil
}

// NextFreePath returns dir/<name>.schem. Unless overwrite is set, an
// existing file bumps the name to <name>_1.schem, <name>_2.schem and so on.
func NextFreePath(dir, name string, overwrite bool) (string, error) {
	base := SanitizeName(name)
	path := filepath.Join(dir, base+FileExt)
	if overwrite {
		return path, nil
	}
	for i := 0; i < maxCollisionSuffix; i++ {
		if i > 0 {
			path = filepath.Join(dir, base+"_"+strconv.Itoa(i)+FileExt)
		}
		_, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", markIO(err, "stat", path)
		}
	}
	return "", errors.Mark(errors.Newf("no free name for %q in %s", base, dir), ErrIO)
}

// SanitizeName reduces name to a safe file stem: a trailing .schem is
// dropped, path separators and other unsafe runes become '_', and an empty
// result becomes "schematic".
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, FileExt)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "schematic"
	}
	return out
}
