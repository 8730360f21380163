package schematic

import (
	"bufio"
	"io"
	"os"

	"github.com/Tnze/go-mc/nbt"
	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
)

const (
	DefaultMaxDocumentBytes int64 = 256 << 20
	DefaultMaxCellCount           = 64 * 64 * 64 * 8
)

// Limits bound what a single decode may materialise.
type Limits struct {
	// MaxDocumentBytes caps the decompressed stream.
	MaxDocumentBytes int64
	// MaxCellCount caps Width*Height*Length; 0 means no cap at decode time.
	MaxCellCount int
}

func DefaultLimits() Limits {
	return Limits{MaxDocumentBytes: DefaultMaxDocumentBytes, MaxCellCount: DefaultMaxCellCount}
}

// Decode parses a gzip-compressed document from r. Structural problems are
// ErrFormat; a declared volume above the cell cap is ErrRegionTooLarge.
func Decode(r io.Reader, limits Limits) (*Document, error) {
	var root inRoot
	if err := decodeTree(r, limits, &root); err != nil {
		return nil, err
	}
	return fromFile(root.Schematic, limits.MaxCellCount)
}

// ReadFile opens and decodes path.
func ReadFile(path string, limits Limits) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, markIO(err, "open", path)
	}
	defer f.Close()
	doc, err := Decode(f, limits)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return doc, nil
}

// ReadHeader decodes the summary fields of path. Block data is skipped by
// the decoder, not expanded.
func ReadHeader(path string, limits Limits) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, markIO(err, "open", path)
	}
	defer f.Close()
	var root headerRoot
	if err := decodeTree(f, limits, &root); err != nil {
		return Header{}, errors.Wrapf(err, "read header %s", path)
	}
	h, err := root.Schematic.toHeader()
	if err != nil {
		return Header{}, errors.Wrapf(err, "read header %s", path)
	}
	return h, nil
}

func decodeTree(r io.Reader, limits Limits, v any) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return markFormat(err, "gzip header")
	}
	defer gz.Close()

	var src io.Reader = gz
	if limits.MaxDocumentBytes > 0 {
		src = &limitReader{r: gz, remaining: limits.MaxDocumentBytes, limit: limits.MaxDocumentBytes}
	}
	name, err := nbt.NewDecoder(bufio.NewReaderSize(src, 64*1024)).Decode(v)
	if err != nil {
		if errors.Is(err, ErrRegionTooLarge) {
			return err
		}
		return markFormat(err, "nbt decode")
	}
	if name != "" {
		return formatErrorf("root tag named %q", name)
	}
	return nil
}

// limitReader fails once more than limit bytes have been read.
type limitReader struct {
	r         io.Reader
	remaining int64
	limit     int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		var one [1]byte
		if n, _ := l.r.Read(one[:]); n > 0 {
			return 0, errors.Wrapf(ErrRegionTooLarge, "document exceeds %d bytes", l.limit)
		}
		return 0, io.EOF
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}
