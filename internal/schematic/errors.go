package schematic

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"voxelcraft.ai/schematic/internal/blockstate"
)

var (
	// ErrFormat marks a malformed document or a missing required field.
	ErrFormat = errors.New("malformed schematic")
	// ErrUnknownType and ErrUnknownProperty are shared with the block-state
	// codec so callers can match either layer.
	ErrUnknownType     = blockstate.ErrUnknownType
	ErrUnknownProperty = blockstate.ErrUnknownProperty
	// ErrMalformedState is a palette key that does not parse; errors
	// carrying it also match ErrFormat.
	ErrMalformedState  = blockstate.ErrMalformed
	ErrRegionTooLarge  = errors.New("region too large")
	ErrIO              = errors.New("schematic i/o")
	ErrPartialRecord   = errors.New("record skipped")
)

type RecordKind string

const (
	KindPalette     RecordKind = "palette"
	KindBlockEntity RecordKind = "block_entity"
	KindEntity      RecordKind = "entity"
)

// RecordError is one isolated failure during decode or paste. The batch it
// belongs to continues.
type RecordError struct {
	Kind  RecordKind
	Index int
	ID    string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s #%d (%s): %v", e.Kind, e.Index, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

func (e *RecordError) Is(target error) bool { return target == ErrPartialRecord }

func formatErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrFormat, format, args...)
}

func markFormat(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrFormat)
}

func markIO(err error, op, path string) error {
	return errors.Mark(errors.Wrapf(err, "%s %s", op, path), ErrIO)
}

func regionTooLarge(volume, limit int) error {
	return errors.Wrapf(ErrRegionTooLarge, "%d cells exceeds limit of %d", volume, limit)
}

// decodeState resolves a palette key. A key that does not parse is a format
// error of the document, not only of the block-state codec.
func decodeState(reg *blockstate.Registry, key string) (blockstate.State, error) {
	s, err := reg.Decode(key)
	if err != nil && errors.Is(err, blockstate.ErrMalformed) {
		err = errors.Mark(err, ErrFormat)
	}
	return s, err
}
