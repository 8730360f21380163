package palette

import (
	"github.com/cockroachdb/errors"

	"voxelcraft.ai/schematic/internal/blockstate"
)

var ErrNotContiguous = errors.New("palette indices not contiguous")

// Builder assigns dense indices to block states in first-seen order.
type Builder struct {
	index  map[string]int
	states []blockstate.State
}

func NewBuilder() *Builder {
	return &Builder{index: map[string]int{}}
}

// Include returns the index of s, assigning the next one if s is new.
func (b *Builder) Include(s blockstate.State) int {
	key := blockstate.Encode(s)
	if i, ok := b.index[key]; ok {
		return i
	}
	i := len(b.states)
	b.index[key] = i
	b.states = append(b.states, s)
	return i
}

func (b *Builder) Len() int { return len(b.states) }

// States returns the states in index order.
func (b *Builder) States() []blockstate.State {
	out := make([]blockstate.State, len(b.states))
	copy(out, b.states)
	return out
}

// Keys returns the encoded states in index order.
func (b *Builder) Keys() []string {
	out := make([]string, len(b.states))
	for i, s := range b.states {
		out[i] = blockstate.Encode(s)
	}
	return out
}

// Table is the serialized form: encoded state -> index.
func (b *Builder) Table() map[string]int32 {
	out := make(map[string]int32, len(b.states))
	for key, i := range b.index {
		out[key] = int32(i)
	}
	return out
}

// FromTable turns a decoded table back into keys ordered by index. Indices
// must cover 0..len-1 exactly once.
func FromTable(table map[string]int32) ([]string, error) {
	keys := make([]string, len(table))
	filled := make([]bool, len(table))
	for key, idx := range table {
		if idx < 0 || int(idx) >= len(table) {
			return nil, errors.Wrapf(ErrNotContiguous, "index %d for %q outside 0..%d", idx, key, len(table)-1)
		}
		if filled[idx] {
			return nil, errors.Wrapf(ErrNotContiguous, "index %d assigned twice (%q, %q)", idx, keys[idx], key)
		}
		keys[idx] = key
		filled[idx] = true
	}
	return keys, nil
}
