// Package tag holds the opaque key/value payloads attached to block entities
// and entities. Values use the Go types the nbt codec produces: int8, int16,
// int32, int64, float32, float64, string, []byte, []int32, []int64, []any and
// nested Compound or map[string]any.
package tag

import (
	"github.com/Tnze/go-mc/nbt"
	"github.com/cockroachdb/errors"
)

// Compound is treated as immutable: every method returns a new value.
type Compound map[string]any

// Clone copies c deeply.
func (c Compound) Clone() Compound {
	if c == nil {
		return Compound{}
	}
	out := make(Compound, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

// Without returns a copy of c minus keys.
func (c Compound) Without(keys ...string) Compound {
	out := c.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// With returns a copy of c with key set to v.
func (c Compound) With(key string, v any) Compound {
	out := c.Clone()
	out[key] = v
	return out
}

func (c Compound) String(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

func (c Compound) Int(key string) (int64, bool) {
	switch v := c[key].(type) {
	case int8:
		return int64(v), true
	case uint8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Compound:
		return t.Clone()
	case map[string]any:
		return Compound(t).Clone()
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []byte:
		return append([]byte(nil), t...)
	case []int32:
		return append([]int32(nil), t...)
	case []int64:
		return append([]int64(nil), t...)
	case []float64:
		return append([]float64(nil), t...)
	}
	return v
}

// Plain converts c into nested map[string]any values for the nbt encoder.
func (c Compound) Plain() map[string]any {
	out := make(map[string]any, len(c))
	for k, v := range c {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch t := v.(type) {
	case Compound:
		return t.Plain()
	case map[string]any:
		return Compound(t).Plain()
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = plainValue(t[i])
		}
		return out
	}
	return v
}

// FromRaw decodes one NBT compound payload.
func FromRaw(raw nbt.RawMessage) (Compound, error) {
	if raw.Type == 0 && len(raw.Data) == 0 {
		return Compound{}, nil
	}
	if raw.Type != nbt.TagCompound {
		return nil, errors.Newf("data tag type %d is not a compound", raw.Type)
	}
	var m map[string]any
	if err := raw.Unmarshal(&m); err != nil {
		return nil, errors.Wrap(err, "decode data compound")
	}
	return Compound(m), nil
}
