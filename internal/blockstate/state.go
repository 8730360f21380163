package blockstate

import (
	"strings"
)

// Property is one name=value pair of a block state.
type Property struct {
	Name  string
	Value string
}

// State is a block type id plus a value for every property the type
// declares, kept in declared order. The zero State is invalid.
type State struct {
	id    string
	props []Property
}

func (s State) ID() string { return s.id }

func (s State) IsZero() bool { return s.id == "" }

// Properties returns a copy of the property list in declared order.
func (s State) Properties() []Property {
	if len(s.props) == 0 {
		return nil
	}
	out := make([]Property, len(s.props))
	copy(out, s.props)
	return out
}

func (s State) Value(name string) (string, bool) {
	for _, p := range s.props {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

func (s State) Equal(o State) bool {
	if s.id != o.id || len(s.props) != len(o.props) {
		return false
	}
	for i := range s.props {
		if s.props[i] != o.props[i] {
			return false
		}
	}
	return true
}

func (s State) String() string { return Encode(s) }

// with returns a copy of s with property i set to v.
func (s State) with(i int, v string) State {
	props := make([]Property, len(s.props))
	copy(props, s.props)
	props[i].Value = v
	return State{id: s.id, props: props}
}

// Encode renders s as "<id>" or "<id>[k1=v1,k2=v2]".
func Encode(s State) string {
	if len(s.props) == 0 {
		return s.id
	}
	var b strings.Builder
	b.Grow(len(s.id) + 2 + 12*len(s.props))
	b.WriteString(s.id)
	b.WriteByte('[')
	for i, p := range s.props {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.Name)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}
	b.WriteByte(']')
	return b.String()
}
