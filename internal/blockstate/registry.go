package blockstate

import (
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"voxelcraft.ai/schematic/internal/catalogs"
)

const DefaultNamespace = "minecraft"

var (
	ErrUnknownType     = errors.New("unknown block type")
	ErrUnknownProperty = errors.New("unknown block property")
	ErrMalformed       = errors.New("malformed block state")
)

type propertySpec struct {
	def      catalogs.PropertyDef
	fallback string
}

func (p propertySpec) parse(raw string) (string, bool) {
	switch p.def.Kind {
	case "bool":
		if raw == "true" || raw == "false" {
			return raw, true
		}
	case "int":
		n, err := strconv.Atoi(raw)
		if err == nil && n >= p.def.Min && n <= p.def.Max {
			return strconv.Itoa(n), true
		}
	case "enum":
		for _, v := range p.def.Values {
			if v == raw {
				return v, true
			}
		}
	}
	return "", false
}

// Type is a resolved block definition.
type Type struct {
	def   catalogs.BlockDef
	props []propertySpec
	index map[string]int
	deflt State
}

func (t *Type) ID() string          { return t.def.ID }
func (t *Type) Air() bool           { return t.def.Air }
func (t *Type) BlockEntity() string { return t.def.BlockEntity }
func (t *Type) Default() State      { return t.deflt }

// With returns s with property name set to value. Both must be valid for t.
func (t *Type) With(s State, name, value string) (State, error) {
	i, ok := t.index[name]
	if !ok {
		return s, errors.Wrapf(ErrUnknownProperty, "%s has no property %q", t.def.ID, name)
	}
	v, ok := t.props[i].parse(value)
	if !ok {
		return s, errors.Wrapf(ErrUnknownProperty, "%s: bad value %q for %s", t.def.ID, value, name)
	}
	return s.with(i, v), nil
}

// Registry resolves block-state strings against a block catalog.
type Registry struct {
	types  map[string]*Type
	air    State
	logger *log.Logger
}

func NewRegistry(cat catalogs.BlockCatalog, logger *log.Logger) (*Registry, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	r := &Registry{types: make(map[string]*Type, len(cat.Defs)), logger: logger}
	for _, d := range cat.Defs {
		t, err := newType(d)
		if err != nil {
			return nil, err
		}
		r.types[d.ID] = t
		if d.Air && r.air.IsZero() {
			r.air = t.deflt
		}
	}
	if r.air.IsZero() {
		return nil, errors.New("block registry: catalog has no air block")
	}
	return r, nil
}

func newType(d catalogs.BlockDef) (*Type, error) {
	t := &Type{def: d, index: make(map[string]int, len(d.Properties))}
	props := make([]Property, 0, len(d.Properties))
	for i, pd := range d.Properties {
		spec := propertySpec{def: pd}
		switch pd.Kind {
		case "bool":
			spec.fallback = "false"
		case "int":
			if pd.Min > pd.Max {
				return nil, errors.Newf("block %s: property %s: min %d > max %d", d.ID, pd.Name, pd.Min, pd.Max)
			}
			spec.fallback = strconv.Itoa(pd.Min)
		case "enum":
			if len(pd.Values) == 0 {
				return nil, errors.Newf("block %s: property %s: enum without values", d.ID, pd.Name)
			}
			spec.fallback = pd.Values[0]
		default:
			return nil, errors.Newf("block %s: property %s: unknown kind %q", d.ID, pd.Name, pd.Kind)
		}
		if pd.Default != "" {
			v, ok := spec.parse(pd.Default)
			if !ok {
				return nil, errors.Newf("block %s: property %s: invalid default %q", d.ID, pd.Name, pd.Default)
			}
			spec.fallback = v
		}
		t.props = append(t.props, spec)
		t.index[pd.Name] = i
		props = append(props, Property{Name: pd.Name, Value: spec.fallback})
	}
	t.deflt = State{id: d.ID, props: props}
	return t, nil
}

// Air is the default state of the first air block in the catalog.
func (r *Registry) Air() State { return r.air }

func (r *Registry) IsAir(s State) bool {
	t, ok := r.types[s.id]
	return ok && t.def.Air
}

func (r *Registry) Type(id string) (*Type, bool) {
	t, ok := r.types[normalizeID(id)]
	return t, ok
}

// State builds a state strictly: every name/value pair must be valid.
func (r *Registry) State(id string, kv ...string) (State, error) {
	if len(kv)%2 != 0 {
		return State{}, errors.Newf("block state %s: odd property list", id)
	}
	t, ok := r.Type(id)
	if !ok {
		return State{}, errors.Wrapf(ErrUnknownType, "%q", id)
	}
	s := t.deflt
	for i := 0; i < len(kv); i += 2 {
		var err error
		if s, err = t.With(s, kv[i], kv[i+1]); err != nil {
			return State{}, err
		}
	}
	return s, nil
}

// MustState is State for fixtures and tests.
func (r *Registry) MustState(id string, kv ...string) State {
	s, err := r.State(id, kv...)
	if err != nil {
		panic(err)
	}
	return s
}

// Decode parses "<id>" or "<id>[k=v,...]". An unknown id or a broken
// bracket section fails; an unknown property or an unparseable value is
// logged and skipped, leaving that property at the type's default.
func (r *Registry) Decode(s string) (State, error) {
	base, section, hasSection := strings.Cut(s, "[")
	base = strings.TrimSpace(base)
	if base == "" {
		return State{}, errors.Wrapf(ErrMalformed, "%q: empty type id", s)
	}
	if hasSection {
		if !strings.HasSuffix(section, "]") {
			return State{}, errors.Wrapf(ErrMalformed, "%q: unterminated property section", s)
		}
		section = section[:len(section)-1]
	}
	t, ok := r.Type(base)
	if !ok {
		return State{}, errors.Wrapf(ErrUnknownType, "%q", base)
	}
	state := t.deflt
	if !hasSection || strings.TrimSpace(section) == "" {
		return state, nil
	}
	for _, pair := range strings.Split(section, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			r.logger.Printf("block state %q: skipping malformed property %q", s, pair)
			continue
		}
		next, err := t.With(state, strings.TrimSpace(name), strings.TrimSpace(value))
		if err != nil {
			r.logger.Printf("block state %q: skipping property: %v", s, err)
			continue
		}
		state = next
	}
	return state, nil
}

func normalizeID(id string) string {
	if id != "" && !strings.Contains(id, ":") {
		return DefaultNamespace + ":" + id
	}
	return id
}
