package transcoder

import (
	"reflect"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/amf/codec"
	"github.com/wippyai/amf/errors"
	"github.com/wippyai/amf/transcoder/internal/types"
)

var timeType = reflect.TypeOf(time.Time{})

// Synthesizer turns live Go values into codec values. Declared types become
// *codec.Object built against their registered shape. Everything else passes
// through untouched, except that slices and maps holding declared types are
// rebuilt element-wise.
type Synthesizer struct {
	catalog  *Catalog
	registry *ShapeRegistry
	log      *zap.Logger
	bindings sync.Map // bindingKey -> *binding
	maxDepth int
	strict   bool
}

type bindingKey struct {
	shape  *Shape
	goType reflect.Type
}

// binding maps each member of a registered shape to the Go member it reads
// from, or -1 when the Go type has no such member.
type binding struct {
	err    error
	fields []int
}

func NewSynthesizer(opts ...Option) *Synthesizer {
	return newSynthesizer(newConfig(opts))
}

func newSynthesizer(cfg config) *Synthesizer {
	return &Synthesizer{
		catalog:  cfg.catalog,
		registry: cfg.registry,
		log:      cfg.logger,
		maxDepth: cfg.maxDepth,
		strict:   cfg.strict,
	}
}

func (s *Synthesizer) Registry() *ShapeRegistry { return s.registry }

func (s *Synthesizer) Catalog() *Catalog { return s.catalog }

// Synthesize returns the codec value for v.
func (s *Synthesizer) Synthesize(v any) (any, error) {
	return s.value(reflect.ValueOf(v), 0, nil)
}

// ShapeOf returns the shape for a declared type, synthesizing and
// registering it on first use.
func (s *Synthesizer) ShapeOf(t reflect.Type) (*Shape, error) {
	info, ok := s.catalog.lookup(t)
	if !ok {
		name := "<nil>"
		if t != nil {
			name = t.String()
		}
		return nil, errors.New(errors.PhaseSynthesize, errors.KindNotFound).
			GoType(name).
			Detail("type is not declared in the catalog").
			Build()
	}
	return s.shapeFor(info, nil)
}

func (s *Synthesizer) value(rv reflect.Value, depth int, path []string) (any, error) {
	if !rv.IsValid() {
		return nil, nil
	}
	if depth > s.maxDepth {
		return nil, errors.Overflow(errors.PhaseSynthesize, path, depth, "max depth "+strconv.Itoa(s.maxDepth))
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return s.value(rv.Elem(), depth, path)
	case reflect.Pointer:
		if !s.needsWalk(rv.Type()) {
			return rv.Interface(), nil
		}
		if rv.IsNil() {
			return nil, nil
		}
		return s.value(rv.Elem(), depth, path)
	case reflect.Struct:
		if info, ok := s.catalog.lookup(rv.Type()); ok {
			return s.object(info, rv, depth, path)
		}
	case reflect.Slice:
		if rv.IsNil() || !s.needsWalk(rv.Type().Elem()) {
			break
		}
		return s.list(rv, depth, path)
	case reflect.Array:
		if s.needsWalk(rv.Type().Elem()) {
			return s.list(rv, depth, path)
		}
	case reflect.Map:
		if rv.IsNil() || rv.Type().Key().Kind() != reflect.String || !s.needsWalk(rv.Type().Elem()) {
			break
		}
		return s.dict(rv, depth, path)
	}
	return rv.Interface(), nil
}

func (s *Synthesizer) list(rv reflect.Value, depth int, path []string) (any, error) {
	out := make([]any, rv.Len())
	for i := range out {
		v, err := s.value(rv.Index(i), depth+1, appendPath(path, "["+strconv.Itoa(i)+"]"))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *Synthesizer) dict(rv reflect.Value, depth int, path []string) (any, error) {
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key := iter.Key().String()
		v, err := s.value(iter.Value(), depth+1, appendPath(path, key))
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

// needsWalk reports whether values of t may contain declared types.
func (s *Synthesizer) needsWalk(t reflect.Type) bool {
	t = deref(t)
	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Struct:
		_, ok := s.catalog.lookup(t)
		return ok
	case reflect.Slice, reflect.Array, reflect.Map:
		return s.needsWalk(t.Elem())
	}
	return false
}

func (s *Synthesizer) object(info *typeInfo, rv reflect.Value, depth int, path []string) (any, error) {
	shape, err := s.shapeFor(info, nil)
	if err != nil {
		return nil, errors.WithPath(errors.PhaseSynthesize, err, path...)
	}
	b := s.bind(info, shape)
	if b.err != nil {
		return nil, errors.WithPath(errors.PhaseSynthesize, b.err, path...)
	}

	obj := codec.NewObject(shape.Name, len(shape.Members))
	for i, m := range shape.Members {
		idx := b.fields[i]
		if idx < 0 {
			obj.Set(m.Name, nil)
			continue
		}
		v, err := s.value(rv.FieldByIndex(info.members[idx].index), depth+1, appendPath(path, m.Name))
		if err != nil {
			return nil, err
		}
		obj.Set(m.Name, v)
	}
	return obj, nil
}

// shapeFor returns the registered shape for info, or builds one from its
// member table. Nested shapes are resolved before this type's registry slot
// is taken, so no build ever waits on another.
func (s *Synthesizer) shapeFor(info *typeInfo, building []*typeInfo) (*Shape, error) {
	if shape, ok := s.registry.Lookup(info.name); ok {
		return shape, nil
	}
	for _, b := range building {
		if b == info {
			return nil, errors.New(errors.PhaseSynthesize, errors.KindUnsupported).
				GoType(info.goType.String()).
				AMFType(info.name).
				Detail("recursive declared type").
				Build()
		}
	}
	building = append(building, info)

	members := make([]types.Member, len(info.members))
	for i, m := range info.members {
		d, err := s.describe(m.typ, building)
		if err != nil {
			return nil, errors.WithPath(errors.PhaseSynthesize, err, m.name)
		}
		d.Name = m.name
		members[i] = d
	}

	shape, created, err := s.registry.GetOrCreate(info.name, func() (*Shape, error) {
		return &Shape{Name: info.name, Members: members}, nil
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.log.Debug("synthesized shape",
			zap.String("name", shape.Name),
			zap.Stringer("go_type", info.goType),
			zap.Stringer("shape", shape))
	}
	return shape, nil
}

// describe derives the member type from the declared Go type.
func (s *Synthesizer) describe(t reflect.Type, building []*typeInfo) (types.Member, error) {
	t = deref(t)
	if info, ok := s.catalog.lookup(t); ok {
		nested, err := s.shapeFor(info, building)
		if err != nil {
			return types.Member{}, err
		}
		return types.Member{Kind: KindShape, Shape: nested}, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return types.Member{Kind: KindBool}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return types.Member{Kind: KindInt}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return types.Member{Kind: KindUint}, nil
	case reflect.Float32, reflect.Float64:
		return types.Member{Kind: KindFloat}, nil
	case reflect.String:
		return types.Member{Kind: KindString}, nil
	case reflect.Struct:
		if t == timeType {
			return types.Member{Kind: KindTime}, nil
		}
	case reflect.Slice, reflect.Array, reflect.Map:
		if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
			return types.Member{Kind: KindBytes}, nil
		}
		elem, err := s.describe(t.Elem(), building)
		if err != nil {
			return types.Member{}, err
		}
		kind := KindList
		if t.Kind() == reflect.Map {
			kind = KindMap
		}
		return types.Member{Kind: kind, Elem: elem.Kind, Shape: elem.Shape}, nil
	}
	return types.Member{Kind: KindAny}, nil
}

// bind resolves which Go member feeds each shape member. The registered
// shape wins: shape members the Go type lacks are sent as null and Go
// members the shape lacks are dropped, with a warning the first time.
func (s *Synthesizer) bind(info *typeInfo, shape *Shape) *binding {
	key := bindingKey{shape: shape, goType: info.goType}
	if v, ok := s.bindings.Load(key); ok {
		return v.(*binding)
	}

	b := &binding{fields: make([]int, len(shape.Members))}
	byName := make(map[string]int, len(info.members))
	for i, m := range info.members {
		byName[m.name] = i
	}
	var missing, extra []string
	for i, m := range shape.Members {
		idx, ok := byName[m.Name]
		if !ok {
			idx = -1
			missing = append(missing, m.Name)
		}
		delete(byName, m.Name)
		b.fields[i] = idx
	}
	for _, m := range info.members {
		if _, left := byName[m.name]; left {
			extra = append(extra, m.name)
		}
	}

	if len(missing) > 0 || len(extra) > 0 {
		if s.strict {
			b.err = errors.ShapeMismatch(info.goType.String(), shape.Name, missing, extra)
		}
	}

	v, loaded := s.bindings.LoadOrStore(key, b)
	if !loaded && b.err == nil && (len(missing) > 0 || len(extra) > 0) {
		s.log.Warn("Go type disagrees with registered shape",
			zap.String("shape", shape.Name),
			zap.Stringer("go_type", info.goType),
			zap.Strings("missing", missing),
			zap.Strings("dropped", extra))
	}
	return v.(*binding)
}

func appendPath(path []string, elem string) []string {
	return append(append(make([]string, 0, len(path)+1), path...), elem)
}
