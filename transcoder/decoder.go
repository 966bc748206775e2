package transcoder

import (
	"math"
	"reflect"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/amf"
	"github.com/wippyai/amf/codec"
	"github.com/wippyai/amf/errors"
)

// Decoder reads single-body AMF packets back into declared Go types.
type Decoder struct {
	catalog  *Catalog
	codec    amf.Codec
	log      *zap.Logger
	maxDepth int
}

// NewDecoder returns a decoder configured by opts.
func NewDecoder(opts ...Option) *Decoder {
	cfg := newConfig(opts)
	return &Decoder{
		catalog:  cfg.catalog,
		codec:    cfg.codec,
		log:      cfg.logger,
		maxDepth: cfg.maxDepth,
	}
}

// Decode decodes a packet and reconstructs its first body. The result is a
// pointer to a fresh instance of the first declared type whose exposed name
// equals the body's class name, or nil when no declared type matches.
func (d *Decoder) Decode(data []byte) (any, error) {
	msg, err := d.codec.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if len(msg.Bodies) == 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "message has no body")
	}
	body, err := msg.BodyAt(0)
	if err != nil {
		return nil, err
	}
	return d.Reconstruct(body.Content)
}

// Reconstruct maps an already decoded codec value onto its declared type.
func (d *Decoder) Reconstruct(content any) (any, error) {
	obj, ok := content.(*codec.Object)
	if !ok || obj == nil || obj.IsAnonymous() {
		d.log.Debug("decoded value is not a typed object", zap.String("amf_type", codec.TypeName(content)))
		return nil, nil
	}
	info, ok := d.catalog.match(obj.ClassName)
	if !ok {
		d.log.Debug("no declared type for class", zap.String("class", obj.ClassName))
		return nil, nil
	}
	ptr := reflect.New(info.goType)
	if err := d.fill(info, ptr.Elem(), obj, 0, nil); err != nil {
		return nil, err
	}
	return ptr.Interface(), nil
}

// Decode decodes data and returns the result as T. ok is false when no
// declared type matches or the matched type is not a T. T may be the
// declared struct, a pointer to it, or an interface it implements.
func Decode[T any](d *Decoder, data []byte) (T, bool, error) {
	var zero T
	v, err := d.Decode(data)
	if err != nil || v == nil {
		return zero, false, err
	}
	out, ok := as[T](v)
	return out, ok, nil
}

func as[T any](v any) (T, bool) {
	if out, ok := v.(T); ok {
		return out, true
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && !rv.IsNil() {
		if out, ok := rv.Elem().Interface().(T); ok {
			return out, true
		}
	}
	var zero T
	return zero, false
}

// fill copies members by exposed name. Members absent from obj keep their
// zero value.
func (d *Decoder) fill(info *typeInfo, dst reflect.Value, obj *codec.Object, depth int, path []string) error {
	if depth > d.maxDepth {
		return errors.Overflow(errors.PhaseDecode, path, depth, "max depth "+strconv.Itoa(d.maxDepth))
	}
	for _, m := range info.members {
		v, ok := obj.Get(m.name)
		if !ok {
			continue
		}
		if err := d.assign(dst.FieldByIndex(m.index), v, depth+1, appendPath(path, m.name)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) assign(dst reflect.Value, v any, depth int, path []string) error {
	if depth > d.maxDepth {
		return errors.Overflow(errors.PhaseDecode, path, depth, "max depth "+strconv.Itoa(d.maxDepth))
	}
	switch v.(type) {
	case nil, codec.Undefined:
		dst.SetZero()
		return nil
	}

	t := dst.Type()
	if info, ok := d.catalog.lookup(t); ok && t.Kind() == reflect.Struct {
		obj, ok := v.(*codec.Object)
		if !ok {
			return d.mismatch(path, t, v)
		}
		fresh := reflect.New(t).Elem()
		if err := d.fill(info, fresh, obj, depth, path); err != nil {
			return err
		}
		dst.Set(fresh)
		return nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		p := reflect.New(t.Elem())
		if err := d.assign(p.Elem(), v, depth, path); err != nil {
			return err
		}
		dst.Set(p)
		return nil

	case reflect.Interface:
		return d.assignInterface(dst, v, depth, path)

	case reflect.Bool:
		b, ok := v.(bool)
		if !ok {
			return d.mismatch(path, t, v)
		}
		dst.SetBool(b)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, ok := number(v)
		if !ok || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 || dst.OverflowInt(int64(f)) {
			return d.mismatch(path, t, v)
		}
		dst.SetInt(int64(f))
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		f, ok := number(v)
		if !ok || f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 || dst.OverflowUint(uint64(f)) {
			return d.mismatch(path, t, v)
		}
		dst.SetUint(uint64(f))
		return nil

	case reflect.Float32, reflect.Float64:
		f, ok := number(v)
		if !ok {
			return d.mismatch(path, t, v)
		}
		dst.SetFloat(f)
		return nil

	case reflect.String:
		switch s := v.(type) {
		case string:
			dst.SetString(s)
		case codec.XMLDocument:
			dst.SetString(string(s))
		default:
			return d.mismatch(path, t, v)
		}
		return nil

	case reflect.Struct:
		if tm, ok := v.(time.Time); ok && t == timeType {
			dst.Set(reflect.ValueOf(tm))
			return nil
		}
		return d.mismatch(path, t, v)

	case reflect.Slice:
		if b, ok := v.([]byte); ok && t.Elem().Kind() == reflect.Uint8 {
			out := reflect.MakeSlice(t, len(b), len(b))
			reflect.Copy(out, reflect.ValueOf(b))
			dst.Set(out)
			return nil
		}
		items, ok := denseOf(v)
		if !ok {
			return d.mismatch(path, t, v)
		}
		out := reflect.MakeSlice(t, len(items), len(items))
		for i, item := range items {
			if err := d.assign(out.Index(i), item, depth+1, appendPath(path, "["+strconv.Itoa(i)+"]")); err != nil {
				return err
			}
		}
		dst.Set(out)
		return nil

	case reflect.Array:
		items, ok := denseOf(v)
		if !ok || len(items) > t.Len() {
			return d.mismatch(path, t, v)
		}
		for i, item := range items {
			if err := d.assign(dst.Index(i), item, depth+1, appendPath(path, "["+strconv.Itoa(i)+"]")); err != nil {
				return err
			}
		}
		return nil

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return d.mismatch(path, t, v)
		}
		entries, ok := entriesOf(v)
		if !ok {
			return d.mismatch(path, t, v)
		}
		out := reflect.MakeMapWithSize(t, len(entries))
		for _, e := range entries {
			elem := reflect.New(t.Elem()).Elem()
			if err := d.assign(elem, e.Value, depth+1, appendPath(path, e.Name)); err != nil {
				return err
			}
			out.SetMapIndex(reflect.ValueOf(e.Name).Convert(t.Key()), elem)
		}
		dst.Set(out)
		return nil
	}

	return d.mismatch(path, t, v)
}

// assignInterface stores a reconstructed declared type when the value's
// class is known and fits the interface, otherwise the generic value.
func (d *Decoder) assignInterface(dst reflect.Value, v any, depth int, path []string) error {
	if obj, ok := v.(*codec.Object); ok && !obj.IsAnonymous() {
		if info, ok := d.catalog.match(obj.ClassName); ok {
			ptr := reflect.New(info.goType)
			if err := d.fill(info, ptr.Elem(), obj, depth, path); err != nil {
				return err
			}
			if ptr.Type().AssignableTo(dst.Type()) {
				dst.Set(ptr)
				return nil
			}
			if ptr.Elem().Type().AssignableTo(dst.Type()) {
				dst.Set(ptr.Elem())
				return nil
			}
		}
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(dst.Type()) {
		return d.mismatch(path, dst.Type(), v)
	}
	dst.Set(rv)
	return nil
}

func (d *Decoder) mismatch(path []string, t reflect.Type, v any) error {
	return errors.TypeMismatch(errors.PhaseDecode, path, t.String(), codec.TypeName(v))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int32:
		return float64(n), true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func denseOf(v any) ([]any, bool) {
	switch a := v.(type) {
	case []any:
		return a, true
	case *codec.ECMAArray:
		if len(a.Entries) == 0 {
			return a.Dense, true
		}
	}
	return nil, false
}

func entriesOf(v any) ([]codec.Member, bool) {
	switch a := v.(type) {
	case *codec.ECMAArray:
		out := make([]codec.Member, 0, len(a.Dense)+len(a.Entries))
		for i, item := range a.Dense {
			out = append(out, codec.Member{Name: strconv.Itoa(i), Value: item})
		}
		return append(out, a.Entries...), true
	case *codec.Object:
		out := make([]codec.Member, 0, a.Len())
		out = append(out, a.Members...)
		return append(out, a.Dynamic...), true
	case []any:
		if len(a) == 0 {
			return nil, true
		}
	}
	return nil, false
}
