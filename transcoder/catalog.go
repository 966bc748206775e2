package transcoder

import (
	"reflect"
	"strings"
	"sync"

	"github.com/wippyai/amf/errors"
)

// TagKey is the struct tag that marks a field for transcoding.
const TagKey = "amf"

// ClassNamer lets a type choose its exposed name without a WithName option.
type ClassNamer interface {
	AMFClassName() string
}

var classNamerType = reflect.TypeOf((*ClassNamer)(nil)).Elem()

// TypeMetadata is what the catalog knows about a Go type. Tagged is false
// for types that were never declared.
type TypeMetadata struct {
	Name   string
	Tagged bool
}

// MemberMetadata is the amf tag of a struct field.
type MemberMetadata struct {
	Name   string
	Tagged bool
}

// Catalog holds the declared types and their member tables. Member tables
// are computed once at registration; encoding and decoding only index them.
type Catalog struct {
	byType map[reflect.Type]*typeInfo
	order  []*typeInfo
	mu     sync.RWMutex
}

type typeInfo struct {
	goType  reflect.Type
	name    string
	members []memberInfo
}

type memberInfo struct {
	typ   reflect.Type
	name  string
	field string
	index []int
}

type registerConfig struct {
	name string
}

// RegisterOption adjusts a single registration.
type RegisterOption func(*registerConfig)

// WithName sets the exposed type name.
func WithName(name string) RegisterOption {
	return func(c *registerConfig) { c.name = name }
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{byType: make(map[reflect.Type]*typeInfo)}
}

// Register declares the struct type of sample (or the struct it points to).
// Registering a type again under the same name is a no-op; under a
// different name it is a registry conflict.
func (c *Catalog) Register(sample any, opts ...RegisterOption) error {
	if sample == nil {
		return errors.NilPointer(errors.PhaseRegister, nil, "sample")
	}
	return c.RegisterType(reflect.TypeOf(sample), opts...)
}

// Declare registers T.
func Declare[T any](c *Catalog, opts ...RegisterOption) error {
	return c.RegisterType(reflect.TypeOf((*T)(nil)).Elem(), opts...)
}

// RegisterType declares the struct type t, or the struct it points to.
func (c *Catalog) RegisterType(t reflect.Type, opts ...RegisterOption) error {
	if t == nil {
		return errors.NilPointer(errors.PhaseRegister, nil, "reflect.Type")
	}
	t = deref(t)
	if t.Kind() != reflect.Struct {
		return errors.New(errors.PhaseRegister, errors.KindUnsupported).
			GoType(t.String()).
			Detail("only struct types can be declared").
			Build()
	}

	cfg := registerConfig{name: defaultTypeName(t)}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.name == "" {
		return errors.InvalidInput(errors.PhaseRegister, "exposed type name must not be empty")
	}

	members := walkMembers(t, nil, nil)
	seen := make(map[string]string, len(members))
	for _, m := range members {
		if prev, dup := seen[m.name]; dup {
			return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
				GoType(t.String()).
				Path(m.name).
				Detail("exposed member name used by both %s and %s", prev, m.field).
				Build()
		}
		seen[m.name] = m.field
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.byType[t]; ok {
		if existing.name == cfg.name {
			return nil
		}
		return errors.New(errors.PhaseRegister, errors.KindRegistryConflict).
			GoType(t.String()).
			AMFType(existing.name).
			Detail("already declared, cannot redeclare as %q", cfg.name).
			Build()
	}
	info := &typeInfo{goType: t, name: cfg.name, members: members}
	c.byType[t] = info
	c.order = append(c.order, info)
	return nil
}

// ReadType reports the exposed name of t when it, or the type it points
// to, is declared.
func (c *Catalog) ReadType(t reflect.Type) TypeMetadata {
	if info, ok := c.lookup(t); ok {
		return TypeMetadata{Name: info.name, Tagged: true}
	}
	return TypeMetadata{}
}

// ReadMember parses the amf tag of f. Unexported fields and fields tagged
// "-" are not tagged; an empty tag value keeps the Go field name.
func ReadMember(f reflect.StructField) MemberMetadata {
	if !f.IsExported() {
		return MemberMetadata{}
	}
	tag, ok := f.Tag.Lookup(TagKey)
	if !ok {
		return MemberMetadata{}
	}
	name, _, _ := strings.Cut(tag, ",")
	switch name {
	case "-":
		return MemberMetadata{}
	case "":
		return MemberMetadata{Name: f.Name, Tagged: true}
	}
	return MemberMetadata{Name: name, Tagged: true}
}

// Len counts declared types.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Names returns exposed names in registration order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.order))
	for i, info := range c.order {
		names[i] = info.name
	}
	return names
}

func (c *Catalog) lookup(t reflect.Type) (*typeInfo, bool) {
	if t == nil {
		return nil, false
	}
	t = deref(t)
	c.mu.RLock()
	info, ok := c.byType[t]
	c.mu.RUnlock()
	return info, ok
}

// match scans declarations in registration order; the first exposed-name
// match wins.
func (c *Catalog) match(name string) (*typeInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, info := range c.order {
		if info.name == name {
			return info, true
		}
	}
	return nil, false
}

// walkMembers lists tagged fields in declaration order. Untagged embedded
// structs are walked in place so their promoted fields keep their position.
func walkMembers(t reflect.Type, index []int, out []memberInfo) []memberInfo {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		idx := append(append([]int{}, index...), i)

		meta := ReadMember(f)
		if !meta.Tagged {
			if _, has := f.Tag.Lookup(TagKey); !has && f.Anonymous && f.Type.Kind() == reflect.Struct {
				out = walkMembers(f.Type, idx, out)
			}
			continue
		}
		out = append(out, memberInfo{
			typ:   f.Type,
			name:  meta.Name,
			field: f.Name,
			index: idx,
		})
	}
	return out
}

func defaultTypeName(t reflect.Type) string {
	if t.Implements(classNamerType) {
		if name := reflect.Zero(t).Interface().(ClassNamer).AMFClassName(); name != "" {
			return name
		}
	}
	if reflect.PointerTo(t).Implements(classNamerType) {
		if name := reflect.New(t).Interface().(ClassNamer).AMFClassName(); name != "" {
			return name
		}
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
