package codec

import (
	"sort"
	"strings"
	"time"
)

// Undefined is the AMF undefined value. It is distinct from nil, which
// encodes as null.
type Undefined struct{}

// XMLDocument carries the source text of an AMF XML value.
type XMLDocument string

// Member is one named value of an Object or ECMAArray.
type Member struct {
	Value any
	Name  string
}

// Object is a typed or anonymous AMF object.
//
// Members are the sealed members, in trait order. Dynamic holds members
// added outside the trait (AMF3 dynamic objects). An empty ClassName is
// an anonymous object.
type Object struct {
	ClassName string
	Members   []Member
	Dynamic   []Member
}

// NewObject creates an object of the given class with room for n members.
func NewObject(className string, n int) *Object {
	return &Object{
		ClassName: className,
		Members:   make([]Member, 0, n),
	}
}

// Set appends a sealed member.
func (o *Object) Set(name string, value any) {
	o.Members = append(o.Members, Member{Name: name, Value: value})
}

// Get returns the named member, searching sealed members first.
func (o *Object) Get(name string) (any, bool) {
	for _, m := range o.Members {
		if m.Name == name {
			return m.Value, true
		}
	}
	for _, m := range o.Dynamic {
		if m.Name == name {
			return m.Value, true
		}
	}
	return nil, false
}

// Len returns the number of sealed and dynamic members.
func (o *Object) Len() int {
	return len(o.Members) + len(o.Dynamic)
}

// IsAnonymous reports whether the object carries no class name.
func (o *Object) IsAnonymous() bool {
	return o.ClassName == ""
}

// Names returns member names in encoding order.
func (o *Object) Names() []string {
	names := make([]string, 0, o.Len())
	for _, m := range o.Members {
		names = append(names, m.Name)
	}
	for _, m := range o.Dynamic {
		names = append(names, m.Name)
	}
	return names
}

func (o *Object) String() string {
	name := o.ClassName
	if name == "" {
		name = "Object"
	}
	return name + "{" + strings.Join(o.Names(), ",") + "}"
}

// ECMAArray is an associative array: AMF0 ECMA arrays and AMF3 arrays
// with a non-empty associative part.
type ECMAArray struct {
	Dense   []any
	Entries []Member
}

// Get returns the entry stored under key.
func (a *ECMAArray) Get(key string) (any, bool) {
	for _, e := range a.Entries {
		if e.Name == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Map flattens the associative part into a map.
func (a *ECMAArray) Map() map[string]any {
	m := make(map[string]any, len(a.Entries))
	for _, e := range a.Entries {
		m[e.Name] = e.Value
	}
	return m
}

// entriesOf returns the members of a string-keyed map in key order so
// that encoding is deterministic.
func entriesOf(m map[string]any) []Member {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]Member, len(keys))
	for i, k := range keys {
		entries[i] = Member{Name: k, Value: m[k]}
	}
	return entries
}

// TypeName returns the AMF type name of a decoded value, using the class
// name for typed objects.
func TypeName(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case Undefined:
		return "undefined"
	case bool:
		return "boolean"
	case int32:
		return "integer"
	case float64:
		return "number"
	case string:
		return "string"
	case XMLDocument:
		return "xml"
	case []byte:
		return "bytearray"
	case []any:
		return "array"
	case *ECMAArray:
		return "ecma-array"
	case time.Time:
		return "date"
	case *Object:
		if t.IsAnonymous() {
			return "object"
		}
		return t.ClassName
	default:
		return "unknown"
	}
}
