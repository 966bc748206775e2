package types

import (
	"strings"
)

// Shape is the exposed surface of a tagged type: the name it travels under
// and its members in emission order. Shapes are immutable once registered.
type Shape struct {
	Name    string
	Members []Member
}

// Member describes one exposed member. Shape is set when Kind is KindShape,
// or when Kind is a container whose Elem is KindShape.
type Member struct {
	Shape *Shape
	Name  string
	Kind  Kind
	Elem  Kind
}

// Index returns the position of the named member, or -1.
func (s *Shape) Index(name string) int {
	for i := range s.Members {
		if s.Members[i].Name == name {
			return i
		}
	}
	return -1
}

func (s *Shape) MemberNames() []string {
	names := make([]string, len(s.Members))
	for i := range s.Members {
		names[i] = s.Members[i].Name
	}
	return names
}

// Equal compares names and member descriptions. Nested shapes are compared
// by name only, which is the registry's identity for them.
func (s *Shape) Equal(o *Shape) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil || s.Name != o.Name || len(s.Members) != len(o.Members) {
		return false
	}
	for i := range s.Members {
		if !s.Members[i].Equal(o.Members[i]) {
			return false
		}
	}
	return true
}

func (s *Shape) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteByte('{')
	for i, m := range s.Members {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(m.Name)
		b.WriteByte(':')
		b.WriteString(m.TypeString())
	}
	b.WriteByte('}')
	return b.String()
}

func (m Member) Equal(o Member) bool {
	return m.Name == o.Name &&
		m.Kind == o.Kind &&
		m.Elem == o.Elem &&
		shapeName(m.Shape) == shapeName(o.Shape)
}

// TypeString renders the member type: "int", "pt", "[]pt", "map[string]float".
func (m Member) TypeString() string {
	switch m.Kind {
	case KindShape:
		return shapeName(m.Shape)
	case KindList:
		return "[]" + m.elemString()
	case KindMap:
		return "map[string]" + m.elemString()
	default:
		return m.Kind.String()
	}
}

func (m Member) elemString() string {
	if m.Elem == KindShape {
		return shapeName(m.Shape)
	}
	return m.Elem.String()
}

func shapeName(s *Shape) string {
	if s == nil {
		return ""
	}
	return s.Name
}
