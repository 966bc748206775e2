package types

type Kind uint8

const (
	KindAny Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindTime
	KindBytes
	KindShape
	KindList
	KindMap
)

var kindNames = [...]string{
	KindAny:    "any",
	KindBool:   "bool",
	KindInt:    "int",
	KindUint:   "uint",
	KindFloat:  "float",
	KindString: "string",
	KindTime:   "time",
	KindBytes:  "bytes",
	KindShape:  "shape",
	KindList:   "list",
	KindMap:    "map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsPrimitive reports whether values of the kind are AMF leaves.
func (k Kind) IsPrimitive() bool {
	return k >= KindBool && k <= KindBytes
}

// IsContainer reports whether the kind carries an element description.
func (k Kind) IsContainer() bool {
	return k == KindList || k == KindMap
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return KindAny, false
}
