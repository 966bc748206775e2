package transcoder

import (
	"github.com/wippyai/amf/transcoder/internal/types"
)

type Kind = types.Kind

const (
	KindAny    = types.KindAny
	KindBool   = types.KindBool
	KindInt    = types.KindInt
	KindUint   = types.KindUint
	KindFloat  = types.KindFloat
	KindString = types.KindString
	KindTime   = types.KindTime
	KindBytes  = types.KindBytes
	KindShape  = types.KindShape
	KindList   = types.KindList
	KindMap    = types.KindMap
)

type Shape = types.Shape
type ShapeMember = types.Member

// ParseKind maps a kind name such as "int" or "list" back to its Kind.
func ParseKind(s string) (Kind, bool) {
	return types.ParseKind(s)
}
