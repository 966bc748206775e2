package amf

import (
	"github.com/wippyai/amf/codec"
)

// Codec turns messages into AMF packets and back. The transcoder accepts
// any implementation; codec.Default is the built-in one.
type Codec interface {
	Marshal(msg *codec.Message) ([]byte, error)
	Unmarshal(data []byte) (*codec.Message, error)
}

var _ Codec = codec.Default
