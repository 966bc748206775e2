package codec

import (
	"strconv"

	"github.com/wippyai/amf/errors"
)

// Message versions understood by the codec.
const (
	AMF0 uint16 = 0
	AMF3 uint16 = 3

	// DefaultVersion is the message version used when none is given.
	DefaultVersion = AMF3
)

// BodyKind is the response suffix of a body addressed to a client.
type BodyKind string

const (
	OnResult      BodyKind = "/onResult"
	OnStatus      BodyKind = "/onStatus"
	OnDebugEvents BodyKind = "/onDebugEvents"
)

// nullTarget is written for an absent target or response URI.
const nullTarget = "null"

// Header is a message-level context header.
type Header struct {
	Content        any
	Name           string
	MustUnderstand bool
}

// Body is one request or response carried by a message.
type Body struct {
	Content  any
	Target   string
	Response string
}

// NewBody creates a body whose target is kind. response is the optional
// response URI; empty is written as "null".
func NewBody(kind BodyKind, response string, content any) *Body {
	return &Body{
		Target:   string(kind),
		Response: response,
		Content:  content,
	}
}

// Message is an AMF packet: a version, optional headers and bodies.
type Message struct {
	Headers []*Header
	Bodies  []*Body
	Version uint16
}

// NewMessage creates an empty message of the given version.
func NewMessage(version uint16) *Message {
	return &Message{Version: version}
}

// AddHeader appends a header.
func (m *Message) AddHeader(h *Header) {
	m.Headers = append(m.Headers, h)
}

// AddBody appends a body.
func (m *Message) AddBody(b *Body) {
	m.Bodies = append(m.Bodies, b)
}

// BodyAt returns the body at index i.
func (m *Message) BodyAt(i int) (*Body, error) {
	if i < 0 || i >= len(m.Bodies) {
		return nil, errors.New(errors.PhaseDecode, errors.KindNotFound).
			Path("body[" + strconv.Itoa(i) + "]").
			Detail("message has %d bodies", len(m.Bodies)).
			Build()
	}
	return m.Bodies[i], nil
}

// HeaderByName returns the first header with the given name.
func (m *Message) HeaderByName(name string) (*Header, bool) {
	for _, h := range m.Headers {
		if h.Name == name {
			return h, true
		}
	}
	return nil, false
}

// usesAMF3 reports whether body and header values are written as AMF3.
func (m *Message) usesAMF3() bool {
	return m.Version >= AMF3
}
