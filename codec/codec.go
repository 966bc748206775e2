package codec

import (
	"io"
	"strconv"

	"github.com/wippyai/amf/codec/internal/wire"
	"github.com/wippyai/amf/errors"
)

// MaxDepth bounds the nesting of arrays and objects on both encode and
// decode.
const MaxDepth = 256

// unknownLength is written in place of a body length and accepted on read.
const unknownLength = 0xFFFFFFFF

// Codec converts whole messages to and from bytes. The zero value is
// ready to use.
type Codec struct{}

// Default is the codec used when callers do not supply one.
var Default = Codec{}

// Marshal encodes msg as an AMF packet.
func (Codec) Marshal(msg *Message) ([]byte, error) {
	return marshalMessage(msg)
}

// Unmarshal decodes an AMF packet.
func (Codec) Unmarshal(data []byte) (*Message, error) {
	return unmarshalMessage(data)
}

// Serializer writes messages to a stream.
type Serializer struct {
	w io.Writer
}

func NewSerializer(w io.Writer) *Serializer {
	return &Serializer{w: w}
}

// WriteMessage encodes msg completely before writing, so a failed
// encode leaves the stream untouched.
func (s *Serializer) WriteMessage(msg *Message) error {
	data, err := marshalMessage(msg)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(data); err != nil {
		return errors.Wrap(errors.PhaseIO, errors.KindInvalidInput, err, "write message")
	}
	return nil
}

// Deserializer reads one message from a stream.
type Deserializer struct {
	r io.Reader
}

func NewDeserializer(r io.Reader) *Deserializer {
	return &Deserializer{r: r}
}

// ReadMessage consumes the rest of the stream as one AMF packet.
func (d *Deserializer) ReadMessage() (*Message, error) {
	data, err := io.ReadAll(d.r)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseIO, errors.KindInvalidInput, err, "read message")
	}
	return unmarshalMessage(data)
}

// EncodeValue encodes a single value in the AMF0 or AMF3 format
// selected by version, without a packet envelope. AMF3 output is bare:
// it carries no avmplus marker.
func EncodeValue(v any, version uint16) ([]byte, error) {
	w := wire.NewWriter(64)
	var err error
	if version >= AMF3 {
		err = newAMF3Encoder(w).writeValue(v)
	} else {
		err = newAMF0Encoder(w).writeValue(v)
	}
	if err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// DecodeValue decodes a single AMF value produced by EncodeValue.
func DecodeValue(data []byte, version uint16) (any, error) {
	r := wire.NewReader(data)
	var (
		v   any
		err error
	)
	if version >= AMF3 {
		v, err = newAMF3Decoder(r).readValue()
	} else {
		v, err = newAMF0Decoder(r).readValue()
	}
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, nil,
			strconv.Itoa(r.Remaining())+" trailing bytes after value")
	}
	return v, nil
}

// writeValue writes a header or body value. AMF3 values are introduced by
// the AMF0 avmplus marker so that readers can always start in AMF0.
func writeValue(w *wire.Writer, v any, amf3 bool) error {
	if amf3 {
		w.WriteU8(amf0AVMPlus)
		return newAMF3Encoder(w).writeValue(v)
	}
	return newAMF0Encoder(w).writeValue(v)
}

func marshalMessage(msg *Message) ([]byte, error) {
	if msg == nil {
		return nil, errors.NilPointer(errors.PhaseEncode, nil, "*codec.Message")
	}
	if len(msg.Headers) > 0xFFFF || len(msg.Bodies) > 0xFFFF {
		return nil, errors.Overflow(errors.PhaseEncode, nil, len(msg.Headers)+len(msg.Bodies), "65535 headers or bodies")
	}

	w := wire.NewWriter(256)
	value := getWriter()
	defer putWriter(value)
	amf3 := msg.usesAMF3()

	w.WriteU16(msg.Version)

	w.WriteU16(uint16(len(msg.Headers)))
	for i, h := range msg.Headers {
		path := "header[" + strconv.Itoa(i) + "]"
		if h == nil {
			return nil, errors.NilPointer(errors.PhaseEncode, []string{path}, "*codec.Header")
		}
		if err := checkUTF(h.Name, path); err != nil {
			return nil, err
		}
		value.Reset()
		if err := writeValue(value, h.Content, amf3); err != nil {
			return nil, errors.WithPath(errors.PhaseEncode, err, path)
		}
		w.WriteUTF(h.Name)
		if h.MustUnderstand {
			w.WriteU8(1)
		} else {
			w.WriteU8(0)
		}
		w.WriteU32(uint32(value.Len()))
		w.WriteRaw(value.Bytes())
	}

	w.WriteU16(uint16(len(msg.Bodies)))
	for i, b := range msg.Bodies {
		path := "body[" + strconv.Itoa(i) + "]"
		if b == nil {
			return nil, errors.NilPointer(errors.PhaseEncode, []string{path}, "*codec.Body")
		}
		target, response := orNull(b.Target), orNull(b.Response)
		if err := checkUTF(target, path); err != nil {
			return nil, err
		}
		if err := checkUTF(response, path); err != nil {
			return nil, err
		}
		value.Reset()
		if err := writeValue(value, b.Content, amf3); err != nil {
			return nil, errors.WithPath(errors.PhaseEncode, err, path)
		}
		w.WriteUTF(target)
		w.WriteUTF(response)
		w.WriteU32(uint32(value.Len()))
		w.WriteRaw(value.Bytes())
	}

	return w.Bytes(), nil
}

func unmarshalMessage(data []byte) (*Message, error) {
	r := wire.NewReader(data)

	version, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	msg := NewMessage(version)

	headerCount, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(headerCount); i++ {
		path := "header[" + strconv.Itoa(i) + "]"
		name, err := r.ReadUTF()
		if err != nil {
			return nil, errors.WithPath(errors.PhaseDecode, err, path)
		}
		must, err := r.ReadU8()
		if err != nil {
			return nil, errors.WithPath(errors.PhaseDecode, err, path)
		}
		content, err := readEnvelopeValue(r)
		if err != nil {
			return nil, errors.WithPath(errors.PhaseDecode, err, path)
		}
		msg.AddHeader(&Header{Name: name, MustUnderstand: must != 0, Content: content})
	}

	bodyCount, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(bodyCount); i++ {
		path := "body[" + strconv.Itoa(i) + "]"
		target, err := r.ReadUTF()
		if err != nil {
			return nil, errors.WithPath(errors.PhaseDecode, err, path)
		}
		response, err := r.ReadUTF()
		if err != nil {
			return nil, errors.WithPath(errors.PhaseDecode, err, path)
		}
		content, err := readEnvelopeValue(r)
		if err != nil {
			return nil, errors.WithPath(errors.PhaseDecode, err, path)
		}
		msg.AddBody(&Body{Target: fromNull(target), Response: fromNull(response), Content: content})
	}

	if r.Remaining() != 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, nil,
			strconv.Itoa(r.Remaining())+" trailing bytes after last body")
	}
	return msg, nil
}

// readEnvelopeValue reads a u32 length followed by one value. A known
// length must match the bytes the value consumed.
func readEnvelopeValue(r *wire.Reader) (any, error) {
	length, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if length != unknownLength && uint64(length) > uint64(r.Remaining()) {
		return nil, errors.Truncated(r.Offset(), int(length)-r.Remaining())
	}
	start := r.Offset()
	v, err := newAMF0Decoder(r).readValue()
	if err != nil {
		return nil, err
	}
	if length != unknownLength && r.Offset()-start != int(length) {
		return nil, errors.InvalidData(errors.PhaseDecode, nil,
			"declared length "+strconv.FormatUint(uint64(length), 10)+" but value used "+strconv.Itoa(r.Offset()-start)+" bytes")
	}
	return v, nil
}

func checkUTF(s, path string) error {
	if len(s) > wire.MaxUTF {
		return errors.Overflow(errors.PhaseEncode, []string{path}, len(s), "AMF0 UTF length")
	}
	return nil
}

func orNull(s string) string {
	if s == "" {
		return nullTarget
	}
	return s
}

func fromNull(s string) string {
	if s == nullTarget {
		return ""
	}
	return s
}
