package wire

import (
	"encoding/binary"
	"math"
)

// U29 range limits for AMF3 integers.
const (
	MaxU29    = 0x1FFFFFFF
	MinInt29  = -1 << 28
	MaxInt29  = 1<<28 - 1
	MaxUTF    = math.MaxUint16
	MaxLength = math.MaxUint32
)

// Writer appends encoded primitives to a growable buffer.
type Writer struct {
	buf []byte
}

func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) Cap() int { return cap(w.buf) }

func (w *Writer) Reset() { w.buf = w.buf[:0] }

func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteU16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteU32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteF64(v float64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, math.Float64bits(v))
}

func (w *Writer) WriteRaw(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteUTF writes a u16 length-prefixed string. Callers check MaxUTF.
func (w *Writer) WriteUTF(s string) {
	w.WriteU16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteLongUTF writes a u32 length-prefixed string.
func (w *Writer) WriteLongUTF(s string) {
	w.WriteU32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteU29 writes the AMF3 variable-length 29-bit unsigned integer.
// Only the low 29 bits of v are kept.
func (w *Writer) WriteU29(v uint32) {
	v &= MaxU29
	switch {
	case v < 0x80:
		w.buf = append(w.buf, byte(v))
	case v < 0x4000:
		w.buf = append(w.buf, byte(v>>7|0x80), byte(v&0x7F))
	case v < 0x200000:
		w.buf = append(w.buf, byte(v>>14|0x80), byte(v>>7&0x7F|0x80), byte(v&0x7F))
	default:
		w.buf = append(w.buf, byte(v>>22|0x80), byte(v>>15&0x7F|0x80), byte(v>>8&0x7F|0x80), byte(v))
	}
}
