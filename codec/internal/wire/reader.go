package wire

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/amf/errors"
)

// Reader consumes primitives from a byte slice, reporting truncation as
// structured decode errors.
type Reader struct {
	data []byte
	off  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

func (r *Reader) need(n int) error {
	if n < 0 || r.Remaining() < n {
		return errors.Truncated(r.off, n-r.Remaining())
	}
	return nil
}

func (r *Reader) ReadU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

// PeekU8 returns the next byte without consuming it.
func (r *Reader) PeekU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	return r.data[r.off], nil
}

func (r *Reader) ReadU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

func (r *Reader) ReadU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

func (r *Reader) ReadF64() (float64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.data[r.off:])
	r.off += 8
	return math.Float64frombits(v), nil
}

// ReadBytes returns a copy of the next n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.data[r.off:r.off+n])
	r.off += n
	return b, nil
}

func (r *Reader) readString(n int) (string, error) {
	if err := r.need(n); err != nil {
		return "", err
	}
	s := string(r.data[r.off : r.off+n])
	r.off += n
	return s, nil
}

// ReadString reads n bytes as a string.
func (r *Reader) ReadString(n int) (string, error) {
	return r.readString(n)
}

func (r *Reader) ReadUTF() (string, error) {
	n, err := r.ReadU16()
	if err != nil {
		return "", err
	}
	return r.readString(int(n))
}

func (r *Reader) ReadLongUTF() (string, error) {
	n, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	if uint64(n) > uint64(r.Remaining()) {
		return "", errors.Truncated(r.off, int(n)-r.Remaining())
	}
	return r.readString(int(n))
}

// ReadU29 reads an AMF3 variable-length 29-bit unsigned integer.
func (r *Reader) ReadU29() (uint32, error) {
	var v uint32
	for i := 0; i < 4; i++ {
		b, err := r.ReadU8()
		if err != nil {
			return 0, err
		}
		if i == 3 {
			return v<<8 | uint32(b), nil
		}
		v = v<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			break
		}
	}
	return v, nil
}

// ReadI29 reads a U29 and sign-extends it to an AMF3 integer.
func (r *Reader) ReadI29() (int32, error) {
	v, err := r.ReadU29()
	if err != nil {
		return 0, err
	}
	if v&0x10000000 != 0 {
		return int32(v) - 0x20000000, nil
	}
	return int32(v), nil
}
