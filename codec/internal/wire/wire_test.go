package wire

import (
	"bytes"
	"errors"
	"testing"

	amferrors "github.com/wippyai/amf/errors"
)

func TestU29_Encoding(t *testing.T) {
	tests := []struct {
		value uint32
		bytes []byte
	}{
		{0, []byte{0x00}},
		{0x7F, []byte{0x7F}},
		{0x80, []byte{0x81, 0x00}},
		{0x3FFF, []byte{0xFF, 0x7F}},
		{0x4000, []byte{0x81, 0x80, 0x00}},
		{0x1FFFFF, []byte{0xFF, 0xFF, 0x7F}},
		{0x200000, []byte{0x80, 0xC0, 0x80, 0x00}},
		{MaxU29, []byte{0xFF, 0xFF, 0xFF, 0xFF}},
	}

	for _, tt := range tests {
		w := NewWriter(4)
		w.WriteU29(tt.value)
		if !bytes.Equal(w.Bytes(), tt.bytes) {
			t.Errorf("WriteU29(%#x) = % x, want % x", tt.value, w.Bytes(), tt.bytes)
		}

		r := NewReader(tt.bytes)
		got, err := r.ReadU29()
		if err != nil {
			t.Fatalf("ReadU29(% x): %v", tt.bytes, err)
		}
		if got != tt.value {
			t.Errorf("ReadU29(% x) = %#x, want %#x", tt.bytes, got, tt.value)
		}
		if r.Remaining() != 0 {
			t.Errorf("ReadU29(% x) left %d bytes", tt.bytes, r.Remaining())
		}
	}
}

func TestI29_SignExtension(t *testing.T) {
	for _, v := range []int32{0, 1, -1, MaxInt29, MinInt29, -12345} {
		w := NewWriter(4)
		w.WriteU29(uint32(v))
		got, err := NewReader(w.Bytes()).ReadI29()
		if err != nil {
			t.Fatalf("ReadI29: %v", err)
		}
		if got != v {
			t.Errorf("I29 round trip %d = %d", v, got)
		}
	}
}

func TestReader_Primitives(t *testing.T) {
	w := NewWriter(32)
	w.WriteU8(7)
	w.WriteU16(0xBEEF)
	w.WriteU32(0xDEADBEEF)
	w.WriteF64(3.5)
	w.WriteUTF("hi")
	w.WriteLongUTF("long")

	r := NewReader(w.Bytes())
	if v, _ := r.ReadU8(); v != 7 {
		t.Errorf("ReadU8 = %d", v)
	}
	if v, _ := r.ReadU16(); v != 0xBEEF {
		t.Errorf("ReadU16 = %#x", v)
	}
	if v, _ := r.ReadU32(); v != 0xDEADBEEF {
		t.Errorf("ReadU32 = %#x", v)
	}
	if v, _ := r.ReadF64(); v != 3.5 {
		t.Errorf("ReadF64 = %v", v)
	}
	if v, _ := r.ReadUTF(); v != "hi" {
		t.Errorf("ReadUTF = %q", v)
	}
	if v, _ := r.ReadLongUTF(); v != "long" {
		t.Errorf("ReadLongUTF = %q", v)
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", r.Remaining())
	}
}

func TestReader_Truncated(t *testing.T) {
	target := &amferrors.Error{Phase: amferrors.PhaseDecode, Kind: amferrors.KindInvalidData}

	cases := map[string]func(*Reader) error{
		"u16":     func(r *Reader) error { _, err := r.ReadU16(); return err },
		"f64":     func(r *Reader) error { _, err := r.ReadF64(); return err },
		"utf":     func(r *Reader) error { _, err := r.ReadUTF(); return err },
		"longutf": func(r *Reader) error { _, err := r.ReadLongUTF(); return err },
		"u29":     func(r *Reader) error { _, err := r.ReadU29(); return err },
	}
	for name, read := range cases {
		t.Run(name, func(t *testing.T) {
			err := read(NewReader([]byte{0xFF}))
			if err == nil {
				t.Fatal("expected truncation error")
			}
			if !errors.Is(err, target) {
				t.Errorf("error %v is not decode/invalid_data", err)
			}
		})
	}
}
