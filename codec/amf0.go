package codec

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/wippyai/amf/codec/internal/wire"
	"github.com/wippyai/amf/errors"
)

// AMF0 type markers
const (
	amf0Number      = 0x00
	amf0Boolean     = 0x01
	amf0String      = 0x02
	amf0Object      = 0x03
	amf0MovieClip   = 0x04
	amf0Null        = 0x05
	amf0Undefined   = 0x06
	amf0Reference   = 0x07
	amf0ECMAArray   = 0x08
	amf0ObjectEnd   = 0x09
	amf0StrictArray = 0x0A
	amf0Date        = 0x0B
	amf0LongString  = 0x0C
	amf0Unsupported = 0x0D
	amf0RecordSet   = 0x0E
	amf0XMLDocument = 0x0F
	amf0TypedObject = 0x10
	amf0AVMPlus     = 0x11
)

type amf0Encoder struct {
	w     *wire.Writer
	depth int
}

func newAMF0Encoder(w *wire.Writer) *amf0Encoder {
	return &amf0Encoder{w: w}
}

func (e *amf0Encoder) enter() error {
	e.depth++
	if e.depth > MaxDepth {
		return errors.Overflow(errors.PhaseEncode, nil, e.depth, "max nesting depth "+strconv.Itoa(MaxDepth))
	}
	return nil
}

func (e *amf0Encoder) leave() { e.depth-- }

func (e *amf0Encoder) writeValue(v any) error {
	switch t := v.(type) {
	case nil:
		e.w.WriteU8(amf0Null)
	case Undefined:
		e.w.WriteU8(amf0Undefined)
	case bool:
		e.w.WriteU8(amf0Boolean)
		if t {
			e.w.WriteU8(1)
		} else {
			e.w.WriteU8(0)
		}
	case string:
		e.writeString(t)
	case float64:
		e.writeNumber(t)
	case float32:
		e.writeNumber(float64(t))
	case int:
		e.writeNumber(float64(t))
	case int32:
		e.writeNumber(float64(t))
	case int64:
		e.writeNumber(float64(t))
	case uint32:
		e.writeNumber(float64(t))
	case uint64:
		e.writeNumber(float64(t))
	case time.Time:
		e.w.WriteU8(amf0Date)
		e.w.WriteF64(float64(t.UnixMilli()))
		e.w.WriteU16(0)
	case XMLDocument:
		e.w.WriteU8(amf0XMLDocument)
		e.w.WriteLongUTF(string(t))
	case []byte:
		return e.writeBytes(t)
	case []any:
		return e.writeStrictArray(t)
	case map[string]any:
		return e.writeECMAArray(&ECMAArray{Entries: entriesOf(t)})
	case *ECMAArray:
		if t == nil {
			e.w.WriteU8(amf0Null)
			return nil
		}
		return e.writeECMAArray(t)
	case *Object:
		if t == nil {
			e.w.WriteU8(amf0Null)
			return nil
		}
		return e.writeObject(t)
	case Object:
		return e.writeObject(&t)
	default:
		c, ok := canonical(v)
		if !ok {
			return errors.Unsupported(errors.PhaseEncode, nil, fmt.Sprintf("%T", v))
		}
		return e.writeValue(c)
	}
	return nil
}

func (e *amf0Encoder) writeNumber(f float64) {
	e.w.WriteU8(amf0Number)
	e.w.WriteF64(f)
}

func (e *amf0Encoder) writeString(s string) {
	if len(s) > wire.MaxUTF {
		e.w.WriteU8(amf0LongString)
		e.w.WriteLongUTF(s)
		return
	}
	e.w.WriteU8(amf0String)
	e.w.WriteUTF(s)
}

// writeBytes has no native AMF0 form; bytes go out as a strict array of
// numbers.
func (e *amf0Encoder) writeBytes(b []byte) error {
	if uint64(len(b)) > wire.MaxLength {
		return errors.Overflow(errors.PhaseEncode, nil, len(b), "AMF0 array length")
	}
	e.w.WriteU8(amf0StrictArray)
	e.w.WriteU32(uint32(len(b)))
	for _, c := range b {
		e.writeNumber(float64(c))
	}
	return nil
}

func (e *amf0Encoder) writeStrictArray(items []any) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()

	e.w.WriteU8(amf0StrictArray)
	e.w.WriteU32(uint32(len(items)))
	for i, item := range items {
		if err := e.writeValue(item); err != nil {
			return errors.WithPath(errors.PhaseEncode, err, "["+strconv.Itoa(i)+"]")
		}
	}
	return nil
}

func (e *amf0Encoder) writeECMAArray(a *ECMAArray) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()

	e.w.WriteU8(amf0ECMAArray)
	e.w.WriteU32(uint32(len(a.Dense) + len(a.Entries)))
	for i, item := range a.Dense {
		key := strconv.Itoa(i)
		e.w.WriteUTF(key)
		if err := e.writeValue(item); err != nil {
			return errors.WithPath(errors.PhaseEncode, err, "["+key+"]")
		}
	}
	if err := e.writeMembers(a.Entries); err != nil {
		return err
	}
	e.writeObjectEnd()
	return nil
}

func (e *amf0Encoder) writeObject(o *Object) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()

	if o.IsAnonymous() {
		e.w.WriteU8(amf0Object)
	} else {
		if len(o.ClassName) > wire.MaxUTF {
			return errors.Overflow(errors.PhaseEncode, nil, len(o.ClassName), "AMF0 class name length")
		}
		e.w.WriteU8(amf0TypedObject)
		e.w.WriteUTF(o.ClassName)
	}
	if err := e.writeMembers(o.Members); err != nil {
		return err
	}
	if err := e.writeMembers(o.Dynamic); err != nil {
		return err
	}
	e.writeObjectEnd()
	return nil
}

func (e *amf0Encoder) writeMembers(members []Member) error {
	for _, m := range members {
		if m.Name == "" || len(m.Name) > wire.MaxUTF {
			return errors.InvalidData(errors.PhaseEncode, []string{m.Name}, "AMF0 member names must be 1-65535 bytes")
		}
		e.w.WriteUTF(m.Name)
		if err := e.writeValue(m.Value); err != nil {
			return errors.WithPath(errors.PhaseEncode, err, m.Name)
		}
	}
	return nil
}

func (e *amf0Encoder) writeObjectEnd() {
	e.w.WriteU16(0)
	e.w.WriteU8(amf0ObjectEnd)
}

type amf0Decoder struct {
	r     *wire.Reader
	refs  []any
	depth int
}

func newAMF0Decoder(r *wire.Reader) *amf0Decoder {
	return &amf0Decoder{r: r}
}

func (d *amf0Decoder) enter() error {
	d.depth++
	if d.depth > MaxDepth {
		return errors.Overflow(errors.PhaseDecode, nil, d.depth, "max nesting depth "+strconv.Itoa(MaxDepth))
	}
	return nil
}

func (d *amf0Decoder) leave() { d.depth-- }

func (d *amf0Decoder) readValue() (any, error) {
	marker, err := d.r.ReadU8()
	if err != nil {
		return nil, err
	}

	switch marker {
	case amf0Number:
		return d.r.ReadF64()
	case amf0Boolean:
		b, err := d.r.ReadU8()
		return b != 0, err
	case amf0String:
		return d.r.ReadUTF()
	case amf0LongString:
		return d.r.ReadLongUTF()
	case amf0Null:
		return nil, nil
	case amf0Undefined:
		return Undefined{}, nil
	case amf0Reference:
		idx, err := d.r.ReadU16()
		if err != nil {
			return nil, err
		}
		if int(idx) >= len(d.refs) {
			return nil, errors.InvalidData(errors.PhaseDecode, nil,
				fmt.Sprintf("AMF0 reference %d out of range (%d objects)", idx, len(d.refs)))
		}
		return d.refs[idx], nil
	case amf0Object:
		return d.readObject("")
	case amf0TypedObject:
		name, err := d.r.ReadUTF()
		if err != nil {
			return nil, err
		}
		return d.readObject(name)
	case amf0ECMAArray:
		return d.readECMAArray()
	case amf0StrictArray:
		return d.readStrictArray()
	case amf0Date:
		ms, err := d.r.ReadF64()
		if err != nil {
			return nil, err
		}
		if _, err := d.r.ReadU16(); err != nil {
			return nil, err
		}
		return dateFromMillis(ms), nil
	case amf0XMLDocument:
		s, err := d.r.ReadLongUTF()
		return XMLDocument(s), err
	case amf0AVMPlus:
		return newAMF3Decoder(d.r).readValue()
	case amf0ObjectEnd:
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "unexpected AMF0 object end marker")
	case amf0MovieClip, amf0Unsupported, amf0RecordSet:
		return nil, errors.New(errors.PhaseDecode, errors.KindUnsupported).
			AMFType(fmt.Sprintf("0x%02x", marker)).
			Detail("reserved AMF0 marker").
			Build()
	default:
		return nil, errors.InvalidData(errors.PhaseDecode, nil,
			fmt.Sprintf("unknown AMF0 marker 0x%02x at offset %d", marker, d.r.Offset()-1))
	}
}

func (d *amf0Decoder) readObject(className string) (any, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	obj := &Object{ClassName: className}
	d.refs = append(d.refs, obj)
	members, err := d.readMembers()
	if err != nil {
		return nil, err
	}
	obj.Members = members
	return obj, nil
}

func (d *amf0Decoder) readECMAArray() (any, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	// The count is advisory; the array still ends with an object end marker.
	if _, err := d.r.ReadU32(); err != nil {
		return nil, err
	}
	arr := &ECMAArray{}
	d.refs = append(d.refs, arr)
	entries, err := d.readMembers()
	if err != nil {
		return nil, err
	}
	arr.Entries = entries
	return arr, nil
}

func (d *amf0Decoder) readMembers() ([]Member, error) {
	var members []Member
	for {
		name, err := d.r.ReadUTF()
		if err != nil {
			return nil, err
		}
		if name == "" {
			end, err := d.r.ReadU8()
			if err != nil {
				return nil, err
			}
			if end != amf0ObjectEnd {
				return nil, errors.InvalidData(errors.PhaseDecode, nil,
					fmt.Sprintf("expected AMF0 object end, got marker 0x%02x", end))
			}
			return members, nil
		}
		v, err := d.readValue()
		if err != nil {
			return nil, errors.WithPath(errors.PhaseDecode, err, name)
		}
		members = append(members, Member{Name: name, Value: v})
	}
}

func (d *amf0Decoder) readStrictArray() (any, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	n, err := d.r.ReadU32()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(d.r.Remaining()) {
		return nil, errors.InvalidData(errors.PhaseDecode, nil,
			fmt.Sprintf("strict array length %d exceeds remaining input", n))
	}
	idx := len(d.refs)
	d.refs = append(d.refs, nil)
	items := make([]any, n)
	for i := range items {
		if items[i], err = d.readValue(); err != nil {
			return nil, errors.WithPath(errors.PhaseDecode, err, "["+strconv.Itoa(i)+"]")
		}
	}
	d.refs[idx] = items
	return items, nil
}

func dateFromMillis(ms float64) time.Time {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms)).UTC()
}
