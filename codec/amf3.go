package codec

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wippyai/amf/codec/internal/wire"
	"github.com/wippyai/amf/errors"
)

// AMF3 type markers
const (
	amf3Undefined    = 0x00
	amf3Null         = 0x01
	amf3False        = 0x02
	amf3True         = 0x03
	amf3Integer      = 0x04
	amf3Double       = 0x05
	amf3String       = 0x06
	amf3XMLDoc       = 0x07
	amf3Date         = 0x08
	amf3Array        = 0x09
	amf3Object       = 0x0A
	amf3XML          = 0x0B
	amf3ByteArray    = 0x0C
	amf3VectorInt    = 0x0D
	amf3VectorUint   = 0x0E
	amf3VectorDouble = 0x0F
	amf3VectorObject = 0x10
	amf3Dictionary   = 0x11
)

// Externalizable Flex classes whose wire form is a single wrapped value.
var wrapperClasses = map[string]bool{
	"flex.messaging.io.ArrayCollection": true,
	"flex.messaging.io.ArrayList":       true,
	"flex.messaging.io.ObjectProxy":     true,
}

type traits struct {
	className      string
	members        []string
	dynamic        bool
	externalizable bool
}

func (t *traits) key() string {
	var b strings.Builder
	b.WriteString(t.className)
	b.WriteByte(0)
	for _, m := range t.members {
		b.WriteString(m)
		b.WriteByte(0)
	}
	if t.dynamic {
		b.WriteByte(1)
	}
	return b.String()
}

type amf3Encoder struct {
	w       *wire.Writer
	strings map[string]int
	traits  map[string]int
	depth   int
}

func newAMF3Encoder(w *wire.Writer) *amf3Encoder {
	return &amf3Encoder{
		w:       w,
		strings: make(map[string]int),
		traits:  make(map[string]int),
	}
}

func (e *amf3Encoder) enter() error {
	e.depth++
	if e.depth > MaxDepth {
		return errors.Overflow(errors.PhaseEncode, nil, e.depth, "max nesting depth "+strconv.Itoa(MaxDepth))
	}
	return nil
}

func (e *amf3Encoder) leave() { e.depth-- }

func (e *amf3Encoder) writeValue(v any) error {
	switch t := v.(type) {
	case nil:
		e.w.WriteU8(amf3Null)
	case Undefined:
		e.w.WriteU8(amf3Undefined)
	case bool:
		if t {
			e.w.WriteU8(amf3True)
		} else {
			e.w.WriteU8(amf3False)
		}
	case string:
		e.w.WriteU8(amf3String)
		return e.writeString(t)
	case float64:
		e.writeDouble(t)
	case float32:
		e.writeDouble(float64(t))
	case int:
		e.writeInt(int64(t))
	case int32:
		e.writeInt(int64(t))
	case int64:
		e.writeInt(t)
	case uint32:
		e.writeUint(uint64(t))
	case uint64:
		e.writeUint(t)
	case time.Time:
		e.w.WriteU8(amf3Date)
		e.w.WriteU29(1)
		e.w.WriteF64(float64(t.UnixMilli()))
	case XMLDocument:
		if len(t) > wire.MaxU29>>1 {
			return errors.Overflow(errors.PhaseEncode, nil, len(t), "AMF3 length")
		}
		e.w.WriteU8(amf3XMLDoc)
		e.w.WriteU29(uint32(len(t))<<1 | 1)
		e.w.WriteRaw([]byte(t))
	case []byte:
		if len(t) > wire.MaxU29>>1 {
			return errors.Overflow(errors.PhaseEncode, nil, len(t), "AMF3 length")
		}
		e.w.WriteU8(amf3ByteArray)
		e.w.WriteU29(uint32(len(t))<<1 | 1)
		e.w.WriteRaw(t)
	case []any:
		return e.writeArray(&ECMAArray{Dense: t})
	case map[string]any:
		return e.writeArray(&ECMAArray{Entries: entriesOf(t)})
	case *ECMAArray:
		if t == nil {
			e.w.WriteU8(amf3Null)
			return nil
		}
		return e.writeArray(t)
	case *Object:
		if t == nil {
			e.w.WriteU8(amf3Null)
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

func (e *amf3Encoder) writeDouble(f float64) {
	e.w.WriteU8(amf3Double)
	e.w.WriteF64(f)
}

func (e *amf3Encoder) writeInt(v int64) {
	if v < wire.MinInt29 || v > wire.MaxInt29 {
		e.writeDouble(float64(v))
		return
	}
	e.w.WriteU8(amf3Integer)
	e.w.WriteU29(uint32(v))
}

func (e *amf3Encoder) writeUint(v uint64) {
	if v > wire.MaxInt29 {
		e.writeDouble(float64(v))
		return
	}
	e.w.WriteU8(amf3Integer)
	e.w.WriteU29(uint32(v))
}

// writeString writes a UTF-8-vr: a reference to an earlier string or an
// inline value. The empty string is never added to the table.
func (e *amf3Encoder) writeString(s string) error {
	if s == "" {
		e.w.WriteU29(1)
		return nil
	}
	if idx, ok := e.strings[s]; ok {
		e.w.WriteU29(uint32(idx) << 1)
		return nil
	}
	if len(s) > wire.MaxU29>>1 {
		return errors.Overflow(errors.PhaseEncode, nil, len(s), "AMF3 string length")
	}
	e.strings[s] = len(e.strings)
	e.w.WriteU29(uint32(len(s))<<1 | 1)
	e.w.WriteRaw([]byte(s))
	return nil
}

func (e *amf3Encoder) writeArray(a *ECMAArray) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()

	if len(a.Dense) > wire.MaxU29>>1 {
		return errors.Overflow(errors.PhaseEncode, nil, len(a.Dense), "AMF3 array length")
	}
	e.w.WriteU8(amf3Array)
	e.w.WriteU29(uint32(len(a.Dense))<<1 | 1)
	for _, entry := range a.Entries {
		if entry.Name == "" {
			return errors.InvalidData(errors.PhaseEncode, nil, "AMF3 associative keys must be non-empty")
		}
		if err := e.writeString(entry.Name); err != nil {
			return err
		}
		if err := e.writeValue(entry.Value); err != nil {
			return errors.WithPath(errors.PhaseEncode, err, entry.Name)
		}
	}
	e.w.WriteU29(1)
	for i, item := range a.Dense {
		if err := e.writeValue(item); err != nil {
			return errors.WithPath(errors.PhaseEncode, err, "["+strconv.Itoa(i)+"]")
		}
	}
	return nil
}

func (e *amf3Encoder) writeObject(o *Object) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.leave()

	t := &traits{
		className: o.ClassName,
		members:   make([]string, len(o.Members)),
		dynamic:   o.IsAnonymous() || len(o.Dynamic) > 0,
	}
	for i, m := range o.Members {
		t.members[i] = m.Name
	}

	e.w.WriteU8(amf3Object)
	key := t.key()
	if idx, ok := e.traits[key]; ok {
		e.w.WriteU29(uint32(idx)<<2 | 0x01)
	} else {
		if len(t.members) > wire.MaxU29>>4 {
			return errors.Overflow(errors.PhaseEncode, nil, len(t.members), "AMF3 sealed member count")
		}
		e.traits[key] = len(e.traits)
		header := uint32(len(t.members))<<4 | 0x03
		if t.dynamic {
			header |= 0x08
		}
		e.w.WriteU29(header)
		if err := e.writeString(t.className); err != nil {
			return err
		}
		for _, name := range t.members {
			if err := e.writeString(name); err != nil {
				return err
			}
		}
	}

	for _, m := range o.Members {
		if err := e.writeValue(m.Value); err != nil {
			return errors.WithPath(errors.PhaseEncode, err, m.Name)
		}
	}
	if t.dynamic {
		for _, m := range o.Dynamic {
			if m.Name == "" {
				return errors.InvalidData(errors.PhaseEncode, nil, "AMF3 dynamic member names must be non-empty")
			}
			if err := e.writeString(m.Name); err != nil {
				return err
			}
			if err := e.writeValue(m.Value); err != nil {
				return errors.WithPath(errors.PhaseEncode, err, m.Name)
			}
		}
		e.w.WriteU29(1)
	}
	return nil
}

type amf3Decoder struct {
	r       *wire.Reader
	strings []string
	objects []any
	traits  []*traits
	depth   int
}

func newAMF3Decoder(r *wire.Reader) *amf3Decoder {
	return &amf3Decoder{r: r}
}

func (d *amf3Decoder) enter() error {
	d.depth++
	if d.depth > MaxDepth {
		return errors.Overflow(errors.PhaseDecode, nil, d.depth, "max nesting depth "+strconv.Itoa(MaxDepth))
	}
	return nil
}

func (d *amf3Decoder) leave() { d.depth-- }

func (d *amf3Decoder) readValue() (any, error) {
	marker, err := d.r.ReadU8()
	if err != nil {
		return nil, err
	}

	switch marker {
	case amf3Undefined:
		return Undefined{}, nil
	case amf3Null:
		return nil, nil
	case amf3False:
		return false, nil
	case amf3True:
		return true, nil
	case amf3Integer:
		return d.r.ReadI29()
	case amf3Double:
		return d.r.ReadF64()
	case amf3String:
		return d.readString()
	case amf3XMLDoc, amf3XML:
		return d.readXML()
	case amf3Date:
		return d.readDate()
	case amf3Array:
		return d.readArray()
	case amf3Object:
		return d.readObject()
	case amf3ByteArray:
		return d.readByteArray()
	case amf3VectorInt, amf3VectorUint, amf3VectorDouble, amf3VectorObject:
		return d.readVector(marker)
	case amf3Dictionary:
		return nil, errors.New(errors.PhaseDecode, errors.KindUnsupported).
			AMFType("dictionary").
			Detail("AMF3 dictionaries have no generic representation").
			Build()
	default:
		return nil, errors.InvalidData(errors.PhaseDecode, nil,
			fmt.Sprintf("unknown AMF3 marker 0x%02x at offset %d", marker, d.r.Offset()-1))
	}
}

// readRef reads a U29 header. When the low bit is clear the header is a
// reference and the referenced object is returned with ok set.
func (d *amf3Decoder) readRef() (header uint32, ref any, ok bool, err error) {
	u, err := d.r.ReadU29()
	if err != nil {
		return 0, nil, false, err
	}
	if u&1 == 0 {
		idx := int(u >> 1)
		if idx >= len(d.objects) {
			return 0, nil, false, errors.InvalidData(errors.PhaseDecode, nil,
				fmt.Sprintf("AMF3 object reference %d out of range (%d objects)", idx, len(d.objects)))
		}
		return 0, d.objects[idx], true, nil
	}
	return u >> 1, nil, false, nil
}

func (d *amf3Decoder) checkCount(n uint32, what string) error {
	if uint64(n) > uint64(d.r.Remaining()) {
		return errors.InvalidData(errors.PhaseDecode, nil,
			fmt.Sprintf("%s length %d exceeds remaining input", what, n))
	}
	return nil
}

func (d *amf3Decoder) readString() (string, error) {
	u, err := d.r.ReadU29()
	if err != nil {
		return "", err
	}
	if u&1 == 0 {
		idx := int(u >> 1)
		if idx >= len(d.strings) {
			return "", errors.InvalidData(errors.PhaseDecode, nil,
				fmt.Sprintf("AMF3 string reference %d out of range (%d strings)", idx, len(d.strings)))
		}
		return d.strings[idx], nil
	}
	n := int(u >> 1)
	if n == 0 {
		return "", nil
	}
	s, err := d.r.ReadString(n)
	if err != nil {
		return "", err
	}
	d.strings = append(d.strings, s)
	return s, nil
}

func (d *amf3Decoder) readXML() (any, error) {
	n, ref, ok, err := d.readRef()
	if err != nil || ok {
		return ref, err
	}
	s, err := d.r.ReadString(int(n))
	if err != nil {
		return nil, err
	}
	doc := XMLDocument(s)
	d.objects = append(d.objects, doc)
	return doc, nil
}

func (d *amf3Decoder) readDate() (any, error) {
	_, ref, ok, err := d.readRef()
	if err != nil || ok {
		return ref, err
	}
	ms, err := d.r.ReadF64()
	if err != nil {
		return nil, err
	}
	t := dateFromMillis(ms)
	d.objects = append(d.objects, t)
	return t, nil
}

func (d *amf3Decoder) readByteArray() (any, error) {
	n, ref, ok, err := d.readRef()
	if err != nil || ok {
		return ref, err
	}
	b, err := d.r.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	d.objects = append(d.objects, b)
	return b, nil
}

func (d *amf3Decoder) readArray() (any, error) {
	n, ref, ok, err := d.readRef()
	if err != nil || ok {
		return ref, err
	}
	if err := d.checkCount(n, "array"); err != nil {
		return nil, err
	}
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	idx := len(d.objects)
	d.objects = append(d.objects, nil)

	var arr *ECMAArray
	for {
		key, err := d.readString()
		if err != nil {
			return nil, err
		}
		if key == "" {
			break
		}
		if arr == nil {
			arr = &ECMAArray{}
			d.objects[idx] = arr
		}
		v, err := d.readValue()
		if err != nil {
			return nil, errors.WithPath(errors.PhaseDecode, err, key)
		}
		arr.Entries = append(arr.Entries, Member{Name: key, Value: v})
	}

	dense := make([]any, n)
	if arr == nil {
		d.objects[idx] = dense
	}
	for i := range dense {
		if dense[i], err = d.readValue(); err != nil {
			return nil, errors.WithPath(errors.PhaseDecode, err, "["+strconv.Itoa(i)+"]")
		}
	}
	if arr != nil {
		arr.Dense = dense
		return arr, nil
	}
	return dense, nil
}

func (d *amf3Decoder) readTraits(header uint32) (*traits, error) {
	// header has already been shifted past the object-reference bit
	if header&1 == 0 {
		idx := int(header >> 1)
		if idx >= len(d.traits) {
			return nil, errors.InvalidData(errors.PhaseDecode, nil,
				fmt.Sprintf("AMF3 traits reference %d out of range (%d traits)", idx, len(d.traits)))
		}
		return d.traits[idx], nil
	}
	t := &traits{
		externalizable: header&2 != 0,
		dynamic:        header&4 != 0,
	}
	count := header >> 3
	if err := d.checkCount(count, "sealed member"); err != nil {
		return nil, err
	}
	name, err := d.readString()
	if err != nil {
		return nil, err
	}
	t.className = name
	t.members = make([]string, count)
	for i := range t.members {
		if t.members[i], err = d.readString(); err != nil {
			return nil, err
		}
	}
	d.traits = append(d.traits, t)
	return t, nil
}

func (d *amf3Decoder) readObject() (any, error) {
	header, ref, ok, err := d.readRef()
	if err != nil || ok {
		return ref, err
	}
	t, err := d.readTraits(header)
	if err != nil {
		return nil, err
	}
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	idx := len(d.objects)
	if t.externalizable {
		if !wrapperClasses[t.className] {
			return nil, errors.New(errors.PhaseDecode, errors.KindUnsupported).
				AMFType(t.className).
				Detail("externalizable class has no registered reader").
				Build()
		}
		d.objects = append(d.objects, nil)
		inner, err := d.readValue()
		if err != nil {
			return nil, errors.WithPath(errors.PhaseDecode, err, t.className)
		}
		d.objects[idx] = inner
		return inner, nil
	}

	obj := &Object{ClassName: t.className, Members: make([]Member, 0, len(t.members))}
	d.objects = append(d.objects, obj)
	for _, name := range t.members {
		v, err := d.readValue()
		if err != nil {
			return nil, errors.WithPath(errors.PhaseDecode, err, name)
		}
		obj.Members = append(obj.Members, Member{Name: name, Value: v})
	}
	if t.dynamic {
		for {
			name, err := d.readString()
			if err != nil {
				return nil, err
			}
			if name == "" {
				break
			}
			v, err := d.readValue()
			if err != nil {
				return nil, errors.WithPath(errors.PhaseDecode, err, name)
			}
			obj.Dynamic = append(obj.Dynamic, Member{Name: name, Value: v})
		}
	}
	return obj, nil
}

func (d *amf3Decoder) readVector(marker byte) (any, error) {
	n, ref, ok, err := d.readRef()
	if err != nil || ok {
		return ref, err
	}
	if err := d.checkCount(n, "vector"); err != nil {
		return nil, err
	}
	// fixed-length flag
	if _, err := d.r.ReadU8(); err != nil {
		return nil, err
	}
	if marker == amf3VectorObject {
		if _, err := d.readString(); err != nil {
			return nil, err
		}
	}
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	idx := len(d.objects)
	d.objects = append(d.objects, nil)
	items := make([]any, n)
	for i := range items {
		switch marker {
		case amf3VectorInt:
			u, err := d.r.ReadU32()
			if err != nil {
				return nil, err
			}
			items[i] = int32(u)
		case amf3VectorUint:
			u, err := d.r.ReadU32()
			if err != nil {
				return nil, err
			}
			items[i] = float64(u)
		case amf3VectorDouble:
			f, err := d.r.ReadF64()
			if err != nil {
				return nil, err
			}
			items[i] = f
		default:
			v, err := d.readValue()
			if err != nil {
				return nil, errors.WithPath(errors.PhaseDecode, err, "["+strconv.Itoa(i)+"]")
			}
			items[i] = v
		}
	}
	d.objects[idx] = items
	return items, nil
}
