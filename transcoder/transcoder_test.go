package transcoder

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/amf/codec"
	"github.com/wippyai/amf/errors"
)

type Point struct {
	X int `amf:"x"`
	Y int `amf:"y"`
}

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

type renamedPoint struct {
	X int `amf:"px"`
	Y int `amf:"y"`
}

type Filtered struct {
	A string `amf:"a"`
	B string
}

type Inner struct {
	Value float64 `amf:"value"`
}

type Outer struct {
	ByKey map[string]Inner `amf:"by_key"`
	Ptr   *Inner           `amf:"ptr"`
	Name  string           `amf:"name"`
	Items []Inner          `amf:"items"`
	Inner Inner            `amf:"inner"`
}

type Everything struct {
	When   time.Time      `amf:"when"`
	Any    any            `amf:"any"`
	Scores map[string]int `amf:"scores"`
	Opt    *string        `amf:"opt"`
	Text   string         `amf:"text"`
	Blob   []byte         `amf:"blob"`
	Tags   []string       `amf:"tags"`
	Fixed  [2]int         `amf:"fixed"`
	Big    int64          `amf:"big"`
	Int    int            `amf:"int"`
	Float  float64        `amf:"float"`
	F32    float32        `amf:"f32"`
	Uint16 uint16         `amf:"uint16"`
	Int8   int8           `amf:"int8"`
	Bool   bool           `amf:"bool"`
}

type Holder struct {
	Shape any `amf:"shape"`
}

type Bad struct {
	C chan int `amf:"c"`
}

type Node struct {
	Next *Node `amf:"next"`
}

type Tree struct {
	Kids []any `amf:"kids"`
}

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := NewCatalog()
	decls := []struct {
		sample any
		name   string
	}{
		{Point{}, "pt"},
		{Filtered{}, "filtered"},
		{Inner{}, "inner"},
		{Outer{}, "outer"},
		{Everything{}, "everything"},
		{Holder{}, "holder"},
		{Bad{}, "bad"},
		{Node{}, "node"},
		{Tree{}, "tree"},
	}
	for _, d := range decls {
		if err := c.Register(d.sample, WithName(d.name)); err != nil {
			t.Fatalf("Register(%T): %v", d.sample, err)
		}
	}
	return c
}

func bodyOf(t *testing.T, data []byte) any {
	t.Helper()
	msg, err := codec.Default.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	body, err := msg.BodyAt(0)
	if err != nil {
		t.Fatalf("BodyAt: %v", err)
	}
	if body.Target != string(codec.OnResult) {
		t.Errorf("target = %q, want %q", body.Target, codec.OnResult)
	}
	return body.Content
}

func TestPoint_RoundTrip(t *testing.T) {
	catalog := newCatalog(t)
	enc := NewEncoder(WithCatalog(catalog))
	dec := NewDecoder(WithCatalog(catalog))

	for _, version := range []uint16{codec.AMF0, codec.AMF3} {
		data, err := enc.Encode(Point{X: 1, Y: 2}, version)
		if err != nil {
			t.Fatalf("v%d Encode: %v", version, err)
		}
		got, ok, err := Decode[Point](dec, data)
		if err != nil || !ok {
			t.Fatalf("v%d Decode = %v, %v, %v", version, got, ok, err)
		}
		if got != (Point{X: 1, Y: 2}) {
			t.Errorf("v%d got %+v", version, got)
		}
	}

	obj := bodyOf(t, mustEncode(t, enc, Point{X: 1, Y: 2})).(*codec.Object)
	if obj.ClassName != "pt" || strings.Join(obj.Names(), ",") != "x,y" {
		t.Errorf("wire object = %s", obj)
	}
}

func mustEncode(t *testing.T, enc *Encoder, v any) []byte {
	t.Helper()
	data, err := enc.EncodeDefault(v)
	if err != nil {
		t.Fatalf("Encode(%T): %v", v, err)
	}
	return data
}

func TestEverything_RoundTrip(t *testing.T) {
	catalog := newCatalog(t)
	enc := NewEncoder(WithCatalog(catalog))
	dec := NewDecoder(WithCatalog(catalog))

	opt := "set"
	want := Everything{
		When:   time.Date(2024, 1, 2, 3, 4, 5, 6e6, time.UTC),
		Any:    "hello",
		Scores: map[string]int{"a": 1, "b": -2},
		Opt:    &opt,
		Text:   "text",
		Blob:   []byte{0, 1, 255},
		Tags:   []string{"x", "y"},
		Fixed:  [2]int{7, 8},
		Big:    1 << 40,
		Int:    -5,
		Float:  2.5,
		F32:    1.5,
		Uint16: 65535,
		Int8:   -3,
		Bool:   true,
	}

	for _, version := range []uint16{codec.AMF0, codec.AMF3} {
		data, err := enc.Encode(want, version)
		if err != nil {
			t.Fatalf("v%d Encode: %v", version, err)
		}
		got, ok, err := Decode[*Everything](dec, data)
		if err != nil || !ok {
			t.Fatalf("v%d Decode: ok=%v err=%v", version, ok, err)
		}
		if !got.When.Equal(want.When) {
			t.Errorf("v%d When = %v, want %v", version, got.When, want.When)
		}
		got.When = want.When
		if !reflect.DeepEqual(*got, want) {
			t.Errorf("v%d\n got %+v\nwant %+v", version, *got, want)
		}
	}
}

func TestPassThrough(t *testing.T) {
	catalog := newCatalog(t)
	enc := NewEncoder(WithCatalog(catalog))
	dec := NewDecoder(WithCatalog(catalog))

	tests := []struct {
		in   any
		want any
		name string
	}{
		{name: "int", in: 42, want: int32(42)},
		{name: "string", in: "plain", want: "plain"},
		{name: "nil", in: nil, want: nil},
		{name: "slice", in: []int{1, 2}, want: []any{int32(1), int32(2)}},
		{name: "map", in: map[string]string{"k": "v"}, want: &codec.ECMAArray{Dense: []any{}, Entries: []codec.Member{{Name: "k", Value: "v"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := mustEncode(t, enc, tt.in)
			if got := bodyOf(t, data); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("content = %#v, want %#v", got, tt.want)
			}
			v, err := dec.Decode(data)
			if err != nil || v != nil {
				t.Errorf("Decode = %v, %v; want nil, nil", v, err)
			}
		})
	}

	if enc.Synthesizer().Registry().Len() != 0 {
		t.Errorf("pass-through created shapes: %v", enc.Synthesizer().Registry().Names())
	}
}

func TestMemberFiltering(t *testing.T) {
	catalog := newCatalog(t)
	enc := NewEncoder(WithCatalog(catalog))
	dec := NewDecoder(WithCatalog(catalog))

	data := mustEncode(t, enc, Filtered{A: "kept", B: "dropped"})
	obj := bodyOf(t, data).(*codec.Object)
	if obj.Len() != 1 {
		t.Errorf("members = %v, want only a", obj.Names())
	}

	got, ok, err := Decode[Filtered](dec, data)
	if err != nil || !ok {
		t.Fatalf("Decode: %v %v", ok, err)
	}
	if got.A != "kept" || got.B != "" {
		t.Errorf("got %+v", got)
	}
}

func TestNested_RoundTrip(t *testing.T) {
	catalog := newCatalog(t)
	enc := NewEncoder(WithCatalog(catalog))
	dec := NewDecoder(WithCatalog(catalog))

	want := Outer{
		Name:  "o",
		Inner: Inner{Value: 1},
		Ptr:   &Inner{Value: 2},
		Items: []Inner{{Value: 3}, {Value: 4}, {Value: 5}},
		ByKey: map[string]Inner{"k": {Value: 6}},
	}
	data := mustEncode(t, enc, want)

	obj := bodyOf(t, data).(*codec.Object)
	inner, _ := obj.Get("inner")
	if o, ok := inner.(*codec.Object); !ok || o.ClassName != "inner" {
		t.Errorf("inner = %#v, want a nested inner object", inner)
	}
	items, _ := obj.Get("items")
	if list, ok := items.([]any); !ok || len(list) != 3 {
		t.Fatalf("items = %#v", items)
	} else if o := list[2].(*codec.Object); o.ClassName != "inner" {
		t.Errorf("items[2] class = %q", o.ClassName)
	}

	got, ok, err := Decode[Outer](dec, data)
	if err != nil || !ok {
		t.Fatalf("Decode: %v %v", ok, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("\n got %+v\nwant %+v", got, want)
	}

	shape, ok := enc.Synthesizer().Registry().Lookup("outer")
	if !ok {
		t.Fatal("outer shape not registered")
	}
	want2 := "outer{by_key:map[string]inner, ptr:inner, name:string, items:[]inner, inner:inner}"
	if shape.String() != want2 {
		t.Errorf("shape = %s, want %s", shape, want2)
	}
}

func TestArrayOfTagged(t *testing.T) {
	catalog := newCatalog(t)
	enc := NewEncoder(WithCatalog(catalog))

	data := mustEncode(t, enc, []Point{{1, 2}, {3, 4}})
	list, ok := bodyOf(t, data).([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("content = %#v", bodyOf(t, data))
	}
	for i, item := range list {
		obj := item.(*codec.Object)
		x, _ := obj.Get("x")
		if obj.ClassName != "pt" || x != int32(2*i+1) {
			t.Errorf("[%d] = %s", i, obj)
		}
	}
}

func TestInterfaceMember(t *testing.T) {
	catalog := newCatalog(t)
	enc := NewEncoder(WithCatalog(catalog))
	dec := NewDecoder(WithCatalog(catalog))

	data := mustEncode(t, enc, Holder{Shape: Point{X: 9, Y: 8}})
	got, ok, err := Decode[Holder](dec, data)
	if err != nil || !ok {
		t.Fatalf("Decode: %v %v", ok, err)
	}
	p, ok := got.Shape.(*Point)
	if !ok || *p != (Point{X: 9, Y: 8}) {
		t.Errorf("Shape = %#v", got.Shape)
	}
}

func TestDecode_NoMatch(t *testing.T) {
	enc := NewEncoder(WithCatalog(newCatalog(t)))
	data := mustEncode(t, enc, Point{X: 1, Y: 2})

	other := NewCatalog()
	if err := Declare[Inner](other, WithName("something-else")); err != nil {
		t.Fatal(err)
	}
	dec := NewDecoder(WithCatalog(other))

	v, err := dec.Decode(data)
	if err != nil || v != nil {
		t.Errorf("Decode = %v, %v; want nil, nil", v, err)
	}
	p, ok, err := Decode[Point](dec, data)
	if err != nil || ok {
		t.Errorf("Decode[Point] = %v, %v, %v", p, ok, err)
	}
}

func TestDecode_TargetType(t *testing.T) {
	catalog := newCatalog(t)
	data := mustEncode(t, NewEncoder(WithCatalog(catalog)), Point{X: 3, Y: 4})
	dec := NewDecoder(WithCatalog(catalog))

	if p, ok, _ := Decode[*Point](dec, data); !ok || p.X != 3 {
		t.Errorf("*Point: %v %v", p, ok)
	}
	if s, ok, _ := Decode[fmt.Stringer](dec, data); !ok || s.String() != "(3,4)" {
		t.Errorf("fmt.Stringer: %v %v", s, ok)
	}
	if _, ok, err := Decode[Filtered](dec, data); ok || err != nil {
		t.Errorf("incompatible T should be absent: %v %v", ok, err)
	}
}

func TestDecode_FirstMatchWins(t *testing.T) {
	catalog := NewCatalog()
	if err := Declare[Point](catalog, WithName("pt")); err != nil {
		t.Fatal(err)
	}
	if err := Declare[renamedPoint](catalog, WithName("pt")); err != nil {
		t.Fatal(err)
	}
	data := mustEncode(t, NewEncoder(WithCatalog(catalog)), Point{X: 1, Y: 2})

	v, err := NewDecoder(WithCatalog(catalog)).Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := v.(*Point); !ok {
		t.Errorf("Decode = %T, want *Point", v)
	}
}

func TestSharedShape_RenamedMember(t *testing.T) {
	registry := NewShapeRegistry()
	first := newCatalog(t)
	second := NewCatalog()
	if err := Declare[renamedPoint](second, WithName("pt")); err != nil {
		t.Fatal(err)
	}

	if _, err := NewEncoder(WithCatalog(first), WithRegistry(registry)).EncodeDefault(Point{X: 1, Y: 2}); err != nil {
		t.Fatal(err)
	}

	t.Run("warns", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		enc := NewEncoder(WithCatalog(second), WithRegistry(registry), WithLogger(zap.New(core)))

		data := mustEncode(t, enc, renamedPoint{X: 5, Y: 6})
		mustEncode(t, enc, renamedPoint{X: 7, Y: 8})

		if n := logs.FilterMessage("Go type disagrees with registered shape").Len(); n != 1 {
			t.Errorf("warnings = %d, want 1", n)
		}
		entry := logs.All()[0]
		fields := entry.ContextMap()
		if fields["shape"] != "pt" {
			t.Errorf("log fields = %v", fields)
		}

		obj := bodyOf(t, data).(*codec.Object)
		if strings.Join(obj.Names(), ",") != "x,y" {
			t.Errorf("registered shape should win, got %s", obj)
		}
		if x, _ := obj.Get("x"); x != nil {
			t.Errorf("x = %#v, want null", x)
		}

		got, ok, err := Decode[Point](NewDecoder(WithCatalog(first)), data)
		if err != nil || !ok || got != (Point{X: 0, Y: 6}) {
			t.Errorf("Decode = %+v %v %v", got, ok, err)
		}
	})

	t.Run("strict", func(t *testing.T) {
		enc := NewEncoder(WithCatalog(second), WithRegistry(registry), WithStrictShapes())
		_, err := enc.EncodeDefault(renamedPoint{X: 5, Y: 6})
		if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseSynthesize, Kind: errors.KindShapeMismatch}) {
			t.Fatalf("err = %v, want shape mismatch", err)
		}
		for _, want := range []string{"missing x", "extra px"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error %q should mention %q", err, want)
			}
		}
	})

	if registry.Len() != 1 {
		t.Errorf("registry = %v, want only pt", registry.Names())
	}
}

func TestEncode_CodecRejects(t *testing.T) {
	enc := NewEncoder(WithCatalog(newCatalog(t)))
	data, err := enc.EncodeDefault(Bad{C: make(chan int)})
	if data != nil {
		t.Error("no partial output expected")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseEncode, Kind: errors.KindUnsupported}) {
		t.Fatalf("err = %v, want encode/unsupported", err)
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Path[len(e.Path)-1] != "c" {
		t.Errorf("path = %v, want ending in c", e.Path)
	}
}

func TestEncode_RecursiveType(t *testing.T) {
	enc := NewEncoder(WithCatalog(newCatalog(t)))
	_, err := enc.EncodeDefault(Node{Next: &Node{}})
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseSynthesize, Kind: errors.KindUnsupported}) {
		t.Fatalf("err = %v, want synthesize/unsupported", err)
	}
	if _, ok := enc.Synthesizer().Registry().Lookup("node"); ok {
		t.Error("failed shape must not be registered")
	}
}

func TestEncode_MaxDepth(t *testing.T) {
	catalog := newCatalog(t)
	tree := Tree{}
	for i := 0; i < 10; i++ {
		tree = Tree{Kids: []any{tree}}
	}

	if _, err := NewEncoder(WithCatalog(catalog)).EncodeDefault(tree); err != nil {
		t.Fatalf("default depth: %v", err)
	}
	_, err := NewEncoder(WithCatalog(catalog), WithMaxDepth(4)).EncodeDefault(tree)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseSynthesize, Kind: errors.KindOverflow}) {
		t.Errorf("err = %v, want synthesize/overflow", err)
	}
}

func TestDecode_Errors(t *testing.T) {
	dec := NewDecoder(WithCatalog(newCatalog(t)))
	marshal := func(t *testing.T, bodies ...any) []byte {
		t.Helper()
		msg := codec.NewMessage(codec.AMF3)
		for _, b := range bodies {
			msg.AddBody(codec.NewBody(codec.OnResult, "", b))
		}
		data, err := codec.Default.Marshal(msg)
		if err != nil {
			t.Fatal(err)
		}
		return data
	}
	pt := func(x any) *codec.Object {
		return &codec.Object{ClassName: "pt", Members: []codec.Member{{Name: "x", Value: x}}}
	}

	tests := []struct {
		name string
		data []byte
		kind errors.Kind
	}{
		{"no body", marshal(t), errors.KindInvalidData},
		{"string into int", marshal(t, pt("abc")), errors.KindTypeMismatch},
		{"fraction into int", marshal(t, pt(1.5)), errors.KindTypeMismatch},
		{"truncated", marshal(t, pt(1))[:12], errors.KindInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dec.Decode(tt.data)
			if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseDecode, Kind: tt.kind}) {
				t.Errorf("err = %v, want decode/%s", err, tt.kind)
			}
		})
	}
}

func TestDecode_MissingMembersKeepZero(t *testing.T) {
	dec := NewDecoder(WithCatalog(newCatalog(t)))
	msg := codec.NewMessage(codec.AMF0)
	msg.AddBody(codec.NewBody(codec.OnResult, "", &codec.Object{
		ClassName: "pt",
		Members:   []codec.Member{{Name: "y", Value: 4.0}, {Name: "z", Value: "ignored"}},
	}))
	data, err := codec.Default.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	got, ok, err := Decode[Point](dec, data)
	if err != nil || !ok || got != (Point{Y: 4}) {
		t.Errorf("Decode = %+v %v %v", got, ok, err)
	}
}
