package transcoder

import (
	"reflect"
	"sync"
	"testing"

	"github.com/wippyai/amf/codec"
)

type Empty struct {
	Hidden int
}

func TestSynthesize_IdempotentShapes(t *testing.T) {
	c := NewCatalog()
	if err := Declare[Point](c, WithName("pt")); err != nil {
		t.Fatal(err)
	}
	r := NewShapeRegistry()
	enc := NewEncoder(WithCatalog(c), WithRegistry(r))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := enc.EncodeDefault(Point{X: i, Y: -i}); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	first, _ := r.Lookup("pt")
	again, err := enc.Synthesizer().ShapeOf(reflect.TypeOf(Point{}))
	if err != nil || again != first {
		t.Errorf("ShapeOf returned a different shape: %v %v", again, err)
	}
	other := NewEncoder(WithCatalog(c), WithRegistry(r))
	if s, _ := other.Synthesizer().ShapeOf(reflect.TypeOf(&Point{})); s != first {
		t.Error("encoders sharing a registry must share shapes")
	}
	if r.Len() != 1 {
		t.Errorf("registry = %v", r.Names())
	}
}

func TestSynthesize_EmptyShape(t *testing.T) {
	c := NewCatalog()
	if err := Declare[Empty](c, WithName("empty")); err != nil {
		t.Fatal(err)
	}
	v, err := NewSynthesizer(WithCatalog(c)).Synthesize(Empty{Hidden: 1})
	if err != nil {
		t.Fatal(err)
	}
	obj, ok := v.(*codec.Object)
	if !ok || obj.ClassName != "empty" || obj.Len() != 0 {
		t.Errorf("Synthesize = %#v", v)
	}
}

func TestSynthesize_Values(t *testing.T) {
	c := NewCatalog()
	if err := Declare[Point](c, WithName("pt")); err != nil {
		t.Fatal(err)
	}
	s := NewSynthesizer(WithCatalog(c))
	var nilPoint *Point
	var nilIface any

	tests := []struct {
		in   any
		name string
		want string
	}{
		{name: "value", in: Point{X: 1, Y: 2}, want: "*codec.Object pt{x,y}"},
		{name: "pointer", in: &Point{X: 1, Y: 2}, want: "*codec.Object pt{x,y}"},
		{name: "nil tagged pointer", in: nilPoint, want: "<nil>"},
		{name: "nil", in: nilIface, want: "<nil>"},
		{name: "untagged struct", in: Inner{Value: 1}, want: "transcoder.Inner"},
		{name: "slice of pointers", in: []*Point{{X: 1}}, want: "[]interface {}"},
		{name: "map of tagged", in: map[string]Point{"a": {}}, want: "map[string]interface {}"},
		{name: "array of tagged", in: [1]Point{}, want: "[]interface {}"},
		{name: "untagged slice", in: []int{1}, want: "[]int"},
		{name: "int-keyed map", in: map[int]Point{}, want: "map[int]transcoder.Point"},
		{name: "pointer to slice", in: &[]Point{{}}, want: "[]interface {}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := s.Synthesize(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			got := "<nil>"
			if v != nil {
				got = reflect.TypeOf(v).String()
				if obj, ok := v.(*codec.Object); ok {
					got += " " + obj.String()
				}
			}
			if got != tt.want {
				t.Errorf("Synthesize(%#v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestSynthesize_ShapeOfUndeclared(t *testing.T) {
	s := NewSynthesizer()
	if _, err := s.ShapeOf(reflect.TypeOf(Point{})); err == nil {
		t.Error("undeclared type should have no shape")
	}
	if _, err := s.ShapeOf(nil); err == nil {
		t.Error("nil type should have no shape")
	}
}

func TestSynthesize_MemberKinds(t *testing.T) {
	type kinds struct {
		B   bool              `amf:"b"`
		I   int16             `amf:"i"`
		U   uint              `amf:"u"`
		F   float32           `amf:"f"`
		S   string            `amf:"s"`
		Raw []byte            `amf:"raw"`
		Any any               `amf:"any"`
		L   [][]string        `amf:"l"`
		M   map[string]*Point `amf:"m"`
	}
	c := NewCatalog()
	if err := Declare[kinds](c, WithName("kinds")); err != nil {
		t.Fatal(err)
	}
	if err := Declare[Point](c, WithName("pt")); err != nil {
		t.Fatal(err)
	}
	shape, err := NewSynthesizer(WithCatalog(c)).ShapeOf(reflect.TypeOf(kinds{}))
	if err != nil {
		t.Fatal(err)
	}
	want := "kinds{b:bool, i:int, u:uint, f:float, s:string, raw:bytes, any:any, l:[]list, m:map[string]pt}"
	if shape.String() != want {
		t.Errorf("shape = %s\nwant    %s", shape, want)
	}
}
