package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/amf/codec"
)

const (
	formatTree = "tree"
	formatJSON = "json"
	formatYAML = "yaml"
	formatCBOR = "cbor"
	formatDiag = "diag"
)

var formats = []string{formatTree, formatJSON, formatYAML, formatCBOR, formatDiag}

func validFormat(f string) bool {
	for _, known := range formats {
		if f == known {
			return true
		}
	}
	return false
}

// cborMode encodes with Core Deterministic Encoding so equal messages
// produce equal bytes. Dates keep their tag.
var cborMode cbor.EncMode

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	opts.TimeTag = cbor.EncTagRequired
	var err error
	cborMode, err = opts.EncMode()
	if err != nil {
		panic("amf: CBOR encoder initialization failed: " + err.Error())
	}
}

// render writes msg to w in format.
func render(w io.Writer, msg *codec.Message, format string) error {
	switch format {
	case formatTree:
		newTreePrinter(w, colorPalette()).message(msg)
		return nil
	case formatJSON:
		data, err := json.MarshalIndent(messageView(msg), "", "  ")
		if err != nil {
			return fmt.Errorf("render json: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(messageView(msg)); err != nil {
			return fmt.Errorf("render yaml: %w", err)
		}
		return enc.Close()
	case formatCBOR:
		data, err := cborMode.Marshal(messageView(msg))
		if err != nil {
			return fmt.Errorf("render cbor: %w", err)
		}
		_, err = w.Write(data)
		return err
	case formatDiag:
		data, err := cborMode.Marshal(messageView(msg))
		if err != nil {
			return fmt.Errorf("render cbor: %w", err)
		}
		notation, err := cbor.Diagnose(data)
		if err != nil {
			return fmt.Errorf("render diag: %w", err)
		}
		_, err = fmt.Fprintln(w, notation)
		return err
	default:
		return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(formats, ", "))
	}
}

// field is one key of an ordered mapping.
type field struct {
	value any
	key   string
}

// ordered is a mapping that keeps AMF member order in JSON and YAML.
// CBOR output sorts keys.
type ordered []field

func (o ordered) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (o ordered) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, f := range o {
		val := &yaml.Node{}
		if err := val.Encode(f.value); err != nil {
			return nil, err
		}
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.key},
			val)
	}
	return n, nil
}

func (o ordered) MarshalCBOR() ([]byte, error) {
	m := make(map[string]any, len(o))
	for _, f := range o {
		m[f.key] = f.value
	}
	return cborMode.Marshal(m)
}

// binary keeps ByteArray contents distinct from lists of numbers.
type binary []byte

func (b binary) MarshalYAML() (any, error) {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!binary",
		Value: base64.StdEncoding.EncodeToString(b),
	}, nil
}

// classKey carries the class name of a typed object in structured output.
const classKey = "$class"

func messageView(msg *codec.Message) ordered {
	headers := make([]any, 0, len(msg.Headers))
	for _, h := range msg.Headers {
		headers = append(headers, ordered{
			{key: "name", value: h.Name},
			{key: "mustUnderstand", value: h.MustUnderstand},
			{key: "content", value: view(h.Content)},
		})
	}
	bodies := make([]any, 0, len(msg.Bodies))
	for _, b := range msg.Bodies {
		bodies = append(bodies, ordered{
			{key: "target", value: b.Target},
			{key: "response", value: b.Response},
			{key: "content", value: view(b.Content)},
		})
	}
	return ordered{
		{key: "version", value: msg.Version},
		{key: "headers", value: headers},
		{key: "bodies", value: bodies},
	}
}

// view converts a decoded codec value to plain data for the structured
// formats.
func view(v any) any {
	switch t := v.(type) {
	case nil, codec.Undefined:
		return nil
	case codec.XMLDocument:
		return string(t)
	case []byte:
		return binary(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return strconv.FormatFloat(t, 'g', -1, 64)
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = view(item)
		}
		return out
	case *codec.Object:
		o := make(ordered, 0, t.Len()+1)
		if !t.IsAnonymous() {
			o = append(o, field{key: classKey, value: t.ClassName})
		}
		for _, m := range t.Members {
			o = append(o, field{key: m.Name, value: view(m.Value)})
		}
		for _, m := range t.Dynamic {
			o = append(o, field{key: m.Name, value: view(m.Value)})
		}
		return o
	case *codec.ECMAArray:
		o := make(ordered, 0, len(t.Dense)+len(t.Entries))
		for i, item := range t.Dense {
			o = append(o, field{key: strconv.Itoa(i), value: view(item)})
		}
		for _, m := range t.Entries {
			o = append(o, field{key: m.Name, value: view(m.Value)})
		}
		return o
	default:
		return v
	}
}

// palette colors the parts of a tree line.
type palette struct {
	class func(string) string
	key   func(string) string
	kind  func(string) string
	value func(string) string
}

func plainPalette() palette {
	id := func(s string) string { return s }
	return palette{class: id, key: id, kind: id, value: id}
}

// colorPalette uses terminal colors unless color.NoColor is set, which
// fatih/color does on its own when stdout is not a terminal.
func colorPalette() palette {
	wrap := func(c *color.Color) func(string) string {
		f := c.SprintFunc()
		return func(s string) string { return f(s) }
	}
	return palette{
		class: wrap(color.New(color.FgMagenta, color.Bold)),
		key:   wrap(color.New(color.FgCyan)),
		kind:  wrap(color.New(color.FgHiBlack)),
		value: wrap(color.New(color.FgGreen)),
	}
}

type treePrinter struct {
	w   io.Writer
	pal palette
}

func newTreePrinter(w io.Writer, pal palette) *treePrinter {
	return &treePrinter{w: w, pal: pal}
}

func (p *treePrinter) message(msg *codec.Message) {
	fmt.Fprintf(p.w, "%s\n", p.pal.class(fmt.Sprintf("AMF%d message", msg.Version)))
	fmt.Fprintf(p.w, "headers (%d)\n", len(msg.Headers))
	for i, h := range msg.Headers {
		label := fmt.Sprintf("[%d] %s", i, h.Name)
		if h.MustUnderstand {
			label += " (must understand)"
		}
		p.value(1, label, h.Content)
	}
	fmt.Fprintf(p.w, "bodies (%d)\n", len(msg.Bodies))
	for i, b := range msg.Bodies {
		p.value(1, fmt.Sprintf("[%d] %s -> %s", i, orDash(b.Target), orDash(b.Response)), b.Content)
	}
}

func (p *treePrinter) value(depth int, label string, v any) {
	indent := strings.Repeat("  ", depth)
	key := p.pal.key(label)

	switch t := v.(type) {
	case *codec.Object:
		name := t.ClassName
		if name == "" {
			name = "Object"
		}
		fmt.Fprintf(p.w, "%s%s: %s\n", indent, key, p.pal.class(name))
		for _, m := range t.Members {
			p.value(depth+1, m.Name, m.Value)
		}
		for _, m := range t.Dynamic {
			p.value(depth+1, m.Name+" (dynamic)", m.Value)
		}
	case *codec.ECMAArray:
		fmt.Fprintf(p.w, "%s%s: %s\n", indent, key, p.pal.kind(fmt.Sprintf("array[%d+%d]", len(t.Dense), len(t.Entries))))
		for i, item := range t.Dense {
			p.value(depth+1, "["+strconv.Itoa(i)+"]", item)
		}
		for _, m := range t.Entries {
			p.value(depth+1, m.Name, m.Value)
		}
	case []any:
		fmt.Fprintf(p.w, "%s%s: %s\n", indent, key, p.pal.kind(fmt.Sprintf("array[%d]", len(t))))
		for i, item := range t {
			p.value(depth+1, "["+strconv.Itoa(i)+"]", item)
		}
	default:
		fmt.Fprintf(p.w, "%s%s: %s %s\n", indent, key, p.pal.value(scalar(v)), p.pal.kind("("+codec.TypeName(v)+")"))
	}
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case codec.Undefined:
		return "undefined"
	case string:
		return strconv.Quote(t)
	case codec.XMLDocument:
		return strconv.Quote(string(t))
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case []byte:
		return base64.StdEncoding.EncodeToString(t)
	default:
		return fmt.Sprint(v)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
