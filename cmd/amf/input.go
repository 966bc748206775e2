package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/wippyai/amf/codec"
	"github.com/wippyai/amf/transcoder"
)

// parseJSON reads one JSON document, comments and trailing commas
// allowed, keeping object members in source order.
func parseJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	v, err := readJSON(dec)
	if err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse input: unexpected data after the document")
	}
	return v, nil
}

func readJSON(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		var o ordered
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)
			v, err := readJSON(dec)
			if err != nil {
				return nil, err
			}
			o = append(o, field{key: key, value: v})
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		if o == nil {
			o = ordered{}
		}
		return o, nil
	case '[':
		items := []any{}
		for dec.More() {
			v, err := readJSON(dec)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return items, nil
	default:
		return nil, fmt.Errorf("unexpected %q", delim)
	}
}

// buildRoot turns the parsed document into a codec value. A nil shape
// yields anonymous objects throughout.
func buildRoot(doc any, shape *transcoder.Shape) (any, error) {
	if shape == nil {
		return generic(doc), nil
	}
	o, ok := doc.(ordered)
	if !ok {
		return nil, fmt.Errorf("input must be a JSON object to encode as %s", shape.Name)
	}
	return object(o, shape, nil)
}

func object(o ordered, shape *transcoder.Shape, path []string) (*codec.Object, error) {
	obj := codec.NewObject(shape.Name, len(shape.Members))
	given := make(map[string]any, len(o))
	for _, f := range o {
		given[f.key] = f.value
	}
	for _, m := range shape.Members {
		raw, ok := given[m.Name]
		if !ok {
			obj.Set(m.Name, nil)
			continue
		}
		v, err := build(raw, m, append(path, m.Name))
		if err != nil {
			return nil, err
		}
		obj.Set(m.Name, v)
	}
	for _, f := range o {
		if f.key == classKey || shape.Index(f.key) >= 0 {
			continue
		}
		obj.Dynamic = append(obj.Dynamic, codec.Member{Name: f.key, Value: generic(f.value)})
	}
	return obj, nil
}

// build converts raw to the kind m declares.
func build(raw any, m transcoder.ShapeMember, path []string) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch m.Kind {
	case transcoder.KindShape:
		o, ok := raw.(ordered)
		if !ok || m.Shape == nil {
			return nil, inputMismatch(path, m, raw)
		}
		return object(o, m.Shape, path)
	case transcoder.KindList:
		items, ok := raw.([]any)
		if !ok {
			return nil, inputMismatch(path, m, raw)
		}
		elem := transcoder.ShapeMember{Kind: m.Elem, Shape: m.Shape}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := build(item, elem, append(path, "["+strconv.Itoa(i)+"]"))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case transcoder.KindMap:
		o, ok := raw.(ordered)
		if !ok {
			return nil, inputMismatch(path, m, raw)
		}
		elem := transcoder.ShapeMember{Kind: m.Elem, Shape: m.Shape}
		arr := &codec.ECMAArray{Entries: make([]codec.Member, 0, len(o))}
		for _, f := range o {
			v, err := build(f.value, elem, append(path, f.key))
			if err != nil {
				return nil, err
			}
			arr.Entries = append(arr.Entries, codec.Member{Name: f.key, Value: v})
		}
		return arr, nil
	case transcoder.KindBool:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	case transcoder.KindInt:
		if n, ok := raw.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				return i, nil
			}
		}
	case transcoder.KindUint:
		if n, ok := raw.(json.Number); ok {
			if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
				return u, nil
			}
		}
	case transcoder.KindFloat:
		if n, ok := raw.(json.Number); ok {
			if f, err := n.Float64(); err == nil {
				return f, nil
			}
		}
	case transcoder.KindString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case transcoder.KindTime:
		if s, ok := raw.(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return t.UTC(), nil
			}
		}
	case transcoder.KindBytes:
		if s, ok := raw.(string); ok {
			if b, err := base64.StdEncoding.DecodeString(s); err == nil {
				return b, nil
			}
		}
	default:
		return generic(raw), nil
	}
	return nil, inputMismatch(path, m, raw)
}

// generic converts undeclared input: objects become anonymous objects
// unless they carry a "$class" member.
func generic(raw any) any {
	switch t := raw.(type) {
	case ordered:
		obj := codec.NewObject("", len(t))
		for _, f := range t {
			if f.key == classKey {
				if name, ok := f.value.(string); ok {
					obj.ClassName = name
				}
				continue
			}
			obj.Set(f.key, generic(f.value))
		}
		return obj
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = generic(item)
		}
		return out
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	default:
		return raw
	}
}

func inputMismatch(path []string, m transcoder.ShapeMember, raw any) error {
	got := "null"
	switch raw.(type) {
	case ordered:
		got = "object"
	case []any:
		got = "array"
	case json.Number:
		got = "number"
	case string:
		got = "string"
	case bool:
		got = "boolean"
	}
	return fmt.Errorf("input %s: want %s, got %s", strings.Join(path, "."), m.TypeString(), got)
}
