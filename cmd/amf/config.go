package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/amf/codec"
	"github.com/wippyai/amf/transcoder"
)

// Config is the optional file given with --config. YAML is the default
// format; a .toml extension selects TOML.
type Config struct {
	Version *uint16       `yaml:"version" toml:"version"`
	Format  string        `yaml:"format" toml:"format"`
	Shapes  []ShapeConfig `yaml:"shapes" toml:"shapes"`
}

// ShapeConfig declares one shape by name with its members in order.
type ShapeConfig struct {
	Name    string         `yaml:"name" toml:"name"`
	Members []MemberConfig `yaml:"members" toml:"members"`
}

// MemberConfig is a member name and a type string such as "int", "pt",
// "[]pt" or "map[string]float".
type MemberConfig struct {
	Name string `yaml:"name" toml:"name"`
	Type string `yaml:"type" toml:"type"`
}

const defaultFormat = formatTree

// LoadConfig reads path. An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data, strings.EqualFold(filepath.Ext(path), ".toml"))
}

// ParseConfig decodes YAML, or TOML when isTOML is set, and validates
// the result.
func ParseConfig(data []byte, isTOML bool) (*Config, error) {
	var cfg Config
	if isTOML {
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if cfg.Format != "" && !validFormat(cfg.Format) {
		return nil, fmt.Errorf("config: unknown format %q", cfg.Format)
	}
	if cfg.Version != nil && *cfg.Version != codec.AMF0 && *cfg.Version != codec.AMF3 {
		return nil, fmt.Errorf("config: version must be 0 or 3, got %d", *cfg.Version)
	}
	return &cfg, nil
}

// MessageVersion returns the configured version or the AMF3 default.
func (c *Config) MessageVersion() uint16 {
	if c.Version == nil {
		return transcoder.DefaultVersion
	}
	return *c.Version
}

// OutputFormat returns the configured format or the tree default.
func (c *Config) OutputFormat() string {
	if c.Format == "" {
		return defaultFormat
	}
	return c.Format
}

// Registry defines every declared shape in a fresh registry. Shapes may
// refer to each other in any order but not in a cycle.
func (c *Config) Registry() (*transcoder.ShapeRegistry, error) {
	byName := make(map[string]*ShapeConfig, len(c.Shapes))
	for i := range c.Shapes {
		sc := &c.Shapes[i]
		if sc.Name == "" {
			return nil, fmt.Errorf("config: shape %d has no name", i)
		}
		if _, dup := byName[sc.Name]; dup {
			return nil, fmt.Errorf("config: shape %q declared twice", sc.Name)
		}
		byName[sc.Name] = sc
	}

	r := &shapeResolver{
		byName:   byName,
		resolved: make(map[string]*transcoder.Shape, len(byName)),
	}
	reg := transcoder.NewShapeRegistry()
	for i := range c.Shapes {
		shape, err := r.resolve(c.Shapes[i].Name, nil)
		if err != nil {
			return nil, err
		}
		if err := reg.Define(shape); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

type shapeResolver struct {
	byName   map[string]*ShapeConfig
	resolved map[string]*transcoder.Shape
}

func (r *shapeResolver) resolve(name string, stack []string) (*transcoder.Shape, error) {
	if s, ok := r.resolved[name]; ok {
		return s, nil
	}
	for _, n := range stack {
		if n == name {
			return nil, fmt.Errorf("config: shape %q refers to itself through %s", name, strings.Join(append(stack, name), " -> "))
		}
	}
	sc, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("config: unknown shape %q", name)
	}
	stack = append(stack, name)

	shape := &transcoder.Shape{Name: name, Members: make([]transcoder.ShapeMember, 0, len(sc.Members))}
	for _, mc := range sc.Members {
		m, err := r.member(mc.Type, stack)
		if err != nil {
			return nil, fmt.Errorf("shape %q member %q: %w", name, mc.Name, err)
		}
		m.Name = mc.Name
		shape.Members = append(shape.Members, m)
	}
	r.resolved[name] = shape
	return shape, nil
}

// member parses one type string. Containers hold one level of element
// description, matching what the synthesizer derives.
func (r *shapeResolver) member(typ string, stack []string) (transcoder.ShapeMember, error) {
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return transcoder.ShapeMember{Kind: transcoder.KindAny}, nil
	}

	kind := transcoder.KindAny
	switch {
	case strings.HasPrefix(typ, "[]"):
		kind, typ = transcoder.KindList, typ[2:]
	case strings.HasPrefix(typ, "map[string]"):
		kind, typ = transcoder.KindMap, typ[len("map[string]"):]
	}

	leaf, shape, err := r.leaf(typ, stack)
	if err != nil {
		return transcoder.ShapeMember{}, err
	}
	if kind == transcoder.KindAny {
		return transcoder.ShapeMember{Kind: leaf, Shape: shape}, nil
	}
	return transcoder.ShapeMember{Kind: kind, Elem: leaf, Shape: shape}, nil
}

func (r *shapeResolver) leaf(typ string, stack []string) (transcoder.Kind, *transcoder.Shape, error) {
	if k, ok := transcoder.ParseKind(typ); ok {
		if k == transcoder.KindShape || k.IsContainer() {
			return 0, nil, fmt.Errorf("type %q is not a leaf type", typ)
		}
		return k, nil, nil
	}
	if strings.HasPrefix(typ, "[]") || strings.HasPrefix(typ, "map[") {
		return 0, nil, fmt.Errorf("nested container %q is not supported", typ)
	}
	shape, err := r.resolve(typ, stack)
	if err != nil {
		return 0, nil, err
	}
	return transcoder.KindShape, shape, nil
}

// ShapeOf finds a declared shape by name in the config.
func (c *Config) ShapeOf(name string) (*transcoder.Shape, error) {
	reg, err := c.Registry()
	if err != nil {
		return nil, err
	}
	shape, ok := reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("shape %q is not declared in the config", name)
	}
	return shape, nil
}
