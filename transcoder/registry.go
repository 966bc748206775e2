package transcoder

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/wippyai/amf/errors"
)

// ShapeRegistry maps exposed type names to shapes. It grows monotonically
// and is shared by reference between every encoder that should agree on
// shapes. The zero value is not usable; call NewShapeRegistry.
type ShapeRegistry struct {
	entries sync.Map // string -> *registryEntry
	count   atomic.Int64
}

type registryEntry struct {
	shape *Shape
	err   error
	once  sync.Once
	ready atomic.Bool
}

// NewShapeRegistry returns an empty registry.
func NewShapeRegistry() *ShapeRegistry {
	return &ShapeRegistry{}
}

// GetOrCreate returns the shape registered under name, running build only
// when there is none. Concurrent first calls for one name run build once and
// all observe its result; created is true only for the caller that ran it.
// A failed build leaves no entry behind, so a later call may retry.
func (r *ShapeRegistry) GetOrCreate(name string, build func() (*Shape, error)) (shape *Shape, created bool, err error) {
	v, ok := r.entries.Load(name)
	if !ok {
		v, _ = r.entries.LoadOrStore(name, &registryEntry{})
	}
	e := v.(*registryEntry)

	e.once.Do(func() {
		created = true
		e.shape, e.err = build()
		if e.err == nil {
			e.err = validateShape(name, e.shape)
		}
		if e.err != nil {
			e.shape = nil
			r.entries.CompareAndDelete(name, e)
			return
		}
		e.ready.Store(true)
		r.count.Add(1)
	})

	if e.err != nil {
		return nil, created, e.err
	}
	return e.shape, created, nil
}

// Lookup returns a completed shape. It never waits for a build in progress.
func (r *ShapeRegistry) Lookup(name string) (*Shape, bool) {
	v, ok := r.entries.Load(name)
	if !ok {
		return nil, false
	}
	e := v.(*registryEntry)
	if !e.ready.Load() {
		return nil, false
	}
	return e.shape, true
}

// Define registers a shape up front. Defining an equal shape again is a
// no-op; a different shape under a registered name is a conflict.
func (r *ShapeRegistry) Define(shape *Shape) error {
	if shape == nil {
		return errors.NilPointer(errors.PhaseRegister, nil, "*transcoder.Shape")
	}
	existing, created, err := r.GetOrCreate(shape.Name, func() (*Shape, error) {
		return shape, nil
	})
	if err != nil || created {
		return err
	}
	if !existing.Equal(shape) {
		return errors.RegistryConflict(shape.Name, "registered as "+existing.String()+", redefined as "+shape.String())
	}
	return nil
}

// Len counts completed shapes.
func (r *ShapeRegistry) Len() int {
	return int(r.count.Load())
}

// Names returns a sorted snapshot of completed shape names.
func (r *ShapeRegistry) Names() []string {
	var names []string
	r.entries.Range(func(key, value any) bool {
		if value.(*registryEntry).ready.Load() {
			names = append(names, key.(string))
		}
		return true
	})
	sort.Strings(names)
	return names
}

func validateShape(name string, s *Shape) error {
	if s == nil {
		return errors.NilPointer(errors.PhaseRegister, []string{name}, "*transcoder.Shape")
	}
	if name == "" || s.Name != name {
		return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			AMFType(name).
			Detail("shape name %q does not match registry key", s.Name).
			Build()
	}
	seen := make(map[string]struct{}, len(s.Members))
	for _, m := range s.Members {
		if m.Name == "" {
			return errors.InvalidInput(errors.PhaseRegister, "shape "+name+" has an unnamed member")
		}
		if _, dup := seen[m.Name]; dup {
			return errors.New(errors.PhaseRegister, errors.KindInvalidInput).
				AMFType(name).
				Path(m.Name).
				Detail("duplicate member").
				Build()
		}
		seen[m.Name] = struct{}{}
	}
	return nil
}
