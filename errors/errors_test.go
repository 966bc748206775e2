package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:   PhaseDecode,
				Kind:    KindTypeMismatch,
				Path:    []string{"order", "customer", "id"},
				GoType:  "int",
				AMFType: "string",
				Detail:  "cannot convert",
			},
			contains: []string{"[decode]", "type_mismatch", "order.customer.id", "int", "AMF type string", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseEncode,
				Kind:  KindUnsupported,
			},
			contains: []string{"[encode]", "unsupported"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseIO,
				Kind:   KindInvalidInput,
				Detail: "write file",
				Cause:  errors.New("disk full"),
			},
			contains: []string{"[io]", "invalid_input", "write file", "caused by", "disk full"},
		},
		{
			name:     "amf type only",
			err:      RegistryConflict("pt", "members differ"),
			contains: []string{"[register]", "registry_conflict", "AMF type pt", " - members differ"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindTypeMismatch,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseEncode, Kind: KindTypeMismatch}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindTypeMismatch}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseEncode, Kind: KindOverflow}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseEncode, Kind: KindTypeMismatch}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDecode, KindTypeMismatch).
		Path("user", "name").
		GoType("int").
		AMFType("string").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "int", "string").
		Build()

	if err.Phase != PhaseDecode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDecode)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "user" || err.Path[1] != "name" {
		t.Errorf("Path = %v, want [user name]", err.Path)
	}
	if err.GoType != "int" {
		t.Errorf("GoType = %v, want 'int'", err.GoType)
	}
	if err.AMFType != "string" {
		t.Errorf("AMFType = %v, want 'string'", err.AMFType)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected int, got string" {
		t.Errorf("Detail = %v, want 'expected int, got string'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(PhaseDecode, []string{"field"}, "int", "string")
		if err.Kind != KindTypeMismatch {
			t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
		}
		if err.GoType != "int" || err.AMFType != "string" {
			t.Errorf("GoType=%v AMFType=%v", err.GoType, err.AMFType)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		err := Unsupported(PhaseEncode, []string{"ch"}, "chan int")
		if err.Kind != KindUnsupported {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupported)
		}
		if err.GoType != "chan int" {
			t.Errorf("GoType = %v, want 'chan int'", err.GoType)
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		err := Truncated(7, 4)
		if err.Phase != PhaseDecode || err.Kind != KindInvalidData {
			t.Errorf("got %v/%v, want decode/invalid_data", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Detail, "offset 7") {
			t.Errorf("Detail = %v, should contain offset", err.Detail)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseSynthesize, []string{"next"}, 65, "max depth 64")
		if err.Kind != KindOverflow {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
		}
		if err.Value != 65 {
			t.Errorf("Value = %v, want 65", err.Value)
		}
	})

	t.Run("NilPointer", func(t *testing.T) {
		err := NilPointer(PhaseEncode, []string{"ptr"}, "*User")
		if err.Kind != KindNilPointer {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNilPointer)
		}
	})

	t.Run("ShapeMismatch", func(t *testing.T) {
		err := ShapeMismatch("main.Point", "pt", []string{"x"}, []string{"px"})
		if err.Kind != KindShapeMismatch {
			t.Errorf("Kind = %v, want %v", err.Kind, KindShapeMismatch)
		}
		if err.Detail != "missing x; extra px" {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseRegister, "shape", "pt")
		if !strings.Contains(err.Error(), `shape "pt" not found`) {
			t.Errorf("Error() = %q", err.Error())
		}
	})
}

func TestWithPath(t *testing.T) {
	t.Run("structured", func(t *testing.T) {
		inner := TypeMismatch(PhaseDecode, []string{"y"}, "int", "string")
		got := WithPath(PhaseDecode, inner, "point")
		var e *Error
		if !errors.As(got, &e) {
			t.Fatalf("expected *Error, got %T", got)
		}
		if strings.Join(e.Path, ".") != "point.y" {
			t.Errorf("Path = %v, want point.y", e.Path)
		}
		if strings.Join(inner.Path, ".") != "y" {
			t.Errorf("original path mutated: %v", inner.Path)
		}
	})

	t.Run("foreign", func(t *testing.T) {
		cause := errors.New("boom")
		got := WithPath(PhaseEncode, cause, "a")
		if !errors.Is(got, cause) {
			t.Error("wrapped error should unwrap to cause")
		}
	})

	t.Run("nil", func(t *testing.T) {
		if WithPath(PhaseEncode, nil, "a") != nil {
			t.Error("nil error should stay nil")
		}
	})
}
