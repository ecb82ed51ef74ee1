package fom

import (
	"fmt"

	"github.com/dyluth/lockstep/pkg/rti"
)

// Kind is the scalar type an attribute holds.
type Kind uint8

const (
	KindUnset Kind = iota
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	}
	return "unset"
}

// ParseKind parses "int", "float" (or "double") and "bool".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "int":
		return KindInt, nil
	case "float", "double":
		return KindFloat, nil
	case "bool":
		return KindBool, nil
	}
	return KindUnset, fmt.Errorf("unknown attribute kind: %q (must be 'int', 'float' or 'bool')", s)
}

// Scalar is the set of value types an attribute can carry.
type Scalar interface {
	int32 | float64 | bool
}

// Attribute is a named scalar cell with a freshness flag.
//
// Each kind has its own storage, so setting one kind never zeroes another.
// Callers must stick to one kind per attribute for a run; Kind reports the
// one set last, which is also the one put on the wire.
type Attribute struct {
	name   string
	index  int
	handle rti.AttributeHandle

	kind  Kind
	i     int32
	f     float64
	b     bool
	fresh bool
}

// Name returns the attribute name.
func (a *Attribute) Name() string { return a.name }

// Index returns the attribute's slot in its Model.
func (a *Attribute) Index() int { return a.index }

// Handle returns the resolved handle, or rti.InvalidHandle.
func (a *Attribute) Handle() rti.AttributeHandle { return a.handle }

// Kind returns the kind set last.
func (a *Attribute) Kind() Kind { return a.kind }

// Fresh reports whether a value is waiting to be consumed.
func (a *Attribute) Fresh() bool { return a.fresh }

// SetHandle assigns the handle. Handles are assigned once; assigning the
// same handle again is a no-op and assigning a different one fails.
func (a *Attribute) SetHandle(h rti.AttributeHandle) error {
	if h == rti.InvalidHandle {
		return fmt.Errorf("attribute %q: invalid handle", a.name)
	}
	if a.handle != rti.InvalidHandle && a.handle != h {
		return fmt.Errorf("attribute %q: %w (have %d, got %d)", a.name, ErrHandleReassigned, a.handle, h)
	}
	a.handle = h
	return nil
}

// SetValue stores v and marks a fresh.
func SetValue[T Scalar](a *Attribute, v T) {
	switch x := any(v).(type) {
	case int32:
		a.i, a.kind = x, KindInt
	case float64:
		a.f, a.kind = x, KindFloat
	case bool:
		a.b, a.kind = x, KindBool
	}
	a.fresh = true
}

// Value returns the last stored value of type T, or its zero value.
// It never fails and does not touch freshness.
func Value[T Scalar](a *Attribute) T {
	var out T
	switch p := any(&out).(type) {
	case *int32:
		*p = a.i
	case *float64:
		*p = a.f
	case *bool:
		*p = a.b
	}
	return out
}

// FreshValue returns the value of type T and clears freshness.
// It fails with ErrNoFreshValue if nothing fresh is pending.
func FreshValue[T Scalar](a *Attribute) (T, error) {
	if !a.fresh {
		var zero T
		return zero, fmt.Errorf("attribute %q: %w", a.name, ErrNoFreshValue)
	}
	a.fresh = false
	return Value[T](a), nil
}

func (a *Attribute) SetInt(v int32)     { SetValue(a, v) }
func (a *Attribute) SetFloat(v float64) { SetValue(a, v) }
func (a *Attribute) SetBool(v bool)     { SetValue(a, v) }

func (a *Attribute) Int() int32     { return Value[int32](a) }
func (a *Attribute) Float() float64 { return Value[float64](a) }
func (a *Attribute) Bool() bool     { return Value[bool](a) }

func (a *Attribute) FreshInt() (int32, error)     { return FreshValue[int32](a) }
func (a *Attribute) FreshFloat() (float64, error) { return FreshValue[float64](a) }
func (a *Attribute) FreshBool() (bool, error)     { return FreshValue[bool](a) }

// String renders the current value of the active kind.
func (a *Attribute) String() string {
	switch a.kind {
	case KindInt:
		return fmt.Sprintf("%d", a.i)
	case KindBool:
		return fmt.Sprintf("%t", a.b)
	}
	return fmt.Sprintf("%g", a.f)
}
