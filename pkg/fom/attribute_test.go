package fom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreshValueSemantics(t *testing.T) {
	m := NewModel()
	a := m.NewAttribute("altitude")

	_, err := a.FreshFloat()
	assert.ErrorIs(t, err, ErrNoFreshValue, "a new attribute has nothing fresh")

	a.SetFloat(100.0)
	assert.True(t, a.Fresh())

	v, err := a.FreshFloat()
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)
	assert.False(t, a.Fresh())

	_, err = a.FreshFloat()
	assert.ErrorIs(t, err, ErrNoFreshValue)
}

func TestValueNeverFails(t *testing.T) {
	m := NewModel()
	a := m.NewAttribute("speed")

	assert.Equal(t, 0.0, a.Float(), "default before any set")

	a.SetFloat(3.5)
	assert.Equal(t, 3.5, a.Float())
	assert.True(t, a.Fresh(), "Value must not consume freshness")

	_, err := a.FreshFloat()
	require.NoError(t, err)
	assert.Equal(t, 3.5, a.Float(), "Value still readable after consumption")
	assert.False(t, a.Fresh())
}

func TestKindsAreIndependent(t *testing.T) {
	m := NewModel()
	a := m.NewAttribute("mixed")

	SetValue(a, int32(42))
	SetValue(a, true)

	assert.Equal(t, int32(42), Value[int32](a), "setting bool must not zero int")
	assert.True(t, Value[bool](a))
	assert.Equal(t, KindBool, a.Kind())

	got, err := FreshValue[bool](a)
	require.NoError(t, err)
	assert.True(t, got)
	_, err = FreshValue[int32](a)
	assert.ErrorIs(t, err, ErrNoFreshValue, "freshness is per attribute, not per kind")
}

func TestSetHandleOnce(t *testing.T) {
	m := NewModel()
	a := m.NewAttribute("altitude")

	require.NoError(t, a.SetHandle(3))
	require.NoError(t, a.SetHandle(3), "same handle again is fine")
	assert.ErrorIs(t, a.SetHandle(4), ErrHandleReassigned)
	assert.Error(t, a.SetHandle(0))
}

func TestCodec(t *testing.T) {
	m := NewModel()

	tests := []struct {
		name  string
		set   func(a *Attribute)
		size  int
		check func(t *testing.T, a *Attribute)
	}{
		{"float", func(a *Attribute) { a.SetFloat(-12.25) }, 8, func(t *testing.T, a *Attribute) { assert.Equal(t, -12.25, a.Float()) }},
		{"int", func(a *Attribute) { a.SetInt(-7) }, 4, func(t *testing.T, a *Attribute) { assert.Equal(t, int32(-7), a.Int()) }},
		{"bool", func(a *Attribute) { a.SetBool(true) }, 1, func(t *testing.T, a *Attribute) { assert.True(t, a.Bool()) }},
		{"unset sends float", func(a *Attribute) {}, 8, func(t *testing.T, a *Attribute) { assert.Equal(t, 0.0, a.Float()) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := m.NewAttribute("src")
			tt.set(src)
			raw := EncodeValue(src)
			assert.Len(t, raw, tt.size)

			dst := m.NewAttribute("dst")
			require.NoError(t, DecodeInto(dst, raw))
			assert.True(t, dst.Fresh())
			tt.check(t, dst)
		})
	}

	t.Run("bad length", func(t *testing.T) {
		dst := m.NewAttribute("dst")
		assert.ErrorContains(t, DecodeInto(dst, []byte{1, 2}), "unsupported value length 2")
		assert.False(t, dst.Fresh())
	})
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"int": KindInt, "float": KindFloat, "double": KindFloat, "bool": KindBool} {
		got, err := ParseKind(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseKind("string")
	assert.Error(t, err)
}
