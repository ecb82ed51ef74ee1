package fom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/lockstep/pkg/rti"
)

// resolved builds a subscribed instance whose handles are already assigned,
// as if ResolveHandles had run.
func resolved(t *testing.T, m *Model, class *ObjectClass, name string, attrs map[string]rti.AttributeHandle) *SubscribedInstance {
	t.Helper()
	s := m.NewSubscribed(name, class)
	for attrName, h := range attrs {
		a := m.NewAttribute(attrName)
		require.NoError(t, s.AddAttribute(a))
		require.NoError(t, a.SetHandle(h))
		s.handles.Add(h)
	}
	s.resolved = true
	require.NoError(t, s.InitAttributesMap())
	return s
}

func TestDiscoveryMatching(t *testing.T) {
	m := NewModel()
	plane := m.ObjectClass("Plane")
	plane.handle = 1

	a := resolved(t, m, plane, "A", map[string]rti.AttributeHandle{"altitude": 10})
	b := resolved(t, m, plane, "B", map[string]rti.AttributeHandle{"altitude": 10})

	t.Run("wrong class matches nothing", func(t *testing.T) {
		assert.Nil(t, m.Discover("A", 2, 100))
		assert.False(t, a.Discovered())
		assert.False(t, b.Discovered())
	})

	t.Run("name selects the instance", func(t *testing.T) {
		got := m.Discover("A", 1, 100)
		require.NotNil(t, got)
		assert.Same(t, a, got)
		assert.True(t, a.Discovered())
		assert.Equal(t, rti.ObjectHandle(100), a.Handle())
		assert.False(t, b.Discovered())
		assert.False(t, m.AllDiscovered())
	})

	t.Run("unknown name matches nothing", func(t *testing.T) {
		assert.Nil(t, m.Discover("C", 1, 101))
		assert.False(t, b.Discovered())
	})

	t.Run("remove forgets the object", func(t *testing.T) {
		assert.Same(t, a, m.Forget(100))
		assert.False(t, a.Discovered())
		assert.Nil(t, m.Forget(100))
	})
}

func TestReflectionDispatch(t *testing.T) {
	m := NewModel()
	plane := m.ObjectClass("Plane")
	plane.handle = 1
	s := resolved(t, m, plane, "Plane", map[string]rti.AttributeHandle{"altitude": 10, "speed": 11})
	require.NotNil(t, m.Discover("Plane", 1, 50))

	src := m.NewAttribute("src")
	src.SetFloat(100.0)

	t.Run("known handle updates only that attribute", func(t *testing.T) {
		inst, ok, err := m.Reflect(50, rti.AttributeValues{{Handle: 10, Value: EncodeValue(src)}})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Same(t, s, inst)

		alt, _ := s.Attribute("altitude")
		speed, _ := s.Attribute("speed")
		assert.Equal(t, 100.0, alt.Float())
		assert.True(t, alt.Fresh())
		assert.False(t, speed.Fresh())
		assert.Equal(t, 0.0, speed.Float())
	})

	t.Run("unknown attribute handle is a no-op", func(t *testing.T) {
		speed, _ := s.Attribute("speed")
		assert.NotPanics(t, func() {
			require.NoError(t, s.ReflectAttributeValues(rti.AttributeValues{{Handle: 99, Value: EncodeValue(src)}}))
		})
		assert.False(t, speed.Fresh())
	})

	t.Run("unknown object is a no-op", func(t *testing.T) {
		_, ok, err := m.Reflect(51, rti.AttributeValues{{Handle: 10, Value: EncodeValue(src)}})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("bad values are skipped and reported", func(t *testing.T) {
		alt, _ := s.Attribute("altitude")
		_, _ = alt.FreshFloat()
		speed, _ := s.Attribute("speed")

		err := s.ReflectAttributeValues(rti.AttributeValues{
			{Handle: 10, Value: []byte{1, 2, 3}},
			{Handle: 11, Value: EncodeValue(src)},
		})
		assert.ErrorContains(t, err, "unsupported value length 3")
		assert.False(t, alt.Fresh())
		assert.True(t, speed.Fresh())
	})
}

func TestInitAttributesMapOnce(t *testing.T) {
	m := NewModel()
	c := m.ObjectClass("Plane")
	s := m.NewSubscribed("Plane", c)

	assert.ErrorIs(t, s.InitAttributesMap(), ErrNotResolved)

	s.resolved = true
	require.NoError(t, s.InitAttributesMap())
	assert.ErrorIs(t, s.InitAttributesMap(), ErrAlreadyInitialized)
}

func TestBindings(t *testing.T) {
	m := NewModel()
	c := m.ObjectClass("Plane")
	assert.Same(t, c, m.ObjectClass("Plane"), "classes are allocated once per name")

	shared := m.NewAttribute("altitude")
	p := m.NewPublished("P1", c)
	s := m.NewSubscribed("S1", c)

	require.NoError(t, p.AddAttribute(shared))
	require.NoError(t, s.AddAttribute(shared))
	assert.Equal(t, []string{"P1", "S1"}, m.Bindings(shared))

	assert.Error(t, p.AddAttribute(shared), "duplicate name on one instance")

	other := NewModel().NewAttribute("foreign")
	assert.ErrorContains(t, p.AddAttribute(other), "another model")

	m.frozen = true
	assert.ErrorIs(t, p.AddAttribute(m.NewAttribute("late")), ErrModelFrozen)

	got, ok := m.Attribute(shared.Index())
	require.True(t, ok)
	assert.Same(t, shared, got)
	_, ok = m.Attribute(99)
	assert.False(t, ok)
}

func TestDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(`
classes:
  - name: Plane
    attributes: [altitude, speed]
  - name: Boat
    attributes: [heading]
`))
	require.NoError(t, err)
	require.Len(t, doc.Classes, 2)
	assert.Equal(t, []string{"altitude", "speed"}, doc.Classes[0].Attributes)

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "classes: []", "no object classes"},
		{"missing name", "classes: [{attributes: [a]}]", "name is required"},
		{"duplicate class", "classes: [{name: A}, {name: A}]", "duplicate object class"},
		{"duplicate attribute", "classes: [{name: A, attributes: [x, x]}]", "duplicate attribute"},
		{"bad yaml", "classes: [", "failed to parse YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
