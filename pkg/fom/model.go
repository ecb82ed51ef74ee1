// Package fom holds a federate's object model: the attributes, object
// classes and published/subscribed instances it exchanges with the
// federation, plus the raw value codec and the FOM document format.
//
// A Model is an arena. It allocates every attribute, class and instance and
// records which instances bind which attributes, so an attribute shared by
// two instances is an explicit, queryable fact rather than an accident of
// pointer sharing. Bindings freeze once handles are resolved.
//
// Nothing in this package locks. A Model belongs to the one goroutine that
// drives its federate and pumps its callbacks.
package fom

import (
	"context"
	"fmt"

	"github.com/dyluth/lockstep/pkg/rti"
)

// Model owns a federate's attributes, classes and instances.
type Model struct {
	attrs      []*Attribute
	classes    []*ObjectClass
	published  []*PublishedInstance
	subscribed []*SubscribedInstance

	// attribute index → names of the instances binding it
	bindings map[int][]string

	// object handle → subscribed instance, filled on discovery
	discovered map[rti.ObjectHandle]*SubscribedInstance

	frozen bool
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		bindings:   make(map[int][]string),
		discovered: make(map[rti.ObjectHandle]*SubscribedInstance),
	}
}

// NewAttribute allocates a zero-valued attribute.
func (m *Model) NewAttribute(name string) *Attribute {
	a := &Attribute{name: name, index: len(m.attrs)}
	m.attrs = append(m.attrs, a)
	return a
}

// Attribute returns the attribute in slot i.
func (m *Model) Attribute(i int) (*Attribute, bool) {
	if i < 0 || i >= len(m.attrs) {
		return nil, false
	}
	return m.attrs[i], true
}

// Attributes returns every allocated attribute in allocation order.
func (m *Model) Attributes() []*Attribute { return m.attrs }

// Bindings returns the names of the instances bound to a.
func (m *Model) Bindings(a *Attribute) []string {
	return m.bindings[a.index]
}

// ObjectClass returns the class called name, allocating it on first use.
func (m *Model) ObjectClass(name string) *ObjectClass {
	for _, c := range m.classes {
		if c.name == name {
			return c
		}
	}
	c := &ObjectClass{name: name}
	m.classes = append(m.classes, c)
	return c
}

// Classes returns every allocated class.
func (m *Model) Classes() []*ObjectClass { return m.classes }

// NewPublished allocates a published instance of class.
func (m *Model) NewPublished(name string, class *ObjectClass) *PublishedInstance {
	p := &PublishedInstance{Instance: Instance{model: m, name: name, class: class}}
	m.published = append(m.published, p)
	return p
}

// NewSubscribed allocates a subscribed instance of class.
func (m *Model) NewSubscribed(name string, class *ObjectClass) *SubscribedInstance {
	s := &SubscribedInstance{Instance: Instance{model: m, name: name, class: class}}
	m.subscribed = append(m.subscribed, s)
	return s
}

// Published returns the published instances in allocation order.
func (m *Model) Published() []*PublishedInstance { return m.published }

// Subscribed returns the subscribed instances in allocation order.
func (m *Model) Subscribed() []*SubscribedInstance { return m.subscribed }

// Frozen reports whether handles have been resolved.
func (m *Model) Frozen() bool { return m.frozen }

func (m *Model) bind(inst string, a *Attribute) error {
	if m.frozen {
		return fmt.Errorf("bind %q to %q: %w", a.name, inst, ErrModelFrozen)
	}
	if own, ok := m.Attribute(a.index); !ok || own != a {
		return fmt.Errorf("bind %q to %q: attribute belongs to another model", a.name, inst)
	}
	m.bindings[a.index] = append(m.bindings[a.index], inst)
	return nil
}

// ResolveHandles resolves every class handle, then every instance's
// attribute handles, then builds the subscribed instances' handle maps.
// After it succeeds the model is frozen.
func (m *Model) ResolveHandles(ctx context.Context, amb rti.Ambassador) error {
	for _, c := range m.classes {
		if err := c.ResolveHandle(ctx, amb); err != nil {
			return err
		}
	}
	for _, p := range m.published {
		if err := p.ResolveAttributeHandles(ctx, amb); err != nil {
			return err
		}
	}
	for _, s := range m.subscribed {
		if err := s.ResolveAttributeHandles(ctx, amb); err != nil {
			return err
		}
		if err := s.InitAttributesMap(); err != nil {
			return err
		}
	}
	m.frozen = true
	return nil
}

// Discover offers a discovery notification to every subscribed instance and
// records the one that claims it. It returns nil when none matches.
func (m *Model) Discover(name string, class rti.ObjectClassHandle, obj rti.ObjectHandle) *SubscribedInstance {
	for _, s := range m.subscribed {
		if s.TryToDiscover(name, class, obj) {
			m.discovered[obj] = s
			return s
		}
	}
	return nil
}

// Forget drops a removed object. It returns the instance that held it.
func (m *Model) Forget(obj rti.ObjectHandle) *SubscribedInstance {
	s, ok := m.discovered[obj]
	if !ok {
		return nil
	}
	delete(m.discovered, obj)
	s.UnsetDiscovered()
	return s
}

// Reflect routes inbound values to the discovered instance holding obj.
// Unknown objects are ignored: they belong to instances this federate does
// not track. ok reports whether an instance took the values.
func (m *Model) Reflect(obj rti.ObjectHandle, values rti.AttributeValues) (inst *SubscribedInstance, ok bool, err error) {
	s, found := m.discovered[obj]
	if !found {
		return nil, false, nil
	}
	return s, true, s.ReflectAttributeValues(values)
}

// AllDiscovered reports whether every subscribed instance has been matched.
func (m *Model) AllDiscovered() bool {
	for _, s := range m.subscribed {
		if !s.Discovered() {
			return false
		}
	}
	return true
}
