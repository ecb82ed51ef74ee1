package fom

import (
	"context"
	"fmt"

	"github.com/dyluth/lockstep/pkg/rti"
)

// ObjectClass is a named object schema resolved once to a handle.
type ObjectClass struct {
	name   string
	handle rti.ObjectClassHandle
}

func (c *ObjectClass) Name() string                  { return c.name }
func (c *ObjectClass) Handle() rti.ObjectClassHandle { return c.handle }
func (c *ObjectClass) Resolved() bool                { return c.handle != rti.InvalidHandle }

// ResolveHandle looks the class handle up by name. Later calls are no-ops.
func (c *ObjectClass) ResolveHandle(ctx context.Context, amb rti.Ambassador) error {
	if c.Resolved() {
		return nil
	}
	h, err := amb.GetObjectClassHandle(ctx, c.name)
	if err != nil {
		return fmt.Errorf("failed to resolve object class %q: %w", c.name, err)
	}
	c.handle = h
	return nil
}

// Instance is the state shared by published and subscribed instances.
type Instance struct {
	model      *Model
	name       string
	class      *ObjectClass
	handle     rti.ObjectHandle
	attrs      []*Attribute
	handles    rti.AttributeHandleSet
	resolved   bool
	discovered bool
}

func (i *Instance) Name() string                             { return i.name }
func (i *Instance) Class() *ObjectClass                      { return i.class }
func (i *Instance) Handle() rti.ObjectHandle                 { return i.handle }
func (i *Instance) Attributes() []*Attribute                 { return i.attrs }
func (i *Instance) Discovered() bool                         { return i.discovered }
func (i *Instance) SetDiscovered()                           { i.discovered = true }
func (i *Instance) UnsetDiscovered()                         { i.discovered = false }
func (i *Instance) AttributeHandles() rti.AttributeHandleSet { return i.handles }

// Attribute returns the bound attribute called name.
func (i *Instance) Attribute(name string) (*Attribute, bool) {
	for _, a := range i.attrs {
		if a.name == name {
			return a, true
		}
	}
	return nil, false
}

// AddAttribute binds a to the instance. Only valid while the model is
// being built; names must be unique per instance.
func (i *Instance) AddAttribute(a *Attribute) error {
	if _, dup := i.Attribute(a.name); dup {
		return fmt.Errorf("instance %q: attribute %q already bound", i.name, a.name)
	}
	if err := i.model.bind(i.name, a); err != nil {
		return err
	}
	i.attrs = append(i.attrs, a)
	return nil
}

// ResolveAttributeHandles resolves each bound attribute's handle within the
// instance's class and builds the attribute handle set.
func (i *Instance) ResolveAttributeHandles(ctx context.Context, amb rti.Ambassador) error {
	if !i.class.Resolved() {
		return fmt.Errorf("instance %q: class %q: %w", i.name, i.class.name, ErrNotResolved)
	}
	set := rti.NewAttributeHandleSet(len(i.attrs))
	for _, a := range i.attrs {
		h, err := amb.GetAttributeHandle(ctx, a.name, i.class.handle)
		if err != nil {
			return fmt.Errorf("failed to resolve attribute %q of %q: %w", a.name, i.class.name, err)
		}
		if err := a.SetHandle(h); err != nil {
			return err
		}
		set.Add(h)
	}
	i.handles = set
	i.resolved = true
	return nil
}
