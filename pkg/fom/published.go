package fom

import (
	"context"
	"fmt"

	"github.com/dyluth/lockstep/pkg/rti"
	"github.com/dyluth/lockstep/pkg/simtime"
)

// PublishedInstance is an instance this federate registers and updates.
type PublishedInstance struct {
	Instance
	buffer     rti.AttributeValues
	registered bool
}

// Registered reports whether Register succeeded.
func (p *PublishedInstance) Registered() bool { return p.registered }

// PublishObjectClass declares publication of every bound attribute.
func (p *PublishedInstance) PublishObjectClass(ctx context.Context, amb rti.Ambassador) error {
	if !p.resolved {
		return fmt.Errorf("publish %q: %w", p.name, ErrNotResolved)
	}
	if err := amb.PublishObjectClass(ctx, p.class.handle, p.handles); err != nil {
		return fmt.Errorf("failed to publish %q: %w", p.class.name, err)
	}
	return nil
}

// Register instantiates the object by name and allocates its transmit
// buffer.
func (p *PublishedInstance) Register(ctx context.Context, amb rti.Ambassador) error {
	h, err := amb.RegisterObjectInstance(ctx, p.class.handle, p.name)
	if err != nil {
		return fmt.Errorf("failed to register %q: %w", p.name, err)
	}
	p.handle = h
	p.buffer = rti.NewAttributeValues(len(p.attrs))
	p.registered = true
	return nil
}

// UpdateAttributeValues sends every bound attribute in one update at t.
func (p *PublishedInstance) UpdateAttributeValues(ctx context.Context, amb rti.Ambassador, t simtime.Time, tag string) error {
	if !p.registered {
		return fmt.Errorf("update %q: %w", p.name, ErrNotRegistered)
	}
	p.buffer.Reset()
	for _, a := range p.attrs {
		p.buffer.Add(a.handle, EncodeValue(a))
	}
	if _, err := amb.UpdateAttributeValues(ctx, p.handle, p.buffer, rti.FedTime(t.FedTime()), tag); err != nil {
		return fmt.Errorf("failed to update %q at %s: %w", p.name, t, err)
	}
	return nil
}

// UpdateAttributeValuesDefaultTag is UpdateAttributeValues tagged with the
// instance name.
func (p *PublishedInstance) UpdateAttributeValuesDefaultTag(ctx context.Context, amb rti.Ambassador, t simtime.Time) error {
	return p.UpdateAttributeValues(ctx, amb, t, p.name)
}

// Unpublish withdraws the class-level publication.
func (p *PublishedInstance) Unpublish(ctx context.Context, amb rti.Ambassador) error {
	if err := amb.UnpublishObjectClass(ctx, p.class.handle); err != nil {
		return fmt.Errorf("failed to unpublish %q: %w", p.class.name, err)
	}
	return nil
}
