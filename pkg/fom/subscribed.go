package fom

import (
	"context"
	"errors"
	"fmt"

	"github.com/dyluth/lockstep/pkg/rti"
)

// SubscribedInstance is a remote instance this federate expects to discover
// by name and receive updates for.
type SubscribedInstance struct {
	Instance
	byHandle map[rti.AttributeHandle]*Attribute
}

// InitAttributesMap builds the handle→attribute lookup used for reflection.
// It must run exactly once, after ResolveAttributeHandles.
func (s *SubscribedInstance) InitAttributesMap() error {
	if !s.resolved {
		return fmt.Errorf("instance %q: %w", s.name, ErrNotResolved)
	}
	if s.byHandle != nil {
		return fmt.Errorf("instance %q: %w", s.name, ErrAlreadyInitialized)
	}
	s.byHandle = make(map[rti.AttributeHandle]*Attribute, len(s.attrs))
	for _, a := range s.attrs {
		s.byHandle[a.handle] = a
	}
	return nil
}

// SubscribeObjectClassAttributes declares the subscription.
func (s *SubscribedInstance) SubscribeObjectClassAttributes(ctx context.Context, amb rti.Ambassador) error {
	if !s.resolved {
		return fmt.Errorf("subscribe %q: %w", s.name, ErrNotResolved)
	}
	if err := amb.SubscribeObjectClassAttributes(ctx, s.class.handle, s.handles); err != nil {
		return fmt.Errorf("failed to subscribe to %q: %w", s.class.name, err)
	}
	return nil
}

// Unsubscribe withdraws the subscription.
func (s *SubscribedInstance) Unsubscribe(ctx context.Context, amb rti.Ambassador) error {
	if err := amb.UnsubscribeObjectClass(ctx, s.class.handle); err != nil {
		return fmt.Errorf("failed to unsubscribe from %q: %w", s.class.name, err)
	}
	return nil
}

// WaitRegistering pumps amb until the instance is discovered.
//
// There is no timeout: with a context that is never cancelled this waits
// forever on an unresponsive federation. Cancellation returns ctx.Err().
func (s *SubscribedInstance) WaitRegistering(ctx context.Context, amb rti.Ambassador) error {
	for !s.discovered {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("waiting for %q: %w", s.name, err)
		}
		if err := amb.Tick(ctx); err != nil {
			return fmt.Errorf("waiting for %q: %w", s.name, err)
		}
	}
	return nil
}

// TryToDiscover claims obj if the class handle matches and the name is this
// instance's name. Identity is by name until this point.
func (s *SubscribedInstance) TryToDiscover(name string, class rti.ObjectClassHandle, obj rti.ObjectHandle) bool {
	if s.class.handle != class || s.discovered {
		return false
	}
	if s.name != name {
		return false
	}
	s.handle = obj
	s.discovered = true
	return true
}

// ReflectAttributeValues decodes each value into the attribute under its
// handle. Unknown handles are skipped silently. Values that fail to decode
// are skipped and reported together.
func (s *SubscribedInstance) ReflectAttributeValues(values rti.AttributeValues) error {
	var errs []error
	for _, v := range values {
		a, ok := s.byHandle[v.Handle]
		if !ok {
			continue
		}
		if err := DecodeInto(a, v.Value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
