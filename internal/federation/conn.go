package federation

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dyluth/lockstep/pkg/rti"
)

// Conn is one joined federate's view of the engine. Every method takes the
// engine lock; callbacks it causes are queued, never invoked.
type Conn struct {
	engine     *Engine
	federation string
	handle     rti.FederateHandle
	name       string
}

func (c *Conn) Federation() string         { return c.federation }
func (c *Conn) Handle() rti.FederateHandle { return c.handle }
func (c *Conn) Name() string               { return c.name }
func (c *Conn) logger() *logrus.Entry {
	return c.engine.log.WithFields(logrus.Fields{"federation": c.federation, "federate": c.name})
}

// with runs fn on the caller's execution and federate under the lock.
func (c *Conn) with(fn func(x *execution, f *federate) error) error {
	return c.engine.locked(func() error {
		x, ok := c.engine.executions[c.federation]
		if !ok {
			return fmt.Errorf("%q: %w", c.federation, rti.ErrFederationExecutionDoesNotExist)
		}
		f, ok := x.federates[c.handle]
		if !ok {
			return fmt.Errorf("federate %d in %q: %w", c.handle, c.federation, rti.ErrFederateNotExecutionMember)
		}
		return fn(x, f)
	})
}

// Drain returns and clears the federate's pending callbacks.
func (c *Conn) Drain() []rti.Callback {
	var out []rti.Callback
	_ = c.with(func(_ *execution, f *federate) error {
		out = f.drain()
		return nil
	})
	return out
}

// Resign removes the federate. Its objects are deleted and subscribers that
// knew them receive RemoveObjectInstance.
func (c *Conn) Resign() error {
	return c.with(func(x *execution, f *federate) error {
		for oh, o := range x.objects {
			if o.owner != f.handle {
				continue
			}
			for _, other := range x.others(f.handle) {
				if !other.known[oh] {
					continue
				}
				delete(other.known, oh)
				remove := rti.Callback{Kind: rti.CallbackRemoveObjectInstance, Object: oh, Tag: f.name}
				// Removal follows the reflections still waiting for a grant.
				if at, pending := other.lastPending(oh); pending {
					x.serial++
					other.tso = append(other.tso, timestamped{at: at, serial: x.serial, cb: remove})
					continue
				}
				other.queue(remove)
			}
			delete(x.objectNames, o.name)
			delete(x.objects, oh)
		}
		delete(x.federates, f.handle)
		delete(x.byName, f.name)

		for _, sp := range x.sortedSyncPoints() {
			delete(sp.members, f.handle)
			delete(sp.achieved, f.handle)
			c.engine.checkSynchronized(x, sp)
		}
		c.engine.evaluateGrants(x)

		c.engine.metrics.federates.WithLabelValues(x.name).Set(float64(len(x.federates)))
		c.logger().Info("Federate resigned")
		c.engine.emit(Event{Kind: EventFederateResigned, Federation: x.name, Federate: f.name})
		return nil
	})
}

// GetObjectClassHandle resolves a class name.
func (c *Conn) GetObjectClassHandle(name string) (rti.ObjectClassHandle, error) {
	var h rti.ObjectClassHandle
	err := c.with(func(x *execution, _ *federate) error {
		if found, ok := x.classes[name]; ok {
			h = found
			return nil
		}
		if x.doc != nil {
			return fmt.Errorf("object class %q: %w", name, rti.ErrNameNotFound)
		}
		h = x.allocClass(name)
		return nil
	})
	return h, err
}

// GetAttributeHandle resolves an attribute name within a class.
func (c *Conn) GetAttributeHandle(name string, class rti.ObjectClassHandle) (rti.AttributeHandle, error) {
	var h rti.AttributeHandle
	err := c.with(func(x *execution, _ *federate) error {
		attrs, ok := x.attrs[class]
		if !ok {
			return fmt.Errorf("class %d: %w", class, rti.ErrObjectClassNotDefined)
		}
		if found, ok := attrs[name]; ok {
			h = found
			return nil
		}
		if x.doc != nil {
			return fmt.Errorf("attribute %q of %q: %w", name, x.classNames[class], rti.ErrNameNotFound)
		}
		h = x.allocAttr(class, name)
		return nil
	})
	return h, err
}

func (x *execution) checkAttributes(class rti.ObjectClassHandle, attrs rti.AttributeHandleSet) error {
	defined, ok := x.attrs[class]
	if !ok {
		return fmt.Errorf("class %d: %w", class, rti.ErrObjectClassNotDefined)
	}
	for _, a := range attrs {
		found := false
		for _, h := range defined {
			if h == a {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("attribute %d of %q: %w", a, x.classNames[class], rti.ErrAttributeNotDefined)
		}
	}
	return nil
}

// PublishObjectClass adds attrs to the federate's publication of class.
func (c *Conn) PublishObjectClass(class rti.ObjectClassHandle, attrs rti.AttributeHandleSet) error {
	return c.with(func(x *execution, f *federate) error {
		if err := x.checkAttributes(class, attrs); err != nil {
			return err
		}
		set := f.published[class]
		for _, a := range attrs {
			set.Add(a)
		}
		f.published[class] = set
		c.logger().WithField("class", x.classNames[class]).Debug("Publishing object class")
		return nil
	})
}

// UnpublishObjectClass withdraws the publication. Unpublishing a class that
// is not published is a no-op, so instances sharing a class can each
// unpublish it.
func (c *Conn) UnpublishObjectClass(class rti.ObjectClassHandle) error {
	return c.with(func(x *execution, f *federate) error {
		if _, ok := x.attrs[class]; !ok {
			return fmt.Errorf("class %d: %w", class, rti.ErrObjectClassNotDefined)
		}
		delete(f.published, class)
		return nil
	})
}

// SubscribeObjectClassAttributes adds attrs to the federate's subscription
// and discovers objects of the class that already exist.
func (c *Conn) SubscribeObjectClassAttributes(class rti.ObjectClassHandle, attrs rti.AttributeHandleSet) error {
	return c.with(func(x *execution, f *federate) error {
		if err := x.checkAttributes(class, attrs); err != nil {
			return err
		}
		set := f.subscribed[class]
		for _, a := range attrs {
			set.Add(a)
		}
		f.subscribed[class] = set
		for _, o := range x.objectsOfClass(class) {
			if o.owner != f.handle && !f.known[o.handle] {
				f.known[o.handle] = true
				f.queue(rti.Callback{Kind: rti.CallbackDiscoverObjectInstance, Object: o.handle, Class: o.class, Name: o.name})
			}
		}
		c.logger().WithField("class", x.classNames[class]).Debug("Subscribed to object class")
		return nil
	})
}

// UnsubscribeObjectClass withdraws the subscription. Objects already
// discovered stay known.
func (c *Conn) UnsubscribeObjectClass(class rti.ObjectClassHandle) error {
	return c.with(func(x *execution, f *federate) error {
		if _, ok := x.attrs[class]; !ok {
			return fmt.Errorf("class %d: %w", class, rti.ErrObjectClassNotDefined)
		}
		delete(f.subscribed, class)
		return nil
	})
}

// RegisterObjectInstance creates a named object of a published class and
// announces it to current subscribers.
func (c *Conn) RegisterObjectInstance(class rti.ObjectClassHandle, name string) (rti.ObjectHandle, error) {
	var h rti.ObjectHandle
	err := c.with(func(x *execution, f *federate) error {
		if _, ok := f.published[class]; !ok {
			return fmt.Errorf("register %q: %w", name, rti.ErrObjectClassNotPublished)
		}
		if _, dup := x.objectNames[name]; dup {
			return fmt.Errorf("register %q: %w", name, rti.ErrObjectAlreadyRegistered)
		}
		x.nextObj++
		o := &object{handle: x.nextObj, name: name, class: class, owner: f.handle}
		x.objects[o.handle] = o
		x.objectNames[name] = o.handle
		h = o.handle

		for _, other := range x.others(f.handle) {
			if _, subscribed := other.subscribed[class]; subscribed {
				other.known[o.handle] = true
				other.queue(rti.Callback{Kind: rti.CallbackDiscoverObjectInstance, Object: o.handle, Class: class, Name: name})
			}
		}
		c.logger().WithFields(logrus.Fields{"object": name, "handle": h}).Debug("Object registered")
		return nil
	})
	return h, err
}

// UpdateAttributeValues routes values to every federate that knows the
// object and subscribes to at least one of the attributes. Updates from a
// regulating federate reach constrained federates in timestamp order;
// everything else is receive order.
func (c *Conn) UpdateAttributeValues(obj rti.ObjectHandle, values rti.AttributeValues, t rti.FedTime, tag string) (rti.EventRetractionHandle, error) {
	var rh rti.EventRetractionHandle
	err := c.with(func(x *execution, f *federate) error {
		o, ok := x.objects[obj]
		if !ok || o.owner != f.handle {
			return fmt.Errorf("update object %d: %w", obj, rti.ErrObjectNotKnown)
		}
		if f.regulating {
			if earliest := f.promise(); t < earliest {
				return fmt.Errorf("update %q at %v, earliest allowed %v: %w", o.name, t, earliest, rti.ErrInvalidFederationTime)
			}
		}
		x.serial++
		rh = rti.EventRetractionHandle{Serial: x.serial, SendingFed: f.handle}
		c.engine.metrics.updates.WithLabelValues(x.name).Inc()

		for _, other := range x.others(f.handle) {
			if !other.known[obj] {
				continue
			}
			filtered := values.Filter(other.subscribed[o.class])
			if len(filtered) == 0 {
				continue
			}
			if f.regulating && other.constrained {
				other.tso = append(other.tso, timestamped{at: t, serial: x.serial, cb: rti.Callback{
					Kind: rti.CallbackReflectTimestampedAttributeValues, Object: obj, Values: filtered,
					Time: t, Tag: tag, Retraction: rh,
				}})
				c.engine.metrics.reflections.WithLabelValues(x.name, "timestamp").Inc()
				continue
			}
			other.deliverRO(rti.Callback{Kind: rti.CallbackReflectAttributeValues, Object: obj, Values: filtered, Tag: tag})
			c.engine.metrics.reflections.WithLabelValues(x.name, "receive").Inc()
		}
		return nil
	})
	return rh, err
}
