package lp

import (
	"github.com/sirupsen/logrus"

	"github.com/dyluth/lockstep/pkg/rti"
)

// The methods below make the Processor its own rti.FederateAmbassador.
// They run only from inside Ambassador.Tick.

func (p *Processor) DiscoverObjectInstance(obj rti.ObjectHandle, class rti.ObjectClassHandle, name string) {
	log := p.log.WithFields(logrus.Fields{"object": name, "handle": obj, "class": class})
	if s := p.model.Discover(name, class, obj); s != nil {
		p.stats.Discovered++
		log.Info("Discovered object instance")
		return
	}
	log.Debug("Ignoring undeclared object instance")
}

func (p *Processor) RemoveObjectInstance(obj rti.ObjectHandle, tag string) {
	if s := p.model.Forget(obj); s != nil {
		p.log.WithFields(logrus.Fields{"object": s.Name(), "tag": tag}).Info("Object instance removed")
	}
}

func (p *Processor) ReflectAttributeValues(obj rti.ObjectHandle, values rti.AttributeValues, tag string) {
	p.reflect(obj, values, tag)
}

func (p *Processor) ReflectTimestampedAttributeValues(obj rti.ObjectHandle, values rti.AttributeValues, t rti.FedTime, tag string, _ rti.EventRetractionHandle) {
	p.reflect(obj, values, tag)
}

// reflect applies values as soon as they arrive and remembers the tag for
// the next step's trace.
func (p *Processor) reflect(obj rti.ObjectHandle, values rti.AttributeValues, tag string) {
	inst, ok, err := p.model.Reflect(obj, values)
	if !ok {
		return
	}
	p.stats.Reflections++
	p.ravTags = append(p.ravTags, tag)
	log := p.log.WithFields(logrus.Fields{"object": inst.Name(), "tag": tag, "time": p.localTime})
	if err != nil {
		log.WithError(err).Warn("Some reflected values could not be decoded")
		return
	}
	log.Debug("postRAV")
}

func (p *Processor) TimeRegulationEnabled(t rti.FedTime) {
	p.setTime("time regulation enabled", t)
	p.regulation = CapabilityEnabled
	p.log.WithField("time", p.localTime).Info("Time regulation enabled")
}

func (p *Processor) TimeConstrainedEnabled(t rti.FedTime) {
	p.setTime("time constrained enabled", t)
	p.constraint = CapabilityEnabled
	p.log.WithField("time", p.localTime).Info("Time constrained enabled")
}

func (p *Processor) TimeAdvanceGrant(t rti.FedTime) {
	p.setTime("time advance grant", t)
	p.advance = AdvanceGranted
}

func (p *Processor) SynchronizationPointRegistrationSucceeded(label string) {
	if label != p.opts.SyncPoint {
		return
	}
	p.registration = RegistrationSucceeded
}

func (p *Processor) SynchronizationPointRegistrationFailed(label string) {
	if label != p.opts.SyncPoint {
		return
	}
	p.registration = RegistrationFailed
}

func (p *Processor) AnnounceSynchronizationPoint(label, tag string) {
	if label != p.opts.SyncPoint {
		p.log.WithField("label", label).Debug("Ignoring foreign synchronization point")
		return
	}
	if p.barrier == BarrierWaiting {
		p.barrier = BarrierAnnounced
	}
}

func (p *Processor) FederationSynchronized(label string) {
	if label != p.opts.SyncPoint {
		return
	}
	p.barrier = BarrierSynchronized
}
