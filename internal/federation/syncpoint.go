package federation

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dyluth/lockstep/pkg/rti"
)

// syncPoint is a named barrier over the federates joined when it was
// registered plus any that join before it completes.
type syncPoint struct {
	label    string
	tag      string
	members  map[rti.FederateHandle]bool
	achieved map[rti.FederateHandle]bool
}

// RegisterFederationSynchronizationPoint registers label. The registrant
// learns the outcome through a succeeded or failed callback; on success
// every joined federate is sent the announcement. A label already in use
// fails.
func (c *Conn) RegisterFederationSynchronizationPoint(label, tag string) error {
	return c.with(func(x *execution, f *federate) error {
		log := c.logger().WithField("label", label)
		if _, exists := x.syncPoints[label]; exists || label == "" {
			f.queue(rti.Callback{Kind: rti.CallbackSyncPointRegistrationFailed, Label: label})
			c.engine.metrics.syncPoints.WithLabelValues(x.name, "failed").Inc()
			log.Warn("Synchronization point registration failed")
			return nil
		}

		sp := &syncPoint{
			label:    label,
			tag:      tag,
			members:  make(map[rti.FederateHandle]bool, len(x.federates)),
			achieved: make(map[rti.FederateHandle]bool, len(x.federates)),
		}
		x.syncPoints[label] = sp
		f.queue(rti.Callback{Kind: rti.CallbackSyncPointRegistrationSucceeded, Label: label})
		for _, m := range x.sortedFederates() {
			sp.members[m.handle] = true
			m.queue(rti.Callback{Kind: rti.CallbackAnnounceSynchronizationPoint, Label: label, Tag: tag})
		}
		c.engine.metrics.syncPoints.WithLabelValues(x.name, "registered").Inc()
		log.WithField("members", len(sp.members)).Info("Synchronization point registered")
		c.engine.emit(Event{Kind: EventSyncPointRegistered, Federation: x.name, Federate: f.name, Label: label})
		return nil
	})
}

// SynchronizationPointAchieved records that the federate reached label.
func (c *Conn) SynchronizationPointAchieved(label string) error {
	return c.with(func(x *execution, f *federate) error {
		sp, ok := x.syncPoints[label]
		if !ok || !sp.members[f.handle] {
			return fmt.Errorf("synchronization point %q not announced: %w", label, rti.ErrNameNotFound)
		}
		sp.achieved[f.handle] = true
		c.logger().WithFields(logrus.Fields{"label": label, "achieved": len(sp.achieved), "members": len(sp.members)}).Debug("Synchronization point achieved")
		c.engine.checkSynchronized(x, sp)
		return nil
	})
}

// checkSynchronized releases every member once all remaining members have
// achieved the point.
func (e *Engine) checkSynchronized(x *execution, sp *syncPoint) {
	if len(sp.members) == 0 {
		delete(x.syncPoints, sp.label)
		return
	}
	for h := range sp.members {
		if !sp.achieved[h] {
			return
		}
	}
	for _, f := range x.sortedFederates() {
		if sp.members[f.handle] {
			f.queue(rti.Callback{Kind: rti.CallbackFederationSynchronized, Label: sp.label})
		}
	}
	delete(x.syncPoints, sp.label)
	e.metrics.syncPoints.WithLabelValues(x.name, "synchronized").Inc()
	e.log.WithFields(logrus.Fields{"federation": x.name, "label": sp.label}).Info("Federation synchronized")
	e.emit(Event{Kind: EventFederationSynchronized, Federation: x.name, Label: sp.label})
}
