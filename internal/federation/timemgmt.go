package federation

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/dyluth/lockstep/pkg/rti"
)

// EnableTimeRegulation makes the federate a regulator with the given
// lookahead. Its logical time becomes the later of its current time and t.
func (c *Conn) EnableTimeRegulation(t, lookahead rti.FedTime) error {
	return c.with(func(x *execution, f *federate) error {
		if f.regulating {
			return rti.ErrTimeRegulationAlreadyEnabled
		}
		if lookahead < 0 || math.IsNaN(float64(lookahead)) {
			return fmt.Errorf("lookahead %v: %w", lookahead, rti.ErrInvalidLookahead)
		}
		if t > f.time {
			f.time = t
		}
		f.regulating = true
		f.lookahead = lookahead
		f.queue(rti.Callback{Kind: rti.CallbackTimeRegulationEnabled, Time: f.time})
		c.logger().WithFields(logrus.Fields{"time": f.time, "lookahead": lookahead}).Debug("Time regulation enabled")
		c.engine.evaluateGrants(x)
		return nil
	})
}

// DisableTimeRegulation stops the federate constraining others.
func (c *Conn) DisableTimeRegulation() error {
	return c.with(func(x *execution, f *federate) error {
		if !f.regulating {
			return rti.ErrTimeRegulationWasNotEnabled
		}
		f.regulating = false
		c.engine.evaluateGrants(x)
		return nil
	})
}

// EnableTimeConstrained bounds the federate by the regulators' lookahead.
func (c *Conn) EnableTimeConstrained() error {
	return c.with(func(_ *execution, f *federate) error {
		if f.constrained {
			return rti.ErrTimeConstrainedAlreadyEnabled
		}
		f.constrained = true
		f.queue(rti.Callback{Kind: rti.CallbackTimeConstrainedEnabled, Time: f.time})
		c.logger().WithField("time", f.time).Debug("Time constrained enabled")
		return nil
	})
}

// DisableTimeConstrained releases the federate. Pending timestamped
// reflections are delivered at once.
func (c *Conn) DisableTimeConstrained() error {
	return c.with(func(x *execution, f *federate) error {
		if !f.constrained {
			return rti.ErrTimeConstrainedWasNotEnabled
		}
		f.constrained = false
		f.releaseTSO(rti.FedTime(math.Inf(1)))
		f.releaseHeld()
		c.engine.evaluateGrants(x)
		return nil
	})
}

// EnableAsynchronousDelivery lets receive-order reflections reach a
// constrained federate outside time advances.
func (c *Conn) EnableAsynchronousDelivery() error {
	return c.with(func(_ *execution, f *federate) error {
		f.asyncDelivery = true
		f.releaseHeld()
		return nil
	})
}

// DisableAsynchronousDelivery reverts EnableAsynchronousDelivery.
func (c *Conn) DisableAsynchronousDelivery() error {
	return c.with(func(_ *execution, f *federate) error {
		f.asyncDelivery = false
		return nil
	})
}

// TimeAdvanceRequest asks to advance to t. The grant arrives as a
// TimeAdvanceGrant callback.
func (c *Conn) TimeAdvanceRequest(t rti.FedTime) error {
	return c.with(func(x *execution, f *federate) error {
		if f.advancing {
			return rti.ErrTimeAdvanceAlreadyInProgress
		}
		if t < f.time || math.IsNaN(float64(t)) {
			return fmt.Errorf("request %v before current time %v: %w", t, f.time, rti.ErrInvalidFederationTime)
		}
		f.advancing = true
		f.requested = t
		f.releaseHeld()
		c.logger().WithField("time", t).Debug("TAR")
		c.engine.evaluateGrants(x)
		return nil
	})
}

// bound is the greatest time f may be granted strictly below: the earliest
// timestamp any other regulator may still send.
func (x *execution) bound(f *federate) rti.FedTime {
	b := rti.FedTime(math.Inf(1))
	for _, r := range x.federates {
		if r == f || !r.regulating {
			continue
		}
		if p := r.promise(); p < b {
			b = p
		}
	}
	return b
}

// evaluateGrants grants every pending request that is now safe, repeating
// until nothing changes since one grant can unblock another.
//
// A constrained federate requesting t is granted once t is strictly below
// every other regulator's promise. With zero lookahead two mutually
// constrained regulators therefore never advance, as with a plain
// time-advance request in HLA.
func (e *Engine) evaluateGrants(x *execution) {
	for changed := true; changed; {
		changed = false
		for _, f := range x.sortedFederates() {
			if !f.advancing {
				continue
			}
			if f.constrained && f.requested >= x.bound(f) {
				continue
			}
			e.grant(x, f)
			changed = true
		}
	}
}

func (e *Engine) grant(x *execution, f *federate) {
	f.time = f.requested
	f.advancing = false
	if f.constrained {
		f.releaseTSO(f.time)
	}
	f.queue(rti.Callback{Kind: rti.CallbackTimeAdvanceGrant, Time: f.time})
	e.metrics.grants.WithLabelValues(x.name).Inc()
	e.emit(Event{Kind: EventTimeAdvanceGranted, Federation: x.name, Federate: f.name, Time: float64(f.time)})
}
