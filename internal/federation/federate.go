package federation

import (
	"sort"

	"github.com/dyluth/lockstep/pkg/rti"
)

// federate is the engine-side state of one joined federate.
type federate struct {
	handle rti.FederateHandle
	name   string

	published  map[rti.ObjectClassHandle]rti.AttributeHandleSet
	subscribed map[rti.ObjectClassHandle]rti.AttributeHandleSet
	known      map[rti.ObjectHandle]bool

	regulating    bool
	constrained   bool
	asyncDelivery bool
	time          rti.FedTime
	lookahead     rti.FedTime
	advancing     bool
	requested     rti.FedTime

	outbox []rti.Callback
	// receive-order reflections held while constrained without
	// asynchronous delivery and not advancing
	held []rti.Callback
	// timestamp-order reflections waiting for a grant
	tso []timestamped
}

type timestamped struct {
	at     rti.FedTime
	serial uint64
	cb     rti.Callback
}

func newFederate(h rti.FederateHandle, name string) *federate {
	return &federate{
		handle:     h,
		name:       name,
		published:  make(map[rti.ObjectClassHandle]rti.AttributeHandleSet),
		subscribed: make(map[rti.ObjectClassHandle]rti.AttributeHandleSet),
		known:      make(map[rti.ObjectHandle]bool),
	}
}

func (f *federate) queue(cb rti.Callback) {
	f.outbox = append(f.outbox, cb)
}

// deliverRO queues a receive-order callback, or holds it until the next
// time advance when the federate is constrained without asynchronous
// delivery.
func (f *federate) deliverRO(cb rti.Callback) {
	if f.constrained && !f.asyncDelivery && !f.advancing {
		f.held = append(f.held, cb)
		return
	}
	f.queue(cb)
}

func (f *federate) releaseHeld() {
	f.outbox = append(f.outbox, f.held...)
	f.held = nil
}

// releaseTSO queues every timestamped reflection due at or before t, in
// timestamp order, and keeps the rest.
func (f *federate) releaseTSO(t rti.FedTime) int {
	sort.SliceStable(f.tso, func(i, j int) bool {
		if f.tso[i].at != f.tso[j].at {
			return f.tso[i].at < f.tso[j].at
		}
		return f.tso[i].serial < f.tso[j].serial
	})
	n := 0
	for n < len(f.tso) && f.tso[n].at <= t {
		f.queue(f.tso[n].cb)
		n++
	}
	f.tso = f.tso[n:]
	return n
}

// lastPending returns the latest timestamp among the reflections of obj
// still waiting for a grant.
func (f *federate) lastPending(obj rti.ObjectHandle) (rti.FedTime, bool) {
	var last rti.FedTime
	found := false
	for _, ts := range f.tso {
		if ts.cb.Object == obj && (!found || ts.at > last) {
			last, found = ts.at, true
		}
	}
	return last, found
}

// promise is the earliest timestamp this regulator may still send.
func (f *federate) promise() rti.FedTime {
	if f.advancing && f.requested > f.time {
		return f.requested + f.lookahead
	}
	return f.time + f.lookahead
}

func (f *federate) drain() []rti.Callback {
	out := f.outbox
	f.outbox = nil
	return out
}
