// Package rti defines the contract between a federate and the
// federation-execution service: the opaque handles used for wire
// addressing, the outbound Ambassador calls, the inbound FederateAmbassador
// callbacks and the error taxonomy shared by every transport.
//
// # Delivery model
//
// Callbacks are never delivered spontaneously. An Ambassador queues them and
// hands them to the joined FederateAmbassador only from inside Tick, on the
// goroutine that called Tick. Federates therefore run single-threaded and
// express every wait as a loop that pumps Tick until a flag flips.
//
// # Time
//
// The service clock (FedTime) is a float64 count of microseconds. Federates
// convert it to and from simtime.Time, which guarantees the value is exact.
package rti

import "slices"

// ObjectClassHandle identifies an object class within a federation.
type ObjectClassHandle uint32

// AttributeHandle identifies an attribute within its object class.
type AttributeHandle uint32

// ObjectHandle identifies a registered object instance.
type ObjectHandle uint32

// FederateHandle identifies a joined federate.
type FederateHandle uint32

// InvalidHandle is the unresolved value for every handle type.
// Services never allocate it.
const InvalidHandle = 0

// FedTime is the service clock in microseconds.
type FedTime float64

// AttributeHandleSet is an ordered set of attribute handles.
type AttributeHandleSet []AttributeHandle

// NewAttributeHandleSet returns an empty set with room for n handles.
func NewAttributeHandleSet(n int) AttributeHandleSet {
	return make(AttributeHandleSet, 0, n)
}

// Add appends h unless it is already present.
func (s *AttributeHandleSet) Add(h AttributeHandle) {
	if !s.Contains(h) {
		*s = append(*s, h)
	}
}

// Contains reports whether h is in the set.
func (s AttributeHandleSet) Contains(h AttributeHandle) bool {
	return slices.Contains(s, h)
}

// AttributeValue is one raw attribute value keyed by handle.
type AttributeValue struct {
	Handle AttributeHandle `cbor:"1,keyasint" json:"handle"`
	Value  []byte          `cbor:"2,keyasint" json:"value"`
}

// AttributeValues is the ordered handle→value set carried by one update.
type AttributeValues []AttributeValue

// NewAttributeValues returns an empty value set with room for n entries.
func NewAttributeValues(n int) AttributeValues {
	return make(AttributeValues, 0, n)
}

// Add appends a value for h.
func (v *AttributeValues) Add(h AttributeHandle, raw []byte) {
	*v = append(*v, AttributeValue{Handle: h, Value: raw})
}

// Reset empties the set, keeping its capacity.
func (v *AttributeValues) Reset() {
	*v = (*v)[:0]
}

// Filter returns the entries whose handle is in keep, as a fresh copy.
func (v AttributeValues) Filter(keep AttributeHandleSet) AttributeValues {
	out := make(AttributeValues, 0, len(v))
	for _, av := range v {
		if keep.Contains(av.Handle) {
			out = append(out, AttributeValue{Handle: av.Handle, Value: slices.Clone(av.Value)})
		}
	}
	return out
}

// Clone returns a deep copy.
func (v AttributeValues) Clone() AttributeValues {
	out := make(AttributeValues, len(v))
	for i, av := range v {
		out[i] = AttributeValue{Handle: av.Handle, Value: slices.Clone(av.Value)}
	}
	return out
}

// EventRetractionHandle identifies a timestamped update so it could later
// be retracted. Federates only record it.
type EventRetractionHandle struct {
	Serial     uint64         `cbor:"1,keyasint" json:"serial"`
	SendingFed FederateHandle `cbor:"2,keyasint" json:"sending_federate"`
}
