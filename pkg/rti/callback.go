package rti

import "fmt"

// CallbackKind names a FederateAmbassador callback.
type CallbackKind string

const (
	CallbackDiscoverObjectInstance            CallbackKind = "discover_object_instance"
	CallbackRemoveObjectInstance              CallbackKind = "remove_object_instance"
	CallbackReflectAttributeValues            CallbackKind = "reflect_attribute_values"
	CallbackReflectTimestampedAttributeValues CallbackKind = "reflect_timestamped_attribute_values"
	CallbackTimeRegulationEnabled             CallbackKind = "time_regulation_enabled"
	CallbackTimeConstrainedEnabled            CallbackKind = "time_constrained_enabled"
	CallbackTimeAdvanceGrant                  CallbackKind = "time_advance_grant"
	CallbackSyncPointRegistrationSucceeded    CallbackKind = "sync_point_registration_succeeded"
	CallbackSyncPointRegistrationFailed       CallbackKind = "sync_point_registration_failed"
	CallbackAnnounceSynchronizationPoint      CallbackKind = "announce_synchronization_point"
	CallbackFederationSynchronized            CallbackKind = "federation_synchronized"
)

// Callback is a queued FederateAmbassador invocation. Services build these
// and transports serialize them; Dispatch turns one back into a call.
type Callback struct {
	Kind       CallbackKind          `cbor:"1,keyasint" json:"kind"`
	Object     ObjectHandle          `cbor:"2,keyasint,omitempty" json:"object,omitempty"`
	Class      ObjectClassHandle     `cbor:"3,keyasint,omitempty" json:"class,omitempty"`
	Name       string                `cbor:"4,keyasint,omitempty" json:"name,omitempty"`
	Values     AttributeValues       `cbor:"5,keyasint,omitempty" json:"values,omitempty"`
	Time       FedTime               `cbor:"6,keyasint,omitempty" json:"time,omitempty"`
	Tag        string                `cbor:"7,keyasint,omitempty" json:"tag,omitempty"`
	Label      string                `cbor:"8,keyasint,omitempty" json:"label,omitempty"`
	Retraction EventRetractionHandle `cbor:"9,keyasint,omitempty" json:"retraction,omitempty"`
}

// Dispatch invokes the FederateAmbassador method matching cb.Kind.
func Dispatch(fa FederateAmbassador, cb Callback) error {
	switch cb.Kind {
	case CallbackDiscoverObjectInstance:
		fa.DiscoverObjectInstance(cb.Object, cb.Class, cb.Name)
	case CallbackRemoveObjectInstance:
		fa.RemoveObjectInstance(cb.Object, cb.Tag)
	case CallbackReflectAttributeValues:
		fa.ReflectAttributeValues(cb.Object, cb.Values, cb.Tag)
	case CallbackReflectTimestampedAttributeValues:
		fa.ReflectTimestampedAttributeValues(cb.Object, cb.Values, cb.Time, cb.Tag, cb.Retraction)
	case CallbackTimeRegulationEnabled:
		fa.TimeRegulationEnabled(cb.Time)
	case CallbackTimeConstrainedEnabled:
		fa.TimeConstrainedEnabled(cb.Time)
	case CallbackTimeAdvanceGrant:
		fa.TimeAdvanceGrant(cb.Time)
	case CallbackSyncPointRegistrationSucceeded:
		fa.SynchronizationPointRegistrationSucceeded(cb.Label)
	case CallbackSyncPointRegistrationFailed:
		fa.SynchronizationPointRegistrationFailed(cb.Label)
	case CallbackAnnounceSynchronizationPoint:
		fa.AnnounceSynchronizationPoint(cb.Label, cb.Tag)
	case CallbackFederationSynchronized:
		fa.FederationSynchronized(cb.Label)
	default:
		return fmt.Errorf("unknown callback kind: %q", cb.Kind)
	}
	return nil
}
