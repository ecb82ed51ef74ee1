package rti

import "context"

// Ambassador is the outbound half of the federation service: every call a
// federate makes. Implementations must not invoke FederateAmbassador
// callbacks from any method other than Tick.
//
// The context bounds the call itself (transport round trips). It never
// changes protocol semantics: a cancelled context makes the call fail, it
// does not cancel a request the service has already accepted.
type Ambassador interface {
	// Federation management
	CreateFederationExecution(ctx context.Context, federation string) error
	DestroyFederationExecution(ctx context.Context, federation string) error
	JoinFederationExecution(ctx context.Context, federate, federation string, fa FederateAmbassador) (FederateHandle, error)
	ResignFederationExecution(ctx context.Context) error
	RegisterFederationSynchronizationPoint(ctx context.Context, label, tag string) error
	SynchronizationPointAchieved(ctx context.Context, label string) error

	// Declaration management
	GetObjectClassHandle(ctx context.Context, name string) (ObjectClassHandle, error)
	GetAttributeHandle(ctx context.Context, name string, class ObjectClassHandle) (AttributeHandle, error)
	PublishObjectClass(ctx context.Context, class ObjectClassHandle, attrs AttributeHandleSet) error
	UnpublishObjectClass(ctx context.Context, class ObjectClassHandle) error
	SubscribeObjectClassAttributes(ctx context.Context, class ObjectClassHandle, attrs AttributeHandleSet) error
	UnsubscribeObjectClass(ctx context.Context, class ObjectClassHandle) error

	// Object management
	RegisterObjectInstance(ctx context.Context, class ObjectClassHandle, name string) (ObjectHandle, error)
	UpdateAttributeValues(ctx context.Context, obj ObjectHandle, values AttributeValues, t FedTime, tag string) (EventRetractionHandle, error)

	// Time management
	EnableTimeRegulation(ctx context.Context, t, lookahead FedTime) error
	DisableTimeRegulation(ctx context.Context) error
	EnableTimeConstrained(ctx context.Context) error
	DisableTimeConstrained(ctx context.Context) error
	EnableAsynchronousDelivery(ctx context.Context) error
	DisableAsynchronousDelivery(ctx context.Context) error
	TimeAdvanceRequest(ctx context.Context, t FedTime) error

	// Tick delivers pending callbacks to the joined FederateAmbassador on
	// the calling goroutine. It is the only delivery mechanism.
	Tick(ctx context.Context) error
}

// FederateAmbassador is the inbound half: the callbacks a federate receives
// from inside Ambassador.Tick.
type FederateAmbassador interface {
	DiscoverObjectInstance(obj ObjectHandle, class ObjectClassHandle, name string)
	RemoveObjectInstance(obj ObjectHandle, tag string)
	ReflectAttributeValues(obj ObjectHandle, values AttributeValues, tag string)
	ReflectTimestampedAttributeValues(obj ObjectHandle, values AttributeValues, t FedTime, tag string, rh EventRetractionHandle)

	TimeRegulationEnabled(t FedTime)
	TimeConstrainedEnabled(t FedTime)
	TimeAdvanceGrant(t FedTime)

	SynchronizationPointRegistrationSucceeded(label string)
	SynchronizationPointRegistrationFailed(label string)
	AnnounceSynchronizationPoint(label, tag string)
	FederationSynchronized(label string)
}
