package federation

// EventKind names a federation lifecycle event.
type EventKind string

const (
	EventFederationCreated      EventKind = "federation_created"
	EventFederationDestroyed    EventKind = "federation_destroyed"
	EventFederateJoined         EventKind = "federate_joined"
	EventFederateResigned       EventKind = "federate_resigned"
	EventSyncPointRegistered    EventKind = "sync_point_registered"
	EventFederationSynchronized EventKind = "federation_synchronized"
	EventTimeAdvanceGranted     EventKind = "time_advance_granted"
)

// Event reports a change in an execution for monitoring. Federate is empty
// for execution-wide events; Time is in microseconds and only set on grants.
type Event struct {
	Kind       EventKind
	Federation string
	Federate   string
	Label      string
	Time       float64
}
