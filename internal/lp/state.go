package lp

// Phase is a step of the federate lifecycle. Phases run in declaration
// order and none is skipped.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCreation
	PhaseInitialization
	PhaseSimulation
	PhaseEnding
	PhaseDeletion
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCreation:
		return "creation"
	case PhaseInitialization:
		return "initialization"
	case PhaseSimulation:
		return "simulation"
	case PhaseEnding:
		return "ending"
	case PhaseDeletion:
		return "deletion"
	case PhaseDone:
		return "done"
	}
	return "unknown"
}

// CapabilityState tracks time regulation or time constraint.
type CapabilityState int

const (
	CapabilityOff CapabilityState = iota
	CapabilityRequested
	CapabilityEnabled
)

func (s CapabilityState) String() string {
	switch s {
	case CapabilityOff:
		return "off"
	case CapabilityRequested:
		return "requested"
	case CapabilityEnabled:
		return "enabled"
	}
	return "unknown"
}

// TimeAdvanceState tracks the time-advance handshake.
type TimeAdvanceState int

const (
	AdvanceIdle TimeAdvanceState = iota
	AdvanceRequested
	AdvanceGranted
)

func (s TimeAdvanceState) String() string {
	switch s {
	case AdvanceIdle:
		return "idle"
	case AdvanceRequested:
		return "requested"
	case AdvanceGranted:
		return "granted"
	}
	return "unknown"
}

// RegistrationState tracks the creator's registration of the
// synchronization point.
type RegistrationState int

const (
	RegistrationNone RegistrationState = iota
	RegistrationPending
	RegistrationSucceeded
	RegistrationFailed
)

func (s RegistrationState) String() string {
	switch s {
	case RegistrationNone:
		return "none"
	case RegistrationPending:
		return "pending"
	case RegistrationSucceeded:
		return "succeeded"
	case RegistrationFailed:
		return "failed"
	}
	return "unknown"
}

// BarrierState tracks this federate's passage through the synchronization
// point. Announced and Achieved are the paused states.
type BarrierState int

const (
	BarrierWaiting BarrierState = iota
	BarrierAnnounced
	BarrierAchieved
	BarrierSynchronized
)

func (s BarrierState) String() string {
	switch s {
	case BarrierWaiting:
		return "waiting"
	case BarrierAnnounced:
		return "announced"
	case BarrierAchieved:
		return "achieved"
	case BarrierSynchronized:
		return "synchronized"
	}
	return "unknown"
}

// SyncFailureMode decides what a creator does when registering the
// synchronization point fails.
type SyncFailureMode int

const (
	// SyncFailureProceed logs the failure and waits for the point to be
	// announced by whoever did register it.
	SyncFailureProceed SyncFailureMode = iota
	// SyncFailureAbort ends the run with ErrSyncRegistrationFailed.
	SyncFailureAbort
)

// ParseSyncFailureMode parses "proceed" and "abort". Empty means proceed.
func ParseSyncFailureMode(s string) (SyncFailureMode, bool) {
	switch s {
	case "", "proceed":
		return SyncFailureProceed, true
	case "abort":
		return SyncFailureAbort, true
	}
	return SyncFailureProceed, false
}
