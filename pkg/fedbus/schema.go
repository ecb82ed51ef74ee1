package fedbus

import (
	"fmt"
	"regexp"
)

const (
	// DefaultInstance is the bus namespace used when none is configured.
	DefaultInstance = "default"

	// MaxInstanceLength is the longest instance name accepted (DNS label).
	MaxInstanceLength = 63
)

// InstancePattern matches valid instance names: lowercase alphanumeric,
// hyphens allowed but not at start or end. Keeps key patterns unambiguous.
var InstancePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// ValidateInstanceName checks an instance name before it is used in keys.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("instance name cannot be empty")
	}
	if len(name) > MaxInstanceLength {
		return fmt.Errorf("instance name too long: %d characters (max: %d)", len(name), MaxInstanceLength)
	}
	if !InstancePattern.MatchString(name) {
		return fmt.Errorf("invalid instance name '%s': must be lowercase alphanumeric with hyphens (not at start/end)", name)
	}
	return nil
}

// RequestsKey returns the list the server pops requests from.
// Pattern: lockstep:{instance}:requests
func RequestsKey(instance string) string {
	return fmt.Sprintf("lockstep:%s:requests", instance)
}

// ReplyKey returns the list a single request's reply is pushed to.
// Pattern: lockstep:{instance}:reply:{request_id}
func ReplyKey(instance, requestID string) string {
	return fmt.Sprintf("lockstep:%s:reply:%s", instance, requestID)
}

// CallbacksKey returns the callback list of one federate session.
// Pattern: lockstep:{instance}:callbacks:{session}
func CallbacksKey(instance, session string) string {
	return fmt.Sprintf("lockstep:%s:callbacks:%s", instance, session)
}

// MonitorEventsChannel returns the Pub/Sub channel for lifecycle events.
// Pattern: lockstep:{instance}:monitor_events
func MonitorEventsChannel(instance string) string {
	return fmt.Sprintf("lockstep:%s:monitor_events", instance)
}
