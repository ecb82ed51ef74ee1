// Package watch follows the monitor events an rtig publishes.
package watch

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dyluth/lockstep/internal/federation"
	"github.com/dyluth/lockstep/pkg/fedbus"
)

// Filter selects events. Zero values match everything.
type Filter struct {
	Federation string
	Federate   string
}

// Match reports whether e passes the filter.
func (f Filter) Match(e *fedbus.MonitorEvent) bool {
	if f.Federation != "" && e.Federation != f.Federation {
		return false
	}
	return f.Federate == "" || e.Federate == f.Federate
}

// Stream writes one formatted line per matching event until ctx is done or
// the subscription ends. Returning because ctx was cancelled is not an
// error.
func Stream(ctx context.Context, sub *fedbus.MonitorSubscription, w io.Writer, filter Filter) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			fmt.Fprintf(w, "⚠️  %v\n", err)
		case e, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if !filter.Match(e) {
				continue
			}
			if _, err := fmt.Fprintln(w, FormatEvent(e)); err != nil {
				return err
			}
		}
	}
}

// WaitForEvent waits for the first event accepted by match.
// Returns an error if timeout passes first.
func WaitForEvent(ctx context.Context, sub *fedbus.MonitorSubscription, match func(*fedbus.MonitorEvent) bool, timeout time.Duration) (*fedbus.MonitorEvent, error) {
	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for event after %v", timeout)

		case e, ok := <-sub.Events():
			if !ok {
				return nil, fmt.Errorf("subscription closed while waiting for event")
			}
			if match(e) {
				return e, nil
			}
		}
	}
}

// TypeIs matches events of the given type within filter.
func TypeIs(eventType string, filter Filter) func(*fedbus.MonitorEvent) bool {
	return func(e *fedbus.MonitorEvent) bool {
		return e.Type == eventType && filter.Match(e)
	}
}

// FormatEvent renders an event as one human-readable line.
func FormatEvent(e *fedbus.MonitorEvent) string {
	stamp := time.UnixMilli(e.AtMs).Format("15:04:05.000")
	var line string
	switch federation.EventKind(e.Type) {
	case federation.EventFederationCreated:
		line = fmt.Sprintf("🆕 Federation Created: %s", e.Federation)
	case federation.EventFederationDestroyed:
		line = fmt.Sprintf("🗑️  Federation Destroyed: %s", e.Federation)
	case federation.EventFederateJoined:
		line = fmt.Sprintf("➕ Federate Joined: %s in %s", e.Federate, e.Federation)
	case federation.EventFederateResigned:
		line = fmt.Sprintf("➖ Federate Resigned: %s from %s", e.Federate, e.Federation)
	case federation.EventSyncPointRegistered:
		line = fmt.Sprintf("📍 Sync Point Registered: %q by %s", e.Label, e.Federate)
	case federation.EventFederationSynchronized:
		line = fmt.Sprintf("🤝 Federation Synchronized: %q in %s", e.Label, e.Federation)
	case federation.EventTimeAdvanceGranted:
		line = fmt.Sprintf("⏩ Time Advance Granted: %s to %s", e.Federate, seconds(e.Time))
	default:
		line = fmt.Sprintf("❓ %s: federation=%s federate=%s", e.Type, e.Federation, e.Federate)
	}
	return "[" + stamp + "] " + line
}

// seconds renders a federation-clock time (microseconds).
func seconds(us float64) string {
	return strconv.FormatFloat(us/1e6, 'f', -1, 64) + "s"
}
