package federation

import (
	"sort"

	"github.com/dyluth/lockstep/pkg/rti"
)

// Snapshot describes every live execution, sorted by name. Federates are
// listed by handle.
func (e *Engine) Snapshot() []rti.FederationInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]rti.FederationInfo, 0, len(e.executions))
	for _, x := range e.executions {
		out = append(out, x.info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (x *execution) info() rti.FederationInfo {
	fi := rti.FederationInfo{Name: x.name, Objects: len(x.objects)}
	for _, f := range x.sortedFederates() {
		fi.Federates = append(fi.Federates, rti.FederateInfo{
			Handle:      f.handle,
			Name:        f.name,
			Time:        f.time,
			Lookahead:   f.lookahead,
			Regulating:  f.regulating,
			Constrained: f.constrained,
			Advancing:   f.advancing,
		})
	}
	for _, sp := range x.sortedSyncPoints() {
		fi.SyncPoints = append(fi.SyncPoints, sp.label)
	}
	return fi
}
