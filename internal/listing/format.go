package listing

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dyluth/lockstep/pkg/rti"
	"github.com/dyluth/lockstep/pkg/simtime"
)

const rowFormat = "%-16s %-16s %-10s %-10s %-6s %s\n"

// FormatTable writes one row per joined federate, grouped by federation.
// An execution nobody has joined yet gets a single row with "-" columns.
// Returns the number of federations formatted.
func FormatTable(w io.Writer, federations []rti.FederationInfo, instanceName string) int {
	if len(federations) == 0 {
		fmt.Fprintf(w, "No federations found for instance '%s'\n", instanceName)
		return 0
	}

	fmt.Fprintf(w, "Federations for instance '%s':\n\n", instanceName)
	fmt.Fprintf(w, rowFormat, "FEDERATION", "FEDERATE", "TIME", "LOOKAHEAD", "MODE", "STATE")
	fmt.Fprintf(w, rowFormat, "----------------", "----------------", "----------", "----------", "------", "----------")

	for _, fi := range federations {
		if len(fi.Federates) == 0 {
			fmt.Fprintf(w, rowFormat, truncate(fi.Name, 16), "-", "-", "-", "-", "empty")
			continue
		}
		for _, f := range fi.Federates {
			fmt.Fprintf(w, rowFormat,
				truncate(fi.Name, 16),
				truncate(f.Name, 16),
				formatTime(f.Time),
				formatLookahead(f),
				formatMode(f),
				formatState(f),
			)
		}
	}

	countMsg := "federation"
	if len(federations) != 1 {
		countMsg = "federations"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(federations), countMsg)
	return len(federations)
}

// FormatJSONL writes each federation as a single JSON object on its own line.
func FormatJSONL(w io.Writer, federations []rti.FederationInfo) error {
	for _, fi := range federations {
		data, err := json.Marshal(fi)
		if err != nil {
			return fmt.Errorf("failed to marshal federation to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func formatTime(t rti.FedTime) string {
	st, err := simtime.FromFedTime(float64(t))
	if err != nil {
		return fmt.Sprintf("%gµs", float64(t))
	}
	return st.String()
}

func formatLookahead(f rti.FederateInfo) string {
	if !f.Regulating {
		return "-"
	}
	return formatTime(f.Lookahead)
}

// formatMode is R for regulating and C for constrained.
func formatMode(f rti.FederateInfo) string {
	var b strings.Builder
	if f.Regulating {
		b.WriteString("R")
	}
	if f.Constrained {
		b.WriteString("C")
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}

func formatState(f rti.FederateInfo) string {
	if f.Advancing {
		return "advancing"
	}
	return "granted"
}
