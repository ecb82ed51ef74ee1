// Package listing shows what a federation server currently hosts.
package listing

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dyluth/lockstep/pkg/rti"
)

// OutputFormat specifies how to format the federation list output.
type OutputFormat string

const (
	// OutputFormatDefault prints one table row per joined federate
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs one federation per line as JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// Source answers federation snapshots. *fedbus.Client is the usual one.
type Source interface {
	ListFederations(ctx context.Context, timeout time.Duration) ([]rti.FederationInfo, error)
}

// FilterCriteria narrows the listing. All filters are ANDed together.
type FilterCriteria struct {
	NameGlob string // Glob pattern for the federation name, empty = no filter
	Federate string // Only federations this federate has joined, empty = no filter
}

func (fc *FilterCriteria) matchesFilter(fi rti.FederationInfo) bool {
	if fc.NameGlob != "" {
		matched, err := filepath.Match(fc.NameGlob, fi.Name)
		if err != nil || !matched {
			return false
		}
	}
	if fc.Federate != "" {
		for _, f := range fi.Federates {
			if f.Name == fc.Federate {
				return true
			}
		}
		return false
	}
	return true
}

// ValidateGlob reports a malformed name pattern before any request is sent.
func ValidateGlob(pattern string) error {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid federation pattern %q: %w", pattern, err)
	}
	return nil
}

// ListFederations fetches a snapshot from src, filters it and writes it to
// w. The server already returns federations sorted by name.
func ListFederations(ctx context.Context, src Source, timeout time.Duration, instanceName string, format OutputFormat, filters *FilterCriteria, w io.Writer) error {
	all, err := src.ListFederations(ctx, timeout)
	if err != nil {
		return fmt.Errorf("failed to list federations: %w", err)
	}

	federations := all[:0:0]
	for _, fi := range all {
		if filters != nil && !filters.matchesFilter(fi) {
			continue
		}
		federations = append(federations, fi)
	}

	switch format {
	case OutputFormatDefault:
		FormatTable(w, federations, instanceName)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, federations); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	return nil
}
