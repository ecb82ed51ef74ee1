package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dyluth/lockstep/internal/lp"
)

// FederationConfig represents a federation file (federation.yml) listing
// the federates `lockstep local` runs together in one process.
type FederationConfig struct {
	Version    string            `yaml:"version"`
	Federation FederationSection `yaml:"federation"`
	Federates  []string          `yaml:"federates"` // Paths to federate files, relative to this file

	// Loaded federate files, filled by LoadFederation.
	Members []*FederateConfig `yaml:"-"`
}

// Validate checks the federation file itself.
func (c *FederationConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}
	if c.Federation.Name == "" {
		return fmt.Errorf("federation.name is required")
	}
	if len(c.Federates) == 0 {
		return fmt.Errorf("no federates listed")
	}
	return nil
}

// LoadFederation reads a federation file and every federate file it lists.
// Federate files must name the same federation; names of federates must be
// unique. When the federation file sets expect_federates to 0 it defaults
// to the number of listed federates.
func LoadFederation(path string) (*FederationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config FederationConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	expect := config.Federation.ExpectFederates
	if expect == 0 {
		expect = len(config.Federates)
	}

	base := filepath.Dir(path)
	names := make(map[string]string, len(config.Federates))
	for _, rel := range config.Federates {
		p := rel
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		member, err := Load(p)
		if err != nil {
			return nil, fmt.Errorf("federate file %s: %w", rel, err)
		}
		if member.Federation.Name != config.Federation.Name {
			return nil, fmt.Errorf("federate file %s joins '%s', expected '%s'", rel, member.Federation.Name, config.Federation.Name)
		}
		if prev, dup := names[member.Federate.Name]; dup {
			return nil, fmt.Errorf("duplicate federate name '%s' (files %s and %s)", member.Federate.Name, prev, rel)
		}
		names[member.Federate.Name] = rel
		if member.Federation.ExpectFederates == 0 {
			member.Federation.ExpectFederates = expect
		}
		config.Members = append(config.Members, member)
	}
	return &config, nil
}

// Durations parses the retry bounds. Missing values are zero and take the
// processor defaults.
func (r *RetryConfig) Durations() (initial, maxWait time.Duration, err error) {
	if r.Initial != "" {
		if initial, err = time.ParseDuration(r.Initial); err != nil {
			return 0, 0, fmt.Errorf("invalid destroy_retry.initial: %w", err)
		}
	}
	if r.Max != "" {
		if maxWait, err = time.ParseDuration(r.Max); err != nil {
			return 0, 0, fmt.Errorf("invalid destroy_retry.max: %w", err)
		}
	}
	if initial < 0 || maxWait < 0 {
		return 0, 0, fmt.Errorf("destroy_retry durations must not be negative")
	}
	return initial, maxWait, nil
}

// ProcessorOptions maps the file onto lp.Options. The local computation and
// hooks are left to the caller.
func (c *FederateConfig) ProcessorOptions() lp.Options {
	mode, _ := lp.ParseSyncFailureMode(c.Federation.SyncFailure)
	opts := lp.Options{
		Federation:      c.Federation.Name,
		Federate:        c.Federate.Name,
		SyncPoint:       c.Federation.SyncPoint,
		TimeLimit:       c.TimeLimit,
		Timestep:        c.Timestep,
		Lookahead:       c.Lookahead,
		Regulating:      c.IsRegulating(),
		Constrained:     c.IsConstrained(),
		Policy:          lp.PolicyKind(c.Federate.Policy),
		ExpectFederates: c.Federation.ExpectFederates,
		SyncFailure:     mode,
	}
	if r := c.Federate.DestroyRetry; r != nil {
		opts.DestroyRetry.Initial, opts.DestroyRetry.Max, _ = r.Durations()
	}
	return opts
}
